// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/luxfi/log"
)

// mDNS service constants.
const (
	MDNSService = "_zhtp._tcp"
	MDNSDomain  = "local."

	// MDNSBrowseTimeout bounds one browse; whatever was gathered by
	// then is returned.
	MDNSBrowseTimeout = 5 * time.Second
)

// DeviceType classifies an mDNS-discovered device.
type DeviceType string

// Device types carried in TXT records.
const (
	DeviceRouter DeviceType = "router"
	DeviceClient DeviceType = "client"
)

// MDNSPeer is one `_zhtp._tcp` service instance.
type MDNSPeer struct {
	Instance   string
	Addr       string
	Port       int
	NodeID     string
	DeviceType DeviceType
	GroupOwner bool
}

// classifyEntry maps a service entry's TXT records to an MDNSPeer.
// TXT `device_type=router` marks a router; anything else is a client.
func classifyEntry(entry *zeroconf.ServiceEntry) MDNSPeer {
	peer := MDNSPeer{
		Instance:   entry.Instance,
		Port:       entry.Port,
		DeviceType: DeviceClient,
	}
	if len(entry.AddrIPv4) > 0 {
		peer.Addr = net.JoinHostPort(entry.AddrIPv4[0].String(), fmt.Sprintf("%d", entry.Port))
	}
	for _, txt := range entry.Text {
		key, value, ok := strings.Cut(txt, "=")
		if !ok {
			continue
		}
		switch key {
		case "device_type":
			if value == string(DeviceRouter) {
				peer.DeviceType = DeviceRouter
			}
		case "node_id":
			peer.NodeID = value
		case "group_owner":
			peer.GroupOwner = value == "true"
		}
	}
	return peer
}

// MDNSBrowser discovers `_zhtp._tcp` peers on the local network.
type MDNSBrowser struct {
	log     log.Logger
	timeout time.Duration
}

// NewMDNSBrowser returns a browser with the default timeout.
func NewMDNSBrowser(logger log.Logger) *MDNSBrowser {
	return &MDNSBrowser{log: logger, timeout: MDNSBrowseTimeout}
}

// Discover browses for all ZHTP peers until the timeout elapses.
func (b *MDNSBrowser) Discover(ctx context.Context) ([]MDNSPeer, error) {
	return b.discover(ctx, func(MDNSPeer) bool { return true })
}

// DiscoverRoutersOnly browses for router devices.
func (b *MDNSBrowser) DiscoverRoutersOnly(ctx context.Context) ([]MDNSPeer, error) {
	return b.discover(ctx, func(p MDNSPeer) bool { return p.DeviceType == DeviceRouter })
}

// DiscoverClientsOnly browses for client devices.
func (b *MDNSBrowser) DiscoverClientsOnly(ctx context.Context) ([]MDNSPeer, error) {
	return b.discover(ctx, func(p MDNSPeer) bool { return p.DeviceType == DeviceClient })
}

// discover runs one bounded browse, filtering entries as they arrive.
func (b *MDNSBrowser) discover(ctx context.Context, keep func(MDNSPeer) bool) ([]MDNSPeer, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("create mdns resolver: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, MDNSService, MDNSDomain, entries); err != nil {
		return nil, fmt.Errorf("mdns browse: %w", err)
	}

	var peers []MDNSPeer
	for entry := range entries {
		peer := classifyEntry(entry)
		if keep(peer) {
			peers = append(peers, peer)
			b.log.Debug("mdns peer found",
				"instance", peer.Instance,
				"addr", peer.Addr,
				"device_type", peer.DeviceType)
		}
	}
	// Timeout is the normal exit: return whatever was gathered.
	return peers, nil
}

// AdvertiseMDNS registers this node as a `_zhtp._tcp` service. The
// returned shutdown function deregisters it.
func AdvertiseMDNS(instance string, port int, deviceType DeviceType, nodeID string, logger log.Logger) (func(), error) {
	txt := []string{
		"device_type=" + string(deviceType),
		"node_id=" + nodeID,
	}
	server, err := zeroconf.Register(instance, MDNSService, MDNSDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}
	logger.Info("mdns service registered",
		"instance", instance,
		"service", MDNSService,
		"port", port,
		"device_type", deviceType)
	return server.Shutdown, nil
}
