// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

// Package discovery finds mesh peers without bootstrap infrastructure:
// a UDP multicast announce/listen pair for the local network, an mDNS
// browse for `_zhtp._tcp` services, and a bootstrap-list fan-out for
// everything else.
package discovery

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/zhtp/go-zhtp/identity"
)

// Multicast group every node announces on.
const (
	MulticastAddr = "224.0.1.75"
	MulticastPort = 37775

	// AnnounceInterval is the steady-state gap between announcements.
	AnnounceInterval = 30 * time.Second

	// multicastTTL keeps announcements subnet-local (one router hop).
	multicastTTL = 2

	// maxAnnouncementSize bounds a received datagram.
	maxAnnouncementSize = 2048
)

// NodeAnnouncement is the JSON datagram broadcast on the multicast
// group.
type NodeAnnouncement struct {
	NodeID      identity.NodeID `json:"node_id"`
	MeshPort    uint16          `json:"mesh_port"`
	LocalIP     string          `json:"local_ip"`
	Protocols   []string        `json:"protocols"`
	AnnouncedAt uint64          `json:"announced_at"`
}

// encode serializes the announcement for the wire.
func (a *NodeAnnouncement) encode() ([]byte, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode announcement: %w", err)
	}
	return data, nil
}

// parseAnnouncement decodes one received datagram.
func parseAnnouncement(data []byte) (*NodeAnnouncement, error) {
	var a NodeAnnouncement
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse announcement: %w", err)
	}
	if a.NodeID.IsZero() {
		return nil, fmt.Errorf("announcement missing node id")
	}
	if a.MeshPort == 0 {
		return nil, fmt.Errorf("announcement missing mesh port")
	}
	return &a, nil
}

// Addr returns the peer's dialable mesh address.
func (a *NodeAnnouncement) Addr() string {
	return net.JoinHostPort(a.LocalIP, fmt.Sprintf("%d", a.MeshPort))
}

// localIPv4 picks this host's first non-loopback IPv4 address.
func localIPv4() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "127.0.0.1"
}
