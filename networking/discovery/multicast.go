// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package discovery

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/luxfi/log"
	"golang.org/x/net/ipv4"

	"github.com/zhtp/go-zhtp/identity"
)

// PeerCallback is invoked for every announcement from another node.
type PeerCallback func(addr string, announcement *NodeAnnouncement)

// Config controls local-network discovery.
type Config struct {
	NodeID    identity.NodeID
	MeshPort  uint16
	Protocols []string

	// AnnounceInterval overrides the 30 s default, for tests.
	AnnounceInterval time.Duration
	// MulticastAddress overrides the fixed group, for tests.
	MulticastAddress string
}

// Service runs the multicast announce and listen loops.
type Service struct {
	config   Config
	log      log.Logger
	onPeer   PeerCallback
	group    *net.UDPAddr
	localIP  string
	sendConn *net.UDPConn
	recvConn *net.UDPConn
}

// NewService returns a discovery Service. onPeer may be nil for
// announce-only nodes.
func NewService(config Config, onPeer PeerCallback, logger log.Logger) (*Service, error) {
	if config.AnnounceInterval <= 0 {
		config.AnnounceInterval = AnnounceInterval
	}
	if config.MulticastAddress == "" {
		config.MulticastAddress = fmt.Sprintf("%s:%d", MulticastAddr, MulticastPort)
	}
	group, err := net.ResolveUDPAddr("udp4", config.MulticastAddress)
	if err != nil {
		return nil, fmt.Errorf("resolve multicast group: %w", err)
	}
	return &Service{
		config:  config,
		log:     logger,
		onPeer:  onPeer,
		group:   group,
		localIP: localIPv4(),
	}, nil
}

// Start sends one immediate announcement, then runs the broadcast and
// listen loops until the context is cancelled. Cancellation closes the
// sockets, which terminates both loops.
func (s *Service) Start(ctx context.Context) error {
	s.log.Info("starting multicast discovery",
		"group", s.group.String(),
		"node_id", s.config.NodeID,
		"mesh_port", s.config.MeshPort)

	sendConn, err := s.openMulticastConn()
	if err != nil {
		return err
	}
	s.sendConn = sendConn

	recvConn, err := s.openMulticastConn()
	if err != nil {
		sendConn.Close()
		return err
	}
	s.recvConn = recvConn

	// Other nodes can discover us before our first tick.
	if err := s.announce(); err != nil {
		s.log.Warn("immediate announcement failed", "err", err)
	}

	go s.broadcastLoop(ctx)
	go s.listenLoop(ctx)
	go func() {
		<-ctx.Done()
		sendConn.Close()
		recvConn.Close()
	}()

	s.log.Info("multicast discovery active",
		"group", s.group.String(),
		"announce_interval", s.config.AnnounceInterval)
	return nil
}

// openMulticastConn binds the multicast port with address reuse, joins
// the group, and enables loopback so co-host peers see each other.
func (s *Service) openMulticastConn() (*net.UDPConn, error) {
	lc := net.ListenConfig{Control: reusePort}
	pc, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf("0.0.0.0:%d", s.group.Port))
	if err != nil {
		return nil, fmt.Errorf("bind multicast port: %w", err)
	}
	conn := pc.(*net.UDPConn)

	p := ipv4.NewPacketConn(conn)
	if err := p.JoinGroup(nil, &net.UDPAddr{IP: s.group.IP}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("join multicast group: %w", err)
	}
	if err := p.SetMulticastTTL(multicastTTL); err != nil {
		s.log.Debug("set multicast ttl failed", "err", err)
	}
	if err := p.SetMulticastLoopback(true); err != nil {
		s.log.Debug("set multicast loopback failed", "err", err)
	}
	return conn, nil
}

// announce sends one announcement datagram to the group.
func (s *Service) announce() error {
	announcement := NodeAnnouncement{
		NodeID:      s.config.NodeID,
		MeshPort:    s.config.MeshPort,
		LocalIP:     s.localIP,
		Protocols:   s.config.Protocols,
		AnnouncedAt: uint64(time.Now().Unix()),
	}
	data, err := announcement.encode()
	if err != nil {
		return err
	}
	if _, err := s.sendConn.WriteToUDP(data, s.group); err != nil {
		return fmt.Errorf("send announcement: %w", err)
	}
	return nil
}

// broadcastLoop announces every AnnounceInterval.
func (s *Service) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.AnnounceInterval)
	defer ticker.Stop()

	count := 1
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.announce(); err != nil {
				if ctx.Err() != nil {
					return
				}
				s.log.Warn("announcement failed", "err", err)
				continue
			}
			count++
			if count%10 == 0 {
				s.log.Debug("announcement broadcast", "count", count)
			}
		}
	}
}

// listenLoop receives announcements, drops our own, and hands the rest
// to the callback.
func (s *Service) listenLoop(ctx context.Context) {
	buf := make([]byte, maxAnnouncementSize)
	for {
		n, from, err := s.recvConn.ReadFromUDP(buf)
		if err != nil {
			// Socket closed on shutdown.
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("multicast read failed", "err", err)
			return
		}

		announcement, err := parseAnnouncement(buf[:n])
		if err != nil {
			s.log.Debug("dropping malformed announcement", "from", from, "err", err)
			continue
		}
		if announcement.NodeID == s.config.NodeID {
			continue
		}

		s.log.Debug("peer announcement received",
			"node_id", announcement.NodeID,
			"addr", announcement.Addr())
		if s.onPeer != nil {
			s.onPeer(announcement.Addr(), announcement)
		}
	}
}
