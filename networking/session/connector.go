// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/luxfi/log"

	"github.com/zhtp/go-zhtp/networking/registry"
	"github.com/zhtp/go-zhtp/protocol"
)

// PeerRecordRoute is where nodes serve their signed peer record.
const PeerRecordRoute = "/api/peers/record"

// ErrRecordPeerMismatch is returned when a fetched peer record does
// not belong to the session peer.
var ErrRecordPeerMismatch = errors.New("peer record does not match session peer")

// PeerRecordHandler serves this node's signed peer record so dialing
// peers can admit it into their registries.
func PeerRecordHandler(self *registry.PeerRecord) protocol.Handler {
	return protocol.HandlerFunc(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		body, err := cbor.Marshal(self)
		if err != nil {
			return nil, err
		}
		resp := protocol.Success(body, nil)
		resp.Headers[protocol.HeaderContentType] = "application/cbor"
		return resp, nil
	})
}

// Connector turns discovered addresses into admitted registry peers:
// dial, authenticate, fetch the peer's signed record, verify it
// belongs to the session peer, and register it.
type Connector struct {
	server    *Server
	transport *QUICTransport
	registry  *registry.Registry
	log       log.Logger
}

// NewConnector wires a Connector.
func NewConnector(server *Server, transport *QUICTransport, reg *registry.Registry, logger log.Logger) *Connector {
	return &Connector{
		server:    server,
		transport: transport,
		registry:  reg,
		log:       logger,
	}
}

// ConnectAndRegister dials a discovered peer and runs RegisterPeer on
// the authenticated stream. It is shaped to be used as the discovery
// peer callback.
func (c *Connector) ConnectAndRegister(ctx context.Context, addr string, discoveredVia uint8) (*ControlPlaneSession, error) {
	conn, stream, err := c.transport.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	sess, err := c.RegisterPeer(ctx, stream, discoveredVia)
	if err != nil {
		conn.CloseWithError(1, "registration failed")
		return nil, err
	}
	c.log.Info("peer connected and registered",
		"addr", addr,
		"peer_did", sess.PeerDID)
	return sess, nil
}

// RegisterPeer authenticates the stream, fetches the peer's signed
// record over it, and admits the record into the registry. The record
// must carry the same node id and public key the session was
// established with.
func (c *Connector) RegisterPeer(ctx context.Context, stream io.ReadWriter, discoveredVia uint8) (*ControlPlaneSession, error) {
	sess, err := c.server.Dial(stream, discoveredVia)
	if err != nil {
		return nil, err
	}

	if err := protocol.WriteRequest(stream, protocol.NewRequest("GET", PeerRecordRoute, nil)); err != nil {
		return nil, err
	}
	resp, err := protocol.ReadResponse(stream)
	if err != nil {
		return nil, err
	}
	if !resp.Status.IsSuccess() {
		c.registry.RecordFailure(sess.PeerNodeID)
		return nil, fmt.Errorf("peer record fetch failed: %s", resp.StatusMessage)
	}

	var record registry.PeerRecord
	if err := cbor.Unmarshal(resp.Body, &record); err != nil {
		c.registry.RecordFailure(sess.PeerNodeID)
		return nil, fmt.Errorf("decode peer record: %w", err)
	}

	// The record must describe the peer we authenticated, not a third
	// party it is replaying.
	if record.NodeID != sess.PeerNodeID || record.DID != sess.PeerDID {
		c.registry.RecordFailure(sess.PeerNodeID)
		return nil, ErrRecordPeerMismatch
	}

	if err := c.registry.Register(&record); err != nil {
		c.registry.RecordFailure(sess.PeerNodeID)
		return nil, fmt.Errorf("register peer: %w", err)
	}
	return sess, nil
}
