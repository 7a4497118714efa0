// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package session

import (
	"context"
	"errors"
	"io"

	"github.com/luxfi/log"

	"github.com/zhtp/go-zhtp/identity/verification"
	"github.com/zhtp/go-zhtp/networking/registry"
	"github.com/zhtp/go-zhtp/protocol"
)

// sessionPeer adapts a ControlPlaneSession to the verification layer.
type sessionPeer struct {
	session *ControlPlaneSession
}

func (p sessionPeer) DID() string { return p.session.PeerDID }

// IsBootstrapMode reports whether the peer presented itself through a
// bootstrap-only discovery path. Multicast-discovered peers without an
// on-chain record are allowed to bootstrap.
func (p sessionPeer) IsBootstrapMode() bool {
	return p.session.Handshake.DiscoveredVia == ViaMulticast
}

// Server serves authenticated ZHTP streams: responder handshake,
// routing admission through the verification cache, then a
// read-route-respond loop with the requester stamped from the session.
type Server struct {
	local    *LocalNode
	router   *protocol.Router
	verifier *verification.Cache
	lookup   verification.LookupFunc
	registry *registry.Registry
	log      log.Logger
}

// NewServer wires the session server.
func NewServer(
	local *LocalNode,
	router *protocol.Router,
	verifier *verification.Cache,
	lookup verification.LookupFunc,
	reg *registry.Registry,
	logger log.Logger,
) *Server {
	return &Server{
		local:    local,
		router:   router,
		verifier: verifier,
		lookup:   lookup,
		registry: reg,
		log:      logger,
	}
}

// ServeStream handles one inbound stream end to end. Handshake
// failures close the stream with a serialized error response and no
// retry; admission failures do the same and record a registry failure.
func (s *Server) ServeStream(ctx context.Context, stream io.ReadWriter) error {
	sess, err := EstablishResponder(stream, s.local, s.log)
	if err != nil {
		s.log.Warn("stream handshake failed", "err", err)
		protocol.WriteResponse(stream, protocol.PostQuantumRequired(err.Error()))
		return err
	}

	result := s.verifier.Verify(sessionPeer{session: sess}, s.lookup)
	if !result.AllowsRouting() {
		s.log.Warn("peer denied routing",
			"peer_did", sess.PeerDID,
			"result", result)
		s.registry.RecordFailure(sess.PeerNodeID)
		protocol.WriteResponse(stream, protocol.Error(protocol.StatusForbidden, "identity verification failed: "+result.String()))
		return errors.New("peer not admitted: " + result.String())
	}

	return s.serveRequests(ctx, stream, sess)
}

// serveRequests runs the request loop on an admitted session. Every
// request is stamped with the authenticated requester hash before it
// reaches the router, overriding anything the peer put on the wire.
func (s *Server) serveRequests(ctx context.Context, stream io.ReadWriter, sess *ControlPlaneSession) error {
	requester := protocol.HashDID(sess.PeerDID)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		req, err := protocol.ReadRequest(stream)
		if err != nil {
			// Stream end is the normal exit.
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		req.Requester = &requester

		resp := s.router.Route(ctx, req)
		if err := protocol.WriteResponse(stream, resp); err != nil {
			return err
		}
	}
}

// Dial establishes an outbound authenticated session on a connected
// stream and verifies the responder is admitted to routing.
func (s *Server) Dial(stream io.ReadWriter, discoveredVia uint8) (*ControlPlaneSession, error) {
	sess, err := EstablishInitiator(stream, s.local, discoveredVia, s.log)
	if err != nil {
		return nil, err
	}
	result := s.verifier.Verify(sessionPeer{session: sess}, s.lookup)
	if !result.AllowsRouting() {
		s.registry.RecordFailure(sess.PeerNodeID)
		return nil, errors.New("peer not admitted: " + result.String())
	}
	return sess, nil
}
