// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package session

import (
	"context"
	"net"
	"strings"
	"testing"

	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/zhtp/go-zhtp/identity/verification"
	"github.com/zhtp/go-zhtp/networking/registry"
	"github.com/zhtp/go-zhtp/protocol"
)

// connectorFixture builds a responder node serving its own peer
// record, plus an initiator-side connector.
func connectorFixture(t *testing.T, tamperRecord func(*registry.PeerRecord)) (*Connector, net.Conn, *registry.Registry, *LocalNode) {
	t.Helper()
	require := require.New(t)

	responder := testNode(t, "responder")
	selfRecord, err := registry.BuildSelfRecord(
		responder.Keypair,
		"responder",
		[]string{"192.0.2.1:9443"},
		registry.Capabilities{QuantumSecure: true, Protocols: []string{"zhtp/1"}},
		0,
	)
	require.NoError(err)
	if tamperRecord != nil {
		tamperRecord(selfRecord)
	}

	router := protocol.NewRouter(log.NewNoOpLogger())
	router.Register(PeerRecordRoute, PeerRecordHandler(selfRecord))

	verified := func(string) (float64, bool) { return 1, true }
	responderServer := NewServer(
		responder,
		router,
		verification.NewCache(verification.DefaultConfig(), log.NewNoOpLogger()),
		verified,
		registry.New(log.NewNoOpLogger()),
		log.NewNoOpLogger(),
	)

	// The initiator side keeps its own registry and verification view.
	initiatorRegistry := registry.New(log.NewNoOpLogger())
	initiatorServer := NewServer(
		testNode(t, "initiator"),
		protocol.NewRouter(log.NewNoOpLogger()),
		verification.NewCache(verification.DefaultConfig(), log.NewNoOpLogger()),
		verified,
		initiatorRegistry,
		log.NewNoOpLogger(),
	)
	connector := NewConnector(initiatorServer, nil, initiatorRegistry, log.NewNoOpLogger())

	// Run the responder over a pipe.
	clientConn, serverConn := net.Pipe()
	t.Cleanup(func() { clientConn.Close() })
	go responderServer.ServeStream(context.Background(), serverConn)

	return connector, clientConn, initiatorRegistry, responder
}

func TestConnectorRegistersDiscoveredPeer(t *testing.T) {
	require := require.New(t)
	connector, stream, reg, responder := connectorFixture(t, nil)

	sess, err := connector.RegisterPeer(context.Background(), stream, ViaMulticast)
	require.NoError(err)
	require.Equal(responder.NodeID, sess.PeerNodeID)

	// The peer's signed record landed in the registry.
	record, ok := reg.Get(responder.NodeID)
	require.True(ok)
	require.Equal(sess.PeerDID, record.DID)
	require.True(record.Capabilities.QuantumSecure)
	require.Equal(1, reg.PeerCount())
}

func TestConnectorRejectsForeignRecord(t *testing.T) {
	require := require.New(t)

	// The responder serves a record for some other node id: the
	// connector must refuse it even though the signature is valid.
	connector, stream, reg, _ := connectorFixture(t, func(r *registry.PeerRecord) {
		r.DID = "did:zhtp:" + strings.Repeat("ab", 32)
	})

	_, err := connector.RegisterPeer(context.Background(), stream, ViaMulticast)
	require.Error(err)
	require.Zero(reg.PeerCount())
}
