// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package session

import (
	"context"
	"encoding/hex"
	"net"
	"testing"
	"time"

	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/zhtp/go-zhtp/crypto/hashing"
	"github.com/zhtp/go-zhtp/crypto/pq"
	"github.com/zhtp/go-zhtp/identity"
	"github.com/zhtp/go-zhtp/identity/verification"
	"github.com/zhtp/go-zhtp/networking/registry"
	"github.com/zhtp/go-zhtp/protocol"
)

func testNode(t *testing.T, device string) *LocalNode {
	t.Helper()
	require := require.New(t)

	kp, err := pq.GenerateKeypair()
	require.NoError(err)
	keyID := kp.KeyID()
	did := "did:zhtp:" + hex.EncodeToString(keyID[:])
	nodeID, err := identity.NodeIDFromDIDDevice(did, device)
	require.NoError(err)

	return &LocalNode{
		NodeID:    nodeID,
		Keypair:   kp,
		MeshPort:  9443,
		Protocols: []string{"zhtp/1"},
	}
}

// establishPair runs both handshake sides over a pipe.
func establishPair(t *testing.T, initiator, responder *LocalNode) (*ControlPlaneSession, *ControlPlaneSession) {
	t.Helper()
	require := require.New(t)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	type result struct {
		sess *ControlPlaneSession
		err  error
	}
	respCh := make(chan result, 1)
	go func() {
		sess, err := EstablishResponder(serverConn, responder, log.NewNoOpLogger())
		respCh <- result{sess, err}
	}()

	initSess, err := EstablishInitiator(clientConn, initiator, ViaMulticast, log.NewNoOpLogger())
	require.NoError(err)
	resp := <-respCh
	require.NoError(resp.err)
	return initSess, resp.sess
}

func TestSessionEstablishment(t *testing.T) {
	require := require.New(t)

	alice := testNode(t, "alice")
	bob := testNode(t, "bob")

	aliceSess, bobSess := establishPair(t, alice, bob)

	// Both sides agree on the Kyber shared secret.
	require.Equal(aliceSess.SharedSecret, bobSess.SharedSecret)
	require.Len(aliceSess.SharedSecret, pq.KyberSharedKeySize)

	// Each side sees the other's derived DID and node id.
	bobKeyID := hashing.Sum256(bob.Keypair.Public)
	require.Equal("did:zhtp:"+hex.EncodeToString(bobKeyID[:]), aliceSess.PeerDID)
	require.Equal(bob.NodeID, aliceSess.PeerNodeID)
	require.Equal(alice.NodeID, bobSess.PeerNodeID)
	require.WithinDuration(time.Now(), aliceSess.EstablishedAt, time.Minute)
}

func TestSecureChannelBothDirections(t *testing.T) {
	require := require.New(t)

	alice := testNode(t, "alice")
	bob := testNode(t, "bob")
	aliceSess, bobSess := establishPair(t, alice, bob)

	// Initiator -> responder.
	sealed := aliceSess.Channel.Encrypt([]byte("route this"))
	opened, err := bobSess.Channel.Decrypt(sealed)
	require.NoError(err)
	require.Equal([]byte("route this"), opened)

	// Responder -> initiator.
	sealed = bobSess.Channel.Encrypt([]byte("ack"))
	opened, err = aliceSess.Channel.Decrypt(sealed)
	require.NoError(err)
	require.Equal([]byte("ack"), opened)
}

func TestSecureChannelRejectsTampering(t *testing.T) {
	require := require.New(t)

	alice := testNode(t, "alice")
	bob := testNode(t, "bob")
	aliceSess, bobSess := establishPair(t, alice, bob)

	sealed := aliceSess.Channel.Encrypt([]byte("payload"))
	sealed[len(sealed)-1] ^= 0xff
	_, err := bobSess.Channel.Decrypt(sealed)
	require.ErrorIs(err, ErrAuthFailed)

	// The tampered frame never advanced the receive nonce, so the next
	// frame's nonce no longer lines up.
	next := aliceSess.Channel.Encrypt([]byte("one"))
	_, err = bobSess.Channel.Decrypt(next)
	require.ErrorIs(err, ErrAuthFailed)
}

func TestResponderRejectsMalformedHandshake(t *testing.T) {
	require := require.New(t)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	bob := testNode(t, "bob")
	errCh := make(chan error, 1)
	go func() {
		_, err := EstablishResponder(serverConn, bob, log.NewNoOpLogger())
		errCh <- err
	}()

	// A framed garbage payload.
	clientConn.Write([]byte{0x00, 0x04, 0xde, 0xad, 0xbe, 0xef})
	require.ErrorIs(<-errCh, ErrHandshakeFailed)
}

func TestHandshakeValidation(t *testing.T) {
	require := require.New(t)

	node := testNode(t, "alice")
	good := node.handshake(ViaMulticast)
	require.NoError(good.validate())

	bad := *good
	bad.Version = 9
	require.ErrorIs(bad.validate(), ErrHandshakeFailed)

	bad = *good
	bad.PublicKey = bad.PublicKey[:100]
	require.ErrorIs(bad.validate(), ErrHandshakeFailed)

	bad = *good
	bad.KEMPublicKey = nil
	require.ErrorIs(bad.validate(), ErrHandshakeFailed)

	bad = *good
	bad.DiscoveredVia = 7
	require.ErrorIs(bad.validate(), ErrHandshakeFailed)
}

// serverFixture wires a Server over a router with one echo handler.
func serverFixture(t *testing.T, lookup verification.LookupFunc) (*Server, *registry.Registry) {
	t.Helper()

	router := protocol.NewRouter(log.NewNoOpLogger())
	router.Register("/echo", protocol.HandlerFunc(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		// Echo back the authenticated requester hash.
		return protocol.Success(req.Requester[:], nil), nil
	}))

	reg := registry.New(log.NewNoOpLogger())
	server := NewServer(
		testNode(t, "server"),
		router,
		verification.NewCache(verification.DefaultConfig(), log.NewNoOpLogger()),
		lookup,
		reg,
		log.NewNoOpLogger(),
	)
	return server, reg
}

func TestServeStreamStampsRequester(t *testing.T) {
	require := require.New(t)

	server, _ := serverFixture(t, func(string) (float64, bool) { return 0.9, true })
	client := testNode(t, "client")

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.ServeStream(ctx, serverConn)

	_, err := EstablishInitiator(clientConn, client, ViaManual, log.NewNoOpLogger())
	require.NoError(err)

	// Try to spoof the requester; the session layer must overwrite it.
	req := protocol.NewRequest("GET", "/echo", nil)
	forged := protocol.HashDID("did:zhtp:somebody-else")
	req.Requester = &forged
	require.NoError(protocol.WriteRequest(clientConn, req))

	resp, err := protocol.ReadResponse(clientConn)
	require.NoError(err)
	require.Equal(protocol.StatusOK, resp.Status)

	clientKeyID := hashing.Sum256(client.Keypair.Public)
	wantDID := "did:zhtp:" + hex.EncodeToString(clientKeyID[:])
	want := protocol.HashDID(wantDID)
	require.Equal(want[:], resp.Body)
}

func TestServeStreamDeniesUnverifiedPeer(t *testing.T) {
	require := require.New(t)

	server, _ := serverFixture(t, func(string) (float64, bool) { return 0, false })
	client := testNode(t, "client")

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	go server.ServeStream(context.Background(), serverConn)

	// Handshake completes (manual discovery: no bootstrap privileges),
	// then the server closes with a Forbidden response.
	_, err := EstablishInitiator(clientConn, client, ViaManual, log.NewNoOpLogger())
	require.NoError(err)

	resp, err := protocol.ReadResponse(clientConn)
	require.NoError(err)
	require.Equal(protocol.StatusForbidden, resp.Status)
}

func TestQUICTransportLoopback(t *testing.T) {
	require := require.New(t)

	transport, err := NewQUICTransport()
	require.NoError(err)

	ln, err := transport.Listen("127.0.0.1:0")
	require.NoError(err)
	defer ln.Close()

	server, _ := serverFixture(t, func(string) (float64, bool) { return 1, true })

	ctx, cancel := context.WithTimeout(context.Background(), HandshakeTimeout)
	defer cancel()

	go func() {
		conn, err := ln.Accept(ctx)
		if err != nil {
			return
		}
		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			return
		}
		server.ServeStream(ctx, stream)
	}()

	conn, stream, err := transport.Dial(ctx, ln.Addr().String())
	require.NoError(err)
	defer conn.CloseWithError(0, "test done")

	client := testNode(t, "quic-client")
	_, err = EstablishInitiator(stream, client, ViaManual, log.NewNoOpLogger())
	require.NoError(err)

	require.NoError(protocol.WriteRequest(stream, protocol.NewRequest("GET", "/echo", nil)))
	resp, err := protocol.ReadResponse(stream)
	require.NoError(err)
	require.Equal(protocol.StatusOK, resp.Status)
}
