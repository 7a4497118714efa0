// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package session

import (
	"fmt"
	"io"
	"time"

	"github.com/luxfi/log"

	"github.com/zhtp/go-zhtp/crypto/pq"
	"github.com/zhtp/go-zhtp/identity"
)

// LocalNode is this node's identity material for session setup.
type LocalNode struct {
	NodeID       identity.NodeID
	Keypair      *pq.Keypair
	MeshPort     uint16
	Protocols    []string
	Capabilities HandshakeCapabilities
}

// handshake builds this node's UHP handshake.
func (n *LocalNode) handshake(discoveredVia uint8) *MeshHandshake {
	return &MeshHandshake{
		Version:       HandshakeVersion,
		NodeID:        n.NodeID,
		PublicKey:     n.Keypair.Public,
		KEMPublicKey:  n.Keypair.KEMPublic,
		MeshPort:      n.MeshPort,
		Protocols:     n.Protocols,
		DiscoveredVia: discoveredVia,
		Capabilities:  n.Capabilities,
	}
}

// ControlPlaneSession is an established, authenticated peer session.
// Every request read from a stream on this session is stamped with
// Hash(PeerDID) before routing.
type ControlPlaneSession struct {
	PeerDID       string
	PeerNodeID    identity.NodeID
	PeerPublicKey []byte
	SharedSecret  []byte
	EstablishedAt time.Time

	Channel   *SecureChannel
	Handshake *MeshHandshake
}

// EstablishInitiator runs the dialing side of session setup on an
// already-connected stream: send UHP handshake, await the ack and the
// responder's handshake, then encapsulate to the responder's Kyber key
// and send the ciphertext.
func EstablishInitiator(stream io.ReadWriter, local *LocalNode, discoveredVia uint8, logger log.Logger) (*ControlPlaneSession, error) {
	if err := writeHandshake(stream, local.handshake(discoveredVia)); err != nil {
		return nil, err
	}
	if err := awaitAck(stream); err != nil {
		return nil, err
	}
	peer, err := readHandshake(stream)
	if err != nil {
		return nil, err
	}

	ct, sharedSecret, err := pq.Encapsulate(peer.KEMPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKemFailed, err)
	}
	if _, err := stream.Write(ct); err != nil {
		return nil, fmt.Errorf("%w: send ciphertext: %v", ErrKemFailed, err)
	}

	channel, err := NewSecureChannel(sharedSecret, true)
	if err != nil {
		return nil, err
	}

	session := newSession(peer, sharedSecret, channel)
	logger.Debug("session established as initiator",
		"peer_did", session.PeerDID,
		"peer_node_id", session.PeerNodeID)
	return session, nil
}

// EstablishResponder runs the accepting side: read and ack the UHP
// handshake, reply with our own, then decapsulate the initiator's
// Kyber ciphertext.
func EstablishResponder(stream io.ReadWriter, local *LocalNode, logger log.Logger) (*ControlPlaneSession, error) {
	peer, err := readHandshake(stream)
	if err != nil {
		return nil, err
	}
	if _, err := stream.Write([]byte{ackByte}); err != nil {
		return nil, fmt.Errorf("%w: send ack: %v", ErrHandshakeFailed, err)
	}
	if err := writeHandshake(stream, local.handshake(ViaManual)); err != nil {
		return nil, err
	}

	ct := make([]byte, pq.KyberCiphertextSize)
	if _, err := io.ReadFull(stream, ct); err != nil {
		return nil, fmt.Errorf("%w: read ciphertext: %v", ErrKemFailed, err)
	}
	sharedSecret, err := pq.Decapsulate(local.Keypair.KEMSecret, ct)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKemFailed, err)
	}

	channel, err := NewSecureChannel(sharedSecret, false)
	if err != nil {
		return nil, err
	}

	session := newSession(peer, sharedSecret, channel)
	logger.Debug("session established as responder",
		"peer_did", session.PeerDID,
		"peer_node_id", session.PeerNodeID)
	return session, nil
}

func newSession(peer *MeshHandshake, sharedSecret []byte, channel *SecureChannel) *ControlPlaneSession {
	return &ControlPlaneSession{
		PeerDID:       peer.DID(),
		PeerNodeID:    peer.NodeID,
		PeerPublicKey: peer.PublicKey,
		SharedSecret:  sharedSecret,
		EstablishedAt: time.Now(),
		Channel:       channel,
		Handshake:     peer,
	}
}
