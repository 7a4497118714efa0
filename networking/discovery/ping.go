// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package discovery

import (
	"bytes"
	"fmt"
	"net"
	"time"
)

// Reachability probe budgets.
const (
	pingSendTimeout = 200 * time.Millisecond
	pingRecvTimeout = 500 * time.Millisecond
)

// Probe payloads.
var (
	pingPayload = []byte("ZHTP_PING")
	pongPayload = []byte("ZHTP_PONG")
)

// Ping sends a UDP reachability probe to addr and waits for the pong.
// Budgets: 200 ms for the send, 500 ms for the receive.
func Ping(addr string) error {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(pingSendTimeout))
	if _, err := conn.Write(pingPayload); err != nil {
		return fmt.Errorf("send ping: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(pingRecvTimeout))
	buf := make([]byte, len(pongPayload))
	n, err := conn.Read(buf)
	if err != nil {
		return fmt.Errorf("await pong: %w", err)
	}
	if !bytes.Equal(buf[:n], pongPayload) {
		return fmt.Errorf("unexpected pong payload %q", buf[:n])
	}
	return nil
}

// ServePong answers reachability probes on conn until it is closed.
// Run it on the mesh UDP port so peers can validate liveness cheaply.
func ServePong(conn *net.UDPConn) {
	buf := make([]byte, 64)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		if bytes.Equal(buf[:n], pingPayload) {
			conn.WriteToUDP(pongPayload, from)
		}
	}
}
