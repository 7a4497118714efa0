// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package session

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"time"

	"github.com/quic-go/quic-go"
)

// meshALPN is the ALPN tag for authenticated mesh streams. TLS here is
// a transport shell only; peer authentication happens in the UHP/KEM
// layer above it.
const meshALPN = "zhtp/1"

// HandshakeTimeout bounds the whole Kyber-authenticated stream setup.
const HandshakeTimeout = 10 * time.Second

// DialTCP opens the initial-handshake TCP connection.
func DialTCP(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return conn, nil
}

// QUICTransport wraps quic-go listen/dial with the mesh TLS shell.
type QUICTransport struct {
	tlsConf *tls.Config
}

// NewQUICTransport builds a transport with an ephemeral self-signed
// certificate.
func NewQUICTransport() (*QUICTransport, error) {
	cert, err := ephemeralCert()
	if err != nil {
		return nil, err
	}
	return &QUICTransport{
		tlsConf: &tls.Config{
			Certificates: []tls.Certificate{cert},
			NextProtos:   []string{meshALPN},
			// Trust is established by the PQ handshake, not the cert.
			InsecureSkipVerify: true,
		},
	}, nil
}

// Listen opens a QUIC listener on addr.
func (t *QUICTransport) Listen(addr string) (*quic.Listener, error) {
	ln, err := quic.ListenAddr(addr, t.tlsConf, &quic.Config{})
	if err != nil {
		return nil, fmt.Errorf("quic listen %s: %w", addr, err)
	}
	return ln, nil
}

// Dial opens a QUIC connection and its first bidirectional stream.
func (t *QUICTransport) Dial(ctx context.Context, addr string) (quic.Connection, quic.Stream, error) {
	conn, err := quic.DialAddr(ctx, addr, t.tlsConf, &quic.Config{})
	if err != nil {
		return nil, nil, fmt.Errorf("quic dial %s: %w", addr, err)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(0, "open stream failed")
		return nil, nil, fmt.Errorf("open stream to %s: %w", addr, err)
	}
	return conn, stream, nil
}

// ephemeralCert generates a throwaway P-256 certificate for the TLS
// shell.
func ephemeralCert() (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate tls key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, err
	}
	template := x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "zhtp-mesh"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("create tls cert: %w", err)
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, nil
}
