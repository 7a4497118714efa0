// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package session

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// keyScheduleInfo labels the session key derivation.
const keyScheduleInfo = "ZHTP-SESSION-V1"

var (
	// ErrAuthFailed is returned when AEAD decryption fails.
	ErrAuthFailed = errors.New("stream authentication failed")
	// ErrShortCiphertext is returned for undersized ciphertexts.
	ErrShortCiphertext = errors.New("ciphertext shorter than nonce")
)

// SecureChannel encrypts stream payloads with keys derived from the
// KEM shared secret. Initiator and responder derive mirrored send and
// receive keys from the same schedule.
type SecureChannel struct {
	mu        sync.Mutex
	sendAEAD  cipher
	recvAEAD  cipher
	sendNonce uint64
	recvNonce uint64
}

type cipher interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	NonceSize() int
}

// NewSecureChannel derives the channel keys from the shared secret.
// isInitiator flips which derived key is used to send.
func NewSecureChannel(sharedSecret []byte, isInitiator bool) (*SecureChannel, error) {
	kdf := hkdf.New(sha256.New, sharedSecret, nil, []byte(keyScheduleInfo))
	keyA := make([]byte, chacha20poly1305.KeySize)
	keyB := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(kdf, keyA); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	if _, err := io.ReadFull(kdf, keyB); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}

	sendKey, recvKey := keyA, keyB
	if !isInitiator {
		sendKey, recvKey = keyB, keyA
	}
	sendAEAD, err := chacha20poly1305.New(sendKey)
	if err != nil {
		return nil, err
	}
	recvAEAD, err := chacha20poly1305.New(recvKey)
	if err != nil {
		return nil, err
	}
	return &SecureChannel{sendAEAD: sendAEAD, recvAEAD: recvAEAD}, nil
}

// Encrypt seals a payload with the next send nonce. The nonce is
// prepended so the receiver can detect reordering.
func (c *SecureChannel) Encrypt(plaintext []byte) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	nonce := make([]byte, c.sendAEAD.NonceSize())
	binary.BigEndian.PutUint64(nonce[len(nonce)-8:], c.sendNonce)
	c.sendNonce++

	return append(nonce, c.sendAEAD.Seal(nil, nonce, plaintext, nil)...)
}

// Decrypt opens a sealed payload, enforcing the nonce sequence.
func (c *SecureChannel) Decrypt(ciphertext []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	nonceSize := c.recvAEAD.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrShortCiphertext
	}
	nonce := ciphertext[:nonceSize]
	if got := binary.BigEndian.Uint64(nonce[nonceSize-8:]); got != c.recvNonce {
		return nil, fmt.Errorf("%w: nonce %d, expected %d", ErrAuthFailed, got, c.recvNonce)
	}

	plaintext, err := c.recvAEAD.Open(nil, nonce, ciphertext[nonceSize:], nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	c.recvNonce++
	return plaintext, nil
}
