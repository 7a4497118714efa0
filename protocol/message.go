// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

// Package protocol defines the ZHTP request/response wire types, the
// length-prefixed framing they travel in, and the handler router the
// server side dispatches through.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/zhtp/go-zhtp/crypto/hashing"
	"github.com/zhtp/go-zhtp/zk"
)

// Version is the protocol version stamped on every message.
const Version = "ZHTP/1.0"

// DIDHash is the BLAKE3 digest of a DID, used to identify requesters
// and servers on the wire without carrying the full DID.
type DIDHash [32]byte

// HashDID digests a DID for wire use.
func HashDID(did string) DIDHash {
	return DIDHash(hashing.Sum256([]byte(did)))
}

// Headers is the header map of a ZHTP message.
type Headers map[string]string

// Common header keys.
const (
	HeaderContentType   = "content-type"
	HeaderContentLength = "content-length"
	HeaderCacheControl  = "cache-control"
	HeaderEncryption    = "encryption"
	HeaderLocation      = "location"
)

// Request is a ZHTP request. Requester is stamped by the session layer
// after authentication, never trusted from the wire.
type Request struct {
	Method    string    `cbor:"1,keyasint" json:"method"`
	URI       string    `cbor:"2,keyasint" json:"uri"`
	Version   string    `cbor:"3,keyasint" json:"version"`
	Headers   Headers   `cbor:"4,keyasint" json:"headers"`
	Body      []byte    `cbor:"5,keyasint" json:"body,omitempty"`
	Timestamp uint64    `cbor:"6,keyasint" json:"timestamp"`
	Requester *DIDHash  `cbor:"7,keyasint,omitempty" json:"requester,omitempty"`
	AuthProof *zk.Proof `cbor:"8,keyasint,omitempty" json:"auth_proof,omitempty"`
}

// NewRequest builds a request with the current timestamp.
func NewRequest(method, uri string, body []byte) *Request {
	return &Request{
		Method:    method,
		URI:       uri,
		Version:   Version,
		Headers:   Headers{},
		Body:      body,
		Timestamp: uint64(time.Now().Unix()),
	}
}

// Response is a ZHTP response.
type Response struct {
	Version       string    `cbor:"1,keyasint" json:"version"`
	Status        Status    `cbor:"2,keyasint" json:"status"`
	StatusMessage string    `cbor:"3,keyasint" json:"status_message"`
	Headers       Headers   `cbor:"4,keyasint" json:"headers"`
	Body          []byte    `cbor:"5,keyasint" json:"body,omitempty"`
	Timestamp     uint64    `cbor:"6,keyasint" json:"timestamp"`
	Server        *DIDHash  `cbor:"7,keyasint,omitempty" json:"server,omitempty"`
	ValidityProof *zk.Proof `cbor:"8,keyasint,omitempty" json:"validity_proof,omitempty"`
}

// newResponse stamps version, status, and timestamp.
func newResponse(status Status) *Response {
	return &Response{
		Version:       Version,
		Status:        status,
		StatusMessage: status.ReasonPhrase(),
		Headers:       Headers{},
		Timestamp:     uint64(time.Now().Unix()),
	}
}

// Success builds a 200 response with an octet-stream body.
func Success(body []byte, server *DIDHash) *Response {
	r := newResponse(StatusOK)
	r.Headers[HeaderContentType] = "application/octet-stream"
	r.Headers[HeaderCacheControl] = "max-age=3600"
	r.Headers[HeaderEncryption] = "CRYSTALS-Kyber"
	r.Body = body
	r.Server = server
	return r
}

// JSON builds a 200 response with a JSON body.
func JSON(v any, server *DIDHash) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	r := Success(body, server)
	r.Headers[HeaderContentType] = "application/json"
	return r, nil
}

// Text builds a 200 response with a text body.
func Text(text string, server *DIDHash) *Response {
	r := Success([]byte(text), server)
	r.Headers[HeaderContentType] = "text/plain; charset=utf-8"
	return r
}

// Error builds an error response carrying the message as its body.
func Error(status Status, message string) *Response {
	r := newResponse(status)
	r.StatusMessage = message
	r.Headers[HeaderContentType] = "text/plain; charset=utf-8"
	r.Body = []byte(message)
	return r
}

// NotFound builds a 404 response.
func NotFound(message string) *Response {
	return Error(StatusNotFound, message)
}

// ZkProofInvalid builds a 460 response.
func ZkProofInvalid(message string) *Response {
	return Error(StatusZkProofInvalid, message)
}

// MeshUnavailable builds a 463 response.
func MeshUnavailable(message string) *Response {
	return Error(StatusMeshUnavailable, message)
}

// PostQuantumRequired builds a 464 response.
func PostQuantumRequired(message string) *Response {
	return Error(StatusPostQuantumRequired, message)
}
