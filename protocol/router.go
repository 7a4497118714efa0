// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package protocol

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/luxfi/log"
)

// Handler processes one ZHTP request. Handlers are registered on a URI
// prefix and dispatched by longest-prefix match.
type Handler interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req *Request) (*Response, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Router dispatches requests to prefix-registered handlers. An exact
// match wins over any prefix; among prefixes the longest wins.
type Router struct {
	mu       sync.RWMutex
	log      log.Logger
	handlers map[string]Handler
	prefixes []string // sorted longest-first
}

// NewRouter returns an empty Router.
func NewRouter(logger log.Logger) *Router {
	return &Router{
		log:      logger,
		handlers: make(map[string]Handler),
	}
}

// Register binds a handler to a URI prefix.
func (r *Router) Register(prefix string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[prefix]; !exists {
		r.prefixes = append(r.prefixes, prefix)
		sort.Slice(r.prefixes, func(i, j int) bool {
			return len(r.prefixes[i]) > len(r.prefixes[j])
		})
	}
	r.handlers[prefix] = handler
}

// Routes returns the registered prefixes, longest first.
func (r *Router) Routes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.prefixes...)
}

// Route dispatches a request. Handler errors become 500 responses;
// unmatched URIs become 404. Errors never escape as transport faults.
func (r *Router) Route(ctx context.Context, req *Request) *Response {
	handler, prefix := r.match(req.URI)
	if handler == nil {
		return NotFound("no handler for " + req.URI)
	}

	resp, err := handler.Handle(ctx, req)
	if err != nil {
		r.log.Warn("handler failed", "uri", req.URI, "prefix", prefix, "err", err)
		return Error(StatusInternalError, err.Error())
	}
	return resp
}

// match finds the handler for a URI: exact match first, then longest
// registered prefix.
func (r *Router) match(uri string) (Handler, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.handlers[uri]; ok {
		return h, uri
	}
	for _, prefix := range r.prefixes {
		if strings.HasPrefix(uri, prefix) {
			return r.handlers[prefix], prefix
		}
	}
	return nil, ""
}
