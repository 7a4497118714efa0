// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package zdns

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/zhtp/go-zhtp/protocol"
)

// Handler serves resolver queries over ZHTP. Register it on a router
// under its URI prefix; gateway frontends are external to this core.
type Handler struct {
	resolver *Resolver
}

// NewHandler wraps a resolver.
func NewHandler(resolver *Resolver) *Handler {
	return &Handler{resolver: resolver}
}

// RoutePrefix is where the handler expects to be mounted.
const RoutePrefix = "/api/dns/resolve"

// resolveQuery is the request body.
type resolveQuery struct {
	Domain string `json:"domain"`
}

// Handle resolves the queried domain, mapping resolver errors to
// their ZHTP statuses.
func (h *Handler) Handle(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var query resolveQuery
	if err := json.Unmarshal(req.Body, &query); err != nil {
		return protocol.Error(protocol.StatusBadRequest, "malformed resolve query"), nil
	}

	record, err := h.resolver.ResolveWeb4(ctx, query.Domain)
	switch {
	case err == nil:
		return protocol.JSON(record, nil)
	case errors.Is(err, ErrInvalidDomain):
		return protocol.Error(protocol.StatusBadRequest, err.Error()), nil
	case errors.Is(err, ErrDomainNotFound), errors.Is(err, ErrDomainExpired):
		return protocol.NotFound(err.Error()), nil
	default:
		return protocol.Error(protocol.StatusServiceUnavailable, err.Error()), nil
	}
}
