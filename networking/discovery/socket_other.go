// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

//go:build !unix

package discovery

import "syscall"

// reusePort is a no-op where SO_REUSEPORT is unavailable.
func reusePort(network, address string, conn syscall.RawConn) error {
	return nil
}
