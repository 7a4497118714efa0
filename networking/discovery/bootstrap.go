// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package discovery

import (
	"context"
	"sync"

	"github.com/luxfi/log"
)

// DialFunc attempts a mesh connection to a bootstrap address.
type DialFunc func(ctx context.Context, addr string) error

// FanOutBootstrap dials every bootstrap address concurrently and
// returns the addresses that connected. Failures are logged and
// skipped; an empty bootstrap list is not an error.
func FanOutBootstrap(ctx context.Context, addrs []string, dial DialFunc, logger log.Logger) []string {
	var (
		mu        sync.Mutex
		connected []string
		wg        sync.WaitGroup
	)
	for _, addr := range addrs {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			if err := dial(ctx, addr); err != nil {
				logger.Warn("bootstrap dial failed", "addr", addr, "err", err)
				return
			}
			mu.Lock()
			connected = append(connected, addr)
			mu.Unlock()
			logger.Info("bootstrap peer connected", "addr", addr)
		}(addr)
	}
	wg.Wait()
	return connected
}
