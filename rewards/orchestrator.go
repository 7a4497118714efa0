// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rewards runs the routing and storage reward pipelines. The
// two processors are fully independent — separate intervals,
// thresholds, and counters — and share only the claim rate limiter.
package rewards

import (
	"context"
	"sync"
	"time"

	"github.com/luxfi/log"

	"github.com/zhtp/go-zhtp/contracts"
)

// Config aggregates orchestrator options with the spec defaults.
type Config struct {
	RoutingEnabled bool
	StorageEnabled bool
	Routing        ProcessorConfig
	Storage        ProcessorConfig
	RateLimiter    RateLimiterConfig
}

// DefaultConfig returns the production defaults with both pipelines
// enabled.
func DefaultConfig() Config {
	return Config{
		RoutingEnabled: true,
		StorageEnabled: true,
		Routing:        DefaultProcessorConfig(),
		Storage:        DefaultProcessorConfig(),
		RateLimiter:    DefaultRateLimiterConfig(),
	}
}

// ChainSource is the contract-state view the orchestrator queries for
// pending contribution totals. contracts.State satisfies it.
type ChainSource interface {
	PendingRoutingRewards(did string) uint64
	PendingStorageRewards(did string) uint64
	DebitRoutingRewards(did string, amount uint64) uint64
	DebitStorageRewards(did string, amount uint64) uint64
}

// Wallet is the claimer's signing identity: the DID and wallet the
// claims are attributed to and the PQ key that signs them.
type Wallet struct {
	DID       string
	WalletID  string
	PublicKey []byte
	SecretKey []byte
}

// CombinedMetrics aggregates both pipelines.
type CombinedMetrics struct {
	Routing             ProcessorMetrics
	Storage             ProcessorMetrics
	TotalPendingRewards uint64
}

// Status reports pipeline lifecycle state.
type Status struct {
	RoutingEnabled bool
	RoutingRunning bool
	StorageEnabled bool
	StorageRunning bool
}

// IsFullyOperational reports whether every enabled pipeline is running
// and every disabled one is not.
func (s Status) IsFullyOperational() bool {
	return s.RoutingEnabled == s.RoutingRunning && s.StorageEnabled == s.StorageRunning
}

// Orchestrator manages both reward pipelines with one interface.
type Orchestrator struct {
	config  Config
	log     log.Logger
	limiter *RateLimiter
	routing *Processor
	storage *Processor

	mu     sync.Mutex
	cancel context.CancelFunc
	done   sync.WaitGroup
	nonce  uint64
}

// NewOrchestrator builds the orchestrator and its two pipelines.
func NewOrchestrator(config Config, source ChainSource, submitter Submitter, wallet Wallet, logger log.Logger) *Orchestrator {
	o := &Orchestrator{
		config:  config,
		log:     logger,
		limiter: NewRateLimiter(config.RateLimiter),
	}
	o.routing = &Processor{
		id:      ProcessorRouting,
		config:  config.Routing,
		log:     logger,
		pending: func() uint64 { return source.PendingRoutingRewards(wallet.DID) },
		debit:   func(amount uint64) uint64 { return source.DebitRoutingRewards(wallet.DID, amount) },
		build:   o.claimBuilder(wallet),
		submit:  submitter,
		limiter: o.limiter,
	}
	o.storage = &Processor{
		id:      ProcessorStorage,
		config:  config.Storage,
		log:     logger,
		pending: func() uint64 { return source.PendingStorageRewards(wallet.DID) },
		debit:   func(amount uint64) uint64 { return source.DebitStorageRewards(wallet.DID, amount) },
		build:   o.claimBuilder(wallet),
		submit:  submitter,
		limiter: o.limiter,
	}
	return o
}

// claimBuilder constructs and signs claim transactions for a wallet.
// The signature binds the claim to the wallet's full PQ key as
// recorded in the identity registry.
func (o *Orchestrator) claimBuilder(wallet Wallet) func(kind string, amount uint64) (*contracts.ClaimTransaction, error) {
	return func(kind string, amount uint64) (*contracts.ClaimTransaction, error) {
		o.mu.Lock()
		o.nonce++
		nonce := o.nonce
		o.mu.Unlock()

		tx := &contracts.ClaimTransaction{
			ClaimerDID: wallet.DID,
			WalletID:   wallet.WalletID,
			Kind:       kind,
			Amount:     amount,
			Output: contracts.TransactionOutput{
				Amount:          amount,
				RecipientWallet: wallet.WalletID,
				PublicKey:       wallet.PublicKey,
			},
			Timestamp: uint64(time.Now().Unix()),
			Nonce:     nonce,
		}
		if err := tx.Sign(wallet.SecretKey); err != nil {
			return nil, err
		}
		return tx, nil
	}
}

// StartAll launches one long-lived task per enabled pipeline.
func (o *Orchestrator) StartAll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel

	if o.config.RoutingEnabled {
		o.done.Add(1)
		go func() {
			defer o.done.Done()
			o.routing.run(ctx)
		}()
	}
	if o.config.StorageEnabled {
		o.done.Add(1)
		go func() {
			defer o.done.Done()
			o.storage.run(ctx)
		}()
	}
	o.log.Info("reward orchestrator started",
		"routing_enabled", o.config.RoutingEnabled,
		"storage_enabled", o.config.StorageEnabled)
}

// StopAll aborts both pipelines and waits for them to drain. In-memory
// counters are dropped with the process by design.
func (o *Orchestrator) StopAll() {
	o.mu.Lock()
	cancel := o.cancel
	o.cancel = nil
	o.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	o.done.Wait()
	o.log.Info("reward orchestrator stopped")
}

// CheckRateLimit reports whether a claim by the given pipeline is
// currently allowed.
func (o *Orchestrator) CheckRateLimit(pid string) error {
	return o.limiter.CanClaim(pid)
}

// RateLimitStats returns the current claim budget for a pipeline.
func (o *Orchestrator) RateLimitStats(pid string) RateLimitStats {
	return o.limiter.Stats(pid)
}

// Routing exposes the routing pipeline.
func (o *Orchestrator) Routing() *Processor { return o.routing }

// Storage exposes the storage pipeline.
func (o *Orchestrator) Storage() *Processor { return o.storage }

// CombinedMetrics aggregates both pipelines' snapshots.
func (o *Orchestrator) CombinedMetrics() CombinedMetrics {
	routing := o.routing.Metrics()
	storage := o.storage.Metrics()
	return CombinedMetrics{
		Routing:             routing,
		Storage:             storage,
		TotalPendingRewards: routing.PendingRewards + storage.PendingRewards,
	}
}

// Status reports lifecycle state for both pipelines.
func (o *Orchestrator) Status() Status {
	return Status{
		RoutingEnabled: o.config.RoutingEnabled,
		RoutingRunning: o.routing.Running(),
		StorageEnabled: o.config.StorageEnabled,
		StorageRunning: o.storage.Running(),
	}
}
