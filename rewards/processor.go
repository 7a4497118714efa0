// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package rewards

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/luxfi/log"

	"github.com/zhtp/go-zhtp/contracts"
)

// Processor identifiers. These double as the rate-limiter claimer ids,
// which is what keeps the two pipelines independent.
const (
	ProcessorRouting = "routing"
	ProcessorStorage = "storage"
)

var (
	// ErrBelowThreshold is returned when pending rewards have not
	// reached the claim minimum.
	ErrBelowThreshold = errors.New("pending rewards below minimum threshold")
	// ErrTransactionRejected wraps submission failures.
	ErrTransactionRejected = errors.New("claim transaction rejected")
)

// ProcessorConfig controls one reward pipeline.
type ProcessorConfig struct {
	CheckInterval    time.Duration
	MinimumThreshold uint64
	MaxBatchSize     uint64
}

// DefaultProcessorConfig returns the per-pipeline defaults.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		CheckInterval:    10 * time.Minute,
		MinimumThreshold: 100,
		MaxBatchSize:     10_000,
	}
}

// Submitter carries a claim transaction to the chain.
type Submitter interface {
	SubmitClaim(ctx context.Context, tx *contracts.ClaimTransaction) error
}

// ProcessorMetrics is a snapshot of one pipeline's activity.
type ProcessorMetrics struct {
	PendingRewards  uint64
	ClaimsSubmitted uint64
	ClaimsSkipped   uint64
	TotalClaimed    uint64
}

// Processor is one reward pipeline. The routing and storage pipelines
// are two instances of this type sharing nothing but the orchestrator's
// rate limiter.
type Processor struct {
	id     string
	config ProcessorConfig
	log    log.Logger

	pending func() uint64
	debit   func(amount uint64) uint64
	build   func(kind string, amount uint64) (*contracts.ClaimTransaction, error)
	submit  Submitter
	limiter *RateLimiter

	running         atomic.Bool
	claimsSubmitted atomic.Uint64
	claimsSkipped   atomic.Uint64
	totalClaimed    atomic.Uint64
}

// run loops until the context is cancelled, attempting one claim per
// tick.
func (p *Processor) run(ctx context.Context) {
	p.running.Store(true)
	defer p.running.Store(false)

	ticker := time.NewTicker(p.config.CheckInterval)
	defer ticker.Stop()

	p.log.Info("reward processor started",
		"processor", p.id,
		"check_interval", p.config.CheckInterval,
		"minimum_threshold", p.config.MinimumThreshold,
		"max_batch_size", p.config.MaxBatchSize)

	for {
		select {
		case <-ctx.Done():
			p.log.Info("reward processor stopped", "processor", p.id)
			return
		case <-ticker.C:
			if err := p.Tick(ctx); err != nil {
				switch {
				case errors.Is(err, ErrBelowThreshold):
					// Nothing to claim yet.
				default:
					// Rate-limit denials and submission failures skip
					// this tick; the next tick retries naturally.
					p.claimsSkipped.Add(1)
					p.log.Info("claim skipped", "processor", p.id, "reason", err)
				}
			}
		}
	}
}

// Tick performs one claim attempt: query pending, gate on the
// threshold and the rate limiter, then submit and record.
func (p *Processor) Tick(ctx context.Context) error {
	pending := p.pending()
	if pending < p.config.MinimumThreshold {
		return ErrBelowThreshold
	}

	if err := p.limiter.CanClaim(p.id); err != nil {
		return err
	}

	amount := pending
	if amount > p.config.MaxBatchSize {
		amount = p.config.MaxBatchSize
	}

	tx, err := p.build(p.id, amount)
	if err != nil {
		return err
	}
	if err := p.submit.SubmitClaim(ctx, tx); err != nil {
		return errors.Join(ErrTransactionRejected, err)
	}

	p.debit(amount)
	p.limiter.RecordClaim(p.id)
	p.claimsSubmitted.Add(1)
	p.totalClaimed.Add(amount)
	p.log.Info("reward claim submitted", "processor", p.id, "amount", amount)
	return nil
}

// Metrics returns a snapshot of the pipeline's counters.
func (p *Processor) Metrics() ProcessorMetrics {
	return ProcessorMetrics{
		PendingRewards:  p.pending(),
		ClaimsSubmitted: p.claimsSubmitted.Load(),
		ClaimsSkipped:   p.claimsSkipped.Load(),
		TotalClaimed:    p.totalClaimed.Load(),
	}
}

// Running reports whether the pipeline's loop is live.
func (p *Processor) Running() bool {
	return p.running.Load()
}
