package collect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/solcloak/solcloak/internal/metrics"
	"github.com/solcloak/solcloak/internal/retry"
	"github.com/solcloak/solcloak/internal/scan"
	"github.com/solcloak/solcloak/internal/traces"
)

const retryBaseDelay = 200 * time.Millisecond

// Collector assembles raw activity snapshots for the normalizer. Fetches
// fan out under a concurrency limit; a transaction that still fails after
// retries is recorded with a nil payload rather than aborting the scan.
type Collector struct {
	client        Client
	logger        *slog.Logger
	sigLimit      int
	maxConcurrent int
	retries       int
}

// Config bounds the collector's RPC usage.
type Config struct {
	// SignatureLimit caps how many recent signatures a wallet or program
	// scan covers.
	SignatureLimit int
	// MaxConcurrentFetches bounds parallel getTransaction calls.
	MaxConcurrentFetches int
	// FetchRetries is attempts per RPC call before giving up.
	FetchRetries int
}

// NewCollector creates a collector over the given RPC client.
func NewCollector(client Client, cfg Config, logger *slog.Logger) *Collector {
	if cfg.SignatureLimit <= 0 {
		cfg.SignatureLimit = 100
	}
	if cfg.MaxConcurrentFetches <= 0 {
		cfg.MaxConcurrentFetches = 8
	}
	if cfg.FetchRetries <= 0 {
		cfg.FetchRetries = 3
	}
	return &Collector{
		client:        client,
		logger:        logger,
		sigLimit:      cfg.SignatureLimit,
		maxConcurrent: cfg.MaxConcurrentFetches,
		retries:       cfg.FetchRetries,
	}
}

// Wallet snapshots recent activity for a wallet address.
func (c *Collector) Wallet(ctx context.Context, address string) (*scan.RawWalletData, error) {
	ctx, span := traces.StartSpan(ctx, "collect.wallet", traces.Target(address))
	defer span.End()

	sigs, err := c.signatures(ctx, address)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(traces.SignatureCount(len(sigs)))

	txs := c.fetchTransactions(ctx, sigs)

	// Token accounts enrich the snapshot but their absence never fails a scan.
	tokenAccounts, err := c.client.TokenAccounts(ctx, address)
	if err != nil {
		c.logger.Warn("token account listing failed", "address", address, "error", err)
		metrics.RPCFetchFailuresTotal.WithLabelValues("getTokenAccountsByOwner").Inc()
		tokenAccounts = nil
	}

	return &scan.RawWalletData{
		Address:       address,
		Signatures:    sigs,
		Transactions:  txs,
		TokenAccounts: tokenAccounts,
	}, nil
}

// Transaction snapshots a single transaction. Unlike wallet and program
// scans there is nothing else to analyze, so a failed fetch is an error.
func (c *Collector) Transaction(ctx context.Context, signature string) (*scan.RawTransactionData, error) {
	ctx, span := traces.StartSpan(ctx, "collect.transaction", traces.Target(signature))
	defer span.End()

	var payload *scan.TxPayload
	err := retry.Do(ctx, c.retries, retryBaseDelay, func() error {
		var ferr error
		payload, ferr = c.client.Transaction(ctx, signature)
		return ferr
	})
	if err != nil {
		metrics.RPCFetchFailuresTotal.WithLabelValues("getTransaction").Inc()
		return nil, fmt.Errorf("collect: transaction %s: %w", signature, err)
	}
	if payload == nil {
		return nil, fmt.Errorf("collect: transaction %s not found", signature)
	}

	return &scan.RawTransactionData{
		Signature:   signature,
		Transaction: scan.RawTransaction{Signature: signature, Payload: payload},
	}, nil
}

// Program snapshots recent activity through a program.
func (c *Collector) Program(ctx context.Context, programID string) (*scan.RawProgramData, error) {
	ctx, span := traces.StartSpan(ctx, "collect.program", traces.Target(programID))
	defer span.End()

	sigs, err := c.signatures(ctx, programID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(traces.SignatureCount(len(sigs)))

	txs := c.fetchTransactions(ctx, sigs)

	accounts, err := c.client.ProgramAccounts(ctx, programID)
	if err != nil {
		c.logger.Warn("program account listing failed", "program", programID, "error", err)
		metrics.RPCFetchFailuresTotal.WithLabelValues("getProgramAccounts").Inc()
		accounts = nil
	}

	return &scan.RawProgramData{
		ProgramID:    programID,
		Accounts:     accounts,
		Signatures:   sigs,
		Transactions: txs,
	}, nil
}

// Ping checks the RPC node, used by the readiness probe.
func (c *Collector) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}

func (c *Collector) signatures(ctx context.Context, address string) ([]scan.SignatureInfo, error) {
	var sigs []scan.SignatureInfo
	err := retry.Do(ctx, c.retries, retryBaseDelay, func() error {
		var ferr error
		sigs, ferr = c.client.Signatures(ctx, address, c.sigLimit)
		return ferr
	})
	if err != nil {
		metrics.RPCFetchFailuresTotal.WithLabelValues("getSignaturesForAddress").Inc()
		return nil, fmt.Errorf("collect: signatures for %s: %w", address, err)
	}
	return sigs, nil
}

// fetchTransactions fetches payloads for all signatures under the
// concurrency limit. Results keep signature order. A fetch that exhausts
// its retries yields a nil payload and is logged, not propagated.
func (c *Collector) fetchTransactions(ctx context.Context, sigs []scan.SignatureInfo) []scan.RawTransaction {
	txs := make([]scan.RawTransaction, len(sigs))

	var mu sync.Mutex
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrent)

	for i, sig := range sigs {
		g.Go(func() error {
			var payload *scan.TxPayload
			err := retry.Do(gctx, c.retries, retryBaseDelay, func() error {
				var ferr error
				payload, ferr = c.client.Transaction(gctx, sig.Signature)
				return ferr
			})
			if err != nil {
				c.logger.Warn("transaction fetch failed", "signature", sig.Signature, "error", err)
				metrics.RPCFetchFailuresTotal.WithLabelValues("getTransaction").Inc()
				mu.Lock()
				failed++
				mu.Unlock()
				payload = nil
			}
			txs[i] = scan.RawTransaction{Signature: sig.Signature, Payload: payload}
			return nil
		})
	}
	_ = g.Wait()

	if failed > 0 {
		c.logger.Info("snapshot has gaps", "requested", len(sigs), "failed", failed)
	}
	return txs
}
