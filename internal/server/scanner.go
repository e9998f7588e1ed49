package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/solcloak/solcloak/internal/collect"
	"github.com/solcloak/solcloak/internal/detect"
	"github.com/solcloak/solcloak/internal/labels"
	"github.com/solcloak/solcloak/internal/logging"
	"github.com/solcloak/solcloak/internal/metrics"
	"github.com/solcloak/solcloak/internal/normalize"
	"github.com/solcloak/solcloak/internal/realtime"
	"github.com/solcloak/solcloak/internal/report"
	"github.com/solcloak/solcloak/internal/scan"
	"github.com/solcloak/solcloak/internal/traces"
)

// Scanner runs full privacy scans. Implemented by scanService in
// production and by fakes in handler tests.
type Scanner interface {
	ScanWallet(ctx context.Context, address string) (*scan.PrivacyReport, error)
	ScanTransaction(ctx context.Context, signature string) (*scan.PrivacyReport, error)
	ScanProgram(ctx context.Context, programID string) (*scan.PrivacyReport, error)
}

// scanService is the collect -> normalize -> detect -> report pipeline.
type scanService struct {
	collector *collect.Collector
	labels    labels.Provider
	registry  *detect.Registry
	hub       *realtime.Hub
	logger    *slog.Logger
}

func newScanService(collector *collect.Collector, lp labels.Provider, hub *realtime.Hub, logger *slog.Logger) *scanService {
	return &scanService{
		collector: collector,
		labels:    lp,
		registry:  detect.Default(),
		hub:       hub,
		logger:    logger,
	}
}

func (s *scanService) ScanWallet(ctx context.Context, address string) (*scan.PrivacyReport, error) {
	return s.run(ctx, address, scan.TargetWallet, func(ctx context.Context) (*scan.Context, error) {
		raw, err := s.collector.Wallet(ctx, address)
		if err != nil {
			return nil, err
		}
		return normalize.Wallet(ctx, raw, s.labels)
	})
}

func (s *scanService) ScanTransaction(ctx context.Context, signature string) (*scan.PrivacyReport, error) {
	return s.run(ctx, signature, scan.TargetTransaction, func(ctx context.Context) (*scan.Context, error) {
		raw, err := s.collector.Transaction(ctx, signature)
		if err != nil {
			return nil, err
		}
		return normalize.Transaction(ctx, raw, s.labels)
	})
}

func (s *scanService) ScanProgram(ctx context.Context, programID string) (*scan.PrivacyReport, error) {
	return s.run(ctx, programID, scan.TargetProgram, func(ctx context.Context) (*scan.Context, error) {
		raw, err := s.collector.Program(ctx, programID)
		if err != nil {
			return nil, err
		}
		return normalize.Program(ctx, raw, s.labels)
	})
}

// run wraps the pipeline with tracing, metrics, and stream events.
func (s *scanService) run(ctx context.Context, target string, tt scan.TargetType, build func(context.Context) (*scan.Context, error)) (*scan.PrivacyReport, error) {
	ctx, span := traces.StartSpan(ctx, "scan",
		traces.Target(target),
		traces.TargetType(string(tt)),
	)
	defer span.End()

	start := time.Now()
	logger := logging.L(ctx)

	if s.hub != nil {
		s.hub.BroadcastScanStarted(target, tt)
	}

	sc, err := build(ctx)
	if err != nil {
		metrics.ObserveScan(string(tt), "error", time.Since(start))
		if s.hub != nil {
			s.hub.BroadcastScanFailed(target, tt, err.Error())
		}
		logger.Error("scan failed", "target", target, "targetType", tt, "error", err)
		return nil, err
	}

	rep := report.GenerateWith(s.registry, sc)

	metrics.ObserveScan(string(tt), "ok", time.Since(start))
	for _, sig := range rep.Signals {
		metrics.SignalsTotal.WithLabelValues(detectorID(sig.ID), strings.ToLower(string(sig.Severity))).Inc()
	}
	span.SetAttributes(traces.SignalCount(len(rep.Signals)))

	if s.hub != nil {
		s.hub.BroadcastReport(rep)
	}

	logger.Info("scan completed",
		"target", target,
		"targetType", tt,
		"transactions", rep.Summary.TransactionsAnalyzed,
		"signals", rep.Summary.TotalSignals,
		"overallRisk", rep.OverallRisk,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rep, nil
}

// detectorID strips the per-signal qualifier from a signal id, leaving the
// detector name for the metrics label.
func detectorID(signalID string) string {
	if i := strings.IndexByte(signalID, ':'); i > 0 {
		return signalID[:i]
	}
	return signalID
}
