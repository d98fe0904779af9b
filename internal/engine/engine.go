// Package engine assembles the validation pipeline and owns the
// per-process instance state: ledger, ban registry, validators, tracker,
// sweeper, and audit fan-out. One Engine is constructed per server
// process and passed by handle to callers; there is no ambient lookup.
package engine

import (
	"encoding/json"
	"log"
	"log/slog"
	"time"

	"github.com/groveworld/guardian/internal/actions"
	"github.com/groveworld/guardian/internal/audit"
	"github.com/groveworld/guardian/internal/bans"
	"github.com/groveworld/guardian/internal/catalog"
	"github.com/groveworld/guardian/internal/config"
	"github.com/groveworld/guardian/internal/enforce"
	"github.com/groveworld/guardian/internal/ledger"
	"github.com/groveworld/guardian/internal/monitoring"
	"github.com/groveworld/guardian/internal/sweep"
	"github.com/groveworld/guardian/internal/validate"
	"github.com/groveworld/guardian/internal/violation"
)

// Deny reasons surfaced to the caller. Violation denials reuse the
// violation kind's wire name.
const (
	ReasonBanned = "banned"
)

// Decision is the synchronous answer to one action submission.
type Decision struct {
	Allow  bool   `json:"allow"`
	Reason string `json:"reason,omitempty"`
}

// Options carries the injected collaborators.
type Options struct {
	// Resolver resolves target references to authoritative positions.
	Resolver validate.PositionResolver

	// Catalog indexes the entity ids payloads may reference. Nil skips
	// entity-category checks.
	Catalog *catalog.Catalog

	// Callbacks receive warn/kick/ban notifications. Nil means no-ops.
	Callbacks enforce.Callbacks

	// AuditSinks receive every audit event out of band.
	AuditSinks []audit.Sink
}

// Engine is the action-validation and progressive-enforcement core.
type Engine struct {
	cfg *config.Config

	ledger   *ledger.Ledger
	registry *bans.Registry
	rate     *validate.RateLimiter
	spatial  *validate.SpatialValidator
	context  *validate.ContextValidator
	tracker  *enforce.Tracker
	notifier *audit.Notifier
	metrics  *monitoring.Metrics
	sweeper  *sweep.Scheduler

	logger *log.Logger
}

// New builds an engine from configuration and collaborators.
func New(cfg *config.Config, opts Options) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if opts.Resolver == nil {
		// Deny-by-absence: an engine without a resolver treats every
		// spatial target as unresolvable (a context failure), it never
		// invents a position.
		opts.Resolver = validate.PositionResolverFunc(func(string) (actions.Position, bool) {
			return actions.Position{}, false
		})
	}

	cat := opts.Catalog
	if cat == nil {
		cat = catalog.New()
		cat.Register(catalog.CategoryCrop, cfg.Catalog.Crops...)
		cat.Register(catalog.CategoryItem, cfg.Catalog.Items...)
	}

	notifier := audit.NewNotifier(opts.AuditSinks...)
	registry := bans.New()
	metrics := monitoring.NewMetrics()

	thresholds := enforce.Thresholds{
		WarningAt:   cfg.Enforcement.WarningAt,
		KickAt:      cfg.Enforcement.KickAt,
		BanAt:       cfg.Enforcement.BanAt,
		BanDuration: cfg.BanDuration(),
	}
	tracker := enforce.NewTracker(thresholds, registry, opts.Callbacks, notifier)

	led := ledger.New()
	sweeper := sweep.New(led, registry, tracker, notifier, metrics, sweep.Config{
		DetectionInterval:  time.Duration(cfg.Sweep.DetectionIntervalSeconds) * time.Second,
		RetentionInterval:  time.Duration(cfg.Sweep.RetentionIntervalSeconds) * time.Second,
		RapidActionWindow:  time.Duration(cfg.Sweep.RapidActionWindowSeconds) * time.Second,
		RapidActionMax:     cfg.Sweep.RapidActionMax,
		PatternWindow:      time.Duration(cfg.Sweep.PatternWindowSeconds) * time.Second,
		PatternMin:         cfg.Sweep.PatternMin,
		Retention:          cfg.RetentionWindow(),
		MaxSpeed:           cfg.Integrity.MaxSpeed,
		MaxJumpPower:       cfg.Integrity.MaxJumpPower,
		MeanViolationAlert: cfg.Sweep.MeanViolationAlert,
	})

	return &Engine{
		cfg:      cfg,
		ledger:   led,
		registry: registry,
		rate:     validate.NewRateLimiter(cfg.Rates.GlobalMaxPerSecond, cfg.Rates.PerKind),
		spatial:  validate.NewSpatialValidator(opts.Resolver, cfg.Distances),
		context:  validate.NewContextValidator(cat),
		tracker:  tracker,
		notifier: notifier,
		metrics:  metrics,
		sweeper:  sweeper,
		logger:   log.New(log.Writer(), "[GUARDIAN] ", log.LstdFlags),
	}
}

// Start launches the background sweeper.
func (e *Engine) Start() { e.sweeper.Start() }

// Stop terminates the background sweeper.
func (e *Engine) Stop() { e.sweeper.Stop() }

// Notifier exposes the audit fan-out for subscribers (operator stream).
func (e *Engine) Notifier() *audit.Notifier { return e.notifier }

// Metrics exposes the Prometheus instruments and their registry.
func (e *Engine) Metrics() *monitoring.Metrics { return e.metrics }

// Sweeper exposes the background scheduler (tests trigger passes directly).
func (e *Engine) Sweeper() *sweep.Scheduler { return e.sweeper }

// OnSessionStart opens the actor's security record.
func (e *Engine) OnSessionStart(actorID string, now time.Time) {
	e.ledger.Open(actorID, now)
	e.metrics.ActiveSessions.Set(float64(e.ledger.Len()))
}

// OnSessionEnd archives the actor's record, emitting the session summary.
// The archive drains any in-flight validation for the actor first.
func (e *Engine) OnSessionEnd(actorID string, now time.Time) {
	summary, err := e.ledger.Close(actorID, now)
	if err != nil {
		return
	}
	e.metrics.ActiveSessions.Set(float64(e.ledger.Len()))
	e.notifier.Emit(audit.Event{
		Type:      audit.TypeSessionSummary,
		ActorID:   actorID,
		Timestamp: now,
		Detail: map[string]float64{
			"violations":       float64(summary.Violations),
			"total_actions":    float64(summary.TotalActions),
			"warnings":         float64(summary.Warnings),
			"kicks":            float64(summary.Kicks),
			"duration_seconds": summary.Duration.Seconds(),
		},
	})
}

// Validate runs the full pipeline for one action submission. Order, with
// short-circuiting on the first failure: ban check, rate limits, spatial
// bound (skipped for kinds without a spatial component), context shape.
// A ban denial adds no violation; every validator denial records exactly
// one.
func (e *Engine) Validate(actorID string, kind actions.Kind, payload json.RawMessage, actorPos actions.Position, now time.Time) Decision {
	if e.registry.IsBanned(actorID, now) {
		e.metrics.ValidationsTotal.WithLabelValues(string(kind), ReasonBanned).Inc()
		return Decision{Allow: false, Reason: ReasonBanned}
	}

	rec, ok := e.ledger.Get(actorID)
	if !ok {
		// Systemic fault: a submission for an unknown session means the
		// lifecycle hooks and the transport disagree. Fail open so an
		// infrastructure fault cannot lock out legitimate actors; this
		// is the documented exception to default-deny.
		slog.Error("[Guardian] validation for unknown session, failing open",
			"actor_id", actorID, "kind", string(kind))
		e.metrics.ValidationsTotal.WithLabelValues(string(kind), "fail-open").Inc()
		return Decision{Allow: true}
	}

	rec.Lock()
	defer rec.Unlock()

	if fault := e.rate.Check(rec, kind, now); fault != nil {
		return e.deny(rec, kind, *fault, now)
	}
	if fault := e.spatial.Check(actorPos, kind, payload); fault != nil {
		return e.deny(rec, kind, *fault, now)
	}
	if fault := e.context.Check(kind, payload); fault != nil {
		return e.deny(rec, kind, *fault, now)
	}

	rec.RecordAction(now)
	e.metrics.ValidationsTotal.WithLabelValues(string(kind), "allow").Inc()
	return Decision{Allow: true}
}

// deny books the violation and translates it into the caller's decision.
// Requires the record lock (held by Validate).
func (e *Engine) deny(rec *ledger.Record, kind actions.Kind, fault violation.Fault, now time.Time) Decision {
	out := e.tracker.Record(rec, fault, now)
	e.metrics.ValidationsTotal.WithLabelValues(string(kind), fault.Kind.String()).Inc()
	e.metrics.ViolationsTotal.WithLabelValues(fault.Kind.String()).Inc()
	e.metrics.EnforcementTotal.WithLabelValues(out.Action.String()).Inc()
	return Decision{Allow: false, Reason: fault.Kind.String()}
}

// RecordIntegritySample queues an out-of-band movement report for the
// next sweep pass. Unknown sessions are dropped with a log line.
func (e *Engine) RecordIntegritySample(actorID string, speed, jumpPower float64, now time.Time) {
	rec, ok := e.ledger.Get(actorID)
	if !ok {
		slog.Warn("[Guardian] integrity sample for unknown session", "actor_id", actorID)
		return
	}
	rec.Lock()
	rec.AddIntegritySample(ledger.IntegritySample{
		Speed:      speed,
		JumpPower:  jumpPower,
		ReportedAt: now,
	})
	rec.Unlock()
}
