// Package sweep runs the fixed-cadence background passes over all active
// actors: burst and repeated-violation detection, integrity checks,
// fleet-wide anomaly aggregation, and retention cleanup.
package sweep

import (
	"log"
	"time"

	"github.com/groveworld/guardian/internal/audit"
	"github.com/groveworld/guardian/internal/bans"
	"github.com/groveworld/guardian/internal/enforce"
	"github.com/groveworld/guardian/internal/ledger"
	"github.com/groveworld/guardian/internal/monitoring"
	"github.com/groveworld/guardian/internal/violation"
)

// Config tunes the sweep cadences and detection thresholds.
type Config struct {
	// DetectionInterval is the cadence of the rapid-action, pattern,
	// integrity and anomaly passes.
	DetectionInterval time.Duration

	// RetentionInterval is the slower cadence of the cleanup pass.
	RetentionInterval time.Duration

	// RapidActionWindow / RapidActionMax: more than RapidActionMax
	// actions inside the trailing window is a pattern violation.
	RapidActionWindow time.Duration
	RapidActionMax    int

	// PatternWindow / PatternMin: PatternMin or more same-kind
	// violations inside the trailing window compound into one
	// additional pattern violation.
	PatternWindow time.Duration
	PatternMin    int

	// Retention is how long violation events are kept.
	Retention time.Duration

	// MaxSpeed / MaxJumpPower are the known movement-capability maxima.
	MaxSpeed     float64
	MaxJumpPower float64

	// MeanViolationAlert: mean violations per active actor above this
	// raises an operator alert (coordinated-exploit signal, never
	// auto-punitive).
	MeanViolationAlert float64
}

// DefaultConfig returns the cadences the detectors were tuned for.
func DefaultConfig() Config {
	return Config{
		DetectionInterval:  10 * time.Second,
		RetentionInterval:  5 * time.Minute,
		RapidActionWindow:  5 * time.Second,
		RapidActionMax:     20,
		PatternWindow:      5 * time.Minute,
		PatternMin:         3,
		Retention:          time.Hour,
		MaxSpeed:           50,
		MaxJumpPower:       75,
		MeanViolationAlert: 5.0,
	}
}

// patternSourceKinds are the kinds the repeated-violation detector scans.
// Pattern violations themselves are excluded so a compounding event can
// never feed the next detection.
var patternSourceKinds = []violation.Kind{
	violation.KindExcessiveRate,
	violation.KindRateViolation,
	violation.KindSpatialViolation,
	violation.KindContextInvalid,
	violation.KindIntegrityAnomaly,
}

// Scheduler is the background sweeper. It snapshots the actor key set and
// then works record by record under each record's own lock, so validation
// is never blocked behind a full pass.
type Scheduler struct {
	ledger   *ledger.Ledger
	registry *bans.Registry
	tracker  *enforce.Tracker
	notifier *audit.Notifier
	metrics  *monitoring.Metrics
	config   Config

	stopCh chan struct{}
	logger *log.Logger
}

// New creates a scheduler. Call Start to begin sweeping.
func New(l *ledger.Ledger, registry *bans.Registry, tracker *enforce.Tracker, notifier *audit.Notifier, metrics *monitoring.Metrics, cfg Config) *Scheduler {
	if cfg.DetectionInterval <= 0 {
		cfg.DetectionInterval = DefaultConfig().DetectionInterval
	}
	if cfg.RetentionInterval <= 0 {
		cfg.RetentionInterval = DefaultConfig().RetentionInterval
	}
	return &Scheduler{
		ledger:   l,
		registry: registry,
		tracker:  tracker,
		notifier: notifier,
		metrics:  metrics,
		config:   cfg,
		stopCh:   make(chan struct{}),
		logger:   log.New(log.Writer(), "[SWEEP] ", log.LstdFlags),
	}
}

// Start launches the background loop.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop terminates the background loop.
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) run() {
	detect := time.NewTicker(s.config.DetectionInterval)
	retain := time.NewTicker(s.config.RetentionInterval)
	defer detect.Stop()
	defer retain.Stop()

	s.logger.Printf("Started sweeper (detection=%s, retention=%s)",
		s.config.DetectionInterval, s.config.RetentionInterval)

	for {
		select {
		case <-detect.C:
			s.DetectionPass(time.Now())
		case <-retain.C:
			s.RetentionPass(time.Now())
		case <-s.stopCh:
			s.logger.Println("Sweeper stopped")
			return
		}
	}
}

// DetectionPass runs rapid-action, pattern, integrity and fleet-anomaly
// checks over every active record. Exported so tests and operators can
// trigger a pass at a chosen instant.
func (s *Scheduler) DetectionPass(now time.Time) {
	start := time.Now()
	records := s.ledger.Snapshot()

	totalViolations := 0
	for _, rec := range records {
		rec.Lock()
		s.checkRapidActions(rec, now)
		s.checkPatterns(rec, now)
		s.checkIntegrity(rec, now)
		totalViolations += rec.ViolationCount
		rec.Unlock()
	}

	s.checkFleetAnomaly(len(records), totalViolations, now)

	if s.metrics != nil {
		s.metrics.SweepDuration.WithLabelValues("detection").Observe(time.Since(start).Seconds())
		s.metrics.ActiveSessions.Set(float64(s.ledger.Len()))
		s.metrics.ActiveBans.Set(float64(s.registry.Len()))
	}
}

// RetentionPass prunes stale violation events and expired bans.
func (s *Scheduler) RetentionPass(now time.Time) {
	start := time.Now()
	cutoff := now.Add(-s.config.Retention)

	pruned := 0
	for _, rec := range s.ledger.Snapshot() {
		rec.Lock()
		pruned += rec.PruneEvents(cutoff)
		rec.Unlock()
	}
	expired := s.registry.Sweep(now)

	if pruned > 0 || expired > 0 {
		s.logger.Printf("Retention pass: pruned %d events, expired %d bans", pruned, expired)
	}
	if s.metrics != nil {
		s.metrics.SweepDuration.WithLabelValues("retention").Observe(time.Since(start).Seconds())
	}
}

// checkRapidActions flags actors submitting implausibly many actions in
// the trailing window. One detection per window: the rapid mark keeps a
// sustained flood from producing a violation on every pass.
func (s *Scheduler) checkRapidActions(rec *ledger.Record, now time.Time) {
	if s.config.RapidActionMax <= 0 {
		return
	}
	if now.Sub(rec.RapidMark()) < s.config.RapidActionWindow {
		return
	}
	count := rec.CountActionsInWindow(s.config.RapidActionWindow, now)
	if count <= s.config.RapidActionMax {
		return
	}
	rec.MarkRapid(now)
	s.tracker.Record(rec, violation.Fault{
		Kind: violation.KindPatternViolation,
		Detail: violation.Detail{
			"actions":        float64(count),
			"window_seconds": s.config.RapidActionWindow.Seconds(),
			"threshold":      float64(s.config.RapidActionMax),
		},
	}, now)
	s.countMetric(violation.KindPatternViolation)
}

// checkPatterns compounds repeated same-kind violations into one stronger
// signal. The per-kind high-water mark guarantees a group of contributing
// events is counted exactly once, not once per pass.
func (s *Scheduler) checkPatterns(rec *ledger.Record, now time.Time) {
	if s.config.PatternMin <= 0 {
		return
	}
	for _, kind := range patternSourceKinds {
		count := rec.RecentViolationsOfKind(kind, s.config.PatternWindow, now)
		if count < s.config.PatternMin {
			continue
		}
		rec.MarkPattern(kind, now)
		s.tracker.Record(rec, violation.Fault{
			Kind: violation.KindPatternViolation,
			Detail: violation.Detail{
				"source_kind":    float64(kind),
				"occurrences":    float64(count),
				"window_seconds": s.config.PatternWindow.Seconds(),
			},
		}, now)
		s.countMetric(violation.KindPatternViolation)
	}
}

// checkIntegrity validates queued movement-capability reports against the
// known maxima. Anomalies escalate out of band; they never deny a
// specific action.
func (s *Scheduler) checkIntegrity(rec *ledger.Record, now time.Time) {
	for _, sample := range rec.TakeIntegritySamples() {
		if sample.Speed <= s.config.MaxSpeed && sample.JumpPower <= s.config.MaxJumpPower {
			continue
		}
		s.tracker.Record(rec, violation.Fault{
			Kind: violation.KindIntegrityAnomaly,
			Detail: violation.Detail{
				"speed":          sample.Speed,
				"max_speed":      s.config.MaxSpeed,
				"jump_power":     sample.JumpPower,
				"max_jump_power": s.config.MaxJumpPower,
			},
		}, now)
		s.countMetric(violation.KindIntegrityAnomaly)
	}
}

// checkFleetAnomaly raises an operator alert when the mean violation
// count per active actor is elevated across the fleet.
func (s *Scheduler) checkFleetAnomaly(actors, totalViolations int, now time.Time) {
	if actors == 0 || s.config.MeanViolationAlert <= 0 {
		return
	}
	mean := float64(totalViolations) / float64(actors)
	if mean <= s.config.MeanViolationAlert {
		return
	}
	s.logger.Printf("ALERT: mean violations per actor %.2f exceeds %.2f across %d actors",
		mean, s.config.MeanViolationAlert, actors)
	if s.notifier != nil {
		s.notifier.Emit(audit.Event{
			Type:      audit.TypeAlert,
			Timestamp: now,
			Detail: map[string]float64{
				"mean_violations": mean,
				"threshold":       s.config.MeanViolationAlert,
				"actors":          float64(actors),
			},
		})
	}
}

func (s *Scheduler) countMetric(kind violation.Kind) {
	if s.metrics != nil {
		s.metrics.ViolationsTotal.WithLabelValues(kind.String()).Inc()
	}
}
