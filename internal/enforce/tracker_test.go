package enforce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groveworld/guardian/internal/audit"
	"github.com/groveworld/guardian/internal/bans"
	"github.com/groveworld/guardian/internal/ledger"
	"github.com/groveworld/guardian/internal/violation"
)

// spyCallbacks records every enforcement hook invocation.
type spyCallbacks struct {
	warns []violation.Kind
	kicks []string
	bans  []time.Duration
}

func (s *spyCallbacks) OnWarn(_ string, kind violation.Kind) { s.warns = append(s.warns, kind) }
func (s *spyCallbacks) OnKick(_ string, reason string)       { s.kicks = append(s.kicks, reason) }
func (s *spyCallbacks) OnBan(_ string, _ string, d time.Duration) {
	s.bans = append(s.bans, d)
}

func newTestTracker(cb Callbacks) (*Tracker, *bans.Registry) {
	registry := bans.New()
	return NewTracker(DefaultThresholds(), registry, cb, audit.NewNotifier()), registry
}

func lockedRecord(t *testing.T, now time.Time) *ledger.Record {
	t.Helper()
	rec := ledger.New().Open("actor-1", now)
	rec.Lock()
	t.Cleanup(rec.Unlock)
	return rec
}

func record(t *Tracker, rec *ledger.Record, now time.Time, n int) Outcome {
	var out Outcome
	for i := 0; i < n; i++ {
		out = t.Record(rec, violation.Fault{Kind: violation.KindRateViolation}, now)
	}
	return out
}

func TestBelowWarningOnlyLogs(t *testing.T) {
	spy := &spyCallbacks{}
	tracker, _ := newTestTracker(spy)
	now := time.Now()
	rec := lockedRecord(t, now)

	out := record(tracker, rec, now, 2)
	assert.Equal(t, ActionLog, out.Action)
	assert.Equal(t, 2, out.NewCount)
	assert.Empty(t, spy.warns)
	assert.Zero(t, rec.WarningCount)
}

func TestThirdViolationFiresExactlyOneWarn(t *testing.T) {
	spy := &spyCallbacks{}
	tracker, _ := newTestTracker(spy)
	now := time.Now()
	rec := lockedRecord(t, now)

	record(tracker, rec, now, 2)
	require.Empty(t, spy.warns)

	out := record(tracker, rec, now, 1)
	assert.Equal(t, ActionWarn, out.Action)
	assert.Len(t, spy.warns, 1)
	assert.Equal(t, violation.KindRateViolation, spy.warns[0])
	assert.Equal(t, 1, rec.WarningCount)
}

func TestTenthViolationKicks(t *testing.T) {
	spy := &spyCallbacks{}
	tracker, _ := newTestTracker(spy)
	now := time.Now()
	rec := lockedRecord(t, now)

	record(tracker, rec, now, 9)
	require.Empty(t, spy.kicks)

	out := record(tracker, rec, now, 1)
	assert.Equal(t, ActionKick, out.Action)
	assert.Len(t, spy.kicks, 1)
	assert.Equal(t, 1, rec.KickCount)
	// Every violation in the warn band fired a warn (counts 3 through 9).
	assert.Len(t, spy.warns, 7)
}

func TestTwentyFifthViolationBans(t *testing.T) {
	spy := &spyCallbacks{}
	tracker, registry := newTestTracker(spy)
	now := time.Now()
	rec := lockedRecord(t, now)

	record(tracker, rec, now, 24)
	require.Empty(t, spy.bans)
	require.False(t, registry.IsBanned("actor-1", now))

	out := record(tracker, rec, now, 1)
	assert.Equal(t, ActionBan, out.Action)
	assert.Len(t, spy.bans, 1)
	assert.Equal(t, time.Hour, spy.bans[0])

	ban := registry.Get("actor-1", now)
	require.NotNil(t, ban)
	assert.Equal(t, now.Add(time.Hour), ban.End)
}

func TestViolationsPastBanThresholdDoNotRestack(t *testing.T) {
	spy := &spyCallbacks{}
	tracker, registry := newTestTracker(spy)
	now := time.Now()
	rec := lockedRecord(t, now)

	record(tracker, rec, now, 25)
	firstBan := registry.Get("actor-1", now)
	require.NotNil(t, firstBan)

	// A sweep can still book violations after the ban landed; the active
	// ban must stay exactly as issued.
	record(tracker, rec, now.Add(time.Minute), 2)
	assert.Len(t, spy.bans, 1)

	ban := registry.Get("actor-1", now.Add(time.Minute))
	require.NotNil(t, ban)
	assert.Equal(t, firstBan.End, ban.End)
}

func TestEveryViolationEmitsOneAuditEvent(t *testing.T) {
	registry := bans.New()
	notifier := audit.NewNotifier()
	events := notifier.Subscribe()
	tracker := NewTracker(DefaultThresholds(), registry, nil, notifier)

	now := time.Now()
	rec := lockedRecord(t, now)

	tracker.Record(rec, violation.Fault{
		Kind:   violation.KindSpatialViolation,
		Detail: violation.Detail{"distance": 60, "bound": 50},
	}, now)

	select {
	case evt := <-events:
		assert.Equal(t, audit.TypeViolation, evt.Type)
		assert.Equal(t, "actor-1", evt.ActorID)
		assert.Equal(t, "spatial-violation", evt.ViolationKind)
		assert.Equal(t, 1, evt.RunningCount)
		assert.Equal(t, "log", evt.Data["enforcement"])
	case <-time.After(time.Second):
		t.Fatal("no audit event emitted")
	}
}

func TestNilCallbacksAreSafe(t *testing.T) {
	tracker, _ := newTestTracker(nil)
	now := time.Now()
	rec := lockedRecord(t, now)

	assert.NotPanics(t, func() { record(tracker, rec, now, 30) })
	assert.Equal(t, 30, rec.ViolationCount)
}

func TestEventCarriesRunningCount(t *testing.T) {
	tracker, _ := newTestTracker(nil)
	now := time.Now()
	rec := lockedRecord(t, now)

	out := record(tracker, rec, now, 4)
	assert.Equal(t, 4, out.Event.RunningCount)
	assert.Equal(t, violation.KindRateViolation, out.Event.Kind)
}
