package ledger

import "time"

// ring is a fixed-capacity ring buffer of action timestamps. It bounds
// per-actor history memory deterministically instead of growing an
// ever-appended slice that gets filtered on each read.
type ring struct {
	buf  [historyCapacity]time.Time
	head int // next write position
	size int
}

func (r *ring) push(t time.Time) {
	r.buf[r.head] = t
	r.head = (r.head + 1) % historyCapacity
	if r.size < historyCapacity {
		r.size++
	}
}

// countAfter returns how many stored timestamps are strictly after cutoff.
// Entries are scanned newest-first so the scan stops at the first stale one.
func (r *ring) countAfter(cutoff time.Time) int {
	n := 0
	for i := 1; i <= r.size; i++ {
		idx := (r.head - i + historyCapacity) % historyCapacity
		if !r.buf[idx].After(cutoff) {
			break
		}
		n++
	}
	return n
}
