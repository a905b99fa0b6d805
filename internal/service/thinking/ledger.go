package thinking

import (
	"sync"

	"github.com/cogtrail/backend/internal/model/thought"
)

// Ledger owns the append-only thought history of one session plus a
// derived index of branch ids to their member records. Append is the only
// mutator; records are never changed or removed after they land, the whole
// ledger is simply dropped when its session dies.
//
// A ledger is owned by exactly one session and never shared across
// sessions. The internal mutex serializes concurrent calls on the same
// session so that history order equals call-arrival order.
type Ledger struct {
	mu          sync.Mutex
	history     []thought.Record
	branches    map[string][]thought.Record
	branchOrder []string
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		branches: make(map[string][]thought.Record),
	}
}

// Append records one validated thought and returns the session summary.
//
// A sequence number running past the caller's estimate raises the estimate
// rather than failing: callers may under-estimate and keep going. Revisions
// and branch thoughts are full history entries, not replacements; a
// branch-tagged record is additionally indexed under its branch id.
func (l *Ledger) Append(rec thought.Record) thought.Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec.SequenceNumber > rec.EstimatedTotal {
		rec.EstimatedTotal = rec.SequenceNumber
	}

	l.history = append(l.history, rec)

	if key, ok := rec.BranchKey(); ok {
		if _, exists := l.branches[key]; !exists {
			l.branchOrder = append(l.branchOrder, key)
		}
		l.branches[key] = append(l.branches[key], rec)
	}

	return thought.Summary{
		SequenceNumber:       rec.SequenceNumber,
		TotalThoughts:        rec.EstimatedTotal,
		NextThoughtNeeded:    rec.ContinuationNeeded,
		Branches:             l.branchIDsLocked(),
		ThoughtHistoryLength: len(l.history),
	}
}

// HistoryLength returns the number of accepted records.
func (l *Ledger) HistoryLength() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.history)
}

// History returns a copy of the accepted records in arrival order.
func (l *Ledger) History() []thought.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]thought.Record(nil), l.history...)
}

// Branch returns a copy of the records tagged with the given branch id.
func (l *Ledger) Branch(id string) []thought.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]thought.Record(nil), l.branches[id]...)
}

// BranchIDs lists known branch ids in order of first appearance.
func (l *Ledger) BranchIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.branchIDsLocked()
}

func (l *Ledger) branchIDsLocked() []string {
	ids := make([]string, len(l.branchOrder))
	copy(ids, l.branchOrder)
	return ids
}
