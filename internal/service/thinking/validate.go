package thinking

import (
	"github.com/cogtrail/backend/internal/model/thought"
)

// ValidationError reports a malformed or missing required field in a tool
// call payload. It is recoverable: the caller resubmits a corrected
// payload, nothing in the session changes.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func newValidationError(msg string) *ValidationError {
	return &ValidationError{msg: msg}
}

// ParseRecord normalizes an untyped call payload into a Record.
//
// Only the four required fields are checked, in a fixed order, each check
// independently sufficient to fail. Optional fields pass through verbatim
// with their original types: the contract deliberately trusts the caller
// on annotations, so a string where a number would make sense is accepted
// rather than rejected. Pure function, no side effects.
func ParseRecord(raw map[string]any) (thought.Record, error) {
	text, ok := raw["text"].(string)
	if !ok || text == "" {
		return thought.Record{}, newValidationError("text must be a string")
	}

	seq, ok := asNumber(raw["sequenceNumber"])
	if !ok {
		return thought.Record{}, newValidationError("sequenceNumber must be a number")
	}

	total, ok := asNumber(raw["estimatedTotal"])
	if !ok {
		return thought.Record{}, newValidationError("estimatedTotal must be a number")
	}

	cont, ok := raw["continuationNeeded"].(bool)
	if !ok {
		return thought.Record{}, newValidationError("continuationNeeded must be a boolean")
	}

	return thought.Record{
		Text:                       text,
		SequenceNumber:             seq,
		EstimatedTotal:             total,
		ContinuationNeeded:         cont,
		IsRevision:                 raw["isRevision"],
		RevisesSequenceNumber:      raw["revisesSequenceNumber"],
		BranchOriginSequenceNumber: raw["branchOriginSequenceNumber"],
		BranchID:                   raw["branchId"],
		MoreNeeded:                 raw["moreNeeded"],
	}, nil
}

// asNumber accepts the numeric shapes a decoded JSON payload can carry.
func asNumber(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}
