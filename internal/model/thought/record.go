package thought

// Record is one accepted step in a reasoning sequence.
//
// The three required fields plus Text are guaranteed present and
// type-correct after validation. Everything else is a caller-trusted
// annotation: optional fields are carried verbatim with whatever type the
// caller sent and are never checked against earlier records (a
// RevisesSequenceNumber pointing at a step that does not exist is the
// caller's business, not ours).
type Record struct {
	Text               string `json:"text"`
	SequenceNumber     int    `json:"sequenceNumber"`
	EstimatedTotal     int    `json:"estimatedTotal"`
	ContinuationNeeded bool   `json:"continuationNeeded"`

	IsRevision                 any `json:"isRevision,omitempty"`
	RevisesSequenceNumber      any `json:"revisesSequenceNumber,omitempty"`
	BranchOriginSequenceNumber any `json:"branchOriginSequenceNumber,omitempty"`
	BranchID                   any `json:"branchId,omitempty"`
	MoreNeeded                 any `json:"moreNeeded,omitempty"`
}

// BranchKey reports the branch bucket this record belongs to. A record is
// branch-tagged only when both the origin marker and a usable (non-empty
// string) branch id are present; a wrongly-typed branch id still rides
// along on the record but cannot key a bucket.
func (r Record) BranchKey() (string, bool) {
	if r.BranchOriginSequenceNumber == nil {
		return "", false
	}
	id, ok := r.BranchID.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Summary is the state echoed back to the caller after each append.
type Summary struct {
	SequenceNumber       int      `json:"sequenceNumber"`
	TotalThoughts        int      `json:"totalThoughts"`
	NextThoughtNeeded    bool     `json:"nextThoughtNeeded"`
	Branches             []string `json:"branches"`
	ThoughtHistoryLength int      `json:"thoughtHistoryLength"`
}
