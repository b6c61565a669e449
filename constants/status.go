package constants

// AnalysisStatus is the canonical status for rows in analysis_record.
type AnalysisStatus string

// Stable values (store these exact strings in DB).
const (
	AnalysisStatusPending    AnalysisStatus = "PENDING"    // record created, task queued
	AnalysisStatusProcessing AnalysisStatus = "PROCESSING" // task picked up
	AnalysisStatusCompleted  AnalysisStatus = "COMPLETED"  // terminal success
	AnalysisStatusFailed     AnalysisStatus = "FAILED"     // terminal failure
)

// AnalysisStatuses lists every valid status, in lifecycle order.
var AnalysisStatuses = []string{
	string(AnalysisStatusPending),
	string(AnalysisStatusProcessing),
	string(AnalysisStatusCompleted),
	string(AnalysisStatusFailed),
}

// predecessors maps a target status to the statuses it may be entered from.
// PROCESSING -> PROCESSING is allowed so a recovered task can re-claim its record; this
// assumes one running process, since nothing records which worker owns the claim.
var predecessors = map[AnalysisStatus][]AnalysisStatus{
	AnalysisStatusProcessing: {AnalysisStatusPending, AnalysisStatusProcessing},
	AnalysisStatusCompleted:  {AnalysisStatusProcessing},
	AnalysisStatusFailed:     {AnalysisStatusProcessing},
}

// Predecessors returns the statuses a record may hold right before moving to "to".
func Predecessors(to AnalysisStatus) []AnalysisStatus {
	return predecessors[to]
}

// CanTransition reports whether from -> to keeps the lifecycle monotonic.
func CanTransition(from, to AnalysisStatus) bool {
	for _, p := range predecessors[to] {
		if p == from {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s is COMPLETED or FAILED.
func (s AnalysisStatus) IsTerminal() bool {
	return s == AnalysisStatusCompleted || s == AnalysisStatusFailed
}

// IsValid reports whether s is one of the known statuses.
func (s AnalysisStatus) IsValid() bool {
	switch s {
	case AnalysisStatusPending, AnalysisStatusProcessing, AnalysisStatusCompleted, AnalysisStatusFailed:
		return true
	}
	return false
}
