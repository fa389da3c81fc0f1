package model

import "time"

// OutcomeKind names the terminal state of one site check.
type OutcomeKind string

const (
	OutcomeFailed    OutcomeKind = "failed"
	OutcomeUnchanged OutcomeKind = "unchanged"
	OutcomeUpdated   OutcomeKind = "updated"
)

// CheckOutcome is the result of running one check for a site.
type CheckOutcome struct {
	Kind    OutcomeKind
	Err     string // set when Kind == OutcomeFailed
	NewHash string // set when Kind == OutcomeUpdated
}

// Failed builds a failure outcome carrying the error message.
func Failed(msg string) CheckOutcome {
	return CheckOutcome{Kind: OutcomeFailed, Err: msg}
}

// Unchanged builds an outcome for a successful check with no content change.
func Unchanged() CheckOutcome {
	return CheckOutcome{Kind: OutcomeUnchanged}
}

// Updated builds an outcome for a successful check that found new content.
func Updated(newHash string) CheckOutcome {
	return CheckOutcome{Kind: OutcomeUpdated, NewHash: newHash}
}

// ApplyOutcome returns a copy of site with one check outcome folded into its
// monitoring state. LastChecked moves forward on every outcome; the content
// hash only moves on Updated; the statistics counters keep
// TotalChecks == SuccessfulChecks + FailedChecks.
func ApplyOutcome(site TrackedSite, outcome CheckOutcome, now time.Time) TrackedSite {
	site.Statistics.TotalChecks++

	switch outcome.Kind {
	case OutcomeFailed:
		site.Statistics.FailedChecks++
		site.Statistics.LastError = &LastError{Message: outcome.Err, Timestamp: now}
	case OutcomeUpdated:
		site.Statistics.SuccessfulChecks++
		site.LastContentHash = outcome.NewHash
	default:
		site.Statistics.SuccessfulChecks++
	}

	checked := now
	site.LastChecked = &checked
	site.UpdatedAt = now
	return site
}
