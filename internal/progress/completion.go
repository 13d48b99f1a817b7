package progress

// CompletionThreshold is the watched fraction at which a title counts as
// finished. 0.92 sits between the ~0.90-0.95 cutoffs major streaming
// services use.
const CompletionThreshold = 0.92

// MinResumeSeconds is the minimum watched time for a title to be considered
// resumable. Anything below is "barely started" and stays out of the
// continue-watching list.
const MinResumeSeconds = 30

// DefaultContinueLimit bounds the continue-watching projection when the
// caller does not supply a limit.
const DefaultContinueLimit = 20

// CompletionPercent returns the watched percentage, capped at 100. A
// non-positive total yields 0 rather than an error.
func CompletionPercent(watched, total float64) float64 {
	if total <= 0 {
		return 0
	}
	percent := watched / total * 100
	if percent > 100 {
		return 100
	}
	return percent
}

// IsCompleted reports whether a position crosses the completion threshold.
// A non-positive total is never completed.
func IsCompleted(watched, total float64) bool {
	if total <= 0 {
		return false
	}
	return watched/total >= CompletionThreshold
}
