package domain

// MaxProcessingTime returns the largest processing time across candidates,
// in milliseconds. Transcription services run in parallel, so the slowest
// service bounds the wall-clock cost of the whole fan-out; summing the
// times would misstate it. It returns 0 for an empty slice.
func MaxProcessingTime(candidates []TranscriptionCandidate) int64 {
	var max int64
	for _, c := range candidates {
		if c.ProcessingTimeMs > max {
			max = c.ProcessingTimeMs
		}
	}
	return max
}

// MeanDefinedConfidence returns the mean of the confidences that were
// actually reported, ignoring candidates whose services reported none.
// It returns 0 when no candidate reported a confidence; the denominator
// is never padded with absent values.
func MeanDefinedConfidence(candidates []TranscriptionCandidate) float64 {
	var sum float64
	var n int
	for _, c := range candidates {
		if v, ok := c.ConfidenceValue(); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// CountDefinedConfidences returns how many candidates reported a
// confidence value.
func CountDefinedConfidences(candidates []TranscriptionCandidate) int {
	var n int
	for _, c := range candidates {
		if c.HasConfidence() {
			n++
		}
	}
	return n
}

// FastestCandidate returns the index of the candidate with the smallest
// processing time. Ties break by service name ascending, then candidate
// ID ascending, so the choice is deterministic for identical input. It
// returns -1 for an empty slice.
func FastestCandidate(candidates []TranscriptionCandidate) int {
	if len(candidates) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(candidates); i++ {
		c, b := candidates[i], candidates[best]
		switch {
		case c.ProcessingTimeMs < b.ProcessingTimeMs:
			best = i
		case c.ProcessingTimeMs == b.ProcessingTimeMs:
			if c.ServiceName < b.ServiceName ||
				(c.ServiceName == b.ServiceName && c.ID < b.ID) {
				best = i
			}
		}
	}
	return best
}
