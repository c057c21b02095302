package consensus

import (
	"fmt"
	"sort"

	"github.com/ahrav/go-chorus/internal/domain"
)

// RankedCandidate pairs a candidate with its agreement score for ranking.
type RankedCandidate struct {
	// Candidate is the ranked transcription candidate.
	Candidate domain.TranscriptionCandidate

	// Index is the candidate's position in the validated input slice,
	// used to address the shared similarity matrix.
	Index int

	// AgreementScore is the candidate's average pairwise similarity to
	// every other candidate. It is 0 when the candidate has no peers.
	AgreementScore float64
}

// Selector picks the consensus transcription by mutual agreement: the
// candidate whose text is most similar, on average, to all the others
// wins. Prioritizing agreement over self-reported confidence keeps an
// overconfident outlier recognizer from dominating the result.
//
// Ranking is a strict total order, so the winner is reproducible for
// identical input: average similarity descending, then reported
// confidence descending with unreported confidences sorting last, then
// service name ascending, then candidate ID ascending.
type Selector struct{}

// NewSelector creates a Selector.
func NewSelector() *Selector { return &Selector{} }

// Rank orders candidates best first using the cached similarity matrix.
// The matrix must have been built over the same candidates in the same
// order. A single candidate ranks trivially with an agreement score of 0;
// it has no peers to agree with.
func (s *Selector) Rank(candidates []domain.TranscriptionCandidate, matrix domain.SimilarityMatrix) []RankedCandidate {
	ranked := make([]RankedCandidate, len(candidates))
	for i, c := range candidates {
		ranked[i] = RankedCandidate{
			Candidate:      c,
			Index:          i,
			AgreementScore: matrix.AverageFor(i),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return rankLess(ranked[i], ranked[j])
	})
	return ranked
}

// Select returns the winning candidate. It fails with
// domain.ErrNoValidCandidates when candidates is empty.
func (s *Selector) Select(candidates []domain.TranscriptionCandidate, matrix domain.SimilarityMatrix) (RankedCandidate, error) {
	if len(candidates) == 0 {
		return RankedCandidate{}, fmt.Errorf("selection requires at least one candidate: %w", domain.ErrNoValidCandidates)
	}
	return s.Rank(candidates, matrix)[0], nil
}

// rankLess reports whether a should rank ahead of b under the selector's
// total order.
func rankLess(a, b RankedCandidate) bool {
	if a.AgreementScore != b.AgreementScore {
		return a.AgreementScore > b.AgreementScore
	}

	aConf, aOK := a.Candidate.ConfidenceValue()
	bConf, bOK := b.Candidate.ConfidenceValue()
	if aOK != bOK {
		// A candidate that reported a confidence outranks one that
		// reported none, whatever the reported value is.
		return aOK
	}
	if aOK && aConf != bConf {
		return aConf > bConf
	}

	if a.Candidate.ServiceName != b.Candidate.ServiceName {
		return a.Candidate.ServiceName < b.Candidate.ServiceName
	}
	return a.Candidate.ID < b.Candidate.ID
}
