package consensus

import "github.com/ahrav/go-chorus/internal/domain"

// DisagreementDetector surfaces candidate pairs whose transcriptions
// diverge enough to matter. Disagreements do not change the selection;
// they give callers an honest account of how contested the consensus was.
type DisagreementDetector struct {
	// config supplies the agreement threshold.
	config Config
}

// NewDisagreementDetector creates a DisagreementDetector with the given
// configuration. The configuration must already be validated.
func NewDisagreementDetector(config Config) *DisagreementDetector {
	return &DisagreementDetector{config: config}
}

// Detect reads the cached similarity matrix and records one Disagreement
// for every unordered pair scoring below the agreement threshold, with
// severity 1 minus the pair's similarity. Pairs are visited in input
// order, so the output order is deterministic. The matrix must have been
// built over the same candidates in the same order.
func (dd *DisagreementDetector) Detect(candidates []domain.TranscriptionCandidate, matrix domain.SimilarityMatrix) []domain.Disagreement {
	var disagreements []domain.Disagreement
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			similarity := matrix.At(i, j)
			if similarity >= dd.config.AgreementThreshold {
				continue
			}

			a, b := candidates[i], candidates[j]
			disagreements = append(disagreements, domain.Disagreement{
				Services: []string{a.ServiceName, b.ServiceName},
				Texts: map[string]string{
					a.ServiceName: a.Text,
					b.ServiceName: b.Text,
				},
				Severity: 1.0 - similarity,
			})
		}
	}
	return disagreements
}
