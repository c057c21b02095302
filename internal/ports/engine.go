// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"

	"github.com/ahrav/go-chorus/internal/domain"
)

// ConsensusEngine evaluates a set of transcription candidates and produces
// a single consensus result. Implementations must be pure with respect to
// their input: candidates are never mutated, no state is carried between
// calls, and identical input in identical order yields an identical
// decision. That makes a single engine instance safe for concurrent use.
type ConsensusEngine interface {
	// Evaluate selects the consensus transcription from candidates and
	// explains the choice. Invalid candidates are filtered out rather
	// than failing the call; if nothing valid remains, Evaluate returns
	// an error matching domain.ErrNoValidCandidates.
	//
	// The context parameter allows for cancellation and deadline
	// propagation. Evaluation is CPU-bound and brief, so cancellation
	// is honored between pipeline stages rather than mid-computation.
	Evaluate(ctx context.Context, candidates []domain.TranscriptionCandidate) (*domain.ConsensusResult, error)
}

// SimilarityScorer measures how alike two transcriptions are.
// Implementations must be symmetric, return values in [0.0, 1.0], and be
// safe for concurrent use; the engine calls Score once per unordered pair
// of candidates.
type SimilarityScorer interface {
	// Name returns a short identifier for the scoring algorithm, used
	// in reasoning traces and logs.
	Name() string

	// Score returns the similarity of a and b in [0.0, 1.0], where 1.0
	// means the texts agree completely. Score(a, b) equals Score(b, a).
	Score(a, b string) float64
}
