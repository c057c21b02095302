// Package scoring provides the text similarity algorithms used to compare
// transcription candidates. Scorers are deterministic, stateless, and safe
// for concurrent use.
package scoring

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"

	"github.com/ahrav/go-chorus/internal/domain"
	"github.com/ahrav/go-chorus/internal/ports"
)

var (
	_ ports.SimilarityScorer = (*HybridScorer)(nil)

	// foldCaser is a package-level Unicode case folder for performance.
	// This avoids creating a new caser for each comparison.
	foldCaser = cases.Fold()

	// validate is the shared validator instance for configuration structs.
	validate = validator.New()
)

// weightSumTolerance bounds the floating-point slack allowed when checking
// that the component weights sum to 1.0.
const weightSumTolerance = 1e-9

// Config defines the component weights of the hybrid similarity score.
// Both weights must lie in [0.0, 1.0] and sum to 1.0.
type Config struct {
	// WordWeight scales the word-level Jaccard component, which resists
	// minor spelling drift between recognizers.
	WordWeight float64 `yaml:"word_weight" json:"word_weight" validate:"min=0.0,max=1.0"`

	// CharWeight scales the character-level edit-distance component,
	// which catches near-miss transcriptions that share no whole words.
	CharWeight float64 `yaml:"char_weight" json:"char_weight" validate:"min=0.0,max=1.0"`
}

// DefaultConfig returns a Config with the reference weights.
func DefaultConfig() Config {
	return Config{
		WordWeight: 0.6,
		CharWeight: 0.4,
	}
}

// Validate checks that the weights are individually in range and jointly
// sum to 1.0.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if math.Abs(c.WordWeight+c.CharWeight-1.0) > weightSumTolerance {
		return fmt.Errorf("word weight %g and char weight %g must sum to 1.0: %w",
			c.WordWeight, c.CharWeight, domain.ErrInvalidConfiguration)
	}
	return nil
}

// HybridScorer measures transcription similarity as a weighted blend of
// word-level Jaccard overlap and character-level Levenshtein similarity.
// The combination is deliberate: word overlap tolerates small spelling
// differences across recognizers, while edit distance still credits
// near-miss transcriptions that share no complete words.
//
// The scorer is stateless and thread-safe for concurrent execution.
type HybridScorer struct {
	// config contains the validated component weights.
	config Config
}

// NewHybridScorer creates a HybridScorer with the specified weights.
// Returns an error if configuration validation fails.
func NewHybridScorer(config Config) (*HybridScorer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &HybridScorer{config: config}, nil
}

// Name returns the identifier for this scoring algorithm.
func (hs *HybridScorer) Name() string { return "hybrid" }

// Score returns the hybrid similarity of a and b in [0.0, 1.0].
// Comparison is case-insensitive: both strings are Unicode case folded
// once and the folded forms feed both components. Score is symmetric.
func (hs *HybridScorer) Score(a, b string) float64 {
	fa := foldCaser.String(a)
	fb := foldCaser.String(b)

	score := hs.config.WordWeight*wordSimilarity(fa, fb) +
		hs.config.CharWeight*charSimilarity(fa, fb)

	// Guard the bounds against floating-point drift in the blend.
	if score > 1.0 {
		return 1.0
	}
	if score < 0 {
		return 0
	}
	return score
}

// wordSimilarity computes the Jaccard index over the whitespace-tokenized
// word sets of two case-folded strings. Two wordless strings are
// considered identical (1.0); exactly one wordless string shares nothing
// with the other (0.0).
func wordSimilarity(a, b string) float64 {
	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)

	if len(wordsA) == 0 && len(wordsB) == 0 {
		return 1.0
	}
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0.0
	}

	setA := make(map[string]struct{}, len(wordsA))
	for _, w := range wordsA {
		setA[w] = struct{}{}
	}
	setB := make(map[string]struct{}, len(wordsB))
	for _, w := range wordsB {
		setB[w] = struct{}{}
	}

	var intersection int
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection

	return float64(intersection) / float64(union)
}

// charSimilarity computes the similarity score between two case-folded
// strings using the Levenshtein distance algorithm. Returns a value
// between 0.0 and 1.0 where 1.0 indicates identical strings and 0.0
// indicates maximum dissimilarity.
func charSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	// The levenshtein library operates on runes, so the normalization
	// denominator must use rune counts for consistency. For example:
	// "café" has 4 runes but 5 bytes due to the é character.
	distance := levenshtein.ComputeDistance(a, b)

	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}

	// Two empty strings are considered identical (similarity = 1.0).
	if maxLen == 0 {
		return 1.0
	}

	// Normalize the edit distance to a similarity score between 0 and 1.
	// Example: distance=2, maxLen=10 → similarity = 1 - (2/10) = 0.8
	similarity := 1.0 - float64(distance)/float64(maxLen)

	if similarity < 0 {
		similarity = 0
	}
	return similarity
}
