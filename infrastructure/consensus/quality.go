package consensus

import (
	"fmt"
	"unicode/utf8"

	"github.com/ahrav/go-chorus/internal/domain"
)

// Quality signal descriptions recorded on assessments. Keeping them as
// constants makes traces grep-able and spares callers string matching
// against free prose.
const (
	StrengthHighConfidence  = "high reported confidence"
	StrengthFastProcessing  = "fast processing"
	StrengthLongTranscript  = "above-average transcription length"
	StrengthLanguageKnown   = "language metadata present"
	WeaknessLowConfidence   = "low reported confidence"
	WeaknessNoConfidence    = "no confidence reported"
	WeaknessSlowProcessing  = "slow processing"
	WeaknessShortTranscript = "below-average transcription length"
	WeaknessEmptyTranscript = "empty transcription"
)

// QualityAssessor grades each candidate's service on the signals the
// engine can observe without ground truth: reported confidence and
// processing speed, with text-shape observations as supporting evidence.
// Assessments feed the reasoning trace so callers can tune their service
// mix over time.
type QualityAssessor struct {
	// config supplies the quality weights and thresholds.
	config Config
}

// NewQualityAssessor creates a QualityAssessor with the given
// configuration. The configuration must already be validated.
func NewQualityAssessor(config Config) *QualityAssessor {
	return &QualityAssessor{config: config}
}

// Assess produces one assessment per candidate, in input order.
//
// The quality score blends the reported confidence, substituting
// NeutralConfidence when none was reported, with the speed score. A
// missing confidence is additionally recorded as its own weakness; it is
// never conflated with a reported confidence of zero.
func (qa *QualityAssessor) Assess(candidates []domain.TranscriptionCandidate) []domain.ServiceQualityAssessment {
	avgLength := averageTextLength(candidates)

	assessments := make([]domain.ServiceQualityAssessment, len(candidates))
	for i, c := range candidates {
		confidence, reported := c.ConfidenceValue()
		confidenceTerm := confidence
		if !reported {
			confidenceTerm = NeutralConfidence
		}
		speed := qa.config.speedScore(c.ProcessingTimeMs)

		score := qa.config.QualityConfidenceWeight*confidenceTerm + qa.config.QualitySpeedWeight*speed
		if score > 1.0 {
			score = 1.0
		}
		if score < 0 {
			score = 0
		}

		var strengths, weaknesses []string

		if reported && confidence >= qa.config.HighConfidence {
			strengths = append(strengths, StrengthHighConfidence)
		}
		if reported && confidence < qa.config.LowConfidence {
			weaknesses = append(weaknesses, WeaknessLowConfidence)
		}
		if !reported {
			weaknesses = append(weaknesses, WeaknessNoConfidence)
		}

		if c.ProcessingTimeMs <= qa.config.FastProcessingMs {
			strengths = append(strengths, StrengthFastProcessing)
		}
		if c.ProcessingTimeMs >= qa.config.SlowProcessingMs {
			weaknesses = append(weaknesses, WeaknessSlowProcessing)
		}

		length := float64(utf8.RuneCountInString(c.Text))
		switch {
		case c.Text == "":
			weaknesses = append(weaknesses, WeaknessEmptyTranscript)
		case length > avgLength:
			strengths = append(strengths, StrengthLongTranscript)
		case length < avgLength:
			weaknesses = append(weaknesses, WeaknessShortTranscript)
		}

		if _, ok := c.Metadata[domain.MetadataKeyLanguage]; ok {
			strengths = append(strengths, StrengthLanguageKnown)
		}

		assessments[i] = domain.ServiceQualityAssessment{
			ServiceName:    c.ServiceName,
			QualityScore:   score,
			Strengths:      strengths,
			Weaknesses:     weaknesses,
			Recommendation: qa.recommend(score),
			Notes:          assessmentNotes(c, confidence, reported),
		}
	}
	return assessments
}

// recommend maps a quality score to its categorical verdict using the
// strictly ordered thresholds: avoid below acceptable, preferred at the
// top.
func (qa *QualityAssessor) recommend(score float64) domain.Recommendation {
	switch {
	case score >= qa.config.PreferredQuality:
		return domain.RecommendationPreferred
	case score >= qa.config.AcceptableQuality:
		return domain.RecommendationAcceptable
	default:
		return domain.RecommendationAvoid
	}
}

// assessmentNotes renders the free-text context attached to an assessment.
func assessmentNotes(c domain.TranscriptionCandidate, confidence float64, reported bool) string {
	if reported {
		return fmt.Sprintf("Reported confidence %.2f; processed in %dms.", confidence, c.ProcessingTimeMs)
	}
	return fmt.Sprintf("No confidence reported; processed in %dms.", c.ProcessingTimeMs)
}

// averageTextLength returns the mean rune count of the candidate texts.
func averageTextLength(candidates []domain.TranscriptionCandidate) float64 {
	if len(candidates) == 0 {
		return 0
	}
	var total int
	for _, c := range candidates {
		total += utf8.RuneCountInString(c.Text)
	}
	return float64(total) / float64(len(candidates))
}
