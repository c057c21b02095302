package domain

// SimilarityMatrix caches the pairwise similarity of every candidate text
// combination for a single evaluation. It is computed exactly once per
// engine call and shared by the selector, the confidence estimator, and
// the disagreement detector, so the O(N²) scoring cost is paid once.
//
// The matrix is symmetric and its diagonal is fixed at 1.0; a text always
// agrees perfectly with itself.
type SimilarityMatrix struct {
	size   int
	values []float64
}

// BuildSimilarityMatrix scores every unordered pair of texts with the
// given score function and mirrors the result into a full matrix. The
// score function must be symmetric and return values in [0.0, 1.0].
func BuildSimilarityMatrix(texts []string, score func(a, b string) float64) SimilarityMatrix {
	n := len(texts)
	m := SimilarityMatrix{
		size:   n,
		values: make([]float64, n*n),
	}
	for i := 0; i < n; i++ {
		m.values[i*n+i] = 1.0
		for j := i + 1; j < n; j++ {
			s := score(texts[i], texts[j])
			m.values[i*n+j] = s
			m.values[j*n+i] = s
		}
	}
	return m
}

// Size returns the number of texts the matrix was built over.
func (m SimilarityMatrix) Size() int { return m.size }

// At returns the cached similarity between texts i and j.
func (m SimilarityMatrix) At(i, j int) float64 { return m.values[i*m.size+j] }

// AverageFor returns the average similarity of text i to every other
// text, excluding itself. It returns 0 when the matrix holds fewer than
// two texts; with no peers there is no agreement to measure.
func (m SimilarityMatrix) AverageFor(i int) float64 {
	if m.size < 2 {
		return 0
	}
	var sum float64
	for j := 0; j < m.size; j++ {
		if j == i {
			continue
		}
		sum += m.At(i, j)
	}
	return sum / float64(m.size-1)
}

// AverageOverall returns the mean similarity across all unordered pairs.
// It returns 0 when the matrix holds fewer than two texts.
func (m SimilarityMatrix) AverageOverall() float64 {
	if m.size < 2 {
		return 0
	}
	var sum float64
	var pairs int
	for i := 0; i < m.size; i++ {
		for j := i + 1; j < m.size; j++ {
			sum += m.At(i, j)
			pairs++
		}
	}
	return sum / float64(pairs)
}
