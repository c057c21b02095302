package fanout

import (
	"context"
	"time"

	"github.com/ahrav/go-chorus/internal/ports"
)

var _ ports.Recognizer = (*MockRecognizer)(nil)

// MockRecognizer implements the Recognizer interface with a canned
// response, for tests and the demo binary. Latency is simulated with a
// real wait so timeout behavior can be exercised.
type MockRecognizer struct {
	// ServiceName is the label recorded on produced candidates.
	ServiceName string
	// Text is the transcription returned on success.
	Text string
	// Confidence is the reported confidence, or nil for services that
	// report none.
	Confidence *float64
	// Latency delays the response to simulate processing time.
	Latency time.Duration
	// Metadata is attached to the transcription verbatim.
	Metadata map[string]string
	// Err, when set, makes every call fail after Latency.
	Err error
}

// Name implements the Recognizer interface.
func (m *MockRecognizer) Name() string { return m.ServiceName }

// Transcribe implements the Recognizer interface. It honors context
// cancellation while waiting out the configured latency.
func (m *MockRecognizer) Transcribe(ctx context.Context, _ ports.AudioClip) (ports.Transcription, error) {
	if m.Latency > 0 {
		timer := time.NewTimer(m.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ports.Transcription{}, ctx.Err()
		case <-timer.C:
		}
	}
	if m.Err != nil {
		return ports.Transcription{}, m.Err
	}
	return ports.Transcription{
		Text:       m.Text,
		Confidence: m.Confidence,
		Metadata:   m.Metadata,
	}, nil
}
