package ports

import "context"

// AudioClip carries one utterance of raw audio to a recognizer.
// The engine never inspects audio; clips exist so the fan-out layer can
// hand the same input to every configured service.
type AudioClip struct {
	// Data is the raw audio payload, typically PCM samples.
	Data []byte

	// SampleRate is the sampling frequency in Hz, such as 16000.
	SampleRate int

	// Channels is the channel count, 1 for mono.
	Channels int
}

// Transcription is a recognizer's raw output before it is shaped into a
// domain candidate by the fan-out layer.
type Transcription struct {
	// Text is the transcribed text. It may be empty for silent audio.
	Text string

	// Confidence is the service's self-reported confidence in [0.0, 1.0],
	// or nil when the service does not report one.
	Confidence *float64

	// Metadata carries optional service-specific attributes such as
	// model name or detected language.
	Metadata map[string]string
}

// Recognizer is a single speech-to-text service. Implementations wrap
// whatever transport the service needs and must honor context
// cancellation, since the fan-out layer bounds each call with a
// per-service timeout.
type Recognizer interface {
	// Name returns the service label recorded on candidates this
	// recognizer produces, such as "whisper" or "deepgram".
	Name() string

	// Transcribe converts the clip to text. A Transcription with empty
	// text and a nil error is a legitimate result for silent audio;
	// errors are reserved for the service actually failing.
	Transcribe(ctx context.Context, clip AudioClip) (Transcription, error)
}
