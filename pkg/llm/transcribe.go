package llm

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// Segment is one transcribed span of audio.
type Segment struct {
	Start   float64
	End     float64
	Text    string
	Speaker string // diarization label when available, "" otherwise
}

// Transcriber converts an audio file to timed transcript segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) ([]Segment, error)
}

// WhisperTranscriber transcribes audio through OpenAI's audio API.
type WhisperTranscriber struct {
	client *openai.Client
	model  string
}

// NewWhisperTranscriber creates a whisper-backed transcriber.
func NewWhisperTranscriber() (*WhisperTranscriber, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable is required")
	}
	return &WhisperTranscriber{
		client: newOpenAIClient(apiKey),
		model:  openai.Whisper1,
	}, nil
}

// Transcribe runs the audio file through whisper and returns its
// segments. Files without segment detail fall back to one segment
// spanning the whole transcript.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audioPath, language string) ([]Segment, error) {
	req := openai.AudioRequest{
		Model:    t.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: language,
	}

	var resp openai.AudioResponse
	err := completeWithRetry(ctx, "openai", openaiRetryable, func() error {
		var apiErr error
		resp, apiErr = t.client.CreateTranscription(ctx, req)
		return apiErr
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to transcribe %s", audioPath)
	}

	segments := make([]Segment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  text,
		})
	}
	if len(segments) == 0 && strings.TrimSpace(resp.Text) != "" {
		segments = append(segments, Segment{
			Start: 0,
			End:   resp.Duration,
			Text:  strings.TrimSpace(resp.Text),
		})
	}
	return segments, nil
}
