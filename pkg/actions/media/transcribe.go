package media

import (
	"context"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"github.com/jlevy/kash-media/pkg/actions"
	"github.com/jlevy/kash-media/pkg/llm"
	"github.com/jlevy/kash-media/pkg/logger"
	"github.com/jlevy/kash-media/pkg/transcript"
	"github.com/jlevy/kash-media/pkg/types/item"
	mediatypes "github.com/jlevy/kash-media/pkg/types/media"
)

func init() {
	actions.Register(&TranscribeAction{})
}

// DefaultLanguage is the transcription language when none is given.
const DefaultLanguage = "en"

// TranscribeInput are the parameters for transcribe.
type TranscribeInput struct {
	Language string `json:"language,omitempty" jsonschema:"description=ISO language code of the audio (default en)"`
}

// TranscribeAction transcribes a media URL or a stored audio/video file
// into a timestamped transcript document. Each transcribed segment is
// wrapped in a timestamp span; when the transcriber reports speakers,
// speaker spans open a new paragraph on every speaker change.
type TranscribeAction struct{}

func (a *TranscribeAction) Name() string { return "transcribe" }

func (a *TranscribeAction) Description() string {
	return "Transcribe a media URL or audio/video file into a timestamped transcript."
}

func (a *TranscribeAction) GenerateSchema() *jsonschema.Schema {
	return actions.GenerateSchema[TranscribeInput]()
}

func (a *TranscribeAction) Precondition() *actions.Precondition {
	return actions.IsURLItem.Or(actions.IsAudioResource).Or(actions.IsVideoResource)
}

func (a *TranscribeAction) MCPTool() bool { return true }

func (a *TranscribeAction) Execute(ctx context.Context, rt *actions.Runtime, input *item.Item, params string) (*item.Item, error) {
	var p TranscribeInput
	if err := actions.UnmarshalParams(params, &p); err != nil {
		return nil, err
	}
	language := p.Language
	if language == "" {
		language = DefaultLanguage
	}
	if rt.Transcriber == nil {
		return nil, errors.New("no transcriber configured")
	}

	audioPath, err := audioSource(ctx, rt, input)
	if err != nil {
		return nil, err
	}

	logger.G(ctx).WithField("audio", audioPath).Info("transcribing audio")
	segments, err := rt.Transcriber.Transcribe(ctx, audioPath, language)
	if err != nil {
		return nil, err
	}

	body := renderTranscript(segments)
	if body == "" {
		return nil, errors.Errorf("transcription of %q produced no text", input.AbbrevTitle())
	}

	opts := []item.Option{
		item.WithFormat(item.FormatMdHTML),
		item.WithBody(body),
	}
	if input.Title == "" {
		if title := fetchTitle(ctx, rt, input.URL); title != "" {
			opts = append(opts, item.WithTitle(title))
		}
	}
	return input.DerivedCopy(item.TypeDoc, opts...), nil
}

// audioSource returns a local audio file for the item: the stored file
// for audio/video resources, a cached download for URL items.
func audioSource(ctx context.Context, rt *actions.Runtime, input *item.Item) (string, error) {
	if input.Format.IsAudio() || input.Format.IsVideo() {
		if input.ExternalPath != "" {
			return input.ExternalPath, nil
		}
		if input.StorePath != "" && rt.Workspace != nil {
			return rt.Workspace.AbsPath(input.StorePath)
		}
		return "", errors.Wrapf(actions.ErrInvalidInput, "media item %q has no stored file", input.AbbrevTitle())
	}

	if rt.Cache == nil {
		return "", errors.New("no media cache configured")
	}
	cached, err := rt.Cache.CacheMedia(ctx, input.URL, []mediatypes.Type{mediatypes.TypeAudio})
	if err != nil {
		return "", err
	}
	path, ok := cached[mediatypes.TypeAudio]
	if !ok {
		return "", errors.Errorf("no audio available for %s", input.URL)
	}
	return path, nil
}

// fetchTitle asks the media service for the item's title, best effort.
func fetchTitle(ctx context.Context, rt *actions.Runtime, url string) string {
	if url == "" {
		return ""
	}
	svc, err := services(rt).ServiceFor(url)
	if err != nil {
		return ""
	}
	meta, err := svc.Metadata(ctx, url)
	if err != nil {
		logger.G(ctx).WithField("url", url).WithError(err).Debug("could not fetch media title")
		return ""
	}
	return meta.Title
}

// renderTranscript renders segments as timestamp spans separated by
// spaces. A speaker change starts a new paragraph opened by a speaker
// span, which identify_speakers later rewrites with the actual name.
func renderTranscript(segments []llm.Segment) string {
	var b strings.Builder
	speaker := ""
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		switch {
		case seg.Speaker != "" && seg.Speaker != speaker:
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(transcript.SpeakerSpan("**SPEAKER "+seg.Speaker+":**", seg.Speaker))
			b.WriteString(" ")
			speaker = seg.Speaker
		case b.Len() > 0:
			b.WriteString(" ")
		}
		b.WriteString(transcript.TimestampSpan(text, seg.Start))
	}
	return b.String()
}
