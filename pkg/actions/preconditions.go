package actions

import (
	"strings"

	"github.com/jlevy/kash-media/pkg/media"
	"github.com/jlevy/kash-media/pkg/transcript"
	"github.com/jlevy/kash-media/pkg/types/item"
)

// Precondition is a named predicate over items. Actions declare their
// input requirements as preconditions so the framework can reject
// unsuitable items with a message naming the unmet requirement, and so
// tooling can list which actions apply to a given item. Compose with
// And, Or, and Not.
type Precondition struct {
	name    string
	check   func(*item.Item) bool
	explain func(*item.Item) string
}

// NewPrecondition builds a leaf precondition from a name and predicate.
func NewPrecondition(name string, check func(*item.Item) bool) *Precondition {
	return &Precondition{name: name, check: check}
}

// Name returns the precondition's display name.
func (p *Precondition) Name() string {
	if p == nil {
		return ""
	}
	return p.name
}

// Check reports whether the item satisfies the precondition. A nil
// precondition is always satisfied.
func (p *Precondition) Check(it *item.Item) bool {
	if p == nil {
		return true
	}
	return p.check(it)
}

// Explain returns the name of the failing predicate, or "" when the item
// satisfies the precondition. For conjunctions this names the specific
// leaf that failed rather than the whole expression.
func (p *Precondition) Explain(it *item.Item) string {
	if p.Check(it) {
		return ""
	}
	if p.explain != nil {
		return p.explain(it)
	}
	return p.name
}

// And requires both preconditions.
func (p *Precondition) And(q *Precondition) *Precondition {
	return &Precondition{
		name:  p.name + " & " + q.name,
		check: func(it *item.Item) bool { return p.Check(it) && q.Check(it) },
		explain: func(it *item.Item) string {
			if s := p.Explain(it); s != "" {
				return s
			}
			return q.Explain(it)
		},
	}
}

// Or requires either precondition.
func (p *Precondition) Or(q *Precondition) *Precondition {
	return &Precondition{
		name:  p.name + " | " + q.name,
		check: func(it *item.Item) bool { return p.Check(it) || q.Check(it) },
	}
}

// Not inverts the precondition.
func (p *Precondition) Not() *Precondition {
	return &Precondition{
		name:  "!" + p.name,
		check: func(it *item.Item) bool { return !p.Check(it) },
	}
}

// urlServices recognizes media URLs in precondition checks. Only pure
// URL-parsing methods are called on it, never downloads.
var urlServices = media.DefaultRegistry(nil)

// Standard preconditions shared by the built-in actions.
var (
	// HasBody matches items with non-empty body text.
	HasBody = NewPrecondition("has_body", func(it *item.Item) bool {
		return strings.TrimSpace(it.Body) != ""
	})

	// HasTextBody matches items whose body is prose text (plaintext,
	// Markdown, or Markdown with inline HTML).
	HasTextBody = NewPrecondition("has_text_body", func(it *item.Item) bool {
		if strings.TrimSpace(it.Body) == "" {
			return false
		}
		switch it.Format {
		case item.FormatPlaintext, item.FormatMarkdown, item.FormatMdHTML, "":
			return true
		default:
			return false
		}
	})

	// HasHTMLBody matches items whose body is an HTML document.
	HasHTMLBody = NewPrecondition("has_html_body", func(it *item.Item) bool {
		return strings.TrimSpace(it.Body) != "" && it.Format == item.FormatHTML
	})

	// IsURLItem matches resource items that point at a URL.
	IsURLItem = NewPrecondition("is_url_item", func(it *item.Item) bool {
		return it.Type == item.TypeResource && it.URL != ""
	})

	// HasTimestamps matches bodies carrying timestamp spans.
	HasTimestamps = NewPrecondition("has_timestamps", func(it *item.Item) bool {
		return transcript.HasTimestamps(it.Body)
	})

	// HasSpeakerLabels matches bodies carrying speaker spans.
	HasSpeakerLabels = NewPrecondition("has_speaker_labels", func(it *item.Item) bool {
		return transcript.HasSpeakerLabels(it.Body)
	})

	// HasFrameCaptures matches bodies that already contain captured
	// video frames.
	HasFrameCaptures = NewPrecondition("has_frame_captures", func(it *item.Item) bool {
		return transcript.HasFrameCaptures(it.Body)
	})

	// HasMediaID matches items whose URL a media service recognizes and
	// can derive a stable media ID from.
	HasMediaID = NewPrecondition("has_media_id", func(it *item.Item) bool {
		return it.URL != "" && urlServices.MediaID(it.URL) != ""
	})

	// IsYouTubeVideo matches items whose URL is a single YouTube video.
	IsYouTubeVideo = NewPrecondition("is_youtube_video", func(it *item.Item) bool {
		if it.URL == "" {
			return false
		}
		svc, err := urlServices.ServiceFor(it.URL)
		if err != nil || svc.Name() != media.ServiceNameYouTube {
			return false
		}
		_, urlType := svc.CanonicalizeAndType(it.URL)
		return urlType.IsSingle()
	})

	// IsAudioResource matches resource items stored as audio files.
	IsAudioResource = NewPrecondition("is_audio_resource", func(it *item.Item) bool {
		return it.Type == item.TypeResource && it.Format.IsAudio()
	})

	// IsVideoResource matches resource items stored as video files.
	IsVideoResource = NewPrecondition("is_video_resource", func(it *item.Item) bool {
		return it.Type == item.TypeResource && it.Format.IsVideo()
	})

	// IsDocxResource matches resource items stored as docx files.
	IsDocxResource = NewPrecondition("is_docx_resource", func(it *item.Item) bool {
		return it.Type == item.TypeResource && it.Format == item.FormatDocx
	})
)
