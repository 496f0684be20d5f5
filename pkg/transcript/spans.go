// Package transcript provides offset-level surgery on transcript bodies:
// locating and building the timestamp and speaker spans that transcription
// produces, applying batched replacements and insertions without
// disturbing surrounding text, and paragraph/sentence helpers used when
// re-attaching timestamps to formatted transcripts.
package transcript

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// FrameCaptureClass is the img class marking a captured video frame.
const FrameCaptureClass = "frame-capture"

const spanClose = "</span>"

var (
	timestampOpenRe = regexp.MustCompile(`<span data-timestamp="([^"]*)">`)
	speakerOpenRe   = regexp.MustCompile(`<span data-speaker-id="([^"]*)">`)
)

// TimestampMatch is one timestamp span located in a body. Start is the
// byte offset of the opening tag, End the offset just past the matching
// close tag.
type TimestampMatch struct {
	Seconds float64
	Start   int
	End     int
}

// SpeakerMatch is one speaker span located in a body, with the offsets of
// the whole element so it can be replaced outright.
type SpeakerMatch struct {
	SpeakerID string
	Start     int
	End       int
}

// ExtractTimestamps finds every timestamp span in the text in document
// order. Spans with an unparseable value or no matching close tag are
// skipped; their values are returned in malformed for the caller to log.
func ExtractTimestamps(text string) (matches []TimestampMatch, malformed []string) {
	for _, loc := range timestampOpenRe.FindAllStringSubmatchIndex(text, -1) {
		raw := text[loc[2]:loc[3]]
		seconds, err := strconv.ParseFloat(raw, 64)
		if err != nil || seconds < 0 {
			malformed = append(malformed, raw)
			continue
		}
		end := findSpanClose(text, loc[1])
		if end < 0 {
			malformed = append(malformed, raw)
			continue
		}
		matches = append(matches, TimestampMatch{
			Seconds: seconds,
			Start:   loc[0],
			End:     end,
		})
	}
	return matches, malformed
}

// FindSpeakerLabels finds every speaker span in the text in document
// order. Spans with no matching close tag are skipped.
func FindSpeakerLabels(text string) []SpeakerMatch {
	var matches []SpeakerMatch
	for _, loc := range speakerOpenRe.FindAllStringSubmatchIndex(text, -1) {
		end := findSpanClose(text, loc[1])
		if end < 0 {
			continue
		}
		matches = append(matches, SpeakerMatch{
			SpeakerID: text[loc[2]:loc[3]],
			Start:     loc[0],
			End:       end,
		})
	}
	return matches
}

// findSpanClose returns the offset just past the next </span> at or after
// from, or -1. Transcript spans never nest, so the next close tag is the
// matching one.
func findSpanClose(text string, from int) int {
	idx := strings.Index(text[from:], spanClose)
	if idx < 0 {
		return -1
	}
	return from + idx + len(spanClose)
}

// TimestampSpan builds a timestamp span around text.
func TimestampSpan(text string, seconds float64) string {
	return fmt.Sprintf(`<span data-timestamp="%s">%s</span>`, FormatSeconds(seconds), text)
}

// SpeakerSpan builds a speaker span around text.
func SpeakerSpan(text, speakerID string) string {
	return fmt.Sprintf(`<span data-speaker-id="%s">%s</span>`, speakerID, text)
}

// FrameCaptureImg builds a frame-capture img element.
func FrameCaptureImg(src, alt string) string {
	return fmt.Sprintf(`<img class="%s" src="%s" alt="%s" />`, FrameCaptureClass, src, alt)
}

// MdPara wraps text as its own Markdown paragraph.
func MdPara(text string) string {
	return "\n\n" + text + "\n\n"
}

// FormatSeconds renders a seconds value the way spans carry it, with
// fractional digits only when present.
func FormatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}

// HasTimestamps reports whether the text contains at least one
// well-formed timestamp span.
func HasTimestamps(text string) bool {
	matches, _ := ExtractTimestamps(text)
	return len(matches) > 0
}

// HasSpeakerLabels reports whether the text contains speaker spans.
func HasSpeakerLabels(text string) bool {
	return len(FindSpeakerLabels(text)) > 0
}

// HasFrameCaptures reports whether frame captures were already inserted.
func HasFrameCaptures(text string) bool {
	return strings.Contains(text, fmt.Sprintf(`<img class="%s"`, FrameCaptureClass))
}

// NearestTimestampBefore returns the last timestamp match starting at or
// before offset, or an error when none precedes it.
func NearestTimestampBefore(matches []TimestampMatch, offset int) (TimestampMatch, error) {
	var found TimestampMatch
	ok := false
	for _, m := range matches {
		if m.Start > offset {
			break
		}
		found = m
		ok = true
	}
	if !ok {
		return TimestampMatch{}, errors.Errorf("no timestamp at or before offset %d", offset)
	}
	return found, nil
}
