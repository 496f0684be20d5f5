package transcript

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBody = `## Talk

<span data-speaker-id="0">**SPEAKER 0:**</span>
<span data-timestamp="5.0">Welcome to the show.</span>
<span data-timestamp="12.5">Today we talk about caching.</span>

<span data-speaker-id="1">**SPEAKER 1:**</span>
<span data-timestamp="47">Thanks for having me.</span>
`

func TestExtractTimestamps(t *testing.T) {
	matches, malformed := ExtractTimestamps(sampleBody)
	require.Empty(t, malformed)
	require.Len(t, matches, 3)

	assert.Equal(t, 5.0, matches[0].Seconds)
	assert.Equal(t, 12.5, matches[1].Seconds)
	assert.Equal(t, 47.0, matches[2].Seconds)

	// Offsets cover the whole span element.
	for _, m := range matches {
		assert.True(t, strings.HasPrefix(sampleBody[m.Start:], `<span data-timestamp=`))
		assert.True(t, strings.HasSuffix(sampleBody[:m.End], `</span>`))
	}
	assert.Equal(t,
		`<span data-timestamp="5.0">Welcome to the show.</span>`,
		sampleBody[matches[0].Start:matches[0].End])
}

func TestExtractTimestampsMalformed(t *testing.T) {
	body := `<span data-timestamp="oops">bad</span> <span data-timestamp="3">ok</span>`
	matches, malformed := ExtractTimestamps(body)
	require.Len(t, matches, 1)
	assert.Equal(t, 3.0, matches[0].Seconds)
	assert.Equal(t, []string{"oops"}, malformed)
}

func TestExtractTimestampsUnclosed(t *testing.T) {
	body := `<span data-timestamp="3">never closed`
	matches, malformed := ExtractTimestamps(body)
	assert.Empty(t, matches)
	assert.Equal(t, []string{"3"}, malformed)
}

func TestFindSpeakerLabels(t *testing.T) {
	labels := FindSpeakerLabels(sampleBody)
	require.Len(t, labels, 2)

	assert.Equal(t, "0", labels[0].SpeakerID)
	assert.Equal(t, "1", labels[1].SpeakerID)
	assert.Equal(t,
		`<span data-speaker-id="0">**SPEAKER 0:**</span>`,
		sampleBody[labels[0].Start:labels[0].End])
}

func TestSpanBuilders(t *testing.T) {
	assert.Equal(t, `<span data-timestamp="12.5">hi</span>`, TimestampSpan("hi", 12.5))
	assert.Equal(t, `<span data-timestamp="47">hi</span>`, TimestampSpan("hi", 47))
	assert.Equal(t, `<span data-speaker-id="1">**Bob:**</span>`, SpeakerSpan("**Bob:**", "1"))

	img := FrameCaptureImg("assets/frame.jpg", "Frame at 12.5 seconds")
	assert.Contains(t, img, `class="frame-capture"`)
	assert.Contains(t, img, `src="assets/frame.jpg"`)
}

func TestHasHelpers(t *testing.T) {
	assert.True(t, HasTimestamps(sampleBody))
	assert.True(t, HasSpeakerLabels(sampleBody))
	assert.False(t, HasFrameCaptures(sampleBody))
	assert.False(t, HasTimestamps("plain text"))
	assert.True(t, HasFrameCaptures(`x `+FrameCaptureImg("a.jpg", "f")))
}

func TestReplaceMultiple(t *testing.T) {
	text := "aaa bbb ccc"
	out, err := ReplaceMultiple(text, []Replacement{
		{Start: 8, End: 11, Text: "CCC"},
		{Start: 0, End: 3, Text: "A"},
	})
	require.NoError(t, err)
	assert.Equal(t, "A bbb CCC", out)
}

func TestReplaceMultipleOverlap(t *testing.T) {
	_, err := ReplaceMultiple("abcdef", []Replacement{
		{Start: 0, End: 4, Text: "x"},
		{Start: 3, End: 6, Text: "y"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlaps")
}

func TestReplaceMultipleOutOfBounds(t *testing.T) {
	_, err := ReplaceMultiple("abc", []Replacement{{Start: 1, End: 10, Text: "x"}})
	assert.Error(t, err)
}

func TestReplaceMultipleEmpty(t *testing.T) {
	out, err := ReplaceMultiple("abc", nil)
	require.NoError(t, err)
	assert.Equal(t, "abc", out)
}

func TestReplaceSpeakerSpans(t *testing.T) {
	labels := FindSpeakerLabels(sampleBody)
	var replacements []Replacement
	names := map[string]string{"0": "Alice", "1": "Bob"}
	for _, l := range labels {
		replacements = append(replacements, Replacement{
			Start: l.Start,
			End:   l.End,
			Text:  SpeakerSpan("**"+names[l.SpeakerID]+":**", l.SpeakerID),
		})
	}
	out, err := ReplaceMultiple(sampleBody, replacements)
	require.NoError(t, err)
	assert.Contains(t, out, `<span data-speaker-id="0">**Alice:**</span>`)
	assert.Contains(t, out, `<span data-speaker-id="1">**Bob:**</span>`)
	assert.NotContains(t, out, "SPEAKER 0")
	// Timestamps untouched.
	assert.Contains(t, out, `<span data-timestamp="12.5">Today we talk about caching.</span>`)
}

func TestInsertMultiple(t *testing.T) {
	out, err := InsertMultiple("abcdef", []Insertion{
		{Offset: 6, Text: "!"},
		{Offset: 0, Text: ">"},
		{Offset: 3, Text: "-"},
	})
	require.NoError(t, err)
	assert.Equal(t, ">abc-def!", out)
}

func TestInsertMultipleSameOffsetKeepsOrder(t *testing.T) {
	out, err := InsertMultiple("ab", []Insertion{
		{Offset: 1, Text: "x"},
		{Offset: 1, Text: "y"},
	})
	require.NoError(t, err)
	assert.Equal(t, "axyb", out)
}

func TestInsertMultipleOutOfBounds(t *testing.T) {
	_, err := InsertMultiple("ab", []Insertion{{Offset: 5, Text: "x"}})
	assert.Error(t, err)
}

func TestInsertAfterTimestampSpans(t *testing.T) {
	matches, _ := ExtractTimestamps(sampleBody)
	require.NotEmpty(t, matches)

	ins := Insertion{
		Offset: matches[0].End,
		Text:   MdPara(FrameCaptureImg("assets/f0.jpg", "Frame at 5 seconds")),
	}
	out, err := InsertMultiple(sampleBody, []Insertion{ins})
	require.NoError(t, err)
	assert.Contains(t, out,
		`Welcome to the show.</span>`+"\n\n"+`<img class="frame-capture"`)
}

func TestParagraphs(t *testing.T) {
	text := "First para line one.\nLine two.\n\nSecond para.\n\n\nThird para."
	paras := Paragraphs(text)
	require.Len(t, paras, 3)

	assert.Equal(t, 0, paras[0].Start)
	assert.Contains(t, paras[0].Text, "Line two.")
	assert.Equal(t, "Second para.", paras[1].Text)
	assert.Equal(t, "Third para.", paras[2].Text)

	// Offsets round-trip into the original text.
	for _, p := range paras {
		assert.Equal(t, p.Text, text[p.Start:p.End])
	}
}

func TestParagraphsEmptyInput(t *testing.T) {
	assert.Empty(t, Paragraphs(""))
	assert.Empty(t, Paragraphs("\n\n\n"))
}

func TestFirstSentence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain",
			input:    "Welcome to the show. Today we talk.",
			expected: "Welcome to the show.",
		},
		{
			name:     "tags stripped",
			input:    `<span data-timestamp="5">Welcome to the show.</span> More.`,
			expected: "Welcome to the show.",
		},
		{
			name:     "question mark",
			input:    "Is this on? Yes.",
			expected: "Is this on?",
		},
		{
			name:     "no terminator",
			input:    "just a fragment",
			expected: "just a fragment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FirstSentence(tt.input))
		})
	}
}

func TestStripTags(t *testing.T) {
	in := `<p>Hello <b>world</b> &amp; friends</p><script>evil()</script>`
	assert.Equal(t, "Hello world & friends", StripTags(in))
}

func TestFindSentenceOffset(t *testing.T) {
	source := sampleBody

	offset := FindSentenceOffset(source, "Today we talk about caching.")
	require.GreaterOrEqual(t, offset, 0)

	matches, _ := ExtractTimestamps(source)
	nearest, err := NearestTimestampBefore(matches, offset)
	require.NoError(t, err)
	assert.Equal(t, 12.5, nearest.Seconds)
}

func TestFindSentenceOffsetFormattingDifferences(t *testing.T) {
	source := `<span data-timestamp="5.0">Welcome, to the SHOW.</span>`
	offset := FindSentenceOffset(source, "**Welcome to the show**")
	assert.GreaterOrEqual(t, offset, 0)
}

func TestFindSentenceOffsetMissing(t *testing.T) {
	assert.Equal(t, -1, FindSentenceOffset("some text here", "entirely absent sentence"))
	assert.Equal(t, -1, FindSentenceOffset("some text", ""))
}

func TestNearestTimestampBeforeNone(t *testing.T) {
	matches, _ := ExtractTimestamps(sampleBody)
	_, err := NearestTimestampBefore(matches, 0)
	assert.Error(t, err)
}
