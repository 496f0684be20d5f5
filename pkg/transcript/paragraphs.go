package transcript

import (
	"regexp"
	"strings"

	htmlpkg "html"
)

// Paragraph is one blank-line-separated block of a body, with its offsets
// in the original text.
type Paragraph struct {
	Start int
	End   int
	Text  string
}

var paraSplitRe = regexp.MustCompile(`\n\s*\n`)

// Paragraphs splits text into paragraphs on blank lines, preserving the
// byte offsets of each block. Empty blocks are dropped.
func Paragraphs(text string) []Paragraph {
	var paras []Paragraph
	start := 0
	bounds := paraSplitRe.FindAllStringIndex(text, -1)
	for _, b := range bounds {
		addParagraph(&paras, text, start, b[0])
		start = b[1]
	}
	addParagraph(&paras, text, start, len(text))
	return paras
}

func addParagraph(paras *[]Paragraph, text string, start, end int) {
	block := text[start:end]
	if strings.TrimSpace(block) == "" {
		return
	}
	*paras = append(*paras, Paragraph{Start: start, End: end, Text: block})
}

var sentenceEndRe = regexp.MustCompile(`[.?!]['")\]]*(\s|$)`)

// FirstSentence returns the first sentence of text, tags stripped.
func FirstSentence(text string) string {
	plain := strings.TrimSpace(StripTags(text))
	if loc := sentenceEndRe.FindStringIndex(plain); loc != nil {
		return strings.TrimSpace(plain[:loc[1]])
	}
	return plain
}

// Sentences splits text into sentences on terminal punctuation. Trailing
// text without terminal punctuation forms a final sentence.
func Sentences(text string) []string {
	var sentences []string
	rest := strings.TrimSpace(text)
	for rest != "" {
		loc := sentenceEndRe.FindStringIndex(rest)
		if loc == nil {
			sentences = append(sentences, rest)
			break
		}
		if s := strings.TrimSpace(rest[:loc[1]]); s != "" {
			sentences = append(sentences, s)
		}
		rest = strings.TrimSpace(rest[loc[1]:])
	}
	return sentences
}

var (
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	scriptRe     = regexp.MustCompile(`(?is)<(script|style)\b[^>]*>.*?</(script|style)>`)
	blankRunsRe  = regexp.MustCompile(`\n{3,}`)
	spaceRunsRe  = regexp.MustCompile(`[ \t]+`)
	normalizeRe  = regexp.MustCompile(`[^a-z0-9]+`)
	mdMarkupRepl = strings.NewReplacer("**", "", "*", "", "_", "", "`", "")
)

// StripTags removes HTML elements from text, keeping the inner text.
// Script and style contents are dropped entirely; entities are unescaped
// and whitespace runs collapsed.
func StripTags(text string) string {
	out := scriptRe.ReplaceAllString(text, "")
	out = tagRe.ReplaceAllString(out, "")
	out = htmlpkg.UnescapeString(out)
	out = spaceRunsRe.ReplaceAllString(out, " ")
	out = blankRunsRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// NormalizeForMatch reduces text to lowercase alphanumerics so sentences
// can be located across formatting differences.
func NormalizeForMatch(text string) string {
	plain := strings.ToLower(mdMarkupRepl.Replace(StripTags(text)))
	return strings.Trim(normalizeRe.ReplaceAllString(plain, " "), " ")
}

// CleanHeading strips Markdown markup from a line so it reads cleanly as
// a heading or card title.
func CleanHeading(s string) string {
	s = strings.TrimLeft(strings.TrimSpace(s), "# ")
	return strings.Join(strings.Fields(mdMarkupRepl.Replace(s)), " ")
}

// FindSentenceOffset locates sentence within source, comparing in
// normalized form, and returns the byte offset in source where the match
// region begins. Returns -1 when the sentence cannot be found.
func FindSentenceOffset(source, sentence string) int {
	needle := NormalizeForMatch(sentence)
	if needle == "" {
		return -1
	}
	words := strings.Fields(needle)
	if len(words) > 8 {
		words = words[:8]
	}

	// Walk candidate start positions of the first word in the raw source
	// and normalize a window around each to compare.
	first := words[0]
	lower := strings.ToLower(source)
	for from := 0; from < len(lower); {
		idx := strings.Index(lower[from:], first)
		if idx < 0 {
			return -1
		}
		pos := from + idx
		windowEnd := pos + len(sentence) + 128
		if windowEnd > len(source) {
			windowEnd = len(source)
		}
		window := NormalizeForMatch(source[pos:windowEnd])
		if strings.HasPrefix(window, strings.Join(words, " ")) {
			return pos
		}
		from = pos + 1
	}
	return -1
}
