package transcript

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Replacement replaces text[Start:End] with Text.
type Replacement struct {
	Start int
	End   int
	Text  string
}

// Insertion inserts Text at Offset.
type Insertion struct {
	Offset int
	Text   string
}

// ReplaceMultiple applies all replacements to text in a single pass.
// Replacements may be given in any order but must not overlap; offsets
// refer to the original text. Text outside the replaced ranges is
// returned byte for byte.
func ReplaceMultiple(text string, replacements []Replacement) (string, error) {
	if len(replacements) == 0 {
		return text, nil
	}

	sorted := make([]Replacement, len(replacements))
	copy(sorted, replacements)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	for i, r := range sorted {
		if r.Start < 0 || r.End > len(text) || r.Start > r.End {
			return "", errors.Errorf("replacement range [%d,%d) out of bounds for text of length %d",
				r.Start, r.End, len(text))
		}
		if i > 0 && r.Start < sorted[i-1].End {
			return "", errors.Errorf("replacement at offset %d overlaps previous ending at %d",
				r.Start, sorted[i-1].End)
		}
	}

	var b strings.Builder
	prev := 0
	for _, r := range sorted {
		b.WriteString(text[prev:r.Start])
		b.WriteString(r.Text)
		prev = r.End
	}
	b.WriteString(text[prev:])
	return b.String(), nil
}

// InsertMultiple applies all insertions to text in a single pass. Offsets
// refer to the original text; multiple insertions at the same offset keep
// their given order.
func InsertMultiple(text string, insertions []Insertion) (string, error) {
	if len(insertions) == 0 {
		return text, nil
	}

	sorted := make([]Insertion, len(insertions))
	copy(sorted, insertions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	var b strings.Builder
	prev := 0
	for _, ins := range sorted {
		if ins.Offset < 0 || ins.Offset > len(text) {
			return "", errors.Errorf("insertion offset %d out of bounds for text of length %d",
				ins.Offset, len(text))
		}
		b.WriteString(text[prev:ins.Offset])
		b.WriteString(ins.Text)
		prev = ins.Offset
	}
	b.WriteString(text[prev:])
	return b.String(), nil
}
