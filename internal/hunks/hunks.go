// Package hunks splits unified diffs into @@-delimited hunks and gives every
// hunk the 1-based index the line-selection prompt refers to.
package hunks

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

var hunkStart = regexp.MustCompile(`(?m)^@@`)

// Hunk is one fragment of a diff.
type Hunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Range is the parsed @@ header of a hunk.
type Range struct {
	OrigStart int
	OrigLines int
	NewStart  int
	NewLines  int
}

// Split cuts diff right before every line starting with "@@". Empty and
// whitespace-only fragments are dropped and take no index. Joining the result
// gives back the input unless it starts with a whitespace-only preamble.
func Split(diff string) []Hunk {
	if diff == "" {
		return nil
	}

	bounds := hunkStart.FindAllStringIndex(diff, -1)
	cuts := make([]int, 0, len(bounds)+2)
	cuts = append(cuts, 0)
	for _, b := range bounds {
		if b[0] != 0 {
			cuts = append(cuts, b[0])
		}
	}
	cuts = append(cuts, len(diff))

	var out []Hunk
	for i := 0; i+1 < len(cuts); i++ {
		fragment := diff[cuts[i]:cuts[i+1]]
		if strings.TrimSpace(fragment) == "" {
			continue
		}
		out = append(out, Hunk{Index: len(out) + 1, Text: fragment})
	}
	return out
}

// Join concatenates the hunk texts in order.
func Join(hunks []Hunk) string {
	var b strings.Builder
	for _, h := range hunks {
		b.WriteString(h.Text)
	}
	return b.String()
}

// Texts returns the hunk texts in order.
func Texts(hunks []Hunk) []string {
	out := make([]string, 0, len(hunks))
	for _, h := range hunks {
		out = append(out, h.Text)
	}
	return out
}

// ByIndex returns the hunk with the given 1-based index.
func ByIndex(hunks []Hunk, index int) (Hunk, bool) {
	for _, h := range hunks {
		if h.Index == index {
			return h, true
		}
	}
	return Hunk{}, false
}

// Flatten renumbers the hunks of several diffs into one 1-based sequence, in the
// given order. It is the enumeration shown to the model when a commit touches
// more than one file.
func Flatten(groups ...[]Hunk) []Hunk {
	var out []Hunk
	for _, g := range groups {
		for _, h := range g {
			out = append(out, Hunk{Index: len(out) + 1, Text: h.Text})
		}
	}
	return out
}

// Range parses the hunk header.
func (h Hunk) Range() (Range, error) {
	parsed, err := diff.ParseHunks([]byte(h.Text))
	if err != nil {
		return Range{}, fmt.Errorf("failed to parse hunk %d: %w", h.Index, err)
	}
	if len(parsed) == 0 {
		return Range{}, fmt.Errorf("hunk %d has no header", h.Index)
	}
	p := parsed[0]
	return Range{
		OrigStart: int(p.OrigStartLine),
		OrigLines: int(p.OrigLines),
		NewStart:  int(p.NewStartLine),
		NewLines:  int(p.NewLines),
	}, nil
}

// Covers reports whether line falls in the new-file side of the range.
func (r Range) Covers(line int) bool {
	if r.NewLines == 0 {
		return line == r.NewStart
	}
	return line >= r.NewStart && line < r.NewStart+r.NewLines
}

// ForLine returns the first hunk whose new-file range contains line. Hunks with
// an unparsable header are ignored.
func ForLine(hunks []Hunk, line int) (Hunk, bool) {
	for _, h := range hunks {
		r, err := h.Range()
		if err != nil {
			continue
		}
		if r.Covers(line) {
			return h, true
		}
	}
	return Hunk{}, false
}
