// Package highlight marks search terms inside rendered transcript text.
package highlight

import (
	"regexp"
	"sort"
	"strings"
)

var ansiCSI = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]`)

type Result struct {
	Text      string
	Count     int
	LineIndex []int
}

// Terms splits a search query into lower-cased terms, longest first, so a
// longer term wins when two start at the same position.
func Terms(query string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, 4)
	for _, f := range strings.Fields(strings.ToLower(query)) {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

// Apply wraps every case-insensitive occurrence of any query term. Escape
// sequences are copied through untouched and never matched across.
func Apply(input, query string, wrap func(string) string) Result {
	terms := Terms(query)
	if len(terms) == 0 {
		return Result{Text: input}
	}
	if wrap == nil {
		wrap = func(s string) string { return s }
	}

	lines := strings.SplitAfter(input, "\n")

	var out strings.Builder
	lineMatches := make([]int, 0, 64)
	total := 0

	for lineNo, line := range lines {
		core, hasNewline := strings.CutSuffix(line, "\n")

		rendered, count := applyToANSIText(core, terms, wrap)
		out.WriteString(rendered)
		if hasNewline {
			out.WriteByte('\n')
		}
		if count > 0 {
			lineMatches = append(lineMatches, lineNo)
			total += count
		}
	}

	return Result{
		Text:      out.String(),
		Count:     total,
		LineIndex: lineMatches,
	}
}

func applyToANSIText(s string, terms []string, wrap func(string) string) (string, int) {
	indices := ansiCSI.FindAllStringIndex(s, -1)
	if len(indices) == 0 {
		return applyToPlain(s, terms, wrap)
	}

	var out strings.Builder
	total := 0
	pos := 0
	for _, idx := range indices {
		if idx[0] > pos {
			plain, count := applyToPlain(s[pos:idx[0]], terms, wrap)
			out.WriteString(plain)
			total += count
		}
		out.WriteString(s[idx[0]:idx[1]])
		pos = idx[1]
	}
	if pos < len(s) {
		plain, count := applyToPlain(s[pos:], terms, wrap)
		out.WriteString(plain)
		total += count
	}
	return out.String(), total
}

func applyToPlain(s string, terms []string, wrap func(string) string) (string, int) {
	if s == "" {
		return s, 0
	}
	lower := strings.ToLower(s)
	// Lower-casing can change byte lengths outside ASCII; offsets would no
	// longer line up with s.
	if len(lower) != len(s) {
		return s, 0
	}

	var out strings.Builder
	count := 0
	start := 0
	for {
		idx, n := nextMatch(lower, start, terms)
		if idx < 0 {
			out.WriteString(s[start:])
			break
		}
		out.WriteString(s[start:idx])
		out.WriteString(wrap(s[idx : idx+n]))
		count++
		start = idx + n
	}
	return out.String(), count
}

func nextMatch(lower string, start int, terms []string) (int, int) {
	best, bestLen := -1, 0
	for _, t := range terms {
		rel := strings.Index(lower[start:], t)
		if rel < 0 {
			continue
		}
		if idx := start + rel; best < 0 || idx < best {
			best, bestLen = idx, len(t)
		}
	}
	return best, bestLen
}
