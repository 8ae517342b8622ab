// Package textproc cleans extracted document text before chunking:
// whitespace normalization plus removal of headers and footers that repeat
// across page segments.
package textproc

import (
	"math"
	"regexp"
	"strings"

	types "github.com/andrewmcdan/AI-Document-Interview-System/internal/domain"
)

var (
	lineBreakRE = regexp.MustCompile(`\r\n?`)
	spaceRunRE  = regexp.MustCompile(`[ \t]+`)
	blankRunRE  = regexp.MustCompile(`\n{3,}`)
)

// Normalize collapses Windows/Mac line endings to \n, runs of spaces and
// tabs to one space, and 3+ consecutive newlines to a single blank line,
// then trims the result.
func Normalize(text string) string {
	out := lineBreakRE.ReplaceAllString(text, "\n")
	out = spaceRunRE.ReplaceAllString(out, " ")
	out = blankRunRE.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// StripRepeatedEdges removes page headers and footers that repeat across
// segments. A candidate line must appear as the first (or last) non-blank
// line of at least max(2, ceil(0.6*segments)) segments to be stripped.
// Consecutive duplicate lines are collapsed, blank lines dropped, and
// segments left empty are removed. Fewer than two segments pass through
// untouched.
func StripRepeatedEdges(segments []types.Segment) []types.Segment {
	if len(segments) < 2 {
		return segments
	}

	var firstLines, lastLines []string
	for _, seg := range segments {
		lines := nonBlankLines(seg.Text)
		if len(lines) > 0 {
			firstLines = append(firstLines, lines[0])
			lastLines = append(lastLines, lines[len(lines)-1])
		}
	}

	threshold := int(math.Ceil(float64(len(segments)) * 0.6))
	if threshold < 2 {
		threshold = 2
	}
	header := mostCommonAtLeast(firstLines, threshold)
	footer := mostCommonAtLeast(lastLines, threshold)

	out := make([]types.Segment, 0, len(segments))
	for _, seg := range segments {
		var lines []string
		for _, ln := range strings.Split(seg.Text, "\n") {
			lines = append(lines, strings.TrimSpace(ln))
		}
		if header != "" && len(lines) > 0 && lines[0] == header {
			lines = lines[1:]
		}
		if footer != "" && len(lines) > 0 && lines[len(lines)-1] == footer {
			lines = lines[:len(lines)-1]
		}

		var deduped []string
		for _, ln := range lines {
			if len(deduped) > 0 && deduped[len(deduped)-1] == ln {
				continue
			}
			deduped = append(deduped, ln)
		}

		var kept []string
		for _, ln := range deduped {
			if ln != "" {
				kept = append(kept, ln)
			}
		}
		combined := strings.TrimSpace(strings.Join(kept, "\n"))
		if combined != "" {
			out = append(out, types.Segment{Text: combined, Page: seg.Page})
		}
	}
	return out
}

func nonBlankLines(text string) []string {
	var out []string
	for _, ln := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(ln); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// mostCommonAtLeast returns the most frequent line when its count meets the
// threshold; ties resolve to the line seen first.
func mostCommonAtLeast(lines []string, threshold int) string {
	if len(lines) == 0 {
		return ""
	}
	counts := map[string]int{}
	for _, ln := range lines {
		counts[ln]++
	}
	best := ""
	bestCount := 0
	seen := map[string]bool{}
	for _, ln := range lines {
		if seen[ln] {
			continue
		}
		seen[ln] = true
		if c := counts[ln]; c > bestCount {
			best, bestCount = ln, c
		}
	}
	if bestCount >= threshold {
		return best
	}
	return ""
}
