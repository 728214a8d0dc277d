package assistant

import (
	"encoding/json"
	"regexp"
	"strings"
)

// maxBilingualPairs bounds every bilingual result.
const maxBilingualPairs = 3

// BilingualPair is one reply option in the caller's two languages.
type BilingualPair struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// numberedPairPattern matches the numbered-list-with-parenthetical shape
// models usually produce:
//
//	1. Yes.
//	(Да.)
var numberedPairPattern = regexp.MustCompile(`(?m)^\s*\d+[.)]\s*(.+?)\s*\n\s*\((.+?)\)\s*$`)

// leadingNumberPattern strips list numbering off a heuristic line.
var leadingNumberPattern = regexp.MustCompile(`^\s*\d+[.)]\s*`)

// parseBilingual extracts reply pairs from semi-structured model output.
// The attempts run in fixed order, each returning pairs or nothing:
// strict JSON, the numbered-list regex, then a line-pairing heuristic.
// The result is capped at maxBilingualPairs; an empty result means every
// parser declined and the caller should fall back to the mock.
func parseBilingual(content string) []BilingualPair {
	for _, parse := range []func(string) []BilingualPair{
		parseBilingualJSON,
		parseBilingualNumbered,
		parseBilingualLines,
	} {
		if pairs := parse(content); len(pairs) > 0 {
			return capPairs(pairs)
		}
	}
	return nil
}

// parseBilingualJSON accepts a strict JSON array of pair objects. Models
// sometimes wrap the array in markdown fences; those are stripped first.
func parseBilingualJSON(content string) []BilingualPair {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if !strings.HasPrefix(s, "[") {
		return nil
	}

	var pairs []BilingualPair
	if err := json.Unmarshal([]byte(s), &pairs); err != nil {
		return nil
	}

	out := pairs[:0]
	for _, p := range pairs {
		p.Primary = strings.TrimSpace(p.Primary)
		p.Secondary = strings.TrimSpace(p.Secondary)
		if p.Primary != "" && p.Secondary != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseBilingualNumbered applies the numbered-list regex.
func parseBilingualNumbered(content string) []BilingualPair {
	matches := numberedPairPattern.FindAllStringSubmatch(content, -1)
	pairs := make([]BilingualPair, 0, len(matches))
	for _, m := range matches {
		pairs = append(pairs, BilingualPair{
			Primary:   strings.TrimSpace(m[1]),
			Secondary: strings.TrimSpace(m[2]),
		})
	}
	return pairs
}

// parseBilingualLines pairs consecutive non-empty lines, treating a
// parenthesized line as the secondary of the line before it. Numbering is
// stripped. This is the last, loosest attempt before the mock.
func parseBilingualLines(content string) []BilingualPair {
	var lines []string
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(leadingNumberPattern.ReplaceAllString(raw, ""))
		if line != "" {
			lines = append(lines, line)
		}
	}

	var pairs []BilingualPair
	for i := 0; i+1 < len(lines); i += 2 {
		second := lines[i+1]
		second = strings.TrimPrefix(second, "(")
		second = strings.TrimSuffix(second, ")")
		second = strings.TrimSpace(second)
		if lines[i] == "" || second == "" {
			continue
		}
		pairs = append(pairs, BilingualPair{Primary: lines[i], Secondary: second})
	}
	return pairs
}

func capPairs(pairs []BilingualPair) []BilingualPair {
	if len(pairs) > maxBilingualPairs {
		return pairs[:maxBilingualPairs]
	}
	return pairs
}
