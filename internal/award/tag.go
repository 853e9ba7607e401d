// Package award parses the points tag the mentor model embeds in its replies.
//
// A reply may carry a tag such as
//
//	<<<POINTS:50:Flawless plan execution>>>
//
// which is stripped before display and turned into a points award.
package award

import (
	"regexp"
	"strconv"
	"strings"
)

// Award is one parsed tag.
type Award struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

var (
	// blockRe matches every tag-shaped block, well-formed or not, so the
	// visible text never shows protocol debris. A block ends at the first
	// ">>>" and swallows any extra closing brackets.
	blockRe = regexp.MustCompile(`(?s)<<<POINTS.*?>>>+`)

	tagRe = regexp.MustCompile(`(?s)^<<<POINTS:(-?\d+):(.*?)>>>+$`)
)

// Extract strips every tag block from text and returns the cleaned text plus
// the first well-formed award. ok is false when no block parsed.
func Extract(text string) (clean string, a Award, ok bool) {
	for _, block := range blockRe.FindAllString(text, -1) {
		if parsed, good := parse(block); good {
			a, ok = parsed, true
			break
		}
	}

	clean = strings.TrimSpace(blockRe.ReplaceAllString(text, ""))
	return clean, a, ok
}

func parse(block string) (Award, bool) {
	m := tagRe.FindStringSubmatch(block)
	if m == nil {
		return Award{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		// Out of int range.
		return Award{}, false
	}
	return Award{Amount: n, Reason: strings.TrimSpace(m[2])}, true
}
