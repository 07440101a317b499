package normalizer

import (
	"regexp"
	"strconv"
	"strings"
)

// letterAnswer matches "B", "b)", "(c)", "Option B", "Ans: d", "answer - A".
var letterAnswer = regexp.MustCompile(`^(?i)(?:option|answer|ans)?\s*[:.\-]?\s*[(\[]?([a-z])[)\].:]?$`)

// lastLetter is the highest letter code accepted without lenient parsing.
const lastLetter = 'D'

// parseAnswer resolves a raw answer value to an option index. It reports
// false when the value cannot be mapped inside [0, optionCount).
func parseAnswer(v any, options []string, lenient bool) (int, bool) {
	if s, ok := v.(string); ok {
		return parseAnswerString(s, options, lenient)
	}
	i, ok := toInt(v)
	if !ok {
		return 0, false
	}
	return inRange(i, len(options))
}

// parseAnswerString reads a letter code, with or without an "Option"/"Ans"
// prefix, and otherwise the first character. Lenient parsing first tries a
// numeric index and the option text.
func parseAnswerString(raw string, options []string, lenient bool) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	last := byte(lastLetter)
	if lenient {
		last = 'Z'
		if i, err := strconv.Atoi(s); err == nil {
			return inRange(i, len(options))
		}
		for i, opt := range options {
			if strings.EqualFold(strings.TrimSpace(opt), s) {
				return i, true
			}
		}
	}

	if m := letterAnswer.FindStringSubmatch(s); m != nil {
		return letterIndex(m[1], last, len(options))
	}
	return letterIndex(s[:1], last, len(options))
}

func letterIndex(letter string, last byte, optionCount int) (int, bool) {
	c := strings.ToUpper(letter)[0]
	if c < 'A' || c > last {
		return 0, false
	}
	return inRange(int(c-'A'), optionCount)
}

func inRange(i, n int) (int, bool) {
	if i < 0 || i >= n {
		return 0, false
	}
	return i, true
}
