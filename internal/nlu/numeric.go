package nlu

import (
	"regexp"
	"strconv"
	"strings"
)

// amountPattern matches dollar amounts with optional separators and a k or
// thousand multiplier, e.g. "$15,000", "15k", "15 grand", "about 7000".
var amountPattern = regexp.MustCompile(`(?i)\$?\s*(\d+(?:[.,]\d+)*)\s*(k|grand|thousand)?`)

// countPattern matches small standalone integers.
var countPattern = regexp.MustCompile(`\b(\d{1,2})\b`)

// numberWords covers the spoken counts customers actually say for card counts.
var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12,
}

// ParseAmount extracts a dollar amount from free text. When several numbers
// appear it returns the largest, since customers tend to mention ranges with
// the total last ("between 10 and 15 thousand").
func ParseAmount(text string) (float64, bool) {
	matches := amountPattern.FindAllStringSubmatch(text, -1)
	var best float64
	found := false
	for _, m := range matches {
		raw := strings.ReplaceAll(m[1], ",", "")
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if m[2] != "" {
			value *= 1000
		}
		if !found || value > best {
			best = value
			found = true
		}
	}
	return best, found
}

// ParseCount extracts a small integer count from free text, accepting digits
// and spelled out numbers up to twelve.
func ParseCount(text string) (int, bool) {
	if m := countPattern.FindStringSubmatch(text); m != nil {
		value, err := strconv.Atoi(m[1])
		if err == nil {
			return value, true
		}
	}
	lower := strings.ToLower(text)
	for word, value := range numberWords {
		if containsWord(lower, word) {
			return value, true
		}
	}
	return 0, false
}

func containsWord(text, word string) bool {
	idx := strings.Index(text, word)
	for idx >= 0 {
		before := idx == 0 || !isLetter(text[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(text) || !isLetter(text[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(text[idx+1:], word)
		if next < 0 {
			return false
		}
		idx = idx + 1 + next
	}
	return false
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
