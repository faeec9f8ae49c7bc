// Package textfilter prepares story text for speech synthesis.
package textfilter

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxSpeechLength is the longest input, in runes, sent for synthesis.
	MaxSpeechLength = 4000
	// MinSpeechLength is the shortest cleaned input worth synthesizing.
	MinSpeechLength = 3
	// TruncationMarker is appended to text cut at MaxSpeechLength.
	TruncationMarker = "..."
)

type rule struct {
	re   *regexp.Regexp
	with string
}

// rules run in order; emphasis markers go before single asterisks.
var speechRules = []rule{
	{regexp.MustCompile(`>`), ""},
	{regexp.MustCompile(`\*\*`), ""},
	{regexp.MustCompile(`\*`), ""},
	{regexp.MustCompile(`\n+`), " "},
	{regexp.MustCompile(`\s+`), " "},
}

// CleanForSpeech strips quote markers and emphasis markup, flattens
// whitespace, and truncates to MaxSpeechLength runes.
func CleanForSpeech(text string) string {
	for _, r := range speechRules {
		text = r.re.ReplaceAllString(text, r.with)
	}
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > MaxSpeechLength {
		runes := []rune(text)
		text = string(runes[:MaxSpeechLength]) + TruncationMarker
	}
	return text
}

// TooShortForSpeech reports whether cleaned text is below MinSpeechLength.
func TooShortForSpeech(cleaned string) bool {
	return utf8.RuneCountInString(cleaned) < MinSpeechLength
}
