package prompts

import (
	"strings"

	"github.com/jwebster45206/choice-engine/pkg/lang"
)

// ExtractChoice recovers the option from a continuation's final user
// message, in any supported language.
func ExtractChoice(content string) (string, bool) {
	for _, l := range lang.Supported {
		prefix, suffix, ok := strings.Cut(For(l.Code).IChoose, "%s")
		if !ok {
			continue
		}
		if strings.HasPrefix(content, prefix) && strings.HasSuffix(content, suffix) &&
			len(content) >= len(prefix)+len(suffix) {
			return content[len(prefix) : len(content)-len(suffix)], true
		}
	}
	return "", false
}

// ExtractCustomPrompt recovers the player-supplied setting from an opening
// request, in any supported language.
func ExtractCustomPrompt(content string) (string, bool) {
	for _, l := range lang.Supported {
		t := For(l.Code)
		prefix, suffix, ok := strings.Cut(t.OpeningSetting, "%s")
		if !ok {
			continue
		}
		i := strings.Index(content, prefix)
		if i < 0 || !strings.HasSuffix(content, t.OpeningRules) {
			continue
		}
		rest := strings.TrimSuffix(content[i+len(prefix):], t.OpeningRules)
		if !strings.HasSuffix(rest, suffix) {
			continue
		}
		return strings.TrimSuffix(rest, suffix), true
	}
	return "", false
}
