// Package parser turns free-form model output into story text and a list
// of options.
package parser

import (
	"strings"

	"github.com/jwebster45206/choice-engine/pkg/story"
)

// Parse splits raw model output into story text and at most four options.
// It never fails: fewer than four options or empty story text are valid
// results, see story.Result.Degenerate.
func Parse(raw string) story.Result {
	lines := nonBlankLines(raw)

	var (
		storyLines []string
		options    []string
		reached    bool
	)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if IsExcluded(trimmed) {
			reached = true
			continue
		}
		if reached || numberedMarker.MatchString(trimmed) || bulletMarker.MatchString(trimmed) {
			reached = true
			if opt := clean(trimmed); opt != "" && !IsExcluded(opt) {
				options = append(options, opt)
			}
			continue
		}
		storyLines = append(storyLines, line)
	}

	if len(options) == 0 && len(lines) > story.MaxOptions {
		split := len(lines) - story.MaxOptions
		var fallback []string
		for _, line := range lines[split:] {
			if opt := clean(strings.TrimSpace(line)); opt != "" && !IsExcluded(opt) {
				fallback = append(fallback, opt)
			}
		}
		if len(fallback) > 0 {
			return story.Result{
				StoryText: strings.Join(lines[:split], "\n"),
				Options:   fallback,
			}
		}
	}

	if len(options) > story.MaxOptions {
		options = options[:story.MaxOptions]
	}
	if options == nil {
		options = []string{}
	}
	return story.Result{
		StoryText: strings.Join(storyLines, "\n"),
		Options:   options,
	}
}

// IsExcluded reports whether a trimmed line is a known options header.
func IsExcluded(line string) bool {
	for _, e := range Exclusions {
		if e.Pattern.MatchString(line) {
			return true
		}
	}
	return false
}

func clean(line string) string {
	line = stripNumber.ReplaceAllString(line, "")
	line = stripBullet.ReplaceAllString(line, "")
	line = stripLabel.ReplaceAllString(line, "")
	return strings.TrimSpace(line)
}

func nonBlankLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
