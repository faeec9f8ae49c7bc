// Package lang defines the closed set of languages a story can be told in.
package lang

import (
	"strings"

	"golang.org/x/text/language"
)

// Code is a supported language code.
type Code string

const (
	English    Code = "en"
	Spanish    Code = "es"
	French     Code = "fr"
	German     Code = "de"
	Japanese   Code = "ja"
	Chinese    Code = "zh"
	Portuguese Code = "pt"
	Russian    Code = "ru"
)

// Default is used whenever a code is missing or unsupported.
const Default = English

// Language describes a supported language for display.
type Language struct {
	Code       Code   `json:"code"`
	Name       string `json:"name"`
	NativeName string `json:"native_name"`
	Flag       string `json:"flag"`
}

// Supported lists every language in display order.
var Supported = []Language{
	{Code: English, Name: "English", NativeName: "English", Flag: "🇺🇸"},
	{Code: Spanish, Name: "Spanish", NativeName: "Español", Flag: "🇪🇸"},
	{Code: French, Name: "French", NativeName: "Français", Flag: "🇫🇷"},
	{Code: German, Name: "German", NativeName: "Deutsch", Flag: "🇩🇪"},
	{Code: Japanese, Name: "Japanese", NativeName: "日本語", Flag: "🇯🇵"},
	{Code: Chinese, Name: "Chinese", NativeName: "中文", Flag: "🇨🇳"},
	{Code: Portuguese, Name: "Portuguese", NativeName: "Português", Flag: "🇧🇷"},
	{Code: Russian, Name: "Russian", NativeName: "Русский", Flag: "🇷🇺"},
}

// Voice is a text-to-speech voice identifier.
type Voice string

// DefaultVoice is used for codes without a table entry.
const DefaultVoice Voice = "alloy"

var voices = map[Code]Voice{
	English:    "alloy",
	German:     "echo",
	Spanish:    "fable",
	French:     "nova",
	Japanese:   "shimmer",
	Chinese:    "onyx",
	Portuguese: "alloy",
	Russian:    "echo",
}

var matcher = language.NewMatcher(tags())

func tags() []language.Tag {
	out := make([]language.Tag, 0, len(Supported))
	for _, l := range Supported {
		out = append(out, language.Make(string(l.Code)))
	}
	return out
}

// IsSupported reports whether c is one of the supported codes.
func IsSupported(c Code) bool {
	_, ok := voices[c]
	return ok
}

// Parse normalizes a BCP 47 tag ("pt-BR", "EN", "zh-Hant") to a supported
// code. Empty or unmatched tags fall back to Default.
func Parse(tag string) Code {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return Default
	}
	if c := Code(strings.ToLower(tag)); IsSupported(c) {
		return c
	}
	t, err := language.Parse(tag)
	if err != nil {
		return Default
	}
	_, idx, conf := matcher.Match(t)
	if conf == language.No {
		return Default
	}
	return Supported[idx].Code
}

// Voice returns the speech voice for c.
func (c Code) Voice() Voice {
	if v, ok := voices[c]; ok {
		return v
	}
	return DefaultVoice
}

// OrDefault returns c if supported, otherwise Default.
func (c Code) OrDefault() Code {
	if IsSupported(c) {
		return c
	}
	return Default
}

// Tag returns the x/text tag for c.
func (c Code) Tag() language.Tag {
	return language.Make(string(c.OrDefault()))
}
