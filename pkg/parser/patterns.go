package parser

import (
	"regexp"

	"github.com/jwebster45206/choice-engine/pkg/lang"
)

// Exclusion is a header line that announces the options block. Matching
// lines are dropped from both outputs.
type Exclusion struct {
	Pattern *regexp.Regexp
	Lang    lang.Code
}

func exclude(code lang.Code, pattern string) Exclusion {
	return Exclusion{Pattern: regexp.MustCompile(`(?i)` + pattern), Lang: code}
}

// Exclusions are matched against the trimmed line.
var Exclusions = []Exclusion{
	exclude(lang.English, `^choices?:?$`),
	exclude(lang.English, `^options?:?$`),
	exclude(lang.English, `^what (will|do) you`),
	exclude(lang.English, `^next steps?:?$`),
	exclude(lang.English, `^your options?:?$`),

	exclude(lang.German, `^optionen?:?$`),
	exclude(lang.German, `^was (wirst|machst) du`),
	exclude(lang.German, `^deine optionen?:?$`),
	exclude(lang.German, `^möglichkeiten?:?$`),

	exclude(lang.Spanish, `^opci(o|ó)n(es)?:?$`),
	exclude(lang.Spanish, `^¿?qu(e|é) (vas|haces)`),
	exclude(lang.Spanish, `^tus opciones?:?$`),
	exclude(lang.Spanish, `^posibilidades?:?$`),

	exclude(lang.French, `^qu(e |')(feras|fais)`),
	exclude(lang.French, `^tes options?:?$`),
	exclude(lang.French, `^possibilités?:?$`),

	exclude(lang.Portuguese, `^(suas )?opç(ão|ões)[:：]?$`),
	exclude(lang.Portuguese, `^o que (você vai|vais) fazer`),

	exclude(lang.Russian, `^(ваши )?варианты( действий)?:?$`),
	exclude(lang.Russian, `^что (вы будете|ты будешь) делать`),

	exclude(lang.Japanese, `^選択肢[:：]?$`),
	exclude(lang.Japanese, `^どうしますか`),

	exclude(lang.Chinese, `^(你的)?选项[:：]?$`),
	exclude(lang.Chinese, `^你(会|要)怎么做`),
}

var (
	numberedMarker = regexp.MustCompile(`^\d+\.`)
	bulletMarker   = regexp.MustCompile(`^[-•*]`)

	stripNumber = regexp.MustCompile(`^\d+\.\s*`)
	stripBullet = regexp.MustCompile(`^[-•*]\s*`)
	stripLabel  = regexp.MustCompile(`(?i)^Option \d+:\s*`)
)
