// Package genre is the catalog of story genres a player can pick from.
package genre

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/choice-engine/pkg/lang"
	"golang.org/x/text/cases"
)

// Genre is a selectable story theme.
type Genre struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Catalog is ordered for display.
var Catalog = []Genre{
	{ID: "scifi", Name: "Science Fiction", Description: "Explore futuristic worlds, advanced technology, and space adventures"},
	{ID: "fantasy", Name: "Fantasy", Description: "Discover magical realms, mythical creatures, and epic quests"},
	{ID: "horror", Name: "Horror", Description: "Face your fears in terrifying scenarios and supernatural encounters"},
	{ID: "mystery", Name: "Mystery", Description: "Solve puzzles, uncover secrets, and investigate strange occurrences"},
	{ID: "adventure", Name: "Adventure", Description: "Embark on thrilling journeys and daring expeditions"},
	{ID: "historical", Name: "Historical", Description: "Live through pivotal moments of the past"},
	{ID: "dystopian", Name: "Dystopian", Description: "Survive in oppressive societies and ruined futures"},
	{ID: "medieval", Name: "Medieval", Description: "Knights, castles, and feudal intrigue"},
}

// localized names used inside generation prompts
var names = map[lang.Code]map[string]string{
	lang.English: {
		"scifi": "science fiction", "fantasy": "fantasy", "horror": "horror", "mystery": "mystery",
		"adventure": "adventure", "historical": "historical", "dystopian": "dystopian", "medieval": "medieval",
	},
	lang.German: {
		"scifi": "Science-Fiction", "fantasy": "Fantasy", "horror": "Horror", "mystery": "Mystery",
		"adventure": "Abenteuer", "historical": "historischen", "dystopian": "dystopischen", "medieval": "mittelalterlichen",
	},
	lang.Spanish: {
		"scifi": "ciencia ficción", "fantasy": "fantasía", "horror": "terror", "mystery": "misterio",
		"adventure": "aventura", "historical": "histórico", "dystopian": "distopía", "medieval": "medieval",
	},
	lang.French: {
		"scifi": "science-fiction", "fantasy": "fantasy", "horror": "horreur", "mystery": "mystère",
		"adventure": "aventure", "historical": "historique", "dystopian": "dystopie", "medieval": "médiéval",
	},
	lang.Japanese: {
		"scifi": "SF", "fantasy": "ファンタジー", "horror": "ホラー", "mystery": "ミステリー",
		"adventure": "冒険", "historical": "歴史", "dystopian": "ディストピア", "medieval": "中世",
	},
	lang.Chinese: {
		"scifi": "科幻", "fantasy": "奇幻", "horror": "恐怖", "mystery": "悬疑",
		"adventure": "冒险", "historical": "历史", "dystopian": "反乌托邦", "medieval": "中世纪",
	},
	lang.Portuguese: {
		"scifi": "ficção científica", "fantasy": "fantasia", "horror": "terror", "mystery": "mistério",
		"adventure": "aventura", "historical": "histórico", "dystopian": "distopia", "medieval": "medieval",
	},
	lang.Russian: {
		"scifi": "научная фантастика", "fantasy": "фэнтези", "horror": "ужасы", "mystery": "детектив",
		"adventure": "приключения", "historical": "исторический", "dystopian": "антиутопия", "medieval": "средневековье",
	},
}

// Lookup returns the catalog entry for id.
func Lookup(id string) (Genre, bool) {
	for _, g := range Catalog {
		if g.ID == id {
			return g, true
		}
	}
	return Genre{}, false
}

// Validate rejects empty selections and unknown identifiers.
func Validate(ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("at least one genre is required")
	}
	for _, id := range ids {
		if _, ok := Lookup(id); !ok {
			return fmt.Errorf("unknown genre: %q", id)
		}
	}
	return nil
}

// LocalName returns the prompt-facing name of id in code. Unknown ids are
// returned unchanged.
func LocalName(id string, code lang.Code) string {
	table, ok := names[code]
	if !ok {
		table = names[lang.Default]
	}
	if n, ok := table[id]; ok {
		return n
	}
	return id
}

// Join renders ids as one phrase for a prompt, e.g. "fantasy/horror".
func Join(ids []string, code lang.Code) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, LocalName(id, code))
	}
	return strings.Join(parts, "/")
}

// Title returns the display title of a prompt-facing genre phrase.
func Title(phrase string, code lang.Code) string {
	return cases.Title(code.Tag()).String(phrase)
}
