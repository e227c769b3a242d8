// Package language maps the language codes used in configuration to the
// forms the external services expect: ISO codes for the transcription hint
// and display names for translation prompts.
package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	xlang "golang.org/x/text/language"
)

type entry struct {
	code2   string
	code3   string
	display string
}

// The set covers the languages the synthesis voices handle today. Unknown
// codes fall through to a titled form of the code itself rather than failing,
// since translation models cope with raw names fine.
var entries = []entry{
	{"en", "eng", "English"},
	{"pt", "por", "Portuguese"},
	{"es", "spa", "Spanish"},
	{"fr", "fra", "French"},
	{"de", "deu", "German"},
	{"it", "ita", "Italian"},
	{"nl", "nld", "Dutch"},
	{"pl", "pol", "Polish"},
	{"ru", "rus", "Russian"},
	{"ja", "jpn", "Japanese"},
	{"ko", "kor", "Korean"},
	{"zh", "zho", "Chinese"},
	{"hi", "hin", "Hindi"},
	{"ar", "ara", "Arabic"},
	{"tr", "tur", "Turkish"},
	{"sv", "swe", "Swedish"},
	{"da", "dan", "Danish"},
	{"nb", "nob", "Norwegian"},
	{"fi", "fin", "Finnish"},
	{"uk", "ukr", "Ukrainian"},
	{"cs", "ces", "Czech"},
	{"el", "ell", "Greek"},
	{"he", "heb", "Hebrew"},
	{"id", "ind", "Indonesian"},
	{"vi", "vie", "Vietnamese"},
	{"th", "tha", "Thai"},
}

var titleCaser = cases.Title(xlang.English)

func find(code string) (entry, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if idx := strings.IndexAny(code, "-_"); idx > 0 {
		code = code[:idx]
	}
	for _, e := range entries {
		if e.code2 == code || e.code3 == code || strings.ToLower(e.display) == code {
			return e, true
		}
	}
	return entry{}, false
}

// Normalize returns the two-letter code for a language given as a two or
// three letter code, a display name, or a regional tag like "pt-BR".
func Normalize(code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("language: empty code")
	}
	e, ok := find(code)
	if !ok {
		return "", fmt.Errorf("language: unknown code %q", code)
	}
	return e.code2, nil
}

// Supported reports whether the code maps to a known language.
func Supported(code string) bool {
	_, ok := find(code)
	return ok
}

// DisplayName returns the English display name for a language code. Unknown
// codes come back title-cased so prompts stay readable.
func DisplayName(code string) string {
	if e, ok := find(code); ok {
		return e.display
	}
	return titleCaser.String(strings.TrimSpace(code))
}
