package language

import (
	"strings"

	"golang.org/x/text/cases"
	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var titleCaser = cases.Title(xlang.English)

// DisplayName returns the English name of code, e.g. "French" for "fr".
func DisplayName(code string) string {
	tag, ok := parse(code)
	if !ok {
		return "Unknown"
	}
	base, _ := tag.Base()
	if name := display.English.Languages().Name(xlang.Make(base.String())); name != "" {
		return titleCaser.String(name)
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// Probability clamps an engine-reported confidence into [0, 1].
func Probability(p float64) float64 {
	switch {
	case p != p, p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

func parse(code string) (xlang.Tag, bool) {
	code = strings.TrimSpace(strings.ReplaceAll(code, "_", "-"))
	if code == "" {
		return xlang.Und, false
	}
	tag, err := xlang.Parse(code)
	if err != nil || tag == xlang.Und {
		return xlang.Und, false
	}
	return tag, true
}
