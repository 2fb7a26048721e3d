package backend

import (
	"strings"
	"unicode"

	"github.com/seantiz/runbox/internal/model"
)

// ComposeOutput joins compile-phase and run-phase output with a newline when
// both are present, trims trailing whitespace, and substitutes the no-output
// placeholder when nothing remains.
func ComposeOutput(compile, run string) string {
	var out string
	switch {
	case compile != "" && run != "":
		out = compile + "\n" + run
	case compile != "":
		out = compile
	default:
		out = run
	}
	out = strings.TrimRightFunc(out, unicode.IsSpace)
	if out == "" {
		return model.NoOutputPlaceholder
	}
	return out
}
