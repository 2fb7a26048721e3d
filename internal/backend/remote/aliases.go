package remote

import (
	"strings"

	"github.com/seantiz/runbox/internal/language"
)

// aliases lists, per canonical language, the provider names to try in order.
var aliases = map[language.ID][]string{
	language.Python:     {"python", "python3", "py"},
	language.JavaScript: {"javascript", "js", "node", "node-js", "nodejs"},
	language.TypeScript: {"typescript", "ts", "node-ts", "tsc"},
	language.Java:       {"java"},
	language.C:          {"c", "gcc"},
	language.CPP:        {"cpp", "c++", "g++"},
	language.CSharp:     {"csharp", "c#", "cs", "mono", "csharp.net", "dotnet"},
	language.Go:         {"go", "golang"},
	language.Rust:       {"rust", "rs"},
	language.Ruby:       {"ruby", "rb", "ruby3"},
	language.PHP:        {"php", "php8"},
	language.Bash:       {"bash", "sh"},
	language.Kotlin:     {"kotlin", "kt"},
	language.SQL:        {"sqlite3", "sql"},
}

// Candidates returns the provider names to look for, in priority order, for
// a caller-supplied language identifier. Identifiers outside the alias table
// are tried verbatim.
func Candidates(id string) []string {
	canon := language.Normalize(id)
	if list, ok := aliases[language.ID(canon)]; ok {
		return list
	}
	raw := strings.ToLower(strings.TrimSpace(id))
	if raw == canon {
		return []string{raw}
	}
	return []string{raw, canon}
}

// match scans runtimes for the first candidate that equals a runtime's
// language name or one of its aliases, ignoring case.
func match(runtimes []Runtime, candidates []string) (Runtime, bool) {
	for _, cand := range candidates {
		for _, rt := range runtimes {
			if strings.EqualFold(rt.Language, cand) {
				return rt, true
			}
			for _, a := range rt.Aliases {
				if strings.EqualFold(a, cand) {
					return rt, true
				}
			}
		}
	}
	return Runtime{}, false
}
