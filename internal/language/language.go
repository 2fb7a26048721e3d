package language

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ErrUnsupported is returned when an identifier names no known language.
var ErrUnsupported = errors.New("unsupported language")

// ID identifies a supported language.
type ID string

// Supported language identifiers.
const (
	Python     ID = "python"
	JavaScript ID = "javascript"
	TypeScript ID = "typescript"
	Java       ID = "java"
	C          ID = "c"
	CPP        ID = "cpp"
	CSharp     ID = "csharp"
	Go         ID = "go"
	Rust       ID = "rust"
	Ruby       ID = "ruby"
	PHP        ID = "php"
	Bash       ID = "bash"
	Kotlin     ID = "kotlin"

	// Markup-only identifiers have no execution semantics.
	HTML ID = "html"
	CSS  ID = "css"
	SQL  ID = "sql"
)

// Argument placeholders expanded against a workspace before spawning.
const (
	PlaceholderDir      = "{dir}"
	PlaceholderSource   = "{source}"
	PlaceholderArtifact = "{artifact}"
)

// Default phase timeouts.
const (
	DefaultRunTimeout     = 10 * time.Second
	DefaultCompileTimeout = 30 * time.Second
)

// synonyms maps identifiers accepted at the boundary to their canonical ID.
var synonyms = map[string]ID{
	"py":         Python,
	"python3":    Python,
	"js":         JavaScript,
	"node":       JavaScript,
	"nodejs":     JavaScript,
	"ts":         TypeScript,
	"c++":        CPP,
	"cxx":        CPP,
	"c#":         CSharp,
	"cs":         CSharp,
	"golang":     Go,
	"rs":         Rust,
	"rb":         Ruby,
	"sh":         Bash,
	"shell":      Bash,
	"kt":         Kotlin,
	"htm":        HTML,
	"stylesheet": CSS,
}

// CompileStep describes an optional build phase run before the program.
// The source path is appended to Args when spawning.
type CompileStep struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// Profile is the immutable execution profile of one language.
type Profile struct {
	ID         ID
	RunCommand string
	RunArgs    []string
	Extension  string
	// SourceName overrides the default "main<Extension>" file name.
	SourceName string
	RunTimeout time.Duration
	Compile    *CompileStep
	MarkupOnly bool
}

// Paths are the workspace locations substituted into profile arguments.
type Paths struct {
	Dir      string
	Source   string
	Artifact string
}

// SourceFile returns the file name the source code is written to.
func (p Profile) SourceFile() string {
	if p.SourceName != "" {
		return p.SourceName
	}
	return "main" + p.Extension
}

// CompileInvocation returns the compile command and its arguments with the
// source path appended. ok is false when the profile has no compile step.
func (p Profile) CompileInvocation(paths Paths) (cmd string, args []string, ok bool) {
	if p.Compile == nil {
		return "", nil, false
	}
	args = expand(p.Compile.Args, paths)
	args = append(args, paths.Source)
	return expandOne(p.Compile.Command, paths), args, true
}

// RunInvocation returns the run command and its arguments. Interpreted
// profiles that do not reference {source} get the source path appended.
func (p Profile) RunInvocation(paths Paths) (cmd string, args []string) {
	args = expand(p.RunArgs, paths)
	if p.Compile == nil && !p.referencesSource() {
		args = append(args, paths.Source)
	}
	return expandOne(p.RunCommand, paths), args
}

func (p Profile) referencesSource() bool {
	if strings.Contains(p.RunCommand, PlaceholderSource) {
		return true
	}
	for _, a := range p.RunArgs {
		if strings.Contains(a, PlaceholderSource) {
			return true
		}
	}
	return false
}

// Binaries lists the executables the profile needs on PATH.
func (p Profile) Binaries() []string {
	var bins []string
	if p.Compile != nil && !strings.Contains(p.Compile.Command, "{") {
		bins = append(bins, p.Compile.Command)
	}
	if p.RunCommand != "" && !strings.Contains(p.RunCommand, "{") {
		bins = append(bins, p.RunCommand)
	}
	return bins
}

func (p Profile) clone() Profile {
	p.RunArgs = slices.Clone(p.RunArgs)
	if p.Compile != nil {
		c := *p.Compile
		c.Args = slices.Clone(c.Args)
		p.Compile = &c
	}
	return p
}

func expand(args []string, paths Paths) []string {
	out := make([]string, 0, len(args)+1)
	for _, a := range args {
		out = append(out, expandOne(a, paths))
	}
	return out
}

func expandOne(s string, paths Paths) string {
	if !strings.Contains(s, "{") {
		return s
	}
	r := strings.NewReplacer(
		PlaceholderDir, paths.Dir,
		PlaceholderSource, paths.Source,
		PlaceholderArtifact, paths.Artifact,
	)
	return r.Replace(s)
}

// Normalize canonicalizes a caller-supplied identifier: it trims, lower-cases
// and resolves known synonyms. The result may still be unsupported.
func Normalize(id string) string {
	s := strings.ToLower(strings.TrimSpace(id))
	if canon, ok := synonyms[s]; ok {
		return string(canon)
	}
	return s
}

func unsupported(id string) error {
	return fmt.Errorf("%w: %q", ErrUnsupported, id)
}
