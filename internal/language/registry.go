package language

import (
	"sort"
	"time"
)

// Registry is a read-only lookup table of language profiles.
type Registry struct {
	profiles map[ID]Profile
}

// NewRegistry builds a registry from the given profiles. Later profiles with
// the same ID replace earlier ones.
func NewRegistry(profiles ...Profile) *Registry {
	r := &Registry{profiles: make(map[ID]Profile, len(profiles))}
	for _, p := range profiles {
		r.profiles[p.ID] = p.clone()
	}
	return r
}

// DefaultRegistry returns the registry of every built-in language.
func DefaultRegistry() *Registry {
	return NewRegistry(DefaultProfiles()...)
}

// Lookup returns the profile for id, accepting synonyms and any casing.
func (r *Registry) Lookup(id string) (Profile, error) {
	p, ok := r.profiles[ID(Normalize(id))]
	if !ok {
		return Profile{}, unsupported(id)
	}
	return p.clone(), nil
}

// Parse resolves id to a registered language.
func (r *Registry) Parse(id string) (ID, bool) {
	canon := ID(Normalize(id))
	_, ok := r.profiles[canon]
	return canon, ok
}

// IsMarkup reports whether id names a registered markup-only language.
func (r *Registry) IsMarkup(id string) bool {
	p, ok := r.profiles[ID(Normalize(id))]
	return ok && p.MarkupOnly
}

// List returns every registered profile sorted by ID.
func (r *Registry) List() []Profile {
	out := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func compiled(cmd string, args ...string) *CompileStep {
	return &CompileStep{Command: cmd, Args: args, Timeout: DefaultCompileTimeout}
}

// DefaultProfiles returns the built-in profile table.
func DefaultProfiles() []Profile {
	return []Profile{
		{ID: Python, RunCommand: "python3", RunArgs: []string{"-u"}, Extension: ".py", RunTimeout: DefaultRunTimeout},
		{ID: JavaScript, RunCommand: "node", Extension: ".js", RunTimeout: DefaultRunTimeout},
		{ID: TypeScript, RunCommand: "ts-node", RunArgs: []string{"--transpile-only"}, Extension: ".ts", RunTimeout: 15 * time.Second},
		{ID: Ruby, RunCommand: "ruby", Extension: ".rb", RunTimeout: DefaultRunTimeout},
		{ID: PHP, RunCommand: "php", Extension: ".php", RunTimeout: DefaultRunTimeout},
		{ID: Bash, RunCommand: "bash", Extension: ".sh", RunTimeout: DefaultRunTimeout},
		{
			ID: Java, Extension: ".java", SourceName: "Main.java",
			Compile:    compiled("javac", "-d", PlaceholderDir),
			RunCommand: "java", RunArgs: []string{"-cp", PlaceholderDir, "Main"},
			RunTimeout: DefaultRunTimeout,
		},
		{
			ID: C, Extension: ".c",
			Compile:    compiled("gcc", "-O2", "-o", PlaceholderArtifact),
			RunCommand: PlaceholderArtifact, RunTimeout: DefaultRunTimeout,
		},
		{
			ID: CPP, Extension: ".cpp",
			Compile:    compiled("g++", "-O2", "-std=c++17", "-o", PlaceholderArtifact),
			RunCommand: PlaceholderArtifact, RunTimeout: DefaultRunTimeout,
		},
		{
			ID: CSharp, Extension: ".cs",
			Compile:    compiled("mcs", "-out:"+PlaceholderArtifact+".exe"),
			RunCommand: "mono", RunArgs: []string{PlaceholderArtifact + ".exe"},
			RunTimeout: DefaultRunTimeout,
		},
		{
			ID: Go, Extension: ".go",
			Compile:    compiled("go", "build", "-o", PlaceholderArtifact),
			RunCommand: PlaceholderArtifact, RunTimeout: DefaultRunTimeout,
		},
		{
			ID: Rust, Extension: ".rs",
			Compile:    compiled("rustc", "-O", "-o", PlaceholderArtifact),
			RunCommand: PlaceholderArtifact, RunTimeout: DefaultRunTimeout,
		},
		{
			ID: Kotlin, Extension: ".kt",
			Compile:    &CompileStep{Command: "kotlinc", Args: []string{"-include-runtime", "-d", PlaceholderArtifact + ".jar"}, Timeout: 60 * time.Second},
			RunCommand: "java", RunArgs: []string{"-jar", PlaceholderArtifact + ".jar"},
			RunTimeout: DefaultRunTimeout,
		},
		{ID: HTML, Extension: ".html", MarkupOnly: true},
		{ID: CSS, Extension: ".css", MarkupOnly: true},
		{ID: SQL, Extension: ".sql", MarkupOnly: true},
	}
}
