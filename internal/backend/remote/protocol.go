package remote

// Limits sent with every execute request, in milliseconds. A memory limit of
// -1 leaves the provider default in place.
const (
	compileTimeoutMS = 10000
	runTimeoutMS     = 10000
	noMemoryLimit    = -1

	sourceFileName = "main"
)

// Runtime is one language/version pair offered by the provider.
type Runtime struct {
	Language string   `json:"language"`
	Version  string   `json:"version"`
	Aliases  []string `json:"aliases"`
	Runtime  string   `json:"runtime,omitempty"`
}

// File is a source file submitted for execution.
type File struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ExecuteRequest is the body of POST /execute.
type ExecuteRequest struct {
	Language           string   `json:"language"`
	Version            string   `json:"version"`
	Files              []File   `json:"files"`
	Stdin              string   `json:"stdin"`
	Args               []string `json:"args"`
	CompileTimeout     int      `json:"compile_timeout"`
	RunTimeout         int      `json:"run_timeout"`
	CompileMemoryLimit int      `json:"compile_memory_limit"`
	RunMemoryLimit     int      `json:"run_memory_limit"`
}

// Stage is the outcome of the compile or run stage.
type Stage struct {
	Stdout string  `json:"stdout"`
	Stderr string  `json:"stderr"`
	Output string  `json:"output"`
	Code   *int    `json:"code"`
	Signal *string `json:"signal"`
}

// ExecuteResponse is the body returned by POST /execute.
type ExecuteResponse struct {
	Language string `json:"language"`
	Version  string `json:"version"`
	Compile  *Stage `json:"compile,omitempty"`
	Run      *Stage `json:"run,omitempty"`
	Message  string `json:"message,omitempty"`
}

func newExecuteRequest(rt Runtime, code, stdin string) ExecuteRequest {
	return ExecuteRequest{
		Language:           rt.Language,
		Version:            rt.Version,
		Files:              []File{{Name: sourceFileName, Content: code}},
		Stdin:              stdin,
		Args:               []string{},
		CompileTimeout:     compileTimeoutMS,
		RunTimeout:         runTimeoutMS,
		CompileMemoryLimit: noMemoryLimit,
		RunMemoryLimit:     noMemoryLimit,
	}
}
