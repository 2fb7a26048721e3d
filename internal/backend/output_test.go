package backend_test

import (
	"testing"

	"github.com/seantiz/runbox/internal/backend"
	"github.com/seantiz/runbox/internal/model"
)

func TestComposeOutput(t *testing.T) {
	tests := []struct {
		name, compile, run, want string
	}{
		{"run only", "", "hi\n", "hi"},
		{"compile only", "warning: x\n", "", "warning: x"},
		{"both", "built", "hi\n\n", "built\nhi"},
		{"compile trailing newline kept", "built\n", "hi\n", "built\n\nhi"},
		{"compile blank lines kept", "a\n\n", "b", "a\n\n\nb"},
		{"whitespace compile joined", "  ", "x", "  \nx"},
		{"leading whitespace kept", "", "  indented\n", "  indented"},
		{"empty", "", "", model.NoOutputPlaceholder},
		{"whitespace only", "\n", " \t\n", model.NoOutputPlaceholder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := backend.ComposeOutput(tt.compile, tt.run); got != tt.want {
				t.Errorf("ComposeOutput(%q, %q) = %q, want %q", tt.compile, tt.run, got, tt.want)
			}
		})
	}
}
