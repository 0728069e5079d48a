package logger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripAnsiCodes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "colour sequences",
			input: "\x1b[31mError:\x1b[0m Something went \x1b[1;33mwrong\x1b[0m",
			want:  "Error: Something went wrong",
		},
		{
			name:  "hyperlink",
			input: "see \x1b]8;;https://openrouter.ai\x07openrouter\x1b]8;;\x07 now",
			want:  "see openrouter now",
		},
		{
			name:  "plain text untouched",
			input: "summarizer ready",
			want:  "summarizer ready",
		},
		{
			name:  "trailing escape kept",
			input: "dangling\x1b",
			want:  "dangling\x1b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripAnsiCodes(tt.input))
		})
	}
}

func BenchmarkStripAnsiCodes_Large(b *testing.B) {
	large := strings.Repeat("\x1b[31mError:\x1b[0m Something went \x1b[1;33mwrong\x1b[0m", 1000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		stripAnsiCodes(large)
	}
}
