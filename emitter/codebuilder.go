package emitter

import (
	"fmt"
	"os"
	"strings"
)

// CodeBuilder is a wrapper around [strings.Builder] that simplifies
// building C++ code.
//
// The zero value is safely ready to use.
type CodeBuilder struct {
	// Indent is the indentation level (indentation is 4 spaces).
	Indent int

	b strings.Builder
}

// Linef writes a single line, prepended by the current indentation.
// Empty lines aren't indented.
//
// Takes format and args like [fmt.Printf].
func (w *CodeBuilder) Linef(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if line != "" {
		for i := 0; i < w.Indent; i++ {
			w.b.WriteString("    ")
		}
	}
	w.b.WriteString(line)
	w.b.WriteString("\n")
}

// String returns the current code.
func (w *CodeBuilder) String() string {
	return w.b.String()
}

// SaveToFile writes the current code to outFile.
func (w *CodeBuilder) SaveToFile(outFile string) error {
	return os.WriteFile(outFile, []byte(w.String()), 0666)
}
