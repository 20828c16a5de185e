package config

import (
	"fmt"
	"strings"
)

// Section renders one block of the configuration dump printed at startup.
type Section struct {
	title string
	lines []string
}

func NewSection(title string) *Section {
	return &Section{title: title}
}

// Add appends a key: value line; values are formatted with %v.
func (s *Section) Add(key string, value any) *Section {
	s.lines = append(s.lines, fmt.Sprintf("  %s: %v", key, value))
	return s
}

func (s *Section) String() string {
	var b strings.Builder
	b.WriteString("\n--- " + s.title + " ---\n")
	for _, line := range s.lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
