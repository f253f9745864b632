package files

import (
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"elevenlabs-mcp/internal/model"
)

const (
	DefaultMaxLength           = 10000
	DefaultTranscriptMaxLength = 50000
)

// Spooler moves text that is too long for a tool reply into a temporary file.
// Spooled files are never removed by this package.
type Spooler struct {
	// Dir holds the temporary files; empty uses os.TempDir.
	Dir string
}

// HandleLargeText returns text unchanged when it has at most maxLength runes,
// otherwise a pointer to a temporary file holding it.
func (s Spooler) HandleLargeText(text string, maxLength int, contentType string) (string, error) {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	if contentType == "" {
		contentType = "content"
	}
	if utf8.RuneCountInString(text) <= maxLength {
		return text, nil
	}
	path, err := s.write(text)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s saved to temporary file: %s\nUse the Read tool to access the full %s.", capitalize(contentType), path, contentType), nil
}

// ConversationTranscript formats transcript entries one per line and spools
// the result when it exceeds maxLength runes. The bool reports spooling.
func (s Spooler) ConversationTranscript(entries []model.TranscriptEntry, maxLength int) (string, bool, error) {
	if maxLength <= 0 {
		maxLength = DefaultTranscriptMaxLength
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		role := e.Role
		if role == "" {
			role = "Unknown"
		}
		if e.Timestamp != "" {
			lines = append(lines, fmt.Sprintf("[%s] %s: %s", e.Timestamp, role, e.Message))
		} else {
			lines = append(lines, fmt.Sprintf("%s: %s", role, e.Message))
		}
	}
	transcript := "No transcript available"
	if len(lines) > 0 {
		transcript = strings.Join(lines, "\n")
	}

	out, err := s.HandleLargeText(transcript, maxLength, "transcript")
	if err != nil {
		return "", false, err
	}
	return out, out != transcript, nil
}

func (s Spooler) write(text string) (string, error) {
	f, err := os.CreateTemp(s.Dir, "*.txt")
	if err != nil {
		return "", fmt.Errorf("create temporary file: %w", err)
	}
	if _, err := f.WriteString(text); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write temporary file %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temporary file %s: %w", f.Name(), err)
	}
	return f.Name(), nil
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
