package files

import (
	"path/filepath"
	"strings"
)

const fragmentLength = 5

// OutputFile names an output as <tool>_<content>_<YYYYMMDD_HHMMSS>.<ext>
// inside dir. content is the first five runes of text, or all of it when
// fullID is set. Two calls in the same second with the same tool and content
// produce the same name.
func (r *Resolver) OutputFile(tool, text, dir, ext string, fullID bool) string {
	content := text
	if !fullID {
		runes := []rune(text)
		if len(runes) > fragmentLength {
			runes = runes[:fragmentLength]
		}
		content = string(runes)
	}
	content = strings.ReplaceAll(content, " ", "_")
	stamp := r.Now().Format("20060102_150405")
	return filepath.Join(dir, tool+"_"+content+"_"+stamp+"."+ext)
}
