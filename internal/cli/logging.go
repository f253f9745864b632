package cli

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// newLogger builds the process logger. Terminals get the console writer,
// everything else gets one JSON object per line.
func newLogger(level string, w io.Writer, jsonMode bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if !jsonMode {
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			w = zerolog.ConsoleWriter{Out: f, TimeFormat: time.Kitchen}
		}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// newNDJSONEmitter writes server events as {"ts","level","event","data"}
// lines. Writes are serialized across concurrent tool calls.
func newNDJSONEmitter(w io.Writer) func(level, event string, data map[string]interface{}) {
	var mu sync.Mutex
	return func(level, event string, data map[string]interface{}) {
		if data == nil {
			data = map[string]interface{}{}
		}
		line, err := json.Marshal(map[string]interface{}{
			"ts":    time.Now().UTC().Format(time.RFC3339Nano),
			"level": level,
			"event": event,
			"data":  data,
		})
		if err != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		_, _ = w.Write(append(line, '\n'))
	}
}
