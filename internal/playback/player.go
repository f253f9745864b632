// Package playback decodes local WAV and MP3 files and plays them on an
// audio output.
package playback

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
	"github.com/rs/zerolog"

	"elevenlabs-mcp/internal/model"
)

const resampleQuality = 4

// Output is an audio device. Init is called once, before the first Play.
type Output interface {
	Init(sampleRate beep.SampleRate, bufferSize int) error
	Play(s beep.Streamer)
	Clear()
}

// Player plays one file at a time on an Output. The device is initialised
// with the sample rate of the first file; later files are resampled to it.
type Player struct {
	out    Output
	logger zerolog.Logger

	mu         sync.Mutex
	sampleRate beep.SampleRate
}

func NewPlayer(out Output, logger zerolog.Logger) *Player {
	return &Player{out: out, logger: logger}
}

// Decode opens path and returns a streamer for it. Only .wav and .mp3 are
// accepted.
func Decode(path string) (beep.StreamSeekCloser, beep.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".wav" && ext != ".mp3" {
		return nil, beep.Format{}, model.Validationf("Unsupported audio format %q: only WAV and MP3 files can be played", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("open %s: %w", path, err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	if ext == ".mp3" {
		streamer, format, err = mp3.Decode(f)
	} else {
		streamer, format, err = wav.Decode(f)
	}
	if err != nil {
		_ = f.Close()
		return nil, beep.Format{}, model.Validationf("Cannot decode %s: %v", path, err)
	}
	return streamer, format, nil
}

// Play blocks until path has been played or ctx is cancelled. Cancellation
// stops the output immediately.
func (p *Player) Play(ctx context.Context, path string) error {
	streamer, format, err := Decode(path)
	if err != nil {
		return err
	}
	defer streamer.Close()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sampleRate == 0 {
		if err := p.out.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
			return fmt.Errorf("init audio output: %w", err)
		}
		p.sampleRate = format.SampleRate
	}

	var source beep.Streamer = streamer
	if format.SampleRate != p.sampleRate {
		source = beep.Resample(resampleQuality, format.SampleRate, p.sampleRate, streamer)
	}

	p.logger.Debug().
		Str("path", path).
		Int("sample_rate", int(format.SampleRate)).
		Int("samples", streamer.Len()).
		Msg("playing audio")

	done := make(chan struct{})
	p.out.Play(beep.Seq(source, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.out.Clear()
		return ctx.Err()
	}
}
