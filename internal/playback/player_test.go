package playback

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/rs/zerolog"

	"elevenlabs-mcp/internal/model"
)

// drainOutput consumes whatever it is given on a background goroutine.
type drainOutput struct {
	mu       sync.Mutex
	inits    []beep.SampleRate
	played   int
	cleared  int
	blocking bool
}

func (o *drainOutput) Init(sampleRate beep.SampleRate, _ int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inits = append(o.inits, sampleRate)
	return nil
}

func (o *drainOutput) Play(s beep.Streamer) {
	o.mu.Lock()
	o.played++
	blocking := o.blocking
	o.mu.Unlock()
	if blocking {
		return
	}
	go func() {
		buf := make([][2]float64, 512)
		for {
			if _, ok := s.Stream(buf); !ok {
				return
			}
		}
	}()
}

func (o *drainOutput) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cleared++
}

func writeSilentWAV(t *testing.T, path string, rate beep.SampleRate, samples int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	format := beep.Format{SampleRate: rate, NumChannels: 1, Precision: 2}
	if err := wav.Encode(f, beep.Silence(samples), format); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
}

func TestDecode_RejectsUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.ogg")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, _, err := Decode(path)
	if model.KindOf(err) != model.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecode_RejectsCorruptWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.wav")
	if err := os.WriteFile(path, []byte("not a wav file"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, _, err := Decode(path)
	if model.KindOf(err) != model.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecode_WAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeSilentWAV(t, path, 8000, 400)

	streamer, format, err := Decode(path)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	defer streamer.Close()
	if format.SampleRate != 8000 || format.NumChannels != 1 {
		t.Fatalf("unexpected format: %#v", format)
	}
	if streamer.Len() != 400 {
		t.Fatalf("expected 400 samples, got %d", streamer.Len())
	}
}

func TestPlayer_PlaysToCompletion(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.wav")
	second := filepath.Join(dir, "b.wav")
	writeSilentWAV(t, first, 8000, 800)
	writeSilentWAV(t, second, 16000, 800)

	out := &drainOutput{}
	p := NewPlayer(out, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Play(ctx, first); err != nil {
		t.Fatalf("play first: %v", err)
	}
	if err := p.Play(ctx, second); err != nil {
		t.Fatalf("play second: %v", err)
	}

	if len(out.inits) != 1 || out.inits[0] != 8000 {
		t.Fatalf("output should be initialised once at the first rate, got %v", out.inits)
	}
	if out.played != 2 {
		t.Fatalf("expected two plays, got %d", out.played)
	}
}

func TestPlayer_CancelClearsOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.wav")
	writeSilentWAV(t, path, 8000, 8000)

	out := &drainOutput{blocking: true}
	p := NewPlayer(out, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := p.Play(ctx, path)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if out.cleared != 1 {
		t.Fatalf("expected output to be cleared once, got %d", out.cleared)
	}
}
