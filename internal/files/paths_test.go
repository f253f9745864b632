package files

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"elevenlabs-mcp/internal/model"
)

func requireKind(t *testing.T, err error, kind model.ErrorKind) *model.ToolError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", kind)
	}
	var te *model.ToolError
	if !errors.As(err, &te) {
		t.Fatalf("expected *model.ToolError, got %T: %v", err, err)
	}
	if te.Kind != kind {
		t.Fatalf("expected kind %s, got %s (%s)", kind, te.Kind, te.Message)
	}
	return te
}

func TestOutputPath_DefaultsToDesktop(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := NewResolver("").OutputPath("")
	if err != nil {
		t.Fatalf("OutputPath failed: %v", err)
	}
	want := filepath.Join(home, "Desktop")
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if info, err := os.Stat(got); err != nil || !info.IsDir() {
		t.Fatalf("expected desktop directory to exist: %v", err)
	}
}

func TestOutputPath_RelativeDirectoryJoinsExpandedBasePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := NewResolver("~/work").OutputPath("reports")
	if err != nil {
		t.Fatalf("OutputPath failed: %v", err)
	}
	want := filepath.Join(home, "work", "reports")
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if _, err := os.Stat(got); err != nil {
		t.Fatalf("expected directory to be created: %v", err)
	}

	// idempotent on a second call
	if again, err := NewResolver("~/work").OutputPath("reports"); err != nil || again != want {
		t.Fatalf("second call: got %q, %v", again, err)
	}
}

func TestOutputPath_AbsoluteDirectoryIgnoresBasePath(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out")
	got, err := NewResolver("/some/base").OutputPath(target)
	if err != nil {
		t.Fatalf("OutputPath failed: %v", err)
	}
	if got != target {
		t.Fatalf("expected %s, got %s", target, got)
	}
}

func TestOutputPath_TildeWithoutBasePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := NewResolver("").OutputPath("~/clips")
	if err != nil {
		t.Fatalf("OutputPath failed: %v", err)
	}
	if got != filepath.Join(home, "clips") {
		t.Fatalf("unexpected path %s", got)
	}
}

func TestOutputPath_ReadOnlyDirectoryFails(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses directory permissions")
	}
	locked := filepath.Join(t.TempDir(), "locked")
	if err := os.Mkdir(locked, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	_, err := NewResolver("").OutputPath(filepath.Join(locked, "child"))
	te := requireKind(t, err, model.KindConfiguration)
	if te.Message != "Directory ("+filepath.Join(locked, "child")+") is not writeable" {
		t.Fatalf("unexpected message: %s", te.Message)
	}

	_, err = NewResolver("").OutputPath(locked)
	requireKind(t, err, model.KindConfiguration)
}

func TestOutputPath_ChecksParentWhenMissing(t *testing.T) {
	root := t.TempDir()
	var checked []string
	r := NewResolver("")
	r.Writable = func(path string) bool {
		checked = append(checked, path)
		return false
	}

	target := filepath.Join(root, "new")
	_, err := r.OutputPath(target)
	requireKind(t, err, model.KindConfiguration)
	if len(checked) != 1 || checked[0] != root {
		t.Fatalf("expected parent %s to be checked, got %v", root, checked)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatalf("directory must not be created on failure")
	}
}

func TestOutputFile(t *testing.T) {
	fixed := time.Date(2025, 4, 3, 16, 49, 49, 0, time.Local)
	r := NewResolver("")
	r.Now = func() time.Time { return fixed }

	cases := []struct {
		name   string
		tool   string
		text   string
		ext    string
		fullID bool
		want   string
	}{
		{"truncates to five", "tts", "Hello world", "mp3", false, "tts_Hello_20250403_164949.mp3"},
		{"space inside fragment", "tts", "Hi there", "mp3", false, "tts_Hi_th_20250403_164949.mp3"},
		{"short text kept", "sfx", "dog", "mp3", false, "sfx_dog_20250403_164949.mp3"},
		{"runes not bytes", "tts", "héllo wörld", "mp3", false, "tts_héllo_20250403_164949.mp3"},
		{"full identifier", "voice_design", "voice_ABC123", "mp3", true, "voice_design_voice_ABC123_20250403_164949.mp3"},
		{"full identifier with spaces", "stt", "my clip.wav", "txt", true, "stt_my_clip.wav_20250403_164949.txt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := r.OutputFile(tc.tool, tc.text, "/out", tc.ext, tc.fullID)
			if got != filepath.Join("/out", tc.want) {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestOutputFile_UsesWallClockShape(t *testing.T) {
	got := filepath.Base(NewResolver("").OutputFile("tts", "Hello world", "/out", "mp3", false))
	if !regexp.MustCompile(`^tts_Hello_20\d{6}_\d{6}\.mp3$`).MatchString(got) {
		t.Fatalf("unexpected filename %s", got)
	}
}
