package files

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"elevenlabs-mcp/internal/model"
)

const (
	similarityThreshold = 70
	maxSuggestions      = 5
)

var audioExtensions = map[string]struct{}{
	".wav":  {},
	".mp3":  {},
	".m4a":  {},
	".aac":  {},
	".ogg":  {},
	".flac": {},
	".mp4":  {},
	".avi":  {},
	".mov":  {},
	".wmv":  {},
}

// IsAudioFile reports whether path has a recognized audio or video extension.
func IsAudioFile(path string) bool {
	_, ok := audioExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// InputFile validates a user-supplied input path and returns the path to
// read. Relative paths are only accepted with a base path; they are joined
// onto it and the joined absolute path is returned. When the file is
// missing, similarly named audio files next to it are listed in the error.
func (r *Resolver) InputFile(path string, audioCheck bool) (string, error) {
	if !filepath.IsAbs(path) {
		if r.BasePath == "" {
			return "", model.Configurationf("File path must be an absolute path if ELEVENLABS_MCP_BASE_PATH is not set")
		}
		base, err := r.expandUser(r.BasePath)
		if err != nil {
			return "", err
		}
		path = filepath.Join(base, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		parent := filepath.Dir(path)
		if pinfo, perr := os.Stat(parent); perr == nil && pinfo.IsDir() {
			if similar := TrySimilarFiles(path, parent, maxSuggestions); len(similar) > 0 {
				return "", model.NotFoundf("File (%s) does not exist. Did you mean any of these files: %s?", path, strings.Join(similar, ","))
			}
		}
		return "", model.NotFoundf("File (%s) does not exist", path)
	}
	if !info.Mode().IsRegular() {
		return "", model.NotFoundf("File (%s) is not a file", path)
	}
	if audioCheck && !IsAudioFile(path) {
		return "", model.Validationf("File (%s) is not an audio or video file", path)
	}
	return path, nil
}

// Candidate is a file whose name resembles a requested one.
type Candidate struct {
	Path  string
	Score int
}

// FindSimilarFilenames walks dir recursively and returns files whose name
// scores at least threshold against the base name of target, best first.
// target itself is skipped.
func FindSimilarFilenames(target, dir string, threshold int) []Candidate {
	targetName := filepath.Base(target)
	var out []Candidate
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d == nil || d.IsDir() {
			return nil
		}
		if d.Name() == targetName && path == target {
			return nil
		}
		if score := Similarity(targetName, d.Name()); score >= threshold {
			out = append(out, Candidate{Path: path, Score: score})
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// TrySimilarFiles keeps the audio files among the best takeN matches.
func TrySimilarFiles(target, dir string, takeN int) []string {
	candidates := FindSimilarFilenames(target, dir, similarityThreshold)
	if len(candidates) > takeN {
		candidates = candidates[:takeN]
	}
	var out []string
	for _, c := range candidates {
		if IsAudioFile(c.Path) {
			out = append(out, c.Path)
		}
	}
	return out
}
