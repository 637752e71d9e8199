package source

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DiscoveredFile is one JSONL transcript found during directory scanning.
type DiscoveredFile struct {
	Path      string
	Project   string // raw project directory name
	SessionID string // extracted from filename, used when lines omit sessionId
}

// DefaultRoots returns the transcript root directories. CLAUDE_CONFIG_DIR
// overrides; otherwise both conventional locations are scanned.
func DefaultRoots() []string {
	if dir := os.Getenv("CLAUDE_CONFIG_DIR"); dir != "" {
		return []string{dir}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, ".claude"),
		filepath.Join(home, ".config", "claude"),
	}
}

// LookbackCutoff returns the oldest file mtime worth scanning. Files
// untouched for longer than the lookback cannot contribute to today or to
// the current window. CLAUDE_SCAN_LOOKBACK_HOURS overrides the 48h default.
func LookbackCutoff(now time.Time) time.Time {
	hours := int64(48)
	if raw := os.Getenv("CLAUDE_SCAN_LOOKBACK_HOURS"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			hours = n
		}
	}
	return now.Add(-time.Duration(hours) * time.Hour)
}

// Discover walks each root's projects directory and returns every JSONL
// transcript modified at or after cutoff. Unreadable entries are skipped;
// a missing root is not an error.
func Discover(roots []string, cutoff time.Time) []DiscoveredFile {
	var files []DiscoveredFile
	seen := make(map[string]struct{})

	for _, root := range roots {
		projectsDir := filepath.Join(root, "projects")
		info, err := os.Stat(projectsDir)
		if err != nil || !info.IsDir() {
			continue
		}

		_ = filepath.WalkDir(projectsDir, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if filepath.Ext(path) != ".jsonl" {
				return nil
			}
			if fi, err := d.Info(); err != nil || fi.ModTime().Before(cutoff) {
				return nil
			}
			if _, dup := seen[path]; dup {
				return nil
			}
			seen[path] = struct{}{}

			rel, _ := filepath.Rel(projectsDir, path)
			parts := strings.Split(rel, string(filepath.Separator))
			if len(parts) < 2 {
				return nil
			}

			files = append(files, DiscoveredFile{
				Path:      path,
				Project:   parts[0],
				SessionID: strings.TrimSuffix(d.Name(), ".jsonl"),
			})
			return nil
		})
	}
	return files
}

// SanitizedProjectName converts an absolute project path into the encoded
// directory name Claude Code uses under projects/ ("/" and "." become "-").
func SanitizedProjectName(dir string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", ".", "-", " ", "-", "_", "-")
	return replacer.Replace(dir)
}
