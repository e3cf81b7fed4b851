// Package logutil locates and reads the JSON-lines log files nudge writes.
package logutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/grovetools/nudge/config"
	"github.com/grovetools/nudge/logging"
	"github.com/grovetools/nudge/pkg/paths"
	"github.com/grovetools/nudge/util/pathutil"
)

// FindLogFile returns the log file for component. A `logging.file.path` in
// cfg wins; otherwise the newest <component>-*.log under the log directory is used.
func FindLogFile(cfg *config.Config, component string) (string, error) {
	if cfg != nil {
		var logCfg logging.Config
		if err := cfg.UnmarshalExtension("logging", &logCfg); err == nil && logCfg.File.Path != "" {
			return pathutil.Expand(logCfg.File.Path)
		}
	}
	return FindLatestLogFile(paths.LogDir(), component)
}

// FindLatestLogFile returns the most recently modified <component>-*.log in dir.
// Non-empty files win over empty ones.
func FindLatestLogFile(dir, component string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("could not read log directory %s: %w", dir, err)
	}

	var latest, latestNonEmpty os.FileInfo
	var latestPath, latestNonEmptyPath string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, component+"-") || filepath.Ext(name) != ".log" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if latest == nil || info.ModTime().After(latest.ModTime()) {
			latest = info
			latestPath = filepath.Join(dir, name)
		}
		if info.Size() > 0 && (latestNonEmpty == nil || info.ModTime().After(latestNonEmpty.ModTime())) {
			latestNonEmpty = info
			latestNonEmptyPath = filepath.Join(dir, name)
		}
	}

	if latestNonEmpty != nil {
		return latestNonEmptyPath, nil
	}
	if latest == nil {
		return "", fmt.Errorf("no %s log files found in %s", component, dir)
	}
	return latestPath, nil
}

// LastLines returns the final n lines of path, or every line when n < 0.
func LastLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if n >= 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines, scanner.Err()
}
