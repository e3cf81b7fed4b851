package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/grovetools/nudge/config"
	"github.com/grovetools/nudge/pkg/paths"
	"github.com/grovetools/nudge/util/pathutil"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex
)

// NewLogger creates and returns a pre-configured logger for a specific component.
// It uses a singleton pattern per component to avoid re-initializing.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	var logCfg Config
	if cfg, err := config.LoadDefault(); err == nil {
		if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
			logrus.Warnf("Failed to parse 'logging' config: %v", err)
		}
	}

	entry := newLogger(component, logCfg, os.Getenv("NUDGE_LOG_LEVEL"), os.Getenv("NUDGE_LOG_CALLER") == "true")
	loggers[component] = entry
	return entry
}

// newLogger builds a logger from an explicit configuration; env values win over logCfg.
func newLogger(component string, logCfg Config, envLevel string, envCaller bool) *logrus.Entry {
	logger := logrus.New()

	levelStr := "info"
	if envLevel != "" {
		levelStr = envLevel
	} else if logCfg.Level != "" {
		levelStr = logCfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if envCaller || logCfg.ReportCaller {
		logger.SetReportCaller(true)
	}

	switch logCfg.Format.Preset {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "simple":
		logger.SetFormatter(&TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}})
	default:
		logger.SetFormatter(&TextFormatter{Config: logCfg.Format})
	}

	// The file sink always gets JSON lines so `nudge logs` can parse them.
	if !logCfg.File.Disabled {
		logFilePath := DefaultLogPath(component, time.Now())
		if logCfg.File.Path != "" {
			if expanded, err := pathutil.Expand(logCfg.File.Path); err == nil {
				logFilePath = expanded
			}
		}
		if logFilePath != "" {
			if file, err := openLogFile(logFilePath); err == nil {
				logger.AddHook(&fileHook{w: file, formatter: &logrus.JSONFormatter{}})
			} else if logCfg.File.Path != "" {
				// Only warn if explicitly configured
				logger.Warnf("Failed to open log file %s: %v", logFilePath, err)
			}
		}
	}

	if shouldLogToStderr(logCfg.Format.StructuredToStderr, logger.GetLevel()) {
		logger.SetOutput(GetGlobalOutput())
	} else {
		logger.SetOutput(io.Discard)
	}

	return logger.WithField("component", component)
}

// shouldLogToStderr applies the structured_to_stderr mode.
func shouldLogToStderr(mode string, level logrus.Level) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	// auto: log to stderr when debugging or when stderr is not an interactive terminal
	isDebug := level >= logrus.DebugLevel
	isInteractive := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	return isDebug || !isInteractive
}

// DefaultLogPath returns <state dir>/logs/<component>-<date>.log, or "" when
// no state directory can be determined.
func DefaultLogPath(component string, now time.Time) string {
	dir := paths.LogDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%s.log", component, now.Format("2006-01-02")))
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// fileHook writes every entry to w with its own formatter.
type fileHook struct {
	mu        sync.Mutex
	w         io.Writer
	formatter logrus.Formatter
}

func (h *fileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(line)
	return err
}
