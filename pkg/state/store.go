// Package state owns the on-disk state under ~/.eopod: the credentials
// record, the capped history and error logs, and the rotating tool log.
// No other package touches these files directly.
package state

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/gofrs/flock"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	eoerrors "github.com/erfanzar/eopod/errors"
	"github.com/erfanzar/eopod/pkg/tpu"
)

const (
	historyCap  = 100
	errorLogCap = 50

	// outputCap bounds the output stored with each history entry.
	outputCap = 500
)

// HistoryEntry is one persisted command outcome.
type HistoryEntry struct {
	Timestamp string `yaml:"timestamp"`
	Command   string `yaml:"command"`
	Status    string `yaml:"status"`
	Output    string `yaml:"output"`
}

// ErrorEntry is one persisted command failure.
type ErrorEntry struct {
	Timestamp string `yaml:"timestamp"`
	Command   string `yaml:"command"`
	Error     string `yaml:"error"`
}

// Store persists configuration and logs. Appends are read-modify-write
// over the whole file, guarded by a file lock so concurrent invocations
// cannot break the retention caps.
type Store struct {
	dir         string
	configFile  string
	historyFile string
	errorFile   string
	logFile     string

	fileLock *flock.Flock
	logger   *log.Logger

	now func() time.Time
}

// Open creates or opens the state directory under the user's home.
func Open() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate home directory: %w", err)
	}
	return OpenAt(filepath.Join(home, ".eopod"))
}

// OpenAt creates or opens the state directory at an explicit path.
func OpenAt(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	s := &Store{
		dir:         dir,
		configFile:  filepath.Join(dir, "config.ini"),
		historyFile: filepath.Join(dir, "history.yaml"),
		errorFile:   filepath.Join(dir, "error_log.yaml"),
		logFile:     filepath.Join(dir, "eopod.log"),
		fileLock:    flock.New(filepath.Join(dir, ".lock")),
		now:         time.Now,
	}
	s.logger = newLogger(s.logFile)
	return s, nil
}

// Dir returns the state directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Logger returns the rotating file logger.
func (s *Store) Logger() *log.Logger {
	return s.logger
}

// Credentials loads the configured target identity. An incomplete or
// missing record is a recoverable not-configured condition.
func (s *Store) Credentials() (tpu.Target, error) {
	cfg, err := ini.LooseLoad(s.configFile)
	if err != nil {
		return tpu.Target{}, eoerrors.Wrap(err, eoerrors.ErrNotConfigured, "failed to read configuration")
	}

	section := cfg.Section(ini.DefaultSection)
	target := tpu.Target{
		Project: section.Key("project_id").String(),
		Zone:    section.Key("zone").String(),
		Name:    section.Key("tpu_name").String(),
	}
	if !target.Complete() {
		return tpu.Target{}, eoerrors.New(eoerrors.ErrNotConfigured,
			"please configure eopod first using 'eopod configure'")
	}
	return target, nil
}

// SaveCredentials persists the target identity.
func (s *Store) SaveCredentials(target tpu.Target) error {
	cfg := ini.Empty()
	section := cfg.Section(ini.DefaultSection)
	section.Key("project_id").SetValue(target.Project)
	section.Key("zone").SetValue(target.Zone)
	section.Key("tpu_name").SetValue(target.Name)

	if err := cfg.SaveTo(s.configFile); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}

// RecordHistory appends one history entry, evicting the oldest past the
// 100-entry cap. Output is truncated to 500 characters.
func (s *Store) RecordHistory(command, status, output string) error {
	output = Truncate(output, outputCap)
	entry := HistoryEntry{
		Timestamp: s.now().Format(time.RFC3339),
		Command:   command,
		Status:    status,
		Output:    output,
	}

	return s.withLock(func() error {
		history := s.loadHistory()
		history = append(history, entry)
		if len(history) > historyCap {
			history = history[len(history)-historyCap:]
		}
		return writeYAML(s.historyFile, history)
	})
}

// RecordError appends one error entry, evicting the oldest past the
// 50-entry cap.
func (s *Store) RecordError(command, message string) error {
	entry := ErrorEntry{
		Timestamp: s.now().Format(time.RFC3339),
		Command:   command,
		Error:     message,
	}

	return s.withLock(func() error {
		errorLog := s.loadErrors()
		errorLog = append(errorLog, entry)
		if len(errorLog) > errorLogCap {
			errorLog = errorLog[len(errorLog)-errorLogCap:]
		}
		return writeYAML(s.errorFile, errorLog)
	})
}

// History returns all persisted history entries, oldest first.
func (s *Store) History() ([]HistoryEntry, error) {
	var history []HistoryEntry
	err := s.withLock(func() error {
		history = s.loadHistory()
		return nil
	})
	return history, err
}

// Errors returns all persisted error entries, oldest first.
func (s *Store) Errors() ([]ErrorEntry, error) {
	var errorLog []ErrorEntry
	err := s.withLock(func() error {
		errorLog = s.loadErrors()
		return nil
	})
	return errorLog, err
}

// loadHistory reads the history log. A malformed file is treated as empty
// with a diagnostic, never a fatal error.
func (s *Store) loadHistory() []HistoryEntry {
	data, err := os.ReadFile(s.historyFile)
	if err != nil {
		return nil
	}
	var history []HistoryEntry
	if err := yaml.Unmarshal(data, &history); err != nil {
		malformed := eoerrors.Wrap(err, eoerrors.ErrMalformedLog,
			fmt.Sprintf("malformed history file %s", s.historyFile))
		s.logger.Printf("Warning: %v. Treating as empty.", malformed)
		return nil
	}
	return history
}

func (s *Store) loadErrors() []ErrorEntry {
	data, err := os.ReadFile(s.errorFile)
	if err != nil {
		return nil
	}
	var errorLog []ErrorEntry
	if err := yaml.Unmarshal(data, &errorLog); err != nil {
		malformed := eoerrors.Wrap(err, eoerrors.ErrMalformedLog,
			fmt.Sprintf("malformed error log %s", s.errorFile))
		s.logger.Printf("Warning: %v. Treating as empty.", malformed)
		return nil
	}
	return errorLog
}

func (s *Store) withLock(fn func() error) error {
	if err := s.fileLock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire state lock: %w", err)
	}
	defer func() {
		if err := s.fileLock.Unlock(); err != nil {
			s.logger.Printf("Error releasing state lock: %v", err)
		}
	}()
	return fn()
}

// Truncate shortens s to at most n bytes, backing up to a rune boundary so
// the result stays valid UTF-8.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func writeYAML(path string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
