// Package history writes a JSONL log of task list mutations.
package history

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Op names a recorded mutation.
type Op string

const (
	OpLoad   Op = "load"
	OpAdd    Op = "add"
	OpDelete Op = "delete"
	OpSort   Op = "sort"
	OpSave   Op = "save"
)

// Event is one JSONL line in a session log.
type Event struct {
	Time   time.Time `json:"time"`
	Op     Op        `json:"op"`
	Task   string    `json:"task,omitempty"`
	Count  int       `json:"count,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

// Logger appends events to a per-session JSONL file. A nil Logger
// discards everything, so callers do not need to guard each call.
type Logger struct {
	Dir       string
	SessionID string
	LogPath   string
	file      *os.File
}

// NewLogger creates the per-project log directory and opens a new
// session file inside it.
func NewLogger(baseDir, workDir string) (*Logger, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("history base dir is empty")
	}

	resolvedWorkDir := workDir
	if resolvedWorkDir == "" {
		resolvedWorkDir = "."
	}
	if abs, err := filepath.Abs(resolvedWorkDir); err == nil {
		resolvedWorkDir = abs
	}

	logDir := filepath.Join(resolveBaseDir(baseDir, resolvedWorkDir), projectSlug(resolvedWorkDir))
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	sessionID := newSessionID()
	logPath := filepath.Join(logDir, sessionID+".jsonl")
	file, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create history file: %w", err)
	}

	return &Logger{
		Dir:       logDir,
		SessionID: sessionID,
		LogPath:   logPath,
		file:      file,
	}, nil
}

// Record appends one event. Write failures are returned but are safe to
// ignore: history is advisory, never load-bearing.
func (l *Logger) Record(op Op, taskName string, count int, detail string) error {
	if l == nil || l.file == nil {
		return nil
	}
	event := Event{
		Time:   time.Now().UTC(),
		Op:     op,
		Task:   taskName,
		Count:  count,
		Detail: detail,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal history event: %w", err)
	}
	data = append(data, '\n')
	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("write history event: %w", err)
	}
	return nil
}

// Close closes the session file.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// FindLogDir returns the per-project history directory for workDir.
func FindLogDir(baseDir, workDir string) (string, error) {
	if baseDir == "" {
		return "", fmt.Errorf("history base dir is empty")
	}

	resolvedWorkDir := workDir
	if resolvedWorkDir == "" {
		resolvedWorkDir = "."
	}
	if abs, err := filepath.Abs(resolvedWorkDir); err == nil {
		resolvedWorkDir = abs
	}

	return filepath.Join(resolveBaseDir(baseDir, resolvedWorkDir), projectSlug(resolvedWorkDir)), nil
}

// FindLatestLog finds the most recently modified session file in a
// directory, or "" if there are none.
func FindLatestLog(logDir string) (string, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read history dir: %w", err)
	}

	var latest string
	var latestTime time.Time

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latest = filepath.Join(logDir, entry.Name())
		}
	}

	return latest, nil
}

// Tail writes a session file to w, optionally showing only the last n
// lines and optionally following for new events.
func Tail(w io.Writer, path string, n int, follow bool) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	defer file.Close()

	if n > 0 {
		if err := tailSeek(file, n); err != nil {
			return fmt.Errorf("seek to tail position: %w", err)
		}
	}

	if follow {
		return tailFollow(w, file)
	}

	_, err = io.Copy(w, file)
	return err
}

// tailSeek seeks to a position that shows approximately the last n lines.
func tailSeek(file *os.File, n int) error {
	const avgLineLength = 120

	stat, err := file.Stat()
	if err != nil {
		return err
	}

	size := stat.Size()
	if size < avgLineLength*int64(n) {
		_, err = file.Seek(0, io.SeekStart)
		return err
	}

	offset := size - int64(n*avgLineLength)
	if offset < 0 {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	// Discard the partial first line
	buf := make([]byte, 1)
	for {
		if _, err := file.Read(buf); err != nil {
			break
		}
		if buf[0] == '\n' {
			break
		}
	}

	return nil
}

// tailFollow follows a file like tail -f.
func tailFollow(w io.Writer, file *os.File) error {
	if _, err := io.Copy(w, file); err != nil {
		return err
	}

	for {
		if _, err := io.Copy(w, file); err != nil {
			return err
		}

		time.Sleep(100 * time.Millisecond)

		var buf [1]byte
		_, err := file.Read(buf[:])
		if err != nil {
			if err == io.EOF {
				continue
			}
			return err
		}
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
}

func resolveBaseDir(baseDir, workDir string) string {
	if filepath.IsAbs(baseDir) {
		return filepath.Clean(baseDir)
	}
	return filepath.Clean(filepath.Join(workDir, baseDir))
}

// projectSlug names the per-project subdirectory: a sanitized directory
// name plus a short hash of the full path to keep same-named projects
// apart.
func projectSlug(workDir string) string {
	name := slugify(filepath.Base(workDir))
	sum := sha1.Sum([]byte(workDir))
	return fmt.Sprintf("%s-%s", name, hex.EncodeToString(sum[:])[:8])
}

func slugify(input string) string {
	if strings.TrimSpace(input) == "" {
		return "project"
	}

	var b strings.Builder
	lastUnderscore := false
	for i := 0; i < len(input); i++ {
		c := input[i]
		valid := (c >= 'A' && c <= 'Z') ||
			(c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') ||
			c == '.' || c == '_' || c == '-'
		if !valid {
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		}
		b.WriteByte(c)
		lastUnderscore = false
	}

	slug := strings.Trim(b.String(), "_")
	if slug == "" {
		return "project"
	}
	return slug
}

// newSessionID combines a sortable timestamp with a short random suffix
// so concurrent sessions never collide.
func newSessionID() string {
	return fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102-150405"), uuid.NewString()[:8])
}
