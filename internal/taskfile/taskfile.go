// Package taskfile reads and writes the comma-delimited task file.
//
// The on-disk format is one task per line, `name,description,priority`,
// with no header, no quoting, and no escaping of embedded commas. The
// format is fixed; encoding/csv is deliberately not used here because it
// would introduce quoting.
package taskfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"

	"tasklist/internal/task"
)

// Field labels the legacy labeled format prefixes values with. Decode
// strips them so old files still load; Encode never writes them.
var fieldLabels = [3]string{"name: ", "description: ", "priority: "}

// Encode serializes tasks into the plain line format, newline-joined
// with no trailing newline.
func Encode(tasks []task.Task) []byte {
	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		lines = append(lines, fmt.Sprintf("%s,%s,%d", t.Name, t.Description, t.Priority))
	}
	return []byte(strings.Join(lines, "\n"))
}

// Decode parses file contents into a list. Decoding is lenient: blank
// lines are dropped, rows with fewer than three fields are skipped with
// a warning, and a priority that does not parse as an integer loads as
// 0 with a warning. Warnings never fail the load.
func Decode(data []byte) (*task.List, []string) {
	list := task.New()
	var warnings []string

	for i, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.SplitN(line, ",", 3)
		if len(fields) < 3 {
			warnings = append(warnings, fmt.Sprintf("line %d: expected 3 fields, got %d; skipped", i+1, len(fields)))
			continue
		}

		for j := range fields {
			fields[j] = strings.TrimSpace(strings.TrimPrefix(strings.TrimLeft(fields[j], " \t"), fieldLabels[j]))
		}

		// A row of empty fields is the sentinel empty task, not a
		// malformed priority.
		if fields[0] == "" && fields[1] == "" && fields[2] == "" {
			list.Tasks = append(list.Tasks, task.Task{})
			continue
		}

		priority, err := strconv.Atoi(fields[2])
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("line %d: invalid priority %q, using 0", i+1, fields[2]))
			priority = 0
		}

		list.Tasks = append(list.Tasks, task.Task{
			Name:        fields[0],
			Description: fields[1],
			Priority:    priority,
		})
	}

	return list, warnings
}

// Load reads the task file at path. A missing or unreadable file is not
// an error: it yields an empty list and the read failure is reported as
// a warning, so a fresh working directory starts with no tasks.
func Load(path string) (*task.List, []string) {
	lock := flock.New(lockPath(path))
	if err := lock.RLock(); err == nil {
		defer lock.Unlock()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return task.New(), []string{fmt.Sprintf("read %s: %v (starting with an empty list)", path, err)}
	}
	return Decode(data)
}

// Save overwrites the task file at path with the encoded list. The
// write goes to a temp file in the same directory and is renamed into
// place, and an advisory lock guards against a second tasklist process
// writing at the same time. Save errors are fatal to the caller.
func Save(path string, tasks []task.Task) error {
	lock := flock.New(lockPath(path))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer lock.Unlock()

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(Encode(tasks)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func lockPath(path string) string {
	return path + ".lock"
}
