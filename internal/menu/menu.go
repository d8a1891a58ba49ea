// Package menu implements the interactive numbered-menu driver.
package menu

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"tasklist/internal/history"
	"tasklist/internal/task"
	"tasklist/internal/taskfile"
)

// LineReader reads one line of user input. Injecting it keeps the
// driver testable with scripted input instead of a real terminal.
type LineReader func() (string, error)

// ScanLines returns a LineReader over r. It reports io.EOF once the
// input is exhausted.
func ScanLines(r io.Reader) LineReader {
	scanner := bufio.NewScanner(r)
	return func() (string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		return scanner.Text(), nil
	}
}

// Option configures a Driver.
type Option func(*Driver)

// WithHistory attaches a mutation history logger.
func WithHistory(logger *history.Logger) Option {
	return func(d *Driver) {
		d.history = logger
	}
}

// Driver runs the menu loop against a task list and its file path.
type Driver struct {
	list     *task.List
	path     string
	readLine LineReader
	out      io.Writer
	history  *history.Logger
}

// New creates a Driver. The list is mutated in place; the caller keeps
// ownership of it.
func New(list *task.List, path string, readLine LineReader, out io.Writer, opts ...Option) *Driver {
	d := &Driver{
		list:     list,
		path:     path,
		readLine: readLine,
		out:      out,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

const invalidChoice = "Invalid choice. Please try again."

// Run loops until the user picks quit, which returns nil rather than
// terminating the process. Input running out (io.EOF) also ends the
// loop cleanly. Save failures are fatal and returned.
func (d *Driver) Run() error {
	for {
		d.printMenu()
		fmt.Fprint(d.out, "Enter your choice: ")

		line, err := d.readLine()
		if err == io.EOF {
			fmt.Fprintln(d.out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading choice: %w", err)
		}

		choice, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			fmt.Fprintln(d.out, invalidChoice)
			continue
		}

		switch choice {
		case 1:
			fmt.Fprint(d.out, d.list.Dump())
		case 2:
			fmt.Fprint(d.out, d.list.Readable())
		case 3:
			if err := d.addTask(); err != nil {
				return err
			}
		case 4:
			if err := d.deleteTask(); err != nil {
				return err
			}
		case 5:
			if err := d.saveTasks(); err != nil {
				return err
			}
		case 6:
			d.list.SortByPriority()
			d.history.Record(history.OpSort, "", d.list.Len(), "")
			fmt.Fprintln(d.out, "Tasks sorted by priority.")
		case 7:
			fmt.Fprintln(d.out, "Goodbye.")
			return nil
		default:
			fmt.Fprintln(d.out, invalidChoice)
		}
	}
}

func (d *Driver) printMenu() {
	fmt.Fprintln(d.out)
	fmt.Fprintln(d.out, "1. List tasks")
	fmt.Fprintln(d.out, "2. List tasks (readable)")
	fmt.Fprintln(d.out, "3. Add a task")
	fmt.Fprintln(d.out, "4. Delete a task")
	fmt.Fprintln(d.out, "5. Save tasks")
	fmt.Fprintln(d.out, "6. Sort tasks by priority")
	fmt.Fprintln(d.out, "7. Quit")
}

// addTask prompts for the three task fields. The priority prompt
// re-asks until it gets an integer instead of aborting the process.
func (d *Driver) addTask() error {
	fmt.Fprint(d.out, "Enter task name: ")
	name, err := d.readLine()
	if err != nil {
		return promptErr(err)
	}

	fmt.Fprint(d.out, "Enter task description: ")
	description, err := d.readLine()
	if err != nil {
		return promptErr(err)
	}

	var priority int
	for {
		fmt.Fprint(d.out, "Enter task priority: ")
		line, err := d.readLine()
		if err != nil {
			return promptErr(err)
		}
		priority, err = strconv.Atoi(strings.TrimSpace(line))
		if err == nil {
			break
		}
		fmt.Fprintln(d.out, "Priority must be an integer.")
	}

	d.list.Add(task.Task{Name: name, Description: description, Priority: priority})
	d.history.Record(history.OpAdd, name, 1, "")
	fmt.Fprintf(d.out, "Added task %q.\n", name)
	return nil
}

func (d *Driver) deleteTask() error {
	fmt.Fprint(d.out, "Enter the name of the task to delete: ")
	name, err := d.readLine()
	if err != nil {
		return promptErr(err)
	}

	removed := d.list.DeleteByName(name)
	if removed == 0 {
		fmt.Fprintf(d.out, "No task named %q.\n", name)
		return nil
	}
	d.history.Record(history.OpDelete, name, removed, "")
	if removed == 1 {
		fmt.Fprintf(d.out, "Deleted 1 task named %q.\n", name)
	} else {
		fmt.Fprintf(d.out, "Deleted %d tasks named %q.\n", removed, name)
	}
	return nil
}

func (d *Driver) saveTasks() error {
	if err := taskfile.Save(d.path, d.list.Tasks); err != nil {
		return fmt.Errorf("saving tasks: %w", err)
	}
	d.history.Record(history.OpSave, "", d.list.Len(), d.path)
	fmt.Fprintf(d.out, "Saved %d tasks to %s.\n", d.list.Len(), d.path)
	return nil
}

// promptErr maps end-of-input during a prompt to a plain error so the
// caller can tell it apart from a clean quit.
func promptErr(err error) error {
	if err == io.EOF {
		return fmt.Errorf("input ended mid-prompt")
	}
	return fmt.Errorf("reading input: %w", err)
}
