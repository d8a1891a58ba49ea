// Package task holds the in-memory task collection and its mutations.
package task

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Task is a single entry in the list. CreatedAt is optional; a zero
// value means the creation time was never recorded.
type Task struct {
	Name        string
	Description string
	Priority    int
	CreatedAt   time.Time
}

// IsZero returns true if the task carries no data.
func (t Task) IsZero() bool {
	return t.Name == "" && t.Description == "" && t.Priority == 0
}

// List is an ordered collection of tasks. Insertion order is preserved
// until SortByPriority is called.
type List struct {
	Tasks []Task
}

// New returns an empty list.
func New() *List {
	return &List{}
}

// Add appends a task. Names are not required to be unique.
func (l *List) Add(t Task) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	l.Tasks = append(l.Tasks, t)
}

// DeleteByName removes every task whose name matches exactly
// (case-sensitive, no trimming) and returns how many were removed.
// Deleting from an empty list is a no-op.
func (l *List) DeleteByName(name string) int {
	kept := l.Tasks[:0]
	removed := 0
	for _, t := range l.Tasks {
		if t.Name == name {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	l.Tasks = kept
	return removed
}

// SortByPriority reorders the list by ascending priority. The sort is
// stable: equal priorities keep their relative order.
func (l *List) SortByPriority() {
	sort.SliceStable(l.Tasks, func(i, j int) bool {
		return l.Tasks[i].Priority < l.Tasks[j].Priority
	})
}

// Len returns the number of tasks.
func (l *List) Len() int {
	return len(l.Tasks)
}

// EmptyMessage is printed when a listing is requested on an empty list.
const EmptyMessage = "No tasks to display."

// Dump renders the list one task per line in a compact struct-like
// form, for the debug listing.
func (l *List) Dump() string {
	if len(l.Tasks) == 0 {
		return EmptyMessage + "\n"
	}
	var b strings.Builder
	for _, t := range l.Tasks {
		fmt.Fprintf(&b, "{name:%q description:%q priority:%d}\n", t.Name, t.Description, t.Priority)
	}
	return b.String()
}

// Readable renders the list with labeled fields and a divider between
// tasks.
func (l *List) Readable() string {
	if len(l.Tasks) == 0 {
		return EmptyMessage + "\n"
	}
	var b strings.Builder
	for _, t := range l.Tasks {
		fmt.Fprintf(&b, "Name: %s\n", t.Name)
		fmt.Fprintf(&b, "Description: %s\n", t.Description)
		fmt.Fprintf(&b, "Priority: %d\n", t.Priority)
		b.WriteString("--------------------\n")
	}
	return b.String()
}
