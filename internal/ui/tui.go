// Package ui provides the full-screen terminal interface.
//
// It uses bubbletea's model/update/view loop: key messages mutate the
// in-memory list, and the view re-renders the whole screen from state.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tasklist/internal/config"
	"tasklist/internal/history"
	"tasklist/internal/task"
	"tasklist/internal/taskfile"
)

// Option configures the TUI.
type Option func(*tuiModel)

// WithHistory attaches a mutation history logger.
func WithHistory(logger *history.Logger) Option {
	return func(m *tuiModel) {
		m.history = logger
	}
}

// RunTUI loads the task file and runs the interface until quit.
func RunTUI(ctx context.Context, cfg *config.Config, opts ...Option) error {
	if !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}

	model := newTUIModel(cfg)
	for _, opt := range opts {
		opt(model)
	}
	model.reload()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	finalModel, err := program.Run()
	if err != nil {
		return err
	}
	if m, ok := finalModel.(*tuiModel); ok && m.fatalErr != nil {
		return m.fatalErr
	}
	return nil
}

// uiState is the screen the model is on.
type uiState int

const (
	stateList uiState = iota
	stateAdd
	stateHelp
)

// Add form field order.
const (
	fieldName = iota
	fieldDescription
	fieldPriority
	fieldCount
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#444444"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

type tuiModel struct {
	cfg     *config.Config
	list    *task.List
	history *history.Logger

	state    uiState
	cursor   int
	inputs   [fieldCount]textinput.Model
	field    int
	status   string
	warnings []string
	dirty    bool
	fatalErr error
}

func newTUIModel(cfg *config.Config) *tuiModel {
	m := &tuiModel{
		cfg:  cfg,
		list: task.New(),
	}

	for i := range m.inputs {
		m.inputs[i] = textinput.New()
		m.inputs[i].CharLimit = 256
	}
	m.inputs[fieldName].Placeholder = "name"
	m.inputs[fieldDescription].Placeholder = "description"
	m.inputs[fieldPriority].Placeholder = "priority (integer)"

	return m
}

func (m *tuiModel) Init() tea.Cmd {
	return nil
}

func (m *tuiModel) reload() {
	list, warnings := taskfile.Load(m.cfg.TaskFile)
	m.list = list
	m.warnings = warnings
	m.dirty = false
	if m.cursor >= m.list.Len() {
		m.cursor = max(0, m.list.Len()-1)
	}
	m.history.Record(history.OpLoad, "", m.list.Len(), m.cfg.TaskFile)
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch m.state {
	case stateAdd:
		return m.updateAdd(keyMsg)
	case stateHelp:
		m.state = stateList
		return m, nil
	default:
		return m.updateList(keyMsg)
	}
}

func (m *tuiModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < m.list.Len()-1 {
			m.cursor++
		}
	case "a":
		m.state = stateAdd
		m.field = fieldName
		for i := range m.inputs {
			m.inputs[i].SetValue("")
			m.inputs[i].Blur()
		}
		m.inputs[fieldName].Focus()
		m.status = ""
	case "d":
		m.deleteAtCursor()
	case "s":
		m.save()
		if m.fatalErr != nil {
			return m, tea.Quit
		}
	case "o":
		m.list.SortByPriority()
		m.history.Record(history.OpSort, "", m.list.Len(), "")
		m.dirty = true
		m.status = "Sorted by priority."
	case "r":
		m.reload()
		m.status = fmt.Sprintf("Reloaded %d tasks from %s.", m.list.Len(), m.cfg.TaskFile)
	case "?", "h":
		m.state = stateHelp
	}
	return m, nil
}

// deleteAtCursor removes the task under the cursor by name, so
// duplicate names go together, matching the store semantics.
func (m *tuiModel) deleteAtCursor() {
	if m.list.Len() == 0 {
		m.status = task.EmptyMessage
		return
	}
	name := m.list.Tasks[m.cursor].Name
	removed := m.list.DeleteByName(name)
	m.history.Record(history.OpDelete, name, removed, "")
	m.dirty = true
	if m.cursor >= m.list.Len() {
		m.cursor = max(0, m.list.Len()-1)
	}
	if removed == 1 {
		m.status = fmt.Sprintf("Deleted 1 task named %q.", name)
	} else {
		m.status = fmt.Sprintf("Deleted %d tasks named %q.", removed, name)
	}
}

func (m *tuiModel) save() {
	if err := taskfile.Save(m.cfg.TaskFile, m.list.Tasks); err != nil {
		m.fatalErr = fmt.Errorf("saving tasks: %w", err)
		return
	}
	m.history.Record(history.OpSave, "", m.list.Len(), m.cfg.TaskFile)
	m.dirty = false
	m.status = fmt.Sprintf("Saved %d tasks to %s.", m.list.Len(), m.cfg.TaskFile)
}

func (m *tuiModel) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.state = stateList
		m.status = "Add cancelled."
		return m, nil
	case "enter":
		if m.field == fieldPriority {
			value := strings.TrimSpace(m.inputs[fieldPriority].Value())
			priority, err := strconv.Atoi(value)
			if err != nil {
				m.status = "Priority must be an integer."
				m.inputs[fieldPriority].SetValue("")
				return m, nil
			}
			t := task.Task{
				Name:        m.inputs[fieldName].Value(),
				Description: m.inputs[fieldDescription].Value(),
				Priority:    priority,
			}
			m.list.Add(t)
			m.history.Record(history.OpAdd, t.Name, 1, "")
			m.dirty = true
			m.state = stateList
			m.cursor = m.list.Len() - 1
			m.status = fmt.Sprintf("Added task %q.", t.Name)
			return m, nil
		}
		m.inputs[m.field].Blur()
		m.field++
		m.inputs[m.field].Focus()
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.field], cmd = m.inputs[m.field].Update(msg)
	return m, cmd
}

func (m *tuiModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Tasklist"))
	b.WriteString("\n\n")

	switch m.state {
	case stateHelp:
		writeHelp(&b)
	case stateAdd:
		m.writeAddForm(&b)
	default:
		m.writeList(&b)
	}

	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}
	for _, w := range m.warnings {
		b.WriteString(warnStyle.Render("warning: " + w))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(footerStyle.Render(m.footer()))
	b.WriteString("\n")
	return b.String()
}

func (m *tuiModel) writeList(b *strings.Builder) {
	if m.list.Len() == 0 {
		b.WriteString("  " + task.EmptyMessage + "\n\n")
		return
	}
	for i, t := range m.list.Tasks {
		line := fmt.Sprintf("(P%d) %s", t.Priority, t.Name)
		if t.Description != "" {
			line += ": " + t.Description
		}
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func (m *tuiModel) writeAddForm(b *strings.Builder) {
	labels := [fieldCount]string{"Name", "Description", "Priority"}
	for i := range m.inputs {
		marker := "  "
		if i == m.field {
			marker = "> "
		}
		fmt.Fprintf(b, "%s%s: %s\n", marker, labels[i], m.inputs[i].View())
	}
	b.WriteString("\n")
}

func writeHelp(b *strings.Builder) {
	b.WriteString("Keyboard Shortcuts\n\n")
	b.WriteString("  up/k, down/j  Move cursor\n")
	b.WriteString("  a             Add a task\n")
	b.WriteString("  d             Delete the selected task (all with that name)\n")
	b.WriteString("  s             Save to the task file\n")
	b.WriteString("  o             Sort by priority\n")
	b.WriteString("  r             Reload from the task file\n")
	b.WriteString("  ?, h          Toggle this help screen\n")
	b.WriteString("  q, ctrl+c     Quit\n\n")
	b.WriteString("Press any key to return.\n\n")
}

func (m *tuiModel) footer() string {
	dirty := ""
	if m.dirty {
		dirty = " | unsaved changes"
	}
	switch m.state {
	case stateAdd:
		return "enter to accept field | esc to cancel" + dirty
	default:
		return fmt.Sprintf("a add | d delete | s save | o sort | ? help | q quit%s | %d tasks", dirty, m.list.Len())
	}
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
