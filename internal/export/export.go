// Package export converts task list snapshots to and from interchange
// formats. Unlike the task file itself, these forms escape field values
// properly and may carry the creation timestamp.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	yaml "gopkg.in/yaml.v3"

	"tasklist/internal/task"
)

// SchemaVersion is the current document version for JSON/YAML exports.
const SchemaVersion = 1

// Document is the versioned envelope for JSON and YAML snapshots.
type Document struct {
	SchemaVersion int      `json:"schema_version" yaml:"schema_version"`
	ExportedAt    string   `json:"exported_at,omitempty" yaml:"exported_at,omitempty"`
	Tasks         []Record `json:"tasks" yaml:"tasks"`
}

// Record is one task in a snapshot.
type Record struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Priority    int    `json:"priority" yaml:"priority"`
	CreatedAt   string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// Export serializes tasks in the requested format: json, yaml, csv, or
// pdf.
func Export(tasks []task.Task, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json":
		return json.MarshalIndent(newDocument(tasks), "", "  ")
	case "yaml":
		return yaml.Marshal(newDocument(tasks))
	case "csv":
		return exportCSV(tasks)
	case "pdf":
		return exportPDF(tasks)
	default:
		return nil, fmt.Errorf("unknown format %q (expected json|yaml|csv|pdf)", format)
	}
}

// Import parses a json or yaml snapshot back into tasks. JSON input is
// validated against the schema at schemaPath when that file exists; a
// missing schema file downgrades validation to a plain parse.
func Import(data []byte, format, schemaPath string) ([]task.Task, error) {
	var doc Document
	switch strings.ToLower(format) {
	case "json":
		if schemaPath != "" {
			if err := ValidateJSON(data, schemaPath); err != nil {
				return nil, err
			}
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse json snapshot: %w", err)
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse yaml snapshot: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format %q (expected json|yaml)", format)
	}

	if doc.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("unsupported schema_version %d (expected %d)", doc.SchemaVersion, SchemaVersion)
	}

	tasks := make([]task.Task, 0, len(doc.Tasks))
	for _, r := range doc.Tasks {
		t := task.Task{
			Name:        r.Name,
			Description: r.Description,
			Priority:    r.Priority,
		}
		if r.CreatedAt != "" {
			if parsed, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
				t.CreatedAt = parsed
			}
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// FormatForPath guesses the snapshot format from a file extension.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	case ".csv":
		return "csv"
	case ".pdf":
		return "pdf"
	default:
		return ""
	}
}

func newDocument(tasks []task.Task) Document {
	doc := Document{
		SchemaVersion: SchemaVersion,
		ExportedAt:    time.Now().UTC().Format(time.RFC3339),
		Tasks:         make([]Record, 0, len(tasks)),
	}
	for _, t := range tasks {
		r := Record{
			Name:        t.Name,
			Description: t.Description,
			Priority:    t.Priority,
		}
		if !t.CreatedAt.IsZero() {
			r.CreatedAt = t.CreatedAt.UTC().Format(time.RFC3339)
		}
		doc.Tasks = append(doc.Tasks, r)
	}
	return doc
}

func exportCSV(tasks []task.Task) ([]byte, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write([]string{"name", "description", "priority", "created_at"}); err != nil {
		return nil, err
	}
	for _, t := range tasks {
		created := ""
		if !t.CreatedAt.IsZero() {
			created = t.CreatedAt.UTC().Format(time.RFC3339)
		}
		if err := w.Write([]string{t.Name, t.Description, strconv.Itoa(t.Priority), created}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func exportPDF(tasks []task.Task) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, "Task List")
	pdf.Ln(12)
	pdf.SetFont("Arial", "", 10)
	if len(tasks) == 0 {
		pdf.MultiCell(0, 6, task.EmptyMessage, "0", "L", false)
	}
	for _, t := range tasks {
		line := fmt.Sprintf("(P%d) %s - %s", t.Priority, t.Name, t.Description)
		pdf.MultiCell(0, 6, line, "0", "L", false)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ValidateJSON checks a JSON snapshot against the schema at schemaPath.
// A missing schema file is not an error; schema errors are flattened to
// one line per failing location.
func ValidateJSON(data []byte, schemaPath string) error {
	absPath, err := filepath.Abs(schemaPath)
	if err != nil {
		return fmt.Errorf("invalid schema path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read schema file: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	schema, err := compiler.Compile(absPath)
	if err != nil {
		return fmt.Errorf("invalid schema file: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse json snapshot: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("snapshot does not match schema:\n%s", flattenSchemaError(err))
	}
	return nil
}

func flattenSchemaError(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	var lines []string
	collectSchemaErrors(&lines, ve)
	return strings.Join(lines, "\n")
}

func collectSchemaErrors(lines *[]string, err *jsonschema.ValidationError) {
	if err == nil {
		return
	}
	if len(err.Causes) == 0 {
		loc := err.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*lines = append(*lines, fmt.Sprintf("  %s: %s", loc, err.Message))
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(lines, cause)
	}
}
