package export

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tasklist/internal/task"
)

func sample() []task.Task {
	return []task.Task{
		{Name: "A", Description: "d1", Priority: 2, CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		{Name: "B", Description: "with, comma", Priority: 1},
	}
}

func TestExportJSONRoundTrip(t *testing.T) {
	data, err := Export(sample(), "json")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if doc.SchemaVersion != SchemaVersion {
		t.Errorf("schema_version: got %d, want %d", doc.SchemaVersion, SchemaVersion)
	}

	tasks, err := Import(data, "json", "")
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("imported: got %d tasks, want 2", len(tasks))
	}
	if tasks[0].Name != "A" || tasks[0].Priority != 2 {
		t.Errorf("task 0: got %+v", tasks[0])
	}
	if !tasks[0].CreatedAt.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("task 0 CreatedAt: got %v", tasks[0].CreatedAt)
	}
	if tasks[1].Description != "with, comma" {
		t.Errorf("task 1 description: got %q", tasks[1].Description)
	}
}

func TestExportYAMLRoundTrip(t *testing.T) {
	data, err := Export(sample(), "yaml")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !strings.Contains(string(data), "schema_version: 1") {
		t.Errorf("yaml missing schema_version:\n%s", data)
	}

	tasks, err := Import(data, "yaml", "")
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(tasks) != 2 || tasks[1].Name != "B" {
		t.Errorf("imported: got %+v", tasks)
	}
}

func TestExportCSVQuotesCommas(t *testing.T) {
	data, err := Export(sample(), "csv")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines: got %d, want 3 (header + 2 rows)", len(lines))
	}
	if lines[0] != "name,description,priority,created_at" {
		t.Errorf("header: got %q", lines[0])
	}
	if !strings.Contains(lines[2], `"with, comma"`) {
		t.Errorf("embedded comma should be quoted: %q", lines[2])
	}
}

func TestExportPDF(t *testing.T) {
	data, err := Export(sample(), "pdf")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("pdf output missing magic header: %q", data[:min(8, len(data))])
	}
}

func TestExportUnknownFormat(t *testing.T) {
	if _, err := Export(nil, "xml"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestImportUnknownFormat(t *testing.T) {
	if _, err := Import([]byte("{}"), "csv", ""); err == nil {
		t.Error("csv import is not supported and should error")
	}
}

func TestImportWrongSchemaVersion(t *testing.T) {
	data := []byte(`{"schema_version": 99, "tasks": []}`)
	if _, err := Import(data, "json", ""); err == nil {
		t.Error("expected an error for an unsupported schema_version")
	}
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	schemaPath := filepath.Join("..", "..", "tasks.schema.json")

	t.Run("valid snapshot passes", func(t *testing.T) {
		data, err := Export(sample(), "json")
		if err != nil {
			t.Fatal(err)
		}
		if err := ValidateJSON(data, schemaPath); err != nil {
			t.Errorf("valid snapshot rejected: %v", err)
		}
	})

	t.Run("bad priority type fails", func(t *testing.T) {
		data := []byte(`{"schema_version": 1, "tasks": [{"name": "A", "priority": "high"}]}`)
		err := ValidateJSON(data, schemaPath)
		if err == nil {
			t.Fatal("expected a schema violation")
		}
		if !strings.Contains(err.Error(), "does not match schema") {
			t.Errorf("error: got %v", err)
		}
	})

	t.Run("missing schema file is not an error", func(t *testing.T) {
		if err := ValidateJSON([]byte(`{}`), filepath.Join(t.TempDir(), "nope.json")); err != nil {
			t.Errorf("missing schema should downgrade to a plain parse: %v", err)
		}
	})
}

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"tasks.json", "json"},
		{"tasks.yaml", "yaml"},
		{"tasks.yml", "yaml"},
		{"tasks.csv", "csv"},
		{"report.PDF", "pdf"},
		{"tasks.txt", ""},
		{"tasks", ""},
	}
	for _, tt := range tests {
		if got := FormatForPath(tt.path); got != tt.want {
			t.Errorf("FormatForPath(%q): got %q, want %q", tt.path, got, tt.want)
		}
	}
}
