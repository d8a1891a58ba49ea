// Package cmd provides tests for CLI command handlers.
package cmd

import (
	"context"
	"os"
	"strings"
	"testing"
)

// isolate keeps config discovery and history output inside temp dirs.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("TASKLIST_HISTORY", "false")
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("shows help with --help flag", func(t *testing.T) {
		isolate(t)
		if err := Run(ctx, []string{"--help"}); err != nil {
			t.Errorf("expected no error with --help, got %v", err)
		}
	})

	t.Run("shows help with help command", func(t *testing.T) {
		isolate(t)
		if err := Run(ctx, []string{"help"}); err != nil {
			t.Errorf("expected no error with help command, got %v", err)
		}
	})

	t.Run("shows version with --version flag", func(t *testing.T) {
		isolate(t)
		if err := Run(ctx, []string{"--version"}); err != nil {
			t.Errorf("expected no error with --version, got %v", err)
		}
	})

	t.Run("shows version with version command", func(t *testing.T) {
		isolate(t)
		if err := Run(ctx, []string{"version"}); err != nil {
			t.Errorf("expected no error with version command, got %v", err)
		}
	})

	t.Run("unknown command returns error", func(t *testing.T) {
		isolate(t)
		err := Run(ctx, []string{"frobnicate"})
		if err == nil {
			t.Fatal("expected an error for an unknown command")
		}
		if !strings.Contains(err.Error(), "unknown command") {
			t.Errorf("error: got %v", err)
		}
	})
}

func TestLsCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file warns and prints nothing fatal", func(t *testing.T) {
		isolate(t)
		if err := Run(ctx, []string{"ls"}); err != nil {
			t.Errorf("ls on a missing file should not error, got %v", err)
		}
	})

	t.Run("lists an existing file", func(t *testing.T) {
		isolate(t)
		if err := os.WriteFile("tasks.csv", []byte("A,d1,2\nB,d2,1"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := Run(ctx, []string{"ls"}); err != nil {
			t.Errorf("ls failed: %v", err)
		}
		if err := Run(ctx, []string{"ls", "-sort", "-dump"}); err != nil {
			t.Errorf("ls -sort -dump failed: %v", err)
		}
	})

	t.Run("explicit file argument", func(t *testing.T) {
		isolate(t)
		if err := os.WriteFile("other.csv", []byte("A,d,1"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := Run(ctx, []string{"ls", "other.csv"}); err != nil {
			t.Errorf("ls with file argument failed: %v", err)
		}
	})
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	isolate(t)

	if err := os.WriteFile("tasks.csv", []byte("A,d1,2\nB,d2,1"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Run(ctx, []string{"export", "-o", "snap.json"}); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	data, err := os.ReadFile("snap.json")
	if err != nil {
		t.Fatalf("reading snapshot: %v", err)
	}
	if !strings.Contains(string(data), `"schema_version": 1`) {
		t.Errorf("snapshot missing envelope:\n%s", data)
	}

	// Wipe the task file and restore it from the snapshot.
	if err := os.Remove("tasks.csv"); err != nil {
		t.Fatal(err)
	}
	if err := Run(ctx, []string{"import", "snap.json"}); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	restored, err := os.ReadFile("tasks.csv")
	if err != nil {
		t.Fatalf("reading restored file: %v", err)
	}
	if string(restored) != "A,d1,2\nB,d2,1" {
		t.Errorf("restored contents: got %q", restored)
	}
}

func TestImportMerge(t *testing.T) {
	ctx := context.Background()
	isolate(t)

	if err := os.WriteFile("tasks.csv", []byte("A,d1,2"), 0644); err != nil {
		t.Fatal(err)
	}
	snapshot := `{"schema_version": 1, "tasks": [{"name": "B", "description": "d2", "priority": 1}]}`
	if err := os.WriteFile("snap.json", []byte(snapshot), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Run(ctx, []string{"import", "-merge", "snap.json"}); err != nil {
		t.Fatalf("import -merge failed: %v", err)
	}

	data, err := os.ReadFile("tasks.csv")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "A,d1,2\nB,d2,1" {
		t.Errorf("merged contents: got %q", data)
	}
}

func TestImportErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing argument", func(t *testing.T) {
		isolate(t)
		if err := Run(ctx, []string{"import"}); err == nil {
			t.Error("expected a usage error")
		}
	})

	t.Run("unknown extension", func(t *testing.T) {
		isolate(t)
		if err := os.WriteFile("snap.txt", []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := Run(ctx, []string{"import", "snap.txt"}); err == nil {
			t.Error("expected a format inference error")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		isolate(t)
		if err := Run(ctx, []string{"import", "nope.json"}); err == nil {
			t.Error("expected a read error")
		}
	})
}

func TestExportFormats(t *testing.T) {
	ctx := context.Background()
	isolate(t)

	if err := os.WriteFile("tasks.csv", []byte("A,d1,2"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, out := range []string{"snap.yaml", "snap.csv", "snap.pdf"} {
		if err := Run(ctx, []string{"export", "-o", out}); err != nil {
			t.Errorf("export to %s failed: %v", out, err)
		}
		if _, err := os.Stat(out); err != nil {
			t.Errorf("export did not create %s: %v", out, err)
		}
	}

	if err := Run(ctx, []string{"export", "-format", "xml"}); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestDoctorCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh directory passes with warnings", func(t *testing.T) {
		isolate(t)
		if err := Run(ctx, []string{"doctor"}); err != nil {
			t.Errorf("doctor failed: %v", err)
		}
	})

	t.Run("task file that is a directory fails", func(t *testing.T) {
		isolate(t)
		if err := os.Mkdir("tasks.csv", 0755); err != nil {
			t.Fatal(err)
		}
		if err := Run(ctx, []string{"doctor"}); err == nil {
			t.Error("expected doctor to fail")
		}
	})
}

func TestHistoryCommand(t *testing.T) {
	ctx := context.Background()
	isolate(t)

	// No sessions yet: reports nothing to show, no error.
	if err := Run(ctx, []string{"history"}); err != nil {
		t.Errorf("history with no logs failed: %v", err)
	}
}
