// Package cmd implements the CLI command structure for tasklist.
package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"tasklist/internal/config"
	"tasklist/internal/export"
	"tasklist/internal/history"
	"tasklist/internal/menu"
	"tasklist/internal/task"
	"tasklist/internal/taskfile"
	"tasklist/internal/ui"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Run executes the tasklist CLI.
func Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tasklist", flag.ContinueOnError)
	fs.Usage = func() {
		printUsage(fs, os.Stderr)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	cfg, err := config.Load(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *help {
		printUsage(fs, os.Stdout)
		return nil
	}
	if *showVersion {
		return versionCommand()
	}

	// Determine the subcommand; no args means the interactive menu.
	subcommand := "run"
	remainingArgs := fs.Args()
	if len(remainingArgs) > 0 && !strings.HasPrefix(remainingArgs[0], "-") {
		subcommand = remainingArgs[0]
		remainingArgs = remainingArgs[1:]
	}

	switch subcommand {
	case "run":
		return runCommand(ctx, cfg, remainingArgs)
	case "tui":
		return tuiCommand(ctx, cfg, remainingArgs)
	case "ls":
		return lsCommand(cfg, remainingArgs)
	case "export":
		return exportCommand(cfg, remainingArgs)
	case "import":
		return importCommand(cfg, remainingArgs)
	case "history":
		return historyCommand(cfg, remainingArgs)
	case "doctor":
		return doctorCommand(cfg, remainingArgs)
	case "version", "--version", "-v":
		return versionCommand()
	case "help", "--help", "-h":
		printUsage(fs, os.Stdout)
		return nil
	default:
		// An existing file path is shorthand for `run <file>`.
		if fi, err := os.Stat(subcommand); err == nil && !fi.IsDir() {
			cfg.TaskFile = subcommand
			return runCommand(ctx, cfg, remainingArgs)
		}
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", subcommand)
		printUsage(fs, os.Stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

// openHistory opens the session history logger, or returns nil when
// history is disabled or cannot be opened. History is advisory, so an
// open failure only warns.
func openHistory(cfg *config.Config) *history.Logger {
	if !cfg.History {
		return nil
	}
	logger, err := history.NewLogger(cfg.LogDir, cfg.WorkDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: history disabled: %v\n", err)
		return nil
	}
	return logger
}

// runCommand loads the task file and runs the interactive menu on stdin.
func runCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("tasklist run", flag.ContinueOnError)
	uiMode := fs.String("ui", "", "UI mode (tui for the full-screen interface)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	remaining := fs.Args()
	if len(remaining) > 1 {
		return fmt.Errorf("unexpected arguments: %v", remaining[1:])
	}
	if len(remaining) == 1 {
		cfg.TaskFile = remaining[0]
	}

	logger := openHistory(cfg)
	defer logger.Close()

	if *uiMode == "tui" {
		return ui.RunTUI(ctx, cfg, ui.WithHistory(logger))
	}

	list, warnings := taskfile.Load(cfg.TaskFile)
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	logger.Record(history.OpLoad, "", list.Len(), cfg.TaskFile)

	driver := menu.New(list, cfg.TaskFile, menu.ScanLines(os.Stdin), os.Stdout, menu.WithHistory(logger))
	return driver.Run()
}

// tuiCommand launches the full-screen interface.
func tuiCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("tasklist tui", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	remaining := fs.Args()
	if len(remaining) > 1 {
		return fmt.Errorf("unexpected arguments: %v", remaining[1:])
	}
	if len(remaining) == 1 {
		cfg.TaskFile = remaining[0]
	}

	logger := openHistory(cfg)
	defer logger.Close()

	return ui.RunTUI(ctx, cfg, ui.WithHistory(logger))
}

// lsCommand prints the task file without entering the menu.
func lsCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("tasklist ls", flag.ContinueOnError)
	sorted := fs.Bool("sort", false, "Sort by priority before printing")
	dump := fs.Bool("dump", false, "Print the compact debug form")
	if err := fs.Parse(args); err != nil {
		return err
	}

	remaining := fs.Args()
	if len(remaining) > 1 {
		return fmt.Errorf("unexpected arguments: %v", remaining[1:])
	}
	if len(remaining) == 1 {
		cfg.TaskFile = remaining[0]
	}

	list, warnings := taskfile.Load(cfg.TaskFile)
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if *sorted {
		list.SortByPriority()
	}
	if *dump {
		fmt.Print(list.Dump())
	} else {
		fmt.Print(list.Readable())
	}
	return nil
}

// exportCommand writes a snapshot of the task file in an interchange
// format.
func exportCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("tasklist export", flag.ContinueOnError)
	format := fs.String("format", "", "Output format (json|yaml|csv|pdf); inferred from -o when empty")
	out := fs.String("o", "", "Output file (stdout when empty)")
	sorted := fs.Bool("sort", false, "Sort by priority before exporting")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	f := *format
	if f == "" && *out != "" {
		f = export.FormatForPath(*out)
	}
	if f == "" {
		f = "json"
	}

	list, warnings := taskfile.Load(cfg.TaskFile)
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if *sorted {
		list.SortByPriority()
	}

	data, err := export.Export(list.Tasks, f)
	if err != nil {
		return err
	}

	if *out == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(*out, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", *out, err)
	}
	fmt.Printf("Exported %d tasks to %s.\n", list.Len(), *out)
	return nil
}

// importCommand replaces (or merges into) the task file from a
// snapshot.
func importCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("tasklist import", flag.ContinueOnError)
	format := fs.String("format", "", "Input format (json|yaml); inferred from the file name when empty")
	merge := fs.Bool("merge", false, "Append imported tasks instead of replacing the list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	remaining := fs.Args()
	if len(remaining) != 1 {
		return fmt.Errorf("usage: tasklist import [-format json|yaml] [-merge] <file>")
	}
	path := remaining[0]

	f := *format
	if f == "" {
		f = export.FormatForPath(path)
	}
	if f == "" {
		return fmt.Errorf("cannot infer format of %s; pass -format", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	imported, err := export.Import(data, f, cfg.SchemaFile)
	if err != nil {
		return err
	}

	list := task.New()
	if *merge {
		existing, warnings := taskfile.Load(cfg.TaskFile)
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		list = existing
	}
	for _, t := range imported {
		list.Add(t)
	}

	if err := taskfile.Save(cfg.TaskFile, list.Tasks); err != nil {
		return fmt.Errorf("saving tasks: %w", err)
	}
	fmt.Printf("Imported %d tasks into %s (%d total).\n", len(imported), cfg.TaskFile, list.Len())
	return nil
}

// historyCommand tails the latest session history log.
func historyCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("tasklist history", flag.ContinueOnError)
	follow := fs.Bool("f", false, "Follow the log (like tail -f)")
	fs.BoolVar(follow, "follow", false, "Follow the log (like tail -f)")
	n := fs.Int("n", 0, "Number of lines to show (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logDir, err := history.FindLogDir(cfg.LogDir, cfg.WorkDir)
	if err != nil {
		return fmt.Errorf("finding history directory: %w", err)
	}

	logPath, err := history.FindLatestLog(logDir)
	if err != nil {
		return fmt.Errorf("finding latest history log: %w", err)
	}
	if logPath == "" {
		fmt.Println("No history found.")
		return nil
	}

	fmt.Printf("History: %s\n", logPath)
	if *follow {
		fmt.Println("(Ctrl+C to stop)")
	}
	fmt.Println()

	return history.Tail(os.Stdout, logPath, *n, *follow)
}

// doctorCommand checks config, the task file, the schema file, and the
// history directory.
func doctorCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("tasklist doctor", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "Verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Println("Tasklist Doctor")
	fmt.Println("===============")
	fmt.Println()

	allOK := true

	fmt.Printf("Working directory: %s\n", cfg.WorkDir)
	fmt.Println("  ✅ OK")
	fmt.Println()

	fmt.Printf("Task file: %s\n", cfg.TaskFile)
	info, err := os.Stat(cfg.TaskFile)
	switch {
	case os.IsNotExist(err):
		fmt.Println("  ⚠️  Not found (starts empty, created on save)")
	case err != nil:
		fmt.Printf("  ❌ Error: %v\n", err)
		allOK = false
	case info.IsDir():
		fmt.Println("  ❌ Error: path is a directory")
		allOK = false
	default:
		list, warnings := taskfile.Load(cfg.TaskFile)
		for _, w := range warnings {
			fmt.Printf("  ⚠️  %s\n", w)
		}
		fmt.Printf("  ✅ OK (%d tasks)\n", list.Len())
		if *verbose {
			for _, t := range list.Tasks {
				fmt.Printf("    - (P%d) %s\n", t.Priority, t.Name)
			}
		}
	}
	fmt.Println()

	fmt.Printf("Schema file: %s\n", cfg.SchemaFile)
	if data, err := os.ReadFile(cfg.SchemaFile); err != nil {
		if os.IsNotExist(err) {
			fmt.Println("  ⚠️  Not found (JSON imports load unvalidated)")
		} else {
			fmt.Printf("  ❌ Error: %v\n", err)
			allOK = false
		}
	} else {
		var parsed any
		if err := json.Unmarshal(data, &parsed); err != nil {
			fmt.Printf("  ❌ Invalid JSON: %v\n", err)
			allOK = false
		} else {
			fmt.Println("  ✅ OK")
		}
	}
	fmt.Println()

	fmt.Printf("History directory: %s\n", cfg.LogDir)
	if !cfg.History {
		fmt.Println("  ⚠️  History disabled")
	} else if _, err := os.Stat(cfg.LogDir); err != nil {
		if os.IsNotExist(err) {
			fmt.Println("  ⚠️  Not found (created on first run)")
		} else {
			fmt.Printf("  ❌ Error: %v\n", err)
			allOK = false
		}
	} else {
		fmt.Println("  ✅ OK")
	}
	fmt.Println()

	if allOK {
		fmt.Println("✅ All checks passed!")
		return nil
	}
	fmt.Println("⚠️  Some checks failed. Tasklist may not function correctly.")
	return fmt.Errorf("doctor checks failed")
}

// versionCommand prints version information.
func versionCommand() error {
	fmt.Printf("tasklist version %s\n", Version)
	return nil
}

// printUsage prints the usage message.
func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "Tasklist - An interactive task list manager")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  tasklist [command] [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run [file]     Run the interactive menu (default command)")
	fmt.Fprintln(w, "  tui [file]     Launch the full-screen terminal UI")
	fmt.Fprintln(w, "  ls [file]      Print the task list")
	fmt.Fprintln(w, "  export         Export a snapshot (json|yaml|csv|pdf)")
	fmt.Fprintln(w, "  import <file>  Import a json or yaml snapshot")
	fmt.Fprintln(w, "  history        Show the latest mutation history log")
	fmt.Fprintln(w, "  doctor         Check config, task file, and schema file")
	fmt.Fprintln(w, "  version        Show version information")
	fmt.Fprintln(w, "  help           Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Export Options (use with 'export'):")
	fmt.Fprintln(w, "  -format string")
	fmt.Fprintln(w, "        Output format (json|yaml|csv|pdf); inferred from -o when empty")
	fmt.Fprintln(w, "  -o string")
	fmt.Fprintln(w, "        Output file (stdout when empty)")
	fmt.Fprintln(w, "  -sort")
	fmt.Fprintln(w, "        Sort by priority before exporting")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Import Options (use with 'import'):")
	fmt.Fprintln(w, "  -format string")
	fmt.Fprintln(w, "        Input format (json|yaml); inferred from the file name when empty")
	fmt.Fprintln(w, "  -merge")
	fmt.Fprintln(w, "        Append imported tasks instead of replacing the list")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "History Options (use with 'history'):")
	fmt.Fprintln(w, "  -f, --follow")
	fmt.Fprintln(w, "        Follow the log (like tail -f)")
	fmt.Fprintln(w, "  -n int")
	fmt.Fprintln(w, "        Number of lines to show (0 = all)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Ls Options (use with 'ls'):")
	fmt.Fprintln(w, "  -sort")
	fmt.Fprintln(w, "        Sort by priority before printing")
	fmt.Fprintln(w, "  -dump")
	fmt.Fprintln(w, "        Print the compact debug form")
}
