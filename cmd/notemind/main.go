// NoteMind - retrieval-augmented voice note assistant
// License: MIT
//
// Copyright (c) 2026 NoteMind contributors

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/dotsetgreg/notemind/pkg/agent"
	"github.com/dotsetgreg/notemind/pkg/config"
	"github.com/dotsetgreg/notemind/pkg/logger"
	"github.com/dotsetgreg/notemind/pkg/memory"
	"github.com/dotsetgreg/notemind/pkg/providers"
)

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

const appName = "notemind"

const bootstrapTemplate = `# NOTEMIND.md

Standing instructions added to every notemind session.

- Answer in the language the note was recorded in.
- Prefer short bullets over paragraphs.
`

// formatVersion returns the version string with optional git commit
func formatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

func formatBuildInfo() (build string, goVer string) {
	if buildTime != "" {
		build = buildTime
	}
	goVer = goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	return
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "%s %s\n", appName, formatVersion())
	build, goVer := formatBuildInfo()
	if build != "" {
		fmt.Fprintf(w, "  Build: %s\n", build)
	}
	if goVer != "" {
		fmt.Fprintf(w, "  Go: %s\n", goVer)
	}
}

func main() {
	if err := executeCLI(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func getConfigPath() string {
	if p := strings.TrimSpace(os.Getenv("NOTEMIND_CONFIG")); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".notemind", "config.json")
}

func loadConfig() (*config.Config, error) {
	return config.LoadConfig(getConfigPath())
}

func setupLogging(cfg *config.Config, debug bool) {
	level := logger.ParseLevel(cfg.Agent.LogLevel)
	if debug {
		level = logger.DEBUG
	}
	logger.SetLevel(level)
	logger.SetJSON(cfg.Agent.LogJSON)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func openArchive(cfg *config.Config) (memory.Archive, error) {
	if !cfg.Archive.Enabled {
		return nil, nil
	}
	path := cfg.ArchivePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	store, err := memory.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// openController wires config, provider and archive into a controller for noteKey.
func openController(ctx context.Context, cfg *config.Config, noteKey string) (*agent.Controller, error) {
	if err := providers.ValidateProviderConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration error: %w (edit %s)", err, getConfigPath())
	}
	factory, err := providers.CreateSessionFactory(cfg)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	archive, err := openArchive(cfg)
	if err != nil {
		return nil, err
	}
	controller, err := agent.NewController(ctx, factory, agent.OptionsFromConfig(cfg, noteKey, archive))
	if err != nil {
		if archive != nil {
			_ = archive.Close()
		}
		return nil, err
	}
	return controller, nil
}

func onboard(in io.Reader, out io.Writer) error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintf(out, "Config already exists at %s\n", configPath)
		fmt.Fprint(out, "Overwrite? (y/n): ")
		response, readErr := bufio.NewReader(in).ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("read input: %w", readErr)
		}
		response = strings.ToLower(strings.TrimSpace(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	if err := config.SaveConfig(configPath, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	workspace := cfg.WorkspacePath()
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	bootstrap := filepath.Join(workspace, "NOTEMIND.md")
	if _, err := os.Stat(bootstrap); os.IsNotExist(err) {
		if err := os.WriteFile(bootstrap, []byte(bootstrapTemplate), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", bootstrap, err)
		}
	}

	fmt.Fprintf(out, "%s is ready!\n", appName)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Add your API key to", configPath)
	fmt.Fprintln(out, "     Get one at: https://openrouter.ai/keys")
	fmt.Fprintln(out, "  2. Ingest a transcript: notemind note transcript.txt --note standup")
	fmt.Fprintln(out, "  3. Ask about it: notemind chat --note standup")
	return nil
}

func readTranscript(path string, stdin io.Reader) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	return string(data), nil
}

type noteOptions struct {
	note    string
	title   bool
	summary bool
	tasks   bool
	debug   bool
}

func runNote(out io.Writer, stdin io.Reader, path string, opts noteOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupLogging(cfg, opts.debug)

	text, err := readTranscript(path, stdin)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	noteKey := agent.ResolveNoteKey(opts.note, time.Now())
	controller, err := openController(ctx, cfg, noteKey)
	if err != nil {
		return err
	}
	defer controller.Close()

	chunks, err := controller.AddTranscript(ctx, text)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Note: %s (%d new chunks)\n", noteKey, len(chunks))

	all := !opts.title && !opts.summary && !opts.tasks
	if all || opts.summary {
		summary, err := controller.Summarize(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nSummary:\n%s\n", summary)
	}
	if all || opts.title {
		title, err := controller.GenerateTitle(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nTitle: %s\n", title)
	}
	if all || opts.tasks {
		items, err := controller.ExtractTasks(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "\nTasks:")
		if len(items) == 0 {
			fmt.Fprintln(out, "  (none)")
		}
		for _, item := range items {
			fmt.Fprintf(out, "  [ ] %s\n", item)
		}
	}
	return nil
}

func runChat(out io.Writer, noteName, message string, debug bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupLogging(cfg, debug)

	ctx, cancel := signalContext()
	defer cancel()

	noteKey := agent.ResolveNoteKey(noteName, time.Now())
	controller, err := openController(ctx, cfg, noteKey)
	if err != nil {
		return err
	}
	defer controller.Close()

	if strings.TrimSpace(message) != "" {
		answer, err := controller.Chat(ctx, message)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%s %s\n", appName, answer)
		return nil
	}

	fmt.Fprintf(out, "%s Interactive mode on %s (Ctrl+C to exit)\n\n", appName, noteKey)
	interactiveMode(ctx, out, controller)
	return nil
}

func interactiveMode(ctx context.Context, out io.Writer, controller *agent.Controller) {
	prompt := fmt.Sprintf("%s You: ", appName)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     filepath.Join(os.TempDir(), ".notemind_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(out, "Error initializing readline: %v\n", err)
		fmt.Fprintln(out, "Falling back to simple input mode...")
		simpleInteractiveMode(ctx, out, os.Stdin, controller)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}
		if !handleChatLine(ctx, out, controller, line) {
			return
		}
	}
}

func simpleInteractiveMode(ctx context.Context, out io.Writer, in io.Reader, controller *agent.Controller) {
	reader := bufio.NewReader(in)
	for {
		fmt.Fprintf(out, "%s You: ", appName)
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}
		if !handleChatLine(ctx, out, controller, line) {
			return
		}
	}
}

// handleChatLine runs one REPL line and reports whether to keep reading.
func handleChatLine(ctx context.Context, out io.Writer, controller *agent.Controller, line string) bool {
	input := strings.TrimSpace(line)
	switch input {
	case "":
		return true
	case "exit", "quit":
		fmt.Fprintln(out, "Goodbye!")
		return false
	case "/summary":
		fmt.Fprintf(out, "\n%s\n\n", valueOr(controller.Summary(), "(no summary yet)"))
		return true
	}

	answer, err := controller.Chat(ctx, input)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return ctx.Err() == nil
	}
	fmt.Fprintf(out, "\n%s %s\n\n", appName, answer)
	return true
}

func runHistory(out io.Writer, noteName string, limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupLogging(cfg, false)

	archive, err := openArchive(cfg)
	if err != nil {
		return err
	}
	if archive == nil {
		return fmt.Errorf("archive is disabled (archive.enabled=false)")
	}
	defer archive.Close()

	ctx := context.Background()
	if strings.TrimSpace(noteName) == "" {
		notes, err := archive.ListNotes(ctx, limit)
		if err != nil {
			return err
		}
		if len(notes) == 0 {
			fmt.Fprintln(out, "No notes yet.")
			return nil
		}
		for _, n := range notes {
			updated := time.UnixMilli(n.UpdatedAtMS).Format("2006-01-02 15:04")
			fmt.Fprintf(out, "%s  %-32s %s\n", updated, n.Key, valueOr(n.Title, "(untitled)"))
		}
		return nil
	}

	key := agent.ResolveNoteKey(noteName, time.Now())
	note, err := archive.GetNote(ctx, key)
	if err != nil {
		if errors.Is(err, memory.ErrNoteNotFound) {
			return fmt.Errorf("no note named %s", key)
		}
		return err
	}
	fmt.Fprintf(out, "%s\nTitle: %s\n", note.Key, valueOr(note.Title, "(untitled)"))

	summaries, err := archive.ListSummaries(ctx, key, limit)
	if err != nil {
		return err
	}
	if len(summaries) > 0 {
		latest := summaries[len(summaries)-1]
		fmt.Fprintf(out, "\nSummary (%d revisions, latest %s):\n%s\n", len(summaries), latest.CreatedAt.Format(time.RFC3339), latest.Text)
	}

	tasks, err := archive.ListTasks(ctx, key)
	if err != nil {
		return err
	}
	if len(tasks) > 0 {
		fmt.Fprintln(out, "\nTasks:")
		for _, t := range tasks {
			mark := " "
			if t.Done {
				mark = "x"
			}
			fmt.Fprintf(out, "  [%s] %s\n", mark, t.Text)
		}
	}
	return nil
}

func runStatus(out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	configPath := getConfigPath()

	fmt.Fprintf(out, "%s Status\n", appName)
	fmt.Fprintf(out, "Version: %s\n\n", formatVersion())

	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintln(out, "Config:", configPath, "✓")
	} else {
		fmt.Fprintln(out, "Config:", configPath, "✗")
	}
	workspace := cfg.WorkspacePath()
	if _, err := os.Stat(workspace); err == nil {
		fmt.Fprintln(out, "Workspace:", workspace, "✓")
	} else {
		fmt.Fprintln(out, "Workspace:", workspace, "✗")
	}

	provider, configured, mode, err := providers.ProviderCredentialStatus(cfg)
	switch {
	case err != nil:
		fmt.Fprintf(out, "Provider: %s ✗ (%v)\n", providers.ActiveProviderName(cfg), err)
	case configured:
		fmt.Fprintf(out, "Provider: %s ✓ (%s)\n", provider, valueOr(mode, "configured"))
	default:
		fmt.Fprintf(out, "Provider: %s ✗ (not configured)\n", provider)
	}
	fmt.Fprintf(out, "Model: %s\n", valueOr(cfg.Agent.Model, "(provider default)"))

	if cfg.Archive.Enabled {
		fmt.Fprintln(out, "Archive:", cfg.ArchivePath())
	} else {
		fmt.Fprintln(out, "Archive: disabled")
	}
	fmt.Fprintf(out, "Retrieval: %d tokens / %d chunks (fallback %d / %d)\n",
		cfg.RAG.PrimaryTokenBudget, cfg.RAG.PrimaryMaxChunks, cfg.RAG.FallbackTokenBudget, cfg.RAG.FallbackMaxChunks)
	return nil
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
