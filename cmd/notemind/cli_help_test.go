package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dotsetgreg/notemind/pkg/config"
	"github.com/dotsetgreg/notemind/pkg/memory"
	"github.com/spf13/cobra"
)

type helpCase struct {
	name string
	args []string
	want []string
}

func TestCLIHelp(t *testing.T) {
	t.Parallel()

	cases := []helpCase{
		{
			name: "root_help",
			args: []string{"--help"},
			want: []string{"notemind answers questions", "note", "chat", "history", "onboard", "status", "version"},
		},
		{
			name: "note_help",
			args: []string{"note", "--help"},
			want: []string{"note [transcript-file|-]", "--note", "--title", "--summary", "--tasks"},
		},
		{
			name: "chat_help",
			args: []string{"chat", "--help"},
			want: []string{"--message", "--note", `(default "default")`},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			output, err := runRootCommandForTest(tc.args...)
			if err != nil {
				t.Fatalf("execute command %v: %v\nOutput:\n%s", tc.args, err, output)
			}
			for _, want := range tc.want {
				if !strings.Contains(output, want) {
					t.Fatalf("%s output missing %q\n%s", tc.name, want, output)
				}
			}
		})
	}
}

func TestRootWithoutSubcommandFails(t *testing.T) {
	t.Parallel()
	if _, err := runRootCommandForTest(); err == nil {
		t.Fatalf("expected error when no subcommand is given")
	}
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()
	output, err := runRootCommandForTest("version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(output, "notemind dev") {
		t.Fatalf("unexpected version output: %q", output)
	}
}

func TestOnboardAndHistory(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	configPath := filepath.Join(home, ".notemind", "config.json")
	t.Setenv("NOTEMIND_CONFIG", configPath)

	output, err := runRootCommandForTest("onboard")
	if err != nil {
		t.Fatalf("onboard: %v\n%s", err, output)
	}
	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.WorkspacePath(), "NOTEMIND.md")); err != nil {
		t.Fatalf("bootstrap file not written: %v", err)
	}

	output, err = runRootCommandForTest("history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(output, "No notes yet.") {
		t.Fatalf("unexpected history output: %q", output)
	}

	store, err := memory.NewSQLiteStore(cfg.ArchivePath())
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	ctx := context.Background()
	if err := store.SetNoteTitle(ctx, "note:standup", "Launch Standup"); err != nil {
		t.Fatalf("SetNoteTitle: %v", err)
	}
	if err := store.ReplaceTasks(ctx, "note:standup", []memory.TaskItem{{Text: "Book the room"}}); err != nil {
		t.Fatalf("ReplaceTasks: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}

	output, err = runRootCommandForTest("history")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if !strings.Contains(output, "note:standup") || !strings.Contains(output, "Launch Standup") {
		t.Fatalf("history list missing note: %q", output)
	}

	output, err = runRootCommandForTest("history", "--note", "standup")
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	if !strings.Contains(output, "Title: Launch Standup") || !strings.Contains(output, "[ ] Book the room") {
		t.Fatalf("history show missing details: %q", output)
	}
}

func TestDocsGenerateAndCheck(t *testing.T) {
	t.Parallel()
	out := t.TempDir()
	rootFactory := func() *cobra.Command { return buildRootCommand(false) }

	if err := generateDocumentation(rootFactory, out, false); err != nil {
		t.Fatalf("generate docs: %v", err)
	}
	for _, rel := range []string{
		filepath.Join("reference", "cli", "notemind.md"),
		filepath.Join("reference", "config.md"),
		filepath.Join("reference", "providers.md"),
	} {
		if _, err := os.Stat(filepath.Join(out, rel)); err != nil {
			t.Fatalf("missing generated file %s: %v", rel, err)
		}
	}
	providersRef, err := os.ReadFile(filepath.Join(out, "reference", "providers.md"))
	if err != nil {
		t.Fatalf("read providers.md: %v", err)
	}
	if !bytes.Contains(providersRef, []byte("`anthropic`")) {
		t.Fatalf("providers reference missing anthropic")
	}
	configRef, err := os.ReadFile(filepath.Join(out, "reference", "config.md"))
	if err != nil {
		t.Fatalf("read config.md: %v", err)
	}
	if !bytes.Contains(configRef, []byte("`rag.primary_token_budget`")) || !bytes.Contains(configRef, []byte("NOTEMIND_RAG_PRIMARY_TOKEN_BUDGET")) {
		t.Fatalf("config reference missing rag fields")
	}

	if err := generateDocumentation(rootFactory, out, true); err != nil {
		t.Fatalf("check docs: %v", err)
	}
	if err := os.WriteFile(filepath.Join(out, "reference", "config.md"), []byte("stale"), 0o644); err != nil {
		t.Fatalf("write stale: %v", err)
	}
	if err := generateDocumentation(rootFactory, out, true); err == nil {
		t.Fatalf("expected check to fail on stale docs")
	}

	if err := generateDocumentation(rootFactory, out, false); err != nil {
		t.Fatalf("regenerate docs: %v", err)
	}
	orphan := filepath.Join(out, "reference", "cli", "notemind_removed.md")
	if err := os.WriteFile(orphan, []byte("# removed"), 0o644); err != nil {
		t.Fatalf("write orphan: %v", err)
	}
	if err := generateDocumentation(rootFactory, out, true); err == nil {
		t.Fatalf("expected check to fail on a page for a removed command")
	}
	if err := generateDocumentation(rootFactory, out, false); err != nil {
		t.Fatalf("regenerate docs: %v", err)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatalf("generate should remove pages for removed commands, stat err: %v", err)
	}
}

func runRootCommandForTest(args ...string) (string, error) {
	root := buildRootCommand(false)
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}
