package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func executeCLI() error {
	root := buildRootCommand(true)
	if err := root.Execute(); err != nil {
		return err
	}
	return nil
}

func buildRootCommand(includeDocsCommand bool) *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   "notemind",
		Short: "Voice note assistant with retrieval, rolling summaries, and task extraction",
		Long: strings.TrimSpace(`notemind answers questions about long voice-note transcripts.

It splits transcripts into chunks, retrieves the relevant ones for each request,
keeps a compact rolling summary, and recovers when the model context overflows.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion(cmd.OutOrStdout())
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")

	root.AddCommand(newOnboardCommand())
	root.AddCommand(newNoteCommand())
	root.AddCommand(newChatCommand())
	root.AddCommand(newHistoryCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newVersionCommand())

	if includeDocsCommand {
		docsCmd := newDocsCommand(func() *cobra.Command { return buildRootCommand(false) })
		root.AddCommand(docsCmd)
	}

	return root
}

func newOnboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "onboard",
		Short:   "Initialize ~/.notemind config and workspace",
		Long:    "Create the default configuration and a NOTEMIND.md instructions file for a new installation.",
		Example: "  notemind onboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return onboard(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func newNoteCommand() *cobra.Command {
	var opts noteOptions

	cmd := &cobra.Command{
		Use:   "note [transcript-file|-]",
		Short: "Ingest a transcript and produce its title, summary, and tasks",
		Long: strings.TrimSpace(`Add transcript text to a note, then refresh the summary, write a title,
and extract action items. Reads stdin when no file (or "-") is given.
Without --title, --summary or --tasks all three are produced.`),
		Example: strings.Join([]string{
			"  notemind note standup.txt --note standup",
			"  pbpaste | notemind note --note standup --tasks",
		}, "\n"),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runNote(cmd.OutOrStdout(), cmd.InOrStdin(), path, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.note, "note", "n", "", "Note name or key (default: new timestamped note)")
	cmd.Flags().BoolVar(&opts.title, "title", false, "Generate a title")
	cmd.Flags().BoolVar(&opts.summary, "summary", false, "Refresh the rolling summary")
	cmd.Flags().BoolVar(&opts.tasks, "tasks", false, "Extract action items")
	cmd.Flags().BoolVarP(&opts.debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func newChatCommand() *cobra.Command {
	var (
		note    string
		message string
		debug   bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ask questions about a note",
		Long:  "Run an interactive session against a note, or send one question with --message.",
		Example: strings.Join([]string{
			"  notemind chat --note standup",
			"  notemind chat --note standup --message \"who owns the launch?\"",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.OutOrStdout(), note, message, debug)
		},
	}

	cmd.Flags().StringVarP(&note, "note", "n", "default", "Note name or key")
	cmd.Flags().StringVarP(&message, "message", "m", "", "One-shot question")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func newHistoryCommand() *cobra.Command {
	var (
		note  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived notes or show one",
		Example: strings.Join([]string{
			"  notemind history",
			"  notemind history --note standup",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.OutOrStdout(), note, limit)
		},
	}

	cmd.Flags().StringVarP(&note, "note", "n", "", "Show a single note")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum notes or summary revisions to show")
	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show configuration, provider, and archive readiness",
		Example: "  notemind status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.OutOrStdout())
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show build/version metadata",
		Example: "  notemind version",
		RunE: func(cmd *cobra.Command, args []string) error {
			printVersion(cmd.OutOrStdout())
			return nil
		},
	}
}
