// Package cli wires configuration, storage and the AI backend into the
// audio-interviewer commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

type rootOptions struct {
	debug      bool
	configPath string
	envFiles   []string
}

// NewRootCommand builds the command tree. Running it without a subcommand serves HTTP.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "audio-interviewer",
		Short: "Voice interview session engine",
		Long: `audio-interviewer runs spoken job interviews.

It generates questions from a job description, stores recorded answers,
and scores finished interviews through an AI evaluation service.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "config/interview.yaml", "Interview policy YAML file")
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env", []string{".env"}, "Dotenv files to load before reading the environment")

	serve := newServeCommand(opts)
	cmd.RunE = serve.RunE

	cmd.AddCommand(serve)
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newReportsCommand(opts))

	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
