// cmd/root.go
//
// Root command for the wordlink CLI.
// Responsibilities:
//   - Load configuration (.env + environment) before any subcommand runs.
//   - Apply the persistent --embeddings and --log-level overrides.
//   - Set the zerolog global level and register "serve" and "play".

// Package cmd implements the wordlink command line: an HTTP server ("serve")
// and a terminal client ("play") over the same engine.
package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/wordlink/internal/config"
)

var (
	cfg config.Config

	embeddingsFlag string
	logLevelFlag   string

	rootCmd = &cobra.Command{
		Use:   "wordlink",
		Short: "Turn-based word association games against a word-vector opponent",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = config.Load()
			if embeddingsFlag != "" {
				cfg.EmbeddingsFile = embeddingsFlag
			}
			if logLevelFlag != "" {
				lvl, err := zerolog.ParseLevel(logLevelFlag)
				if err != nil {
					return err
				}
				cfg.LogLevel = lvl
			}
			zerolog.SetGlobalLevel(cfg.LogLevel)
			return nil
		},
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&embeddingsFlag, "embeddings", "", "word2vec text file (overrides EMBEDDINGS_FILE)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "zerolog level (overrides LOG_LEVEL)")
	rootCmd.AddCommand(serveCmd, playCmd)
}

// consoleLogger switches the global logger to human-readable stderr output.
func consoleLogger() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
