package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/omnisearch/internal/config"
	"github.com/kailas-cloud/omnisearch/internal/version"
)

type rootOptions struct {
	env        string
	jsonOutput bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "omnisearch",
		Short: "Hybrid semantic and keyword search over platform content",
		Long: `Omnisearch indexes users, files, streams and posts into a vector-capable
document store and serves hybrid semantic/keyword search, query suggestions
and search analytics over HTTP.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.env, "env", config.GetEnv(), "Config environment (config/<env>.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.jsonOutput, "json", "j", false, "Output as JSON")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newIndexCmd(opts),
		newReindexCmd(opts),
		newStatsCmd(opts),
		newVersionCmd(opts),
	)
	return rootCmd
}

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return printJSON(out, map[string]string{
					"version": version.Version,
					"commit":  version.Commit,
					"date":    version.Date,
				})
			}
			_, err := fmt.Fprintf(out, "omnisearch %s\n", version.String())
			return err
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
