package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	domdoc "github.com/kailas-cloud/omnisearch/internal/domain/document"
	"github.com/kailas-cloud/omnisearch/internal/domain/indexing"
	indexeruc "github.com/kailas-cloud/omnisearch/internal/usecase/indexer"
)

const closeTimeout = 5 * time.Second

const targetAll = "all"

// indexTargets maps index command arguments onto content types.
var indexTargets = map[string]domdoc.ContentType{
	"users":   domdoc.TypeUser,
	"files":   domdoc.TypeFile,
	"streams": domdoc.TypeStream,
	"posts":   domdoc.TypePost,
}

func newIndexCmd(opts *rootOptions) *cobra.Command {
	var recreate bool

	cmd := &cobra.Command{
		Use:       "index [all|users|files|streams|posts]",
		Short:     "Index content from the source database",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{targetAll, "users", "files", "streams", "posts"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := targetAll
			if len(args) == 1 {
				target = args[0]
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, opts.env)
			if err != nil {
				return err
			}
			defer a.closeWithTimeout()

			if recreate {
				if err := a.docs.RecreateIndex(ctx); err != nil {
					return fmt.Errorf("recreate index: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			if target == targetAll {
				report := a.indexer.IndexAll(ctx)
				if err := writeReport(out, report, opts.jsonOutput); err != nil {
					return err
				}
				if len(report.Errors) > 0 {
					return fmt.Errorf("indexing finished with errors in %d content types", len(report.Errors))
				}
				return nil
			}

			tr, err := a.indexer.IndexByType(ctx, indexTargets[target])
			if err != nil {
				return fmt.Errorf("index %s: %w", target, err)
			}
			return writeTypeReport(out, tr, opts.jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&recreate, "recreate", false, "Drop and rebuild the search index first (documents are kept)")
	return cmd
}

func newReindexCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex-embeddings",
		Short: "Embed stored documents that have no embedding",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts.env)
			if err != nil {
				return err
			}
			defer a.closeWithTimeout()

			n, err := a.indexer.ReindexEmbeddings(cmd.Context())
			if err != nil {
				return fmt.Errorf("reindex embeddings: %w", err)
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return printJSON(out, map[string]int{"updated": n})
			}
			_, err = fmt.Fprintf(out, "Embedded %s documents\n", humanize.Comma(int64(n)))
			return err
		},
	}
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show document store statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts.env)
			if err != nil {
				return err
			}
			defer a.closeWithTimeout()

			st, err := a.indexer.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			return writeStats(cmd.OutOrStdout(), st, a.indexer.ProviderAvailable(), opts.jsonOutput)
		},
	}
}

func (a *app) closeWithTimeout() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	a.Close(ctx)
}

func writeReport(w io.Writer, r indexing.Report, asJSON bool) error {
	if asJSON {
		counts := make(map[string]int, len(r.Counts))
		for ct, n := range r.Counts {
			counts[string(ct)] = n
		}
		errs := make(map[string][]string, len(r.Errors))
		for ct, list := range r.Errors {
			errs[string(ct)] = errorStrings(list)
		}
		return printJSON(w, map[string]any{"counts": counts, "total": r.Total, "errors": errs})
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, ct := range indexeruc.SourceTypes {
		fmt.Fprintf(tw, "%s\t%s\n", ct, humanize.Comma(int64(r.Counts[ct])))
	}
	fmt.Fprintf(tw, "total\t%s\n", humanize.Comma(int64(r.Total)))
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	for _, ct := range indexeruc.SourceTypes {
		for _, err := range r.Errors[ct] {
			fmt.Fprintf(w, "error: %v\n", err)
		}
	}
	return nil
}

func writeTypeReport(w io.Writer, tr indexing.TypeReport, asJSON bool) error {
	if asJSON {
		return printJSON(w, map[string]any{
			"contentType": tr.ContentType,
			"indexed":     tr.Indexed,
			"embedded":    tr.Embedded,
			"errors":      errorStrings(tr.Errors),
		})
	}
	fmt.Fprintf(w, "Indexed %s %s documents (%s embedded)\n",
		humanize.Comma(int64(tr.Indexed)), tr.ContentType, humanize.Comma(int64(tr.Embedded)))
	for _, err := range tr.Errors {
		fmt.Fprintf(w, "error: %v\n", err)
	}
	return nil
}

func writeStats(w io.Writer, st indexing.Stats, providerAvailable, asJSON bool) error {
	if asJSON {
		counts := make(map[string]int, len(st.CountsByContentType))
		for ct, n := range st.CountsByContentType {
			counts[string(ct)] = n
		}
		return printJSON(w, map[string]any{
			"totalDocuments":          st.TotalDocuments,
			"documentsWithEmbeddings": st.DocumentsWithEmbeddings,
			"countsByContentType":     counts,
			"recentlyIndexedCount":    st.RecentlyIndexedCount,
			"providerAvailable":       providerAvailable,
		})
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "documents\t%s\n", humanize.Comma(int64(st.TotalDocuments)))
	fmt.Fprintf(tw, "with embeddings\t%s\n", humanize.Comma(int64(st.DocumentsWithEmbeddings)))
	for _, ct := range domdoc.ContentTypes() {
		fmt.Fprintf(tw, "  %s\t%s\n", ct, humanize.Comma(int64(st.CountsByContentType[ct])))
	}
	fmt.Fprintf(tw, "indexed last 24h\t%s\n", humanize.Comma(int64(st.RecentlyIndexedCount)))
	fmt.Fprintf(tw, "provider available\t%t\n", providerAvailable)
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	return nil
}

func errorStrings(errs []error) []string {
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}
