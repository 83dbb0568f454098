package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/quoteline/beacon"
	"github.com/quoteline/beacon/internal/cli/output"
	"github.com/quoteline/beacon/pkg/catalogs"
)

// NewLoadCommand creates the load command.
func (a *App) NewLoadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "load <catalog-id>...",
		Short: "Load verified catalog documents",
		Long: `Load returns the named catalog documents using the cache-first policy:
a fresh cached copy is served without network I/O, otherwise the
document is fetched and verified. When the source is unreachable the
last verified copy is served and marked stale.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.Client()
			if err != nil {
				return err
			}

			format := output.DetectFormat(a.config.Format)
			formatter := output.NewFormatter(format)

			if len(args) == 1 {
				res, err := client.Load(cmd.Context(), catalogs.ID(args[0]))
				if err != nil {
					return err
				}
				if res.Stale {
					fmt.Fprintln(os.Stderr, "warning: serving stale copy; the source is unreachable")
				}
				return formatter.Format(os.Stdout, documentOutput(res))
			}

			ids := make([]catalogs.ID, len(args))
			for i, arg := range args {
				ids[i] = catalogs.ID(arg)
			}
			results := client.LoadAll(cmd.Context(), ids, a.config.Concurrency)

			if format == output.FormatTable {
				return formatter.Format(os.Stdout, loadResultsTable(ids, results))
			}
			return formatter.Format(os.Stdout, loadResultsList(ids, results))
		},
	}
}

// NewRefreshCommand creates the refresh command.
func (a *App) NewRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh [catalog-id]...",
		Short: "Fetch and verify catalogs, bypassing the cache",
		Long: `Refresh fetches and verifies the named catalogs even when a fresh
cached copy exists. With no arguments every catalog listed in the
remote index is refreshed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.Client()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var ids []catalogs.ID
			if len(args) > 0 {
				for _, arg := range args {
					ids = append(ids, catalogs.ID(arg))
				}
			} else {
				idx, err := client.Index(ctx)
				if err != nil {
					return err
				}
				ids = idx.IDs()
			}

			data := output.Data{Headers: []string{"catalog_id", "status", "detail"}}
			var failed int
			for _, id := range ids {
				res, err := client.Refresh(ctx, id)
				switch {
				case err != nil:
					failed++
					data.Rows = append(data.Rows, []string{string(id), "failed", err.Error()})
				case res.Stale:
					data.Rows = append(data.Rows, []string{string(id), "stale", "source unreachable; serving cached copy"})
				default:
					data.Rows = append(data.Rows, []string{string(id), "refreshed", res.Document.Name})
				}
			}

			formatter := output.NewFormatter(output.DetectFormat(a.config.Format))
			if err := formatter.Format(os.Stdout, data); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d catalogs failed to refresh", failed, len(ids))
			}
			return nil
		},
	}
}

// NewListCommand creates the list command.
func (a *App) NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalogs available from the source",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.Client()
			if err != nil {
				return err
			}

			idx, err := client.Index(cmd.Context())
			if err != nil {
				return err
			}

			format := output.DetectFormat(a.config.Format)
			formatter := output.NewFormatter(format)
			if format != output.FormatTable {
				return formatter.Format(os.Stdout, idx)
			}

			data := output.Data{Headers: []string{"catalog_id", "name", "updated_at"}}
			for _, entry := range idx.Entries {
				data.Rows = append(data.Rows, []string{
					string(entry.ID),
					entry.Name,
					entry.UpdatedAt.Format(time.RFC3339),
				})
			}
			return formatter.Format(os.Stdout, data)
		},
	}
}

// NewStatsCommand creates the stats command.
func (a *App) NewStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.Client()
			if err != nil {
				return err
			}

			stats, err := client.Stats()
			if err != nil {
				return err
			}

			format := output.DetectFormat(a.config.Format)
			formatter := output.NewFormatter(format)
			if format != output.FormatTable {
				return formatter.Format(os.Stdout, stats)
			}

			data := output.Data{
				Headers: []string{"metric", "value"},
				Rows: [][]string{
					{"cached entries", strconv.Itoa(stats.Store.Entries)},
					{"cache size", strconv.FormatInt(stats.Store.TotalBytes, 10) + " bytes"},
					{"corrupt records", strconv.Itoa(stats.Store.CorruptRecords)},
					{"loads", strconv.FormatUint(stats.Loads, 10)},
					{"cache hits", strconv.FormatUint(stats.CacheHits, 10)},
					{"fetches", strconv.FormatUint(stats.Fetches, 10)},
					{"verification failures", strconv.FormatUint(stats.VerificationFailures, 10)},
					{"stale fallbacks", strconv.FormatUint(stats.StaleFallbacks, 10)},
				},
			}
			if !stats.Store.OldestFetch.IsZero() {
				data.Rows = append(data.Rows,
					[]string{"oldest fetch", stats.Store.OldestFetch.Format(time.RFC3339)},
					[]string{"newest fetch", stats.Store.NewestFetch.Format(time.RFC3339)},
				)
			}
			return formatter.Format(os.Stdout, data)
		},
	}
}

// NewCleanupCommand creates the cleanup command.
func (a *App) NewCleanupCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired entries from the local cache",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.Client()
			if err != nil {
				return err
			}

			if dryRun {
				expired, err := client.ListExpired()
				if err != nil {
					return err
				}
				if len(expired) == 0 {
					fmt.Println("no expired entries")
					return nil
				}
				for _, id := range expired {
					fmt.Println(id)
				}
				return nil
			}

			removed, err := client.CleanupExpired()
			if err != nil {
				return err
			}
			fmt.Printf("removed %d expired entries\n", removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list expired entries without removing them")
	return cmd
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Printf("beacon %s\n", a.version)
			fmt.Printf("  commit:   %s\n", a.commit)
			fmt.Printf("  built:    %s\n", a.date)
			fmt.Printf("  built by: %s\n", a.builtBy)
			return nil
		},
	}
}

// documentOutput flattens a load result for display.
func documentOutput(res *beacon.Result) any {
	return struct {
		Document  *catalogs.Document `json:"document" yaml:"document"`
		FetchedAt time.Time          `json:"fetched_at" yaml:"fetched_at"`
		Stale     bool               `json:"stale" yaml:"stale"`
		Source    beacon.Source      `json:"source" yaml:"source"`
	}{res.Document, res.FetchedAt, res.Stale, res.Source}
}

// loadResultsTable renders a LoadAll outcome as rows in input order.
func loadResultsTable(ids []catalogs.ID, results map[catalogs.ID]beacon.LoadResult) output.Data {
	data := output.Data{Headers: []string{"catalog_id", "name", "kind", "source", "status"}}
	for _, id := range ids {
		res := results[id]
		if res.Err != nil {
			data.Rows = append(data.Rows, []string{string(id), "", "", "", res.Err.Error()})
			continue
		}
		status := "ok"
		if res.Result.Stale {
			status = "stale"
		}
		data.Rows = append(data.Rows, []string{
			string(id),
			res.Result.Document.Name,
			res.Result.Document.Provider.Kind,
			string(res.Result.Source),
			status,
		})
	}
	return data
}

// loadResultsList renders a LoadAll outcome for structured formats.
func loadResultsList(ids []catalogs.ID, results map[catalogs.ID]beacon.LoadResult) any {
	type item struct {
		CatalogID string             `json:"catalog_id" yaml:"catalog_id"`
		Document  *catalogs.Document `json:"document,omitempty" yaml:"document,omitempty"`
		Stale     bool               `json:"stale,omitempty" yaml:"stale,omitempty"`
		Source    beacon.Source      `json:"source,omitempty" yaml:"source,omitempty"`
		Error     string             `json:"error,omitempty" yaml:"error,omitempty"`
	}

	items := make([]item, 0, len(ids))
	for _, id := range ids {
		res := results[id]
		it := item{CatalogID: string(id)}
		if res.Err != nil {
			it.Error = res.Err.Error()
		} else {
			it.Document = res.Result.Document
			it.Stale = res.Result.Stale
			it.Source = res.Result.Source
		}
		items = append(items, it)
	}
	return items
}
