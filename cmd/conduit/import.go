package main

import (
	"fmt"
	"time"

	"github.com/TobiSchelling/conduit/internal/config"
	"github.com/TobiSchelling/conduit/internal/editor"
	"github.com/TobiSchelling/conduit/internal/importer"
	"github.com/TobiSchelling/conduit/internal/stubserver"
	"github.com/spf13/cobra"
)

var (
	importDryRun   bool
	importFullText bool
	importLimit    int
	importTags     []string
	importSince    string
)

var importCmd = &cobra.Command{
	Use:   "import [feed-url...]",
	Short: "Cross-post entries of RSS/Atom feeds as articles",
	Long:  "Without arguments the feeds listed under import.feeds in the config are read.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if !importDryRun {
			if err := a.requireLogin(); err != nil {
				return err
			}
		}

		feeds := cfg.Import.Feeds
		if len(args) > 0 {
			feeds = nil
			for _, u := range args {
				feeds = append(feeds, config.Feed{URL: u})
			}
		}
		if len(feeds) == 0 {
			return fmt.Errorf("no feeds given and none configured under import.feeds")
		}

		opts := importer.Options{
			Limit:    cfg.Import.Limit,
			FullText: cfg.Import.FullText || importFullText,
			DryRun:   importDryRun,
		}
		if cmd.Flags().Changed("limit") {
			opts.Limit = importLimit
		}
		if importSince != "" {
			since, err := time.Parse("2006-01-02", importSince)
			if err != nil {
				return fmt.Errorf("invalid --since %q (want YYYY-MM-DD): %w", importSince, err)
			}
			opts.Since = since
		}

		im := importer.New(editor.New(a.client, a.sess), cfg.API.Timeout)
		var total importer.Result
		for _, f := range feeds {
			feedOpts := opts
			feedOpts.Tags = append(append(append([]string{}, cfg.Import.Tags...), f.Tags...), importTags...)

			fmt.Printf("Importing %s\n", f.URL)
			r, err := im.Import(cmd.Context(), f.URL, feedOpts)
			if err != nil {
				fmt.Printf("  Error: %v\n", err)
				continue
			}
			for _, d := range r.Drafts {
				fmt.Printf("  would publish %q [%v]\n", d.Title, d.TagList)
			}
			for _, art := range r.Articles {
				fmt.Printf("  published %s\n", art.Slug)
			}
			total.Found += r.Found
			total.Published += r.Published
			total.Skipped += r.Skipped
			total.Failed += r.Failed
		}

		fmt.Println("\nImport complete:")
		fmt.Printf("  Entries found: %d\n", total.Found)
		fmt.Printf("  Published: %d\n", total.Published)
		fmt.Printf("  Skipped: %d\n", total.Skipped)
		fmt.Printf("  Failed: %d\n", total.Failed)
		return nil
	},
}

var stubPort int

var stubServerCmd = &cobra.Command{
	Use:   "stub-server",
	Short: "Run an in-memory Conduit service for local development",
	RunE: func(cmd *cobra.Command, args []string) error {
		port := cfg.StubServer.Port
		if cmd.Flags().Changed("port") {
			port = stubPort
		}
		return stubserver.Serve(port, verbose || cfg.Logging.Debug())
	},
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Show what would be published without publishing")
	importCmd.Flags().BoolVar(&importFullText, "full-text", false, "Fetch the linked page and use its readable text as body")
	importCmd.Flags().IntVar(&importLimit, "limit", 20, "Maximum entries per feed")
	importCmd.Flags().StringSliceVar(&importTags, "tag", nil, "Extra tags for every imported article")
	importCmd.Flags().StringVar(&importSince, "since", "", "Skip entries published before this date (YYYY-MM-DD)")

	stubServerCmd.Flags().IntVarP(&stubPort, "port", "p", 3000, "Port to listen on")
}
