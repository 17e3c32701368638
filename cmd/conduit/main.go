package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/TobiSchelling/conduit/internal/api"
	"github.com/TobiSchelling/conduit/internal/config"
	"github.com/TobiSchelling/conduit/internal/database"
	"github.com/TobiSchelling/conduit/internal/session"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "conduit",
	Short:   "Command-line client for Conduit",
	Long:    "conduit reads and writes articles, comments and profiles on a Conduit content service.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(articleCmd)
	rootCmd.AddCommand(editorCmd)
	rootCmd.AddCommand(commentsCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(stubServerCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("conduit", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/conduit/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to point api.base_url at your Conduit service.")
		return nil
	},
}

// app bundles the gateway, the credential store and the session every
// command works through.
type app struct {
	db     *database.DB
	client *api.Client
	sess   *session.Manager
}

func openDB() (*database.DB, error) {
	db, err := database.Open(cfg.DBPath(), cfg.API.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// openApp wires the gateway to the session and restores any stored login.
func openApp(ctx context.Context) (*app, error) {
	db, err := openDB()
	if err != nil {
		return nil, err
	}

	client := api.New(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithAuthScheme(cfg.API.AuthScheme),
		api.WithRateLimit(cfg.API.RateLimit.RPS, cfg.API.RateLimit.Burst),
		api.WithDebug(verbose || cfg.Logging.Debug()),
		api.WithUserAgent("conduit/"+version),
	)
	sess := session.New(client, db)
	client.SetTokenSource(sess.Token)
	client.OnAuthError(sess.HandleAuthError)

	// Transport failures are already logged by the session; carry on
	// anonymously.
	if err := sess.Rehydrate(ctx); api.IsAuth(err) {
		fmt.Fprintln(os.Stderr, "Stored login was rejected; run 'conduit login' again.")
	}
	return &app{db: db, client: client, sess: sess}, nil
}

func (a *app) Close() {
	a.db.Close()
}

// requireLogin fails early for commands that only make sense with a session.
func (a *app) requireLogin() error {
	if !a.sess.IsAuthenticated() {
		return fmt.Errorf("not logged in; run 'conduit login' first")
	}
	return nil
}

// describe turns a gateway error into something fit for the terminal.
func describe(err error) error {
	if msgs := api.Messages(err); len(msgs) > 0 && (api.IsValidation(err) || api.IsAuth(err)) {
		return errors.New(strings.Join(msgs, "; "))
	}
	if api.IsNotFound(err) {
		return fmt.Errorf("not found")
	}
	return err
}
