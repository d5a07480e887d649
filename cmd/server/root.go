package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/ahmetk3436/chatforge/internal/config"
	"github.com/ahmetk3436/chatforge/internal/database"
	"github.com/ahmetk3436/chatforge/internal/handlers"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:          "chatforge",
		Short:        "Chatbot creation wizard API",
		Long:         `chatforge serves the chatbot creation wizard, the chatbot lifecycle endpoints and per-account usage.`,
		SilenceUsage: true,
		// No subcommand means serve.
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Printf("chatforge\n")
				fmt.Printf("  Version:    %s\n", handlers.Version)
				fmt.Printf("  Go version: %s\n", runtime.Version())
				fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
				return nil
			}
			return runServer()
		},
	}
	root.Flags().BoolVar(&showVersion, "version", false, "Print version information")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	})

	return root
}

func setupLogger(cfg *config.Config) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
}

func runMigrate() error {
	cfg := config.Load()
	setupLogger(cfg)

	if err := database.Connect(cfg); err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	slog.Info("Migrations applied")
	return nil
}
