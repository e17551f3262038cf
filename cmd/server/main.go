package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/edunexus/server/internal/app"
	"github.com/edunexus/server/internal/auth"
	"github.com/edunexus/server/internal/config"
	"github.com/edunexus/server/internal/log"
	"github.com/edunexus/server/internal/store"
	"github.com/edunexus/server/internal/store/sqlite"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "edunexus-server",
		Short:         "EduNexus course platform server",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newCreateUserCmd(&configPath))

	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	var (
		addr   string
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			bootLogger := log.New("info")
			cfg, resolvedPath, err := config.Load(bootLogger, *configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if dbPath != "" {
				cfg.DatabasePath = dbPath
			}

			logger := log.New(cfg.LogLevel)
			logger.Info().Str("config", resolvedPath).Str("addr", cfg.Addr).Msg("starting edunexus server")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}

			if err := application.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("server exited with error")
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")

	return cmd
}

func newCreateUserCmd(configPath *string) *cobra.Command {
	var (
		name     string
		email    string
		password string
		role     string
	)

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user account directly in the database",
		Long:  "Create a user account directly in the database. Unlike the registration endpoint, this command may create admin accounts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			bootLogger := log.New("info")
			cfg, _, err := config.Load(bootLogger, *configPath)
			if err != nil {
				return err
			}

			userRole := store.Role(strings.ToLower(role))
			if !userRole.Valid() {
				return fmt.Errorf("invalid role %q", role)
			}
			email = strings.ToLower(strings.TrimSpace(email))
			if name == "" || email == "" {
				return fmt.Errorf("name and email are required")
			}
			if len(password) < 6 {
				return fmt.Errorf("password must be at least 6 characters")
			}

			st, err := sqlite.New(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			hash, err := auth.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}

			user, err := st.CreateUser(context.Background(), name, email, hash, userRole)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}

			fmt.Printf("created %s user %q (id=%d)\n", user.Role, user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (at least 6 characters)")
	cmd.Flags().StringVar(&role, "role", "admin", "account role: student, instructor or admin")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")

	return cmd
}
