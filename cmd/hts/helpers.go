package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Veraticus/hts-derivatives/internal/app"
	"github.com/Veraticus/hts-derivatives/internal/cli"
	"github.com/Veraticus/hts-derivatives/internal/common"
	"github.com/Veraticus/hts-derivatives/internal/config"
	"github.com/Veraticus/hts-derivatives/internal/llm"
	"github.com/Veraticus/hts-derivatives/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// session is the state a command works with. Close releases the store.
type session struct {
	ctrl     *app.Controller
	store    *storage.SQLiteStorage
	settings *config.Settings
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		slog.Error("failed to close storage", "error", err)
	}
}

// initStorage opens the database and runs migrations.
func initStorage(ctx context.Context, dbPath string) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// openSession loads settings, opens the store and builds the controller.
// A missing API key is not an error here; searches report it instead.
func openSession(cmd *cobra.Command) (*session, error) {
	ctx := cmd.Context()

	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	store, err := initStorage(ctx, settings.DatabasePath)
	if err != nil {
		return nil, err
	}

	registry, err := llm.NewRegistry(ctx, settings.LLM, slog.Default())
	if err != nil {
		if !errors.Is(err, common.ErrMissingConfig) {
			_ = store.Close()
			return nil, err
		}
		slog.Debug("No LLM provider configured", "error", err)
		registry = nil
	}

	ctrl, err := app.NewController(ctx, app.Options{
		Store:    store,
		Registry: registry,
		Logger:   slog.Default(),
		Passcode: settings.Passcode,
		Provider: settings.Provider,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	if name, _ := cmd.Flags().GetString("provider"); name != "" {
		if err := ctrl.SwitchProvider(ctx, name); err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	return &session{ctrl: ctrl, store: store, settings: settings}, nil
}

// addPasscodeFlag registers --passcode on commands that change shared data.
func addPasscodeFlag(cmd *cobra.Command) {
	cmd.Flags().String("passcode", "", "admin passcode (prompted for on a terminal when omitted)")
}

// login unlocks admin mode from --passcode, or by prompting on a terminal.
func login(cmd *cobra.Command, ctrl *app.Controller) error {
	passcode, _ := cmd.Flags().GetString("passcode")
	if passcode == "" && cli.IsStdinTTY() {
		var err error
		passcode, err = cli.NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()).Passcode(cmd.Context())
		if err != nil {
			return err
		}
	}
	if passcode == "" {
		return fmt.Errorf("%w: pass --passcode", common.ErrAdminRequired)
	}
	return ctrl.Login(passcode)
}

// markdown returns a renderer for terminal output, or nil when stdout is not
// a terminal.
func markdown(ctrl *app.Controller) *cli.MarkdownRenderer {
	if !cli.IsStdoutTTY() {
		return nil
	}
	return cli.NewMarkdownRenderer(ctrl.Snapshot().Theme == app.ThemeDark, 100)
}

// readInput returns the contents of path, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(config.ExpandPath(path)) //nolint:gosec // path is chosen by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func printOut(cmd *cobra.Command, s string) {
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(s, "\n"))
}
