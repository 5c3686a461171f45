package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/memoraapp/memora/internal/config"
	"github.com/memoraapp/memora/internal/di"
	apperr "github.com/memoraapp/memora/internal/errors"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// Global state shared by the subcommands.
var (
	v        = config.New()
	injector *do.RootScope

	flagJSON bool
)

var rootCmd = &cobra.Command{
	Use:     "memora",
	Short:   "Memora moves note content between normal and standalone mode",
	Version: version,
	Long: `Memora keeps a user's notes either on a remote server (normal mode) or
in local SQLite and document stores (standalone mode). The CLI migrates
content between the two, reports migration status and serves the
normal-mode API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		injector = di.NewContainer(v)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return shutdown()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("data-dir", "", "data directory (default ~/.memora)")
	flags.String("env", "", "environment: development, staging or production")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-format", "", "log format: pretty or json")
	flags.String("user-id", "", "acting user id for local content")
	flags.String("remote-url", "", "base URL of the normal-mode server")
	flags.String("remote-user-id", "", "user id sent to the normal-mode server (default --user-id)")
	flags.BoolVar(&flagJSON, "json", false, "output as JSON")

	bindFlags(v, map[string]string{
		config.KeyDataDir:       "data-dir",
		config.KeyEnv:           "env",
		config.KeyLogLevel:      "log-level",
		config.KeyLogFormat:     "log-format",
		config.KeyUserID:        "user-id",
		config.KeyRemoteBaseURL: "remote-url",
		config.KeyRemoteUserID:  "remote-user-id",
	})

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(modeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(kbCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(snapshotCmd)
}

// bindFlags binds config keys to root persistent flags so a flag set on the
// command line wins over env, file and default values.
func bindFlags(v *viper.Viper, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

// shutdown closes every service the command touched. The container handles
// shutdown order.
func shutdown() error {
	if injector == nil {
		return nil
	}
	if err := injector.Shutdown(); err != nil {
		fmt.Fprintln(os.Stderr, "Shutdown error:", err)
	}
	injector = nil
	return nil
}

// exitCode maps validation and mode errors to the user error exit code.
func exitCode(err error) int {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperr.CodeValidation, apperr.CodeModeMismatch, apperr.CodeNotFound, apperr.CodeAlreadyExists:
			return exitUserError
		}
	}
	return exitSysError
}
