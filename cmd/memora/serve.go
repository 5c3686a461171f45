package main

import (
	"fmt"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/memoraapp/memora/internal/config"
	"github.com/memoraapp/memora/internal/di"
	"github.com/memoraapp/memora/internal/logger"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the normal-mode HTTP server",
	Long: `Serve runs the normal-mode API on top of the local stores until
interrupted. Standalone clients migrate to normal mode against it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := di.Bootstrap(injector); err != nil {
			return fmt.Errorf("bootstrap server: %w", err)
		}

		log := do.MustInvoke[*logger.Logger](injector)
		<-cmd.Context().Done()
		log.Info("Shutting down server gracefully...")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (default 8080)")
	if err := v.BindPFlag(config.KeyServerPort, serveCmd.Flags().Lookup("port")); err != nil {
		panic(err)
	}
}
