package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memoraapp/memora/internal/di/providers"
	"github.com/memoraapp/memora/internal/domain"
	apperr "github.com/memoraapp/memora/internal/errors"
)

var modeCmd = &cobra.Command{
	Use:   "mode",
	Short: "Show or change the application mode",
}

var modeGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current mode",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		modes, err := invoke[*providers.ModeHandle]("mode provider")
		if err != nil {
			return err
		}
		m, err := modes.Current(cmd.Context())
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(map[string]domain.Mode{"mode": m})
		}
		fmt.Println(m)
		return nil
	},
}

var modeSetCmd = &cobra.Command{
	Use:   "set <normal|standalone>",
	Short: "Change the current mode",
	Long: `Set writes the mode file. Running processes that watch the file pick
up the change without restarting.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := domain.ParseMode(args[0])
		if err != nil {
			return apperr.Validation(err.Error())
		}
		modes, err := invoke[*providers.ModeHandle]("mode provider")
		if err != nil {
			return err
		}
		if err := modes.Set(cmd.Context(), m); err != nil {
			return fmt.Errorf("set mode: %w", err)
		}
		fmt.Printf("Mode set to %s (%s)\n", m, modes.Path())
		return nil
	},
}

func init() {
	modeCmd.AddCommand(modeGetCmd)
	modeCmd.AddCommand(modeSetCmd)
}
