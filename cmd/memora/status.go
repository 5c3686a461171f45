package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/memoraapp/memora/internal/migration"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which migrations are possible and how much local data exists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reporter, err := invoke[*migration.StatusReporter]("status reporter")
		if err != nil {
			return err
		}

		st := reporter.Status(cmd.Context())
		if flagJSON {
			return printJSON(st)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "can migrate to standalone\t%t\n", st.CanMigrateToStandalone)
		fmt.Fprintf(w, "can migrate to normal\t%t\n", st.CanMigrateToNormal)
		fmt.Fprintf(w, "local collections\t%d\n", st.LocalData.Collections)
		fmt.Fprintf(w, "local posts\t%d\n", st.LocalData.Posts)
		fmt.Fprintf(w, "local documents\t%d\n", st.LocalData.Documents)
		return w.Flush()
	},
}
