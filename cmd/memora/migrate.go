package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/memoraapp/memora/internal/config"
	"github.com/memoraapp/memora/internal/domain"
	apperr "github.com/memoraapp/memora/internal/errors"
	"github.com/memoraapp/memora/internal/migration"
)

var (
	migrateDirection         string
	migrateIncludeCollection bool
	migrateIncludePrivate    bool
	migrateIncludeKB         bool
	migrateAll               bool
	migrateCredentials       string
	migrateFromArchive       string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate content between normal and standalone mode",
	Long: `Migrate exports the user's content from one side and imports it into
the other. Per-record failures are reported but do not fail the run.

Example:
  memora migrate --direction to-standalone --all
  memora migrate --direction to-normal --collections --private-posts
  memora migrate --direction to-standalone --from-archive backup.zip --json`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	f := migrateCmd.Flags()
	f.StringVar(&migrateDirection, "direction", "", "to-standalone or to-normal (required)")
	f.BoolVar(&migrateIncludeCollection, "collections", false, "import collections and collection details")
	f.BoolVar(&migrateIncludePrivate, "private-posts", false, "import private posts")
	f.BoolVar(&migrateIncludeKB, "knowledge-base", false, "import knowledge-base documents")
	f.BoolVar(&migrateAll, "all", false, "shorthand for --collections --private-posts --knowledge-base")
	f.StringVar(&migrateCredentials, "credentials", "", "policy for users without a credential: reject, force-reset or placeholder")
	f.StringVar(&migrateFromArchive, "from-archive", "", "read the source snapshot from an archive instead of the remote server")
	_ = migrateCmd.MarkFlagRequired("direction")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	dir, err := domain.ParseDirection(migrateDirection)
	if err != nil {
		return apperr.Validation(err.Error())
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := migrationOptions(cfg)
	if err != nil {
		return err
	}

	engine, err := invoke[*migration.Engine]("migration engine")
	if err != nil {
		return err
	}

	var res *migration.Result
	if migrateFromArchive != "" {
		if dir != domain.ToStandalone {
			return apperr.Validation("--from-archive only applies to --direction to-standalone")
		}
		res = engine.MigrateFrom(cmd.Context(), dir, migration.Archive{Path: migrateFromArchive}, opts)
	} else {
		res = engine.Migrate(cmd.Context(), dir, opts)
	}

	if flagJSON {
		if err := printJSON(res); err != nil {
			return err
		}
	} else {
		printResult(res)
	}

	if !res.Success {
		return fmt.Errorf("migration %s failed: %s", dir, strings.Join(res.Errors, "; "))
	}
	return nil
}

// migrationOptions builds engine options from flags, falling back to the
// configured credential policy.
func migrationOptions(cfg *config.Config) (migration.Options, error) {
	policyName := migrateCredentials
	if policyName == "" {
		policyName = cfg.Migration.MissingCredentials
	}
	policy, err := migration.ParseCredentialPolicy(policyName)
	if err != nil {
		return migration.Options{}, err
	}

	opts := migration.Options{
		IncludeCollections:   migrateAll || migrateIncludeCollection,
		IncludePrivatePosts:  migrateAll || migrateIncludePrivate,
		IncludeKnowledgeBase: migrateAll || migrateIncludeKB,
		Credentials:          policy,
		Placeholder:          cfg.Migration.PlaceholderSecret,
	}
	return opts, opts.Validate()
}

// printResult prints a migration result in human-readable form.
func printResult(res *migration.Result) {
	status := "succeeded"
	if !res.Success {
		status = "failed"
	}
	fmt.Printf("Migration %s %s in %s\n\n", res.Direction, status, res.Duration.Round(time.Millisecond))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GROUP\tMIGRATED")
	items := res.MigratedItems
	fmt.Fprintf(w, "users\t%d\n", items.Users)
	fmt.Fprintf(w, "collections\t%d\n", items.Collections)
	fmt.Fprintf(w, "posts\t%d\n", items.Posts)
	fmt.Fprintf(w, "comments\t%d\n", items.Comments)
	fmt.Fprintf(w, "knowledge documents\t%d\n", items.KnowledgeDocuments)
	fmt.Fprintf(w, "attachments\t%d\n", items.Attachments)
	w.Flush()

	if len(res.Notices) > 0 {
		fmt.Printf("\nNotices (%d):\n", len(res.Notices))
		for _, n := range res.Notices {
			fmt.Println("  -", n)
		}
	}
	if len(res.Failures) > 0 {
		fmt.Printf("\nFailed records (%d):\n", len(res.Failures))
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  GROUP\tKEY\tERROR")
		for _, f := range res.Failures {
			fmt.Fprintf(w, "  %s\t%s\t%s\n", f.Group, truncate(f.Key, 32), f.Error)
		}
		w.Flush()
	}
	if !res.Success {
		fmt.Println()
		for _, e := range res.Errors {
			fmt.Println("Error:", e)
		}
	}
}
