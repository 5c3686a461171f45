package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/memoraapp/memora/internal/di/providers"
	"github.com/memoraapp/memora/internal/docindex"
	apperr "github.com/memoraapp/memora/internal/errors"
	"github.com/memoraapp/memora/internal/knowledge"
)

var (
	kbQueryLimit int
	searchLimit  int
	searchInKB   string
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Build and query per-category knowledge bases",
}

var kbBuildCmd = &cobra.Command{
	Use:   "build <category-id>",
	Short: "Build the knowledge base for a category",
	Long: `Build collects the content details of the user's collections in a
category, converts them to markdown, splits them into chunks and indexes the
chunks in a new document collection linked to the category.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.User.ID == "" {
			return apperr.Validation("user.id is required to build a knowledge base")
		}
		builder, err := invoke[*knowledge.Builder]("knowledge builder")
		if err != nil {
			return err
		}

		kbID, chunks, err := builder.Build(cmd.Context(), cfg.User.ID, args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(map[string]any{"knowledgeBaseId": kbID, "chunks": chunks})
		}
		fmt.Printf("Built knowledge base %s with %d chunks\n", kbID, chunks)
		return nil
	},
}

var kbQueryCmd = &cobra.Command{
	Use:   "query <category-id> <query...>",
	Short: "Search a category's knowledge base",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		builder, err := invoke[*knowledge.Builder]("knowledge builder")
		if err != nil {
			return err
		}
		hits, err := builder.Query(cmd.Context(), args[0], strings.Join(args[1:], " "), kbQueryLimit)
		if err != nil {
			return err
		}
		return printHits(hits)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Keyword search over indexed documents",
	Long: `Search runs a keyword query over the local document index.

Example:
  memora search release notes
  memora search --collection kb_1a2b... onboarding --limit 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := invoke[*providers.IndexHandle]("document index")
		if err != nil {
			return err
		}

		q := strings.Join(args, " ")
		var hits []docindex.ScoredDocument
		if searchInKB != "" {
			hits, err = index.SearchCollection(cmd.Context(), searchInKB, q, searchLimit)
		} else {
			hits, err = index.SearchSimilar(cmd.Context(), q, searchLimit)
		}
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		return printHits(hits)
	},
}

func init() {
	kbQueryCmd.Flags().IntVar(&kbQueryLimit, "limit", 10, "maximum number of results")
	kbCmd.AddCommand(kbBuildCmd)
	kbCmd.AddCommand(kbQueryCmd)

	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "maximum number of results")
	searchCmd.Flags().StringVar(&searchInKB, "collection", "", "restrict to a document collection id")
}

// printHits prints scored documents as a table or JSON.
func printHits(hits []docindex.ScoredDocument) error {
	if flagJSON {
		if hits == nil {
			hits = []docindex.ScoredDocument{}
		}
		return printJSON(hits)
	}
	if len(hits) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tID\tCONTENT")
	for _, h := range hits {
		content := strings.Join(strings.Fields(h.Document.Content), " ")
		fmt.Fprintf(w, "%.3f\t%s\t%s\n", h.Score, h.Document.ID, truncate(content, 72))
	}
	return w.Flush()
}
