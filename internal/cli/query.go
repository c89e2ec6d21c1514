package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/yte121/openswarm-sub022/internal/memory"
	"github.com/yte121/openswarm-sub022/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query live records, or historical state with --as-of",
		Run:   runQuery,
	}

	cmd.Flags().StringSliceP("category", "c", nil, "Categories to match (repeatable)")
	cmd.Flags().StringSliceP("key", "k", nil, "Keys to match (repeatable)")
	cmd.Flags().StringP("ns", "n", "", "Namespace")
	cmd.Flags().String("text", "", "Full-text predicate")
	cmd.Flags().String("as-of", "", "RFC3339 timestamp for a point-in-time query")
	cmd.Flags().Int("limit", 0, "Max results (0 = no limit)")
	cmd.Flags().Int("offset", 0, "Results to skip")
	cmd.Flags().String("order", "created_at", "Order by: created_at, updated_at, key")
	cmd.Flags().Bool("asc", false, "Ascending order")

	RootCmd.AddCommand(cmd)
}

func runQuery(cmd *cobra.Command, args []string) {
	categories, _ := cmd.Flags().GetStringSlice("category")
	keys, _ := cmd.Flags().GetStringSlice("key")
	ns, _ := cmd.Flags().GetString("ns")
	text, _ := cmd.Flags().GetString("text")
	asOfStr, _ := cmd.Flags().GetString("as-of")
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	order, _ := cmd.Flags().GetString("order")
	asc, _ := cmd.Flags().GetBool("asc")

	opts := memory.QueryOptions{
		Filter: store.Filter{
			Categories: categories,
			Keys:       keys,
			Namespace:  ns,
			Text:       text,
			OrderBy:    store.OrderBy(order),
			Ascending:  asc,
			Limit:      limit,
			Offset:     offset,
		},
	}

	if asOfStr != "" {
		t, err := time.Parse(time.RFC3339, asOfStr)
		if err != nil {
			exitErr("parse --as-of", err)
		}
		opts.AsOf = &t
	}

	m, err := openManager()
	if err != nil {
		exitErr("open store", err)
	}
	defer m.Close()

	records, err := m.Query(cmd.Context(), opts)
	if err != nil {
		exitErr("query", err)
	}
	printJSON(records)
}
