package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [term]",
		Short: "Full-text search over records",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().StringSliceP("category", "c", nil, "Restrict to categories (repeatable)")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	term := strings.Join(args, " ")
	categories, _ := cmd.Flags().GetStringSlice("category")
	limit, _ := cmd.Flags().GetInt("limit")

	m, err := openManager()
	if err != nil {
		exitErr("open store", err)
	}
	defer m.Close()

	records, err := m.Search(cmd.Context(), term, categories, limit)
	if err != nil {
		exitErr("search", err)
	}

	if len(records) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(records)
}
