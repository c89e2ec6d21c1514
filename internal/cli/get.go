package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Retrieve a record",
		Run:   runGet,
	}

	cmd.Flags().StringP("category", "c", "", "Category (required)")
	cmd.Flags().StringP("key", "k", "", "Key (required)")
	cmd.Flags().StringP("ns", "n", "", "Namespace")
	cmd.Flags().Bool("history", false, "Show the version log for the identity (newest first)")

	cmd.MarkFlagRequired("category")
	cmd.MarkFlagRequired("key")

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	category, _ := cmd.Flags().GetString("category")
	key, _ := cmd.Flags().GetString("key")
	ns, _ := cmd.Flags().GetString("ns")
	history, _ := cmd.Flags().GetBool("history")

	m, err := openManager()
	if err != nil {
		exitErr("open store", err)
	}
	defer m.Close()

	if history {
		versions, err := m.History(cmd.Context(), category, key, ns)
		if err != nil {
			exitErr("history", err)
		}
		printJSON(versions)
		return
	}

	rec, err := m.Get(cmd.Context(), category, key, ns)
	if err != nil {
		exitErr("get", err)
	}
	printJSON(rec)
}
