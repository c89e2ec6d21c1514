package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm",
		Short: "Delete a record",
		Long:  "Delete the live record for an identity. The version log keeps a delete entry.",
		Run:   runRm,
	}

	cmd.Flags().StringP("category", "c", "", "Category (required)")
	cmd.Flags().StringP("key", "k", "", "Key (required)")
	cmd.Flags().StringP("ns", "n", "", "Namespace")

	cmd.MarkFlagRequired("category")
	cmd.MarkFlagRequired("key")

	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	category, _ := cmd.Flags().GetString("category")
	key, _ := cmd.Flags().GetString("key")
	ns, _ := cmd.Flags().GetString("ns")

	m, err := openManager()
	if err != nil {
		exitErr("open store", err)
	}
	defer m.Close()

	existed, err := m.Delete(cmd.Context(), category, key, ns)
	if err != nil {
		exitErr("rm", err)
	}
	if !existed {
		exitErr("rm", fmt.Errorf("record not found: %s/%s", category, key))
	}
	fmt.Println("deleted")
}
