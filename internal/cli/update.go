package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yte121/openswarm-sub022/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "update [value]",
		Short: "Partially update an existing record",
		Long:  "Shallow-merge a new value and/or metadata into an existing record. Fails if the identity has no live record.",
		Run:   runUpdate,
	}

	cmd.Flags().StringP("category", "c", "", "Category (required)")
	cmd.Flags().StringP("key", "k", "", "Key (required)")
	cmd.Flags().StringP("ns", "n", "", "Namespace")
	cmd.Flags().Bool("text", false, "Treat the value as plain text")
	cmd.Flags().String("meta", "", "JSON metadata to merge")

	cmd.MarkFlagRequired("category")
	cmd.MarkFlagRequired("key")

	RootCmd.AddCommand(cmd)
}

func runUpdate(cmd *cobra.Command, args []string) {
	category, _ := cmd.Flags().GetString("category")
	key, _ := cmd.Flags().GetString("key")
	ns, _ := cmd.Flags().GetString("ns")
	asText, _ := cmd.Flags().GetBool("text")
	meta, _ := cmd.Flags().GetString("meta")

	var upd memory.Update

	if raw := readValueArg(args); raw != "" {
		v := parseValue(raw, asText)
		upd.Value = &v
	}
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &upd.Metadata); err != nil {
			exitErr("parse --meta", err)
		}
	}
	if upd.Value == nil && upd.Metadata == nil {
		exitErr("update", fmt.Errorf("nothing to update (provide a value or --meta)"))
	}

	m, err := openManager()
	if err != nil {
		exitErr("open store", err)
	}
	defer m.Close()

	found, err := m.Update(cmd.Context(), category, key, ns, upd)
	if err != nil {
		exitErr("update", err)
	}
	if !found {
		exitErr("update", fmt.Errorf("record not found: %s/%s", category, key))
	}

	rec, err := m.Get(cmd.Context(), category, key, ns)
	if err != nil {
		exitErr("update", err)
	}
	printJSON(rec)
}
