package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all live records as JSON",
		Long:  "Export a full snapshot of the live records as JSON. Format conversion is left to the import/export tooling.",
		Run:   runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	m, err := openManager()
	if err != nil {
		exitErr("open store", err)
	}
	defer m.Close()

	records, err := m.Export(cmd.Context())
	if err != nil {
		exitErr("export", err)
	}
	printJSON(records)
}
