package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yte121/openswarm-sub022/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "put [value]",
		Short: "Store a record",
		Long:  "Store a record. The value can be a positional arg or piped via stdin; JSON is detected unless --text is set.",
		Run:   runPut,
	}

	cmd.Flags().StringP("category", "c", "", "Category (required)")
	cmd.Flags().StringP("key", "k", "", "Key (required)")
	cmd.Flags().StringP("ns", "n", "", "Namespace")
	cmd.Flags().Bool("text", false, "Treat the value as plain text")
	cmd.Flags().String("meta", "", "JSON metadata")
	cmd.Flags().Duration("ttl", 0, "Logical expiry, e.g. 30m, 24h (0 = none)")
	cmd.Flags().String("version", "", "Version tag for the log row")

	cmd.MarkFlagRequired("category")
	cmd.MarkFlagRequired("key")

	RootCmd.AddCommand(cmd)
}

func runPut(cmd *cobra.Command, args []string) {
	category, _ := cmd.Flags().GetString("category")
	key, _ := cmd.Flags().GetString("key")
	ns, _ := cmd.Flags().GetString("ns")
	asText, _ := cmd.Flags().GetBool("text")
	meta, _ := cmd.Flags().GetString("meta")
	ttl, _ := cmd.Flags().GetDuration("ttl")
	version, _ := cmd.Flags().GetString("version")

	raw := readValueArg(args)
	if strings.TrimSpace(raw) == "" {
		exitErr("put", fmt.Errorf("value is required (positional arg or stdin)"))
	}

	value := parseValue(raw, asText)

	var metadata map[string]any
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &metadata); err != nil {
			exitErr("parse --meta", err)
		}
	}

	m, err := openManager()
	if err != nil {
		exitErr("open store", err)
	}
	defer m.Close()

	rec, err := m.Store(cmd.Context(), &model.Record{
		Category:  category,
		Key:       key,
		Namespace: ns,
		Value:     value,
		Metadata:  metadata,
		TTL:       ttl,
		Version:   version,
	})
	if err != nil {
		exitErr("put", err)
	}

	printJSON(rec)
}

// readValueArg takes the value from the positional args, falling back to
// stdin when piped.
func readValueArg(args []string) string {
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		return string(b)
	}
	return ""
}

// parseValue stores valid JSON as a structured payload and anything else
// as text.
func parseValue(raw string, asText bool) model.Payload {
	trimmed := strings.TrimSpace(raw)
	if !asText && json.Valid([]byte(trimmed)) {
		return model.Payload{Kind: model.PayloadJSON, Data: []byte(trimmed)}
	}
	return model.TextValue(trimmed)
}
