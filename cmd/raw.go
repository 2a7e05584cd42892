package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rawPretty bool

var rawCmd = &cobra.Command{
	Use:   "raw <match-id-prefix>",
	Short: "Print the archived source document of a stored match",
	Args:  cobra.ExactArgs(1),
	RunE:  runRaw,
}

func init() {
	rawCmd.Flags().BoolVar(&rawPretty, "pretty", false, "indent the JSON")
}

func runRaw(cmd *cobra.Command, args []string) error {
	db, err := openSQLite()
	if err != nil {
		return err
	}
	defer db.Close()
	ctx := cmd.Context()

	m, err := db.GetMatchByPrefix(ctx, args[0])
	if err != nil {
		return fmt.Errorf("query match: %w", err)
	}
	if m == nil {
		return fmt.Errorf("no match found with id prefix %q", args[0])
	}
	doc, err := db.RawDocument(ctx, m.MatchID)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	if rawPretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, doc, "", "  "); err != nil {
			return fmt.Errorf("indent: %w", err)
		}
		doc = append(buf.Bytes(), '\n')
	}
	_, err = os.Stdout.Write(doc)
	return err
}
