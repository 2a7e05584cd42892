package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/go-cricket-metrics/internal/parser"
	"github.com/pable/go-cricket-metrics/internal/source"
)

var (
	cPass = color.New(color.FgGreen, color.Bold)
	cFail = color.New(color.FgRed, color.Bold)
)

var validateCmd = &cobra.Command{
	Use:   "validate <path>...",
	Short: "Check match documents against the JSON schema",
	Long: `Validate Cricsheet JSON documents without storing anything. Arguments
are opened like ingest arguments: files, directories, zip archives or S3
locations.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	var checked, failed int
	for _, loc := range args {
		src, err := source.Open(ctx, loc, source.S3Options{Region: cfg.S3.Region, Endpoint: cfg.S3.Endpoint})
		if err != nil {
			return fmt.Errorf("open %s: %w", loc, err)
		}
		err = src.Walk(ctx, func(doc source.Document) error {
			checked++
			verr := parser.Validate(doc.Data)
			if verr == nil {
				cPass.Fprint(os.Stdout, "PASS")
				fmt.Fprintf(os.Stdout, " %s\n", doc.Name)
				return nil
			}
			failed++
			cFail.Fprint(os.Stdout, "FAIL")
			fmt.Fprintf(os.Stdout, " %s\n", doc.Name)
			var se *parser.SchemaError
			if errors.As(verr, &se) {
				for _, issue := range se.Issues {
					fmt.Fprintf(os.Stdout, "     %s\n", issue)
				}
			} else {
				fmt.Fprintf(os.Stdout, "     %v\n", verr)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("walk %s: %w", loc, err)
		}
	}

	fmt.Fprintf(os.Stdout, "\n%d checked, %d failed\n", checked, failed)
	if failed > 0 {
		return fmt.Errorf("%d documents failed validation", failed)
	}
	return nil
}
