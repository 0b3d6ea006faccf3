package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/census-choropleth/internal/choropleth"
	"github.com/sells-group/census-choropleth/internal/model"
	"github.com/sells-group/census-choropleth/internal/tiger"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the value fields, color scales and jurisdictions render accepts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		printFields(os.Stdout)
		return nil
	},
}

func printFields(out io.Writer) {
	_, _ = fmt.Fprintln(out, "Fields:")
	for _, f := range model.ValueFields() {
		desc := "count"
		if strings.HasSuffix(f, "%") {
			desc = "percent of Total"
		}
		_, _ = fmt.Fprintf(out, "  %-10s %s\n", f, desc)
	}
	_, _ = fmt.Fprintln(out, "Scales:")
	_, _ = fmt.Fprintf(out, "  %s\n", strings.Join(choropleth.ScaleNames(), ", "))
	_, _ = fmt.Fprintln(out, "Jurisdictions (FIPS code or abbreviation):")
	_, _ = fmt.Fprintf(out, "  %s\n", strings.Join(tiger.AllStateAbbrs(), ", "))
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
}
