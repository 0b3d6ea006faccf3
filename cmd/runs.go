package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/census-choropleth/internal/model"
	"github.com/sells-group/census-choropleth/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect stored prepare runs",
	Long:  "Commands for listing and viewing runs persisted by prepare --save.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, withDefaultDriver(cfg.Store))
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		source, _ := cmd.Flags().GetString("source")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{Source: source, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run and its per-unit records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, withDefaultDriver(cfg.Store))
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		records, err := st.ListRecords(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*store.Run
			Records any `json:"records"`
		}{run, records})
	},
}

// -- runs merged --

var runsMergedCmd = &cobra.Command{
	Use:   "merged <run-id>",
	Short: "Show the joined rows a render saved for a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, withDefaultDriver(cfg.Store))
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		field, _ := cmd.Flags().GetString("field")
		if field == "" {
			field = cfg.Render.Field
		}
		merged, err := st.ListMerged(ctx, args[0], field)
		if err != nil {
			return eris.Wrap(err, "runs merged")
		}
		if len(merged) == 0 {
			fmt.Fprintf(os.Stderr, "No %s rows saved for run %s.\n", field, args[0])
			return nil
		}

		formatMerged(os.Stdout, field, merged)
		return nil
	},
}

func formatRunsList(out io.Writer, runs []store.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tJURISDICTION\tPOPULATION\tUNITS\tSOURCE\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t------------\t----------\t-----\t------\t-------")

	for _, r := range runs {
		source := r.Source
		if len(source) > 30 {
			source = "..." + source[len(source)-27:]
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			truncateID(r.ID),
			r.Total.AreaName,
			r.Total.Total,
			r.Units,
			source,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

func formatMerged(out io.Writer, field string, rows []model.MergedRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "GEOID\tNAME\t%s\n", strings.ToUpper(field))
	for _, r := range rows {
		value := "no data"
		if r.Value != nil {
			value = strconv.FormatFloat(*r.Value, 'f', -1, 64)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", r.GeoID, r.Name, value)
	}
	_ = w.Flush()
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	runsListCmd.Flags().String("source", "", "filter by input file")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsCmd.AddCommand(runsListCmd)
	runsMergedCmd.Flags().String("field", "", "render field (default: render.field)")

	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsMergedCmd)
	rootCmd.AddCommand(runsCmd)
}
