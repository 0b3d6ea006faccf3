package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/census-choropleth/internal/config"
	"github.com/sells-group/census-choropleth/internal/demographics"
	"github.com/sells-group/census-choropleth/internal/geoid"
	"github.com/sells-group/census-choropleth/internal/model"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Reclassify a race tabulation and write the per-unit and total tables",
	Long: `Reads a census race tabulation (CSV or XLSX), maps its verbose labels onto
Total, Hispanic, White, Black, Asian, Mixed and Others, checks that every row
reconciles, then writes the jurisdiction total and the per-unit rows to two
CSV files. Nothing is written unless every row validates.

With --save (or a configured store) both tables are also persisted under a
new run id.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyPrepareFlags(cmd, &cfg.Demographics)
		if err := cfg.Validate("prepare"); err != nil {
			return err
		}

		save, _ := cmd.Flags().GetBool("save")
		res, runID, err := runPrepare(ctx, cfg, save || cfg.Store.Enabled())
		if err != nil {
			return err
		}

		fmt.Printf("Jurisdiction: %s (%s), population %d\n", res.Total.AreaName, res.Total.ID, res.Total.Total)
		fmt.Printf("Per-unit rows: %d -> %s\n", len(res.PerUnit), cfg.Demographics.PerUnitPath)
		fmt.Printf("Total row -> %s\n", cfg.Demographics.TotalPath)
		if runID != "" {
			fmt.Printf("Run ID: %s\n", runID)
		}
		return nil
	},
}

func applyPrepareFlags(cmd *cobra.Command, d *config.DemographicsConfig) {
	f := cmd.Flags()
	if f.Changed("input") {
		d.Input, _ = f.GetString("input")
	}
	if f.Changed("skip-rows") {
		d.SkipRows, _ = f.GetInt("skip-rows")
	}
	if f.Changed("sheet") {
		d.Sheet, _ = f.GetString("sheet")
	}
	if f.Changed("schema") {
		d.SchemaFile, _ = f.GetString("schema")
	}
	if f.Changed("per-unit") {
		d.PerUnitPath, _ = f.GetString("per-unit")
	}
	if f.Changed("total") {
		d.TotalPath, _ = f.GetString("total")
	}
}

// runPrepare writes the two tables and, when save is set, persists them.
// It returns the run id of the saved run, or "" when nothing was saved.
func runPrepare(ctx context.Context, c *config.Config, save bool) (*demographics.Result, string, error) {
	log := zap.L().With(zap.String("command", "prepare"))

	schema := demographics.DefaultSchema()
	if c.Demographics.SchemaFile != "" {
		s, err := demographics.LoadSchema(c.Demographics.SchemaFile)
		if err != nil {
			return nil, "", err
		}
		schema = s
	}

	input, err := localPath(ctx, c.Fetch, c.Demographics.Input)
	if err != nil {
		return nil, "", eris.Wrap(err, "prepare: fetch input")
	}

	res, err := demographics.Prepare(demographics.PrepareOptions{
		InputPath:   input,
		SkipRows:    c.Demographics.SkipRows,
		SheetName:   c.Demographics.Sheet,
		Schema:      schema,
		Normalizer:  geoid.NewNormalizer(c.Demographics.IDWidth),
		PerUnitPath: c.Demographics.PerUnitPath,
		TotalPath:   c.Demographics.TotalPath,
	})
	if err != nil {
		if kind := model.KindOf(err); kind != "" {
			log.Error("validation failed", zap.String("kind", string(kind)), zap.Error(err))
		}
		return nil, "", eris.Wrap(err, "prepare")
	}

	if !save {
		return res, "", nil
	}

	st, err := initStore(ctx, withDefaultDriver(c.Store))
	if err != nil {
		return nil, "", eris.Wrap(err, "prepare: open store")
	}
	defer st.Close() //nolint:errcheck

	run, err := st.SaveRun(ctx, c.Demographics.Input, res.Total, res.PerUnit)
	if err != nil {
		return nil, "", eris.Wrap(err, "prepare: save run")
	}
	log.Info("run saved", zap.String("run_id", run.ID), zap.Int("units", run.Units))

	return res, run.ID, nil
}

func init() {
	prepareCmd.Flags().String("input", "", "raw tabulation (.csv or .xlsx)")
	prepareCmd.Flags().Int("skip-rows", 1, "rows above the label header")
	prepareCmd.Flags().String("sheet", "", "XLSX sheet name (default: first sheet)")
	prepareCmd.Flags().String("schema", "", "YAML label schema (default: 2020 P2 labels)")
	prepareCmd.Flags().String("per-unit", "", "per-unit output CSV")
	prepareCmd.Flags().String("total", "", "jurisdiction total output CSV")
	prepareCmd.Flags().Bool("save", false, "persist the tables to the store (sqlite when none is configured)")
	rootCmd.AddCommand(prepareCmd)
}
