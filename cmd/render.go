package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/census-choropleth/internal/choropleth"
	"github.com/sells-group/census-choropleth/internal/config"
	"github.com/sells-group/census-choropleth/internal/demographics"
	"github.com/sells-group/census-choropleth/internal/geoid"
	"github.com/sells-group/census-choropleth/internal/join"
	"github.com/sells-group/census-choropleth/internal/model"
	"github.com/sells-group/census-choropleth/internal/store"
	"github.com/sells-group/census-choropleth/internal/tiger"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Join the per-unit table onto a boundary layer and render a choropleth",
	Long: `Loads a boundary layer (.shp, zipped shapefile or GeoJSON; local path or
http(s) URL such as the TIGER/Line county zip), keeps the
features of one jurisdiction, left-joins them with the per-unit table on the
normalized GEOID and renders the chosen field as a PNG choropleth. Features
without a matching row are drawn with the no-data hatch.

Records come from the per-unit CSV written by prepare, or from a stored run
with --run.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyRenderFlags(cmd, cfg)
		if err := cfg.Validate("render"); err != nil {
			return err
		}

		runID, _ := cmd.Flags().GetString("run")
		res, err := runRender(ctx, cfg, runID)
		if err != nil {
			return err
		}

		fmt.Printf("Features in %s: %d (matched %d, no data %d)\n",
			jurisdictionLabel(cfg.Geo.Jurisdiction), len(res.Records), res.Matched, res.Unmatched)
		fmt.Printf("Map -> %s\n", cfg.Render.Output)
		return nil
	},
}

func applyRenderFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("geo") {
		c.Geo.Path, _ = f.GetString("geo")
	}
	if f.Changed("data") {
		c.Demographics.PerUnitPath, _ = f.GetString("data")
	}
	if f.Changed("jurisdiction") {
		c.Geo.Jurisdiction, _ = f.GetString("jurisdiction")
	}
	if f.Changed("field") {
		c.Render.Field, _ = f.GetString("field")
	}
	if f.Changed("title") {
		c.Render.Title, _ = f.GetString("title")
	}
	if f.Changed("min") {
		c.Render.Min, _ = f.GetFloat64("min")
	}
	if f.Changed("max") {
		c.Render.Max, _ = f.GetFloat64("max")
	}
	if f.Changed("scale") {
		c.Render.Scale, _ = f.GetString("scale")
	}
	if f.Changed("output") {
		c.Render.Output, _ = f.GetString("output")
	}
}

func renderOptions(r config.RenderConfig) choropleth.Options {
	return choropleth.Options{
		Field:     r.Field,
		Title:     r.Title,
		Min:       r.Min,
		Max:       r.Max,
		Scale:     r.Scale,
		Width:     r.Width,
		Height:    r.Height,
		EdgeColor: r.EdgeColor,
		LineWidth: r.LineWidth,
	}
}

func layerFields(g config.GeoConfig) tiger.Fields {
	return tiger.Fields{
		GeoID:        g.GeoIDField,
		Jurisdiction: g.JurisdictionField,
		Name:         g.NameField,
	}
}

// jurisdictionFilter accepts a state FIPS code or postal abbreviation. An
// empty code keeps every feature.
func jurisdictionFilter(code string) (join.Predicate, error) {
	if code == "" {
		return join.All(), nil
	}
	fips, err := tiger.StateFIPS(code)
	if err != nil {
		return nil, err
	}
	return join.ByJurisdiction(fips), nil
}

// jurisdictionLabel names a jurisdiction code for display, e.g. "GA (13)".
func jurisdictionLabel(code string) string {
	if code == "" {
		return "all jurisdictions"
	}
	fips, err := tiger.StateFIPS(code)
	if err != nil {
		return code
	}
	abbr, _ := tiger.AbbrFromFIPS(fips)
	return fmt.Sprintf("%s (%s)", abbr, fips)
}

// runRender loads both sides, joins, renders and writes the PNG. With a
// run id the records come from the store and the joined rows are saved back.
func runRender(ctx context.Context, c *config.Config, runID string) (*join.Result, error) {
	log := zap.L().With(zap.String("command", "render"))

	opts := renderOptions(c.Render)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	filter, err := jurisdictionFilter(c.Geo.Jurisdiction)
	if err != nil {
		return nil, eris.Wrap(err, "render: jurisdiction")
	}

	var st store.Store
	if runID != "" {
		s, err := initStore(ctx, withDefaultDriver(c.Store))
		if err != nil {
			return nil, eris.Wrap(err, "render: open store")
		}
		defer s.Close() //nolint:errcheck

		if _, err := s.GetRun(ctx, runID); err != nil {
			return nil, eris.Wrap(err, "render")
		}
		st = s
	}

	// The layer may be a download; load it alongside the records.
	var (
		records  []model.CanonicalRecord
		features []model.GeoFeature
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if st != nil {
			records, err = st.ListRecords(gctx, runID)
			return eris.Wrap(err, "render: list records")
		}
		records, err = demographics.ReadCanonical(c.Demographics.PerUnitPath)
		return eris.Wrap(err, "render: read per-unit table")
	})
	g.Go(func() error {
		geoPath, err := localPath(gctx, c.Fetch, c.Geo.Path)
		if err != nil {
			return eris.Wrap(err, "render: fetch layer")
		}
		features, err = tiger.ReadLayer(geoPath, layerFields(c.Geo))
		return eris.Wrap(err, "render: read layer")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res, err := join.LeftJoin(features, records, join.Options{
		Filter:     filter,
		Field:      c.Render.Field,
		Normalizer: geoid.NewNormalizer(c.Demographics.IDWidth),
	})
	if err != nil {
		return nil, eris.Wrap(err, "render: join")
	}
	if len(res.Records) == 0 {
		return nil, eris.Errorf("render: no features in %s for jurisdiction %q", c.Geo.Path, c.Geo.Jurisdiction)
	}

	var renderer choropleth.Renderer = choropleth.NewPNGRenderer()
	img, err := renderer.Render(res.Records, opts)
	if err != nil {
		return nil, eris.Wrap(err, "render")
	}
	if err := choropleth.WritePNG(c.Render.Output, img); err != nil {
		return nil, err
	}

	if st != nil {
		n, err := st.SaveMerged(ctx, runID, c.Render.Field, res.Records)
		if err != nil {
			return nil, eris.Wrap(err, "render: save merged")
		}
		log.Info("merged rows saved", zap.String("run_id", runID), zap.Int64("rows", n))
	}

	return res, nil
}

func init() {
	renderCmd.Flags().String("geo", "", "boundary layer (.shp, .zip or .geojson)")
	renderCmd.Flags().String("data", "", "per-unit CSV written by prepare")
	renderCmd.Flags().String("jurisdiction", "", "state FIPS code or abbreviation to keep")
	renderCmd.Flags().String("field", "", "value field to map (see the fields command)")
	renderCmd.Flags().String("title", "", "map title")
	renderCmd.Flags().Float64("min", 0, "lower end of the color range")
	renderCmd.Flags().Float64("max", 100, "upper end of the color range")
	renderCmd.Flags().String("scale", "", "color scale name")
	renderCmd.Flags().String("output", "", "output PNG path")
	renderCmd.Flags().String("run", "", "read records from a stored run instead of the per-unit CSV")
	rootCmd.AddCommand(renderCmd)
}
