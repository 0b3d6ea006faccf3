package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sells-group/census-choropleth/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "census-choropleth",
	Short: "Census race tables to choropleth maps",
	Long:  "Reclassifies a census race tabulation into six categories, splits off the jurisdiction total, joins the per-unit table onto county boundaries and renders a choropleth PNG.",
	// Flag errors print usage through the FlagErrorFunc set in init.
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	addGlobalFlags(rootCmd.PersistentFlags())
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		cmd.PrintErrln(cmd.UsageString())
		return err
	})
}

func addGlobalFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default ./config.yaml)")
	fs.String("log-level", "", "override log.level (debug, info, warn, error)")
}

// loadConfig reads the file named by --config (or ./config.yaml) and applies
// --log-level on top of file and environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	c, err := config.LoadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "load config")
	}
	if cmd.Flags().Changed("log-level") {
		c.Log.Level, _ = cmd.Flags().GetString("log-level")
	}
	return c, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
