package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/JonMunkholm/labreport/internal/config"
	"github.com/JonMunkholm/labreport/internal/core"
	"github.com/JonMunkholm/labreport/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "labreport",
	Short: "Offline tools for lab water-quality exports",
	Long: `labreport reads the CSV export of the lab system and produces the same
ion-balance table and colour-coded workbook as the web service, without a
database or a running server.

Settings are read from LABREPORT_* environment variables and an optional
config file, e.g. LABREPORT_COLUMN_ION_QUOTIENT="Ionenbilanz Quotient".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = c
		slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// loadConfig resolves settings with precedence flags > env > config file > defaults.
func loadConfig() (*config.Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LABREPORT")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}
	if logLevel != "" {
		v.Set("LOG_LEVEL", logLevel)
	}

	return config.LoadOffline(viperLookup(v))
}

func viperLookup(v *viper.Viper) config.LookupFunc {
	return func(name string) (string, bool) {
		if !v.IsSet(name) {
			return "", false
		}
		return v.GetString(name), true
	}
}

// readDataset ingests the export at path.
func readDataset(path string) (*core.ParsedDataset, core.IngestStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.IngestStats{}, err
	}
	defer f.Close()

	ds, stats, err := core.Ingest(f, path, time.Now())
	if err != nil {
		return nil, stats, fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("file ingested",
		"file", path,
		"records", stats.DataRows,
		"skipped", stats.SkippedRows,
		"headers", stats.Headers,
	)
	return ds, stats, nil
}

func columnNames() core.ColumnNames {
	return core.ColumnNamesFromConfig(cfg.Columns)
}
