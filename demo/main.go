// Command statespace-demo fits ARIMA, SARIMA, Auto-ARIMA and structural
// models to the datasets of a YAML file and prints the results as JSON.
package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	cobra.CheckErr(NewCmd().ExecuteContext(ctx))
}

// NewCmd returns the statespace-demo root command with its decompose and
// forecast subcommands.
func NewCmd() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "statespace-demo [command] [flags]",
		Short:         "statespace-demo runs state space models on sample datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := cmd.Flags().GetString("log-level")
			if err != nil {
				return err
			}
			lvl, err := log.ParseLevel(level)
			if err != nil {
				return err
			}
			log.SetLevel(lvl)
			log.SetOutput(cmd.ErrOrStderr())
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Print(cmd.UsageString())
		},
	}
	rootCmd.PersistentFlags().StringP("config", "c", "datasets.yaml", "`<Config>` YAML file describing the datasets")
	rootCmd.PersistentFlags().StringSliceP("dataset", "n", nil, "`<Name>` of a dataset to process, repeatable (default all)")
	rootCmd.PersistentFlags().String("log-level", "info", "`<Level>` of the log written to stderr")

	decomposeCmd := &cobra.Command{
		Use:   "decompose [flags]",
		Short: "Split each dataset into trend, seasonal, cycle and irregular",
		RunE:  doDecompose,
	}

	forecastCmd := &cobra.Command{
		Use:   "forecast [flags]",
		Short: "Compare model forecasts on a held-out tail of each dataset",
		RunE:  doForecast,
	}
	forecastCmd.Flags().Float64("confidence", 0.95, "`<Level>` of the prediction intervals")
	forecastCmd.Flags().IntP("parallelism", "p", 0, "`<N>` candidate models fitted at once by auto-arima (default GOMAXPROCS)")

	rootCmd.AddCommand(
		decomposeCmd,
		forecastCmd,
	)
	return rootCmd
}

// datasets loads the config file and the datasets selected on the command
// line.
func datasets(cmd *cobra.Command) (*Config, []Dataset, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, err
	}
	names, err := cmd.Flags().GetStringSlice("dataset")
	if err != nil {
		return nil, nil, err
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	selected, err := cfg.Select(names)
	if err != nil {
		return nil, nil, err
	}
	return cfg, selected, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
