package main

import (
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/librevsplit-go/config"
	"github.com/bitfsorg/librevsplit-go/logger"
)

// rootFlags are the persistent flags shared by every subcommand, plus the
// effective configuration resolved from them.
type rootFlags struct {
	configPath string
	dataDir    string
	debug      bool

	cfg config.Config
}

func newRootCmd(out io.Writer) *cobra.Command {
	rf := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "revsplit",
		Short:         "Revenue-sharing distributor factory",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rf.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			logger.Flush(2 * time.Second)
		},
	}
	cmd.SetOut(out)

	pf := cmd.PersistentFlags()
	pf.StringVar(&rf.configPath, "config", "", "config file (default <datadir>/config.yaml)")
	pf.StringVar(&rf.dataDir, "datadir", "", "data directory (default ~/.revsplit)")
	pf.BoolVar(&rf.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		newInitCmd(rf),
		newPredictCmd(rf),
		newCreateCmd(rf),
		newSetFeeCmd(rf),
		newSetWalletCmd(rf),
		newFundCmd(rf),
		newSetRecipientsCmd(rf),
		newDistributeCmd(rf),
		newDepositCmd(rf),
		newSetDistributorCmd(rf),
		newSetAutoCmd(rf),
		newShowCmd(rf),
		newBalanceCmd(rf),
		newEventsCmd(rf),
		newServeMetricsCmd(rf),
		newConfigCmd(rf),
	)
	return cmd
}

// load resolves the configuration file, applies flag overrides and
// initializes the global logger.
func (rf *rootFlags) load(cmd *cobra.Command) error {
	path := rf.configPath
	if path == "" {
		dir := rf.dataDir
		if dir == "" {
			dir = config.DefaultDataDir()
		}
		path = config.ConfigPath(dir)
	}

	cfg, err := config.LoadConfig(path)
	if errors.Is(err, config.ErrConfigNotFound) && rf.configPath == "" {
		cfg, err = config.LoadEnv()
	}
	if err != nil {
		return err
	}

	if rf.dataDir != "" {
		cfg.DataDir = rf.dataDir
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug = rf.debug
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}
	rf.cfg = cfg

	return logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		Level:     cfg.LogLevel,
		SentryDSN: cfg.SentryDSN,
		Tags:      map[string]string{"component": "revsplit"},
	})
}
