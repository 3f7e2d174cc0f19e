package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robsoninsights/robsoninsights/internal/config"
	"github.com/robsoninsights/robsoninsights/internal/daemon"
	"github.com/robsoninsights/robsoninsights/internal/logger"
)

func init() { //nolint: gochecknoinits
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable dev mode")
	startCmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration directory")

	rootCmd.AddCommand(startCmd)
}

var (
	configPath string // Path to the configuration directory

	cfg     config.Config
	err     error
	devMode bool

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the Robson Insights web service",
		PreRun: func(_ *cobra.Command, _ []string) {
			if cfg, err = config.ReadConfig(configPath); err != nil {
				panic(err)
			}

			if devMode {
				cfg.DevMode = true
			}

			if err = logger.Init(cfg.Log); err != nil {
				panic(err)
			}
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			d := daemon.New(&cfg)

			go func() {
				if err := d.Start(fmt.Sprintf(":%d", cfg.Webserver.Port)); err != nil {
					panic(err)
				}
			}()

			d.WaitShutdown()

			return nil
		},
	}
)
