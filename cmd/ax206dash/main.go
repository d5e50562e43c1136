package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ep9io/ax206dash/internal/config"
	"github.com/ep9io/ax206dash/internal/dashboard"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		device     string
		logLevel   string
		simulate   string
		once       bool
	)

	cmd := &cobra.Command{
		Use:   "ax206dash",
		Short: "System monitoring dashboard on an AX206 USB LCD",
		Long: `ax206dash collects host telemetry (CPU, memory, disk, network, sensors),
renders it through a configurable widget layout and streams the frames to an
AX206 picture-frame LCD over USB.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if device != "" {
				cfg.Device.Selector = device
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			logger := dashboard.BuildLogger(cfg)
			app, err := dashboard.New(cfg, dashboard.Options{
				SimulatePath: simulate,
				Once:         once,
			}, logger)
			if err != nil {
				return err
			}
			return app.Run(context.Background())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (defaults apply when omitted)")
	cmd.Flags().StringVarP(&device, "device", "d", "", "device selector: vid:pid, vid:pid/serial, or serial")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&simulate, "simulate", "", "render to this PNG file instead of hardware")
	cmd.Flags().BoolVar(&once, "once", false, "run a single cycle and exit")

	return cmd
}
