package cmd

import (
	"fmt"
	"sort"

	"github.com/smazurov/vcapture/internal/config"
	"github.com/spf13/cobra"
)

// CreateValidateConfigCmd creates the validate-config command.
func CreateValidateConfigCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate-config",
		Short: "Check the configuration file without touching hardware",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadCaptureConfig(configPath)
			if err != nil {
				return err
			}
			ledCfg, err := config.LoadLEDConfig(configPath)
			if err != nil {
				return err
			}
			logCfg := config.LoadLoggingConfig(configPath)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "vdma:      %#x (%d frame stores, max width %d bytes)\n",
				cfg.DMA.BaseAddress, cfg.DMA.NumFrameStores, cfg.DMA.S2MMMaxWidth)
			fmt.Fprintf(out, "gpio:      %#x (channel %d, reset mask %#x)\n",
				cfg.GPIO.BaseAddress, cfg.GPIO.ResetChannel, cfg.GPIO.ResetMask)
			fmt.Fprintf(out, "vtc:       %#x\n", cfg.VTCBaseAddress)
			fmt.Fprintf(out, "leds:      enabled=%t\n", ledCfg.Enabled)
			fmt.Fprintf(out, "logging:   level=%s format=%s\n", logCfg.Level, logCfg.Format)

			modules := make([]string, 0, len(logCfg.Modules))
			for m := range logCfg.Modules {
				modules = append(modules, m)
			}
			sort.Strings(modules)
			for _, m := range modules {
				fmt.Fprintf(out, "  %-9s %s\n", m+":", logCfg.Modules[m])
			}
			fmt.Fprintln(out, "configuration OK")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "config.toml", "Path to configuration file")
	return standalone(cmd)
}
