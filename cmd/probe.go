package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// addSessionFlags registers the flags every hardware command shares.
func addSessionFlags(cmd *cobra.Command, opts *SessionOptions) {
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "config.toml", "Path to configuration file")
	cmd.Flags().BoolVar(&opts.Simulate, "simulate", false, "Use the simulated capture peripheral")
	cmd.Flags().StringVar(&opts.UDMABuf, "udmabuf", "", "u-dma-buf device for frame buffers (e.g. udmabuf0)")
}

// standalone keeps cmd from running the service setup hooked into the root
// command's PersistentPreRun.
func standalone(cmd *cobra.Command) *cobra.Command {
	cmd.PersistentPreRun = func(*cobra.Command, []string) {}
	return cmd
}

// CreateProbeCmd creates the probe command.
func CreateProbeCmd() *cobra.Command {
	var opts SessionOptions

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Initialize the capture pipeline and print its status",
		Long: `Configures the VDMA, reset GPIO and timing controller described by the configuration file, ` +
			`probes the input timing and prints a diagnostic summary. The pipeline is torn down afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := OpenSession(opts)
			if err != nil {
				return err
			}

			summary, err := session.Controller.Describe()
			if err != nil {
				_ = session.Close()
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return session.Close()
		},
	}
	addSessionFlags(cmd, &opts)
	return standalone(cmd)
}
