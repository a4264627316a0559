package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/smazurov/vcapture/internal/capture"
	"github.com/smazurov/vcapture/internal/logging"
	"github.com/smazurov/vcapture/internal/nats"
	"github.com/spf13/cobra"
)

// CreateCtlCmd creates the ctl command, which drives a running service over NATS.
func CreateCtlCmd() *cobra.Command {
	var (
		url     string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ctl <status|start|stop|next|select> [index]",
		Short: "Control a running capture service over NATS",
		Long: `Sends a control request to the NATS bridge of a running vcapture service and prints ` +
			`the resulting state. The select action takes the frame buffer index as its second argument.`,
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{nats.ActionStatus, nats.ActionStart, nats.ActionStop, nats.ActionNext, nats.ActionSelect},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := args[0]
			index := 0
			if action == nats.ActionSelect {
				if len(args) != 2 {
					return fmt.Errorf("%s requires a frame index", action)
				}
				var err error
				if index, err = strconv.Atoi(args[1]); err != nil {
					return fmt.Errorf("invalid frame index %q: %w", args[1], capture.ErrInvalidArgument)
				}
			} else if len(args) == 2 {
				return fmt.Errorf("%s takes no index", action)
			}

			client, err := nats.NewControlClient(url, logging.GetLogger("nats"))
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			reply, err := client.Request(ctx, action, index, "ctl")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "state: %s\nframe index: %d\n", reply.StateName, reply.FrameIndex)
			if !reply.OK {
				return fmt.Errorf("%s failed (%s): %s", action, reply.Code, reply.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "nats", "nats://127.0.0.1:4222", "NATS server URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "Time to wait for a reply")
	return standalone(cmd)
}
