package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var ctlCommands = []string{"pause", "play", "toggle", "next", "prev", "volume", "seek", "shuffle", "repeat"}

func newCtlCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ctl <command> [arg]",
		Short: "Send a playback command to the daemon",
		Long: "Send a playback command to the daemon.\n\nCommands: " + strings.Join(ctlCommands, ", ") +
			".\nvolume takes 0-100, seek takes a position in ms.",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: ctlCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, arg := parseCtlArgs(args)
			client, _, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.Send(cmd.Context(), name, arg); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		},
	}
}

// parseCtlArgs splits "volume 50" style arguments. The daemon validates both.
func parseCtlArgs(args []string) (string, *string) {
	name := strings.ToLower(strings.TrimSpace(args[0]))
	if len(args) < 2 {
		return name, nil
	}
	arg := strings.TrimSpace(args[1])
	return name, &arg
}
