package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lirik/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "config",
		Short:       "Show the config file, creating a default one if there is none",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(ctx.configFlag)
			if path == "" {
				path = config.DefaultPath()
			}
			return showOrCreateConfig(cmd.OutOrStdout(), path)
		},
	}
}

func showOrCreateConfig(out io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err == nil {
		fmt.Fprintf(out, "# %s\n", path)
		_, err = out.Write(data)
		return err
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read config: %w", err)
	}

	if err := config.WriteDefault(path); err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	fmt.Fprintf(out, "Wrote default configuration to %s\n", path)
	fmt.Fprintln(out, "Set spotify.client_id and spotify.client_secret (or SPOTIFY_CLIENT_ID/SPOTIFY_CLIENT_SECRET), then run `lirik auth login`.")
	return nil
}
