package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"lirik/internal/auth"
	"lirik/internal/config"
	"lirik/internal/player/spotify"
)

func newAuthCommand(ctx *commandContext) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Show Spotify credential and token status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return authStatus(cmd.OutOrStdout(), cfg, time.Now())
		},
	}

	authCmd.AddCommand(&cobra.Command{
		Use:   "login",
		Short: "Authenticate with Spotify in the browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			flow := &auth.Flow{
				Config:    spotify.OAuthConfig(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, cfg.Spotify.RedirectURI),
				TokenPath: cfg.Spotify.TokenPath,
				Out:       cmd.OutOrStdout(),
			}
			if _, err := flow.Login(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in, token saved to %s\n", cfg.Spotify.TokenPath)
			return nil
		},
	})
	return authCmd
}

func authStatus(out io.Writer, cfg *config.Config, now time.Time) error {
	set := func(v string) string {
		if v == "" {
			return "missing"
		}
		return "set"
	}
	fmt.Fprintf(out, "client_id:     %s\n", set(cfg.Spotify.ClientID))
	fmt.Fprintf(out, "client_secret: %s\n", set(cfg.Spotify.ClientSecret))
	fmt.Fprintf(out, "redirect_uri:  %s\n", cfg.Spotify.RedirectURI)

	tok, err := spotify.LoadToken(cfg.Spotify.TokenPath)
	switch {
	case errors.Is(err, spotify.ErrNoToken):
		fmt.Fprintf(out, "token:         none (run `lirik auth login`)\n")
	case err != nil:
		return err
	case tok.RefreshToken == "" && !tok.Expiry.IsZero() && tok.Expiry.Before(now):
		fmt.Fprintf(out, "token:         expired at %s, no refresh token\n", tok.Expiry.Format(time.RFC3339))
	default:
		fmt.Fprintf(out, "token:         %s\n", cfg.Spotify.TokenPath)
	}
	return nil
}
