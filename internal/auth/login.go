// Package auth runs the Spotify authorization-code login in the browser and
// stores the resulting token for the daemon.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"lirik/internal/player/spotify"
)

const callbackPage = `<html><body><h3>lirik is authorized, you can close this tab</h3></body></html>`

func logger() *zerolog.Logger {
	l := log.With().Str("component", "auth").Logger()
	return &l
}

// Flow is one interactive login.
type Flow struct {
	Config    *oauth2.Config
	TokenPath string
	// Out receives the authorization URL in case the browser does not open.
	Out io.Writer
	// Open launches a browser; defaults to xdg-open.
	Open func(url string) error

	listen func(addr string) (net.Listener, error)
}

func xdgOpen(u string) error {
	return exec.Command("xdg-open", u).Start()
}

// Login waits for the browser to come back to the redirect URI with a code,
// exchanges it, and saves the token.
func (f *Flow) Login(ctx context.Context) (*oauth2.Token, error) {
	if f.Config.ClientID == "" || f.Config.ClientSecret == "" {
		return nil, errors.New("spotify client_id and client_secret must be configured")
	}
	redirect, err := url.Parse(f.Config.RedirectURL)
	if err != nil || redirect.Host == "" {
		return nil, fmt.Errorf("invalid redirect uri %q", f.Config.RedirectURL)
	}

	listen := f.listen
	if listen == nil {
		listen = func(addr string) (net.Listener, error) { return net.Listen("tcp", addr) }
	}
	ln, err := listen(redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("listen for callback on %s: %w", redirect.Host, err)
	}

	state := uuid.NewString()
	codes := make(chan string, 1)
	errs := make(chan error, 1)

	mux := http.NewServeMux()
	path := redirect.Path
	if path == "" {
		path = "/"
	}
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		case q.Get("error") != "":
			http.Error(w, "authorization failed", http.StatusBadRequest)
			select {
			case errs <- fmt.Errorf("authorization denied: %s", q.Get("error")):
			default:
			}
			return
		case q.Get("code") == "":
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, callbackPage)
		select {
		case codes <- q.Get("code"):
		default:
		}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go srv.Serve(ln)
	defer srv.Close()

	authURL := f.Config.AuthCodeURL(state)
	if f.Out != nil {
		fmt.Fprintf(f.Out, "Open this URL to authorize lirik:\n\n  %s\n\n", authURL)
	}
	open := f.Open
	if open == nil {
		open = xdgOpen
	}
	if err := open(authURL); err != nil {
		logger().Debug().Err(err).Msg("Could not open browser")
	}

	var code string
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-errs:
		return nil, err
	case code = <-codes:
	}

	tok, err := f.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	if err := spotify.SaveToken(f.TokenPath, tok); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}
	logger().Info().Str("path", f.TokenPath).Msg("Spotify token saved")
	return tok, nil
}
