package rentsyst

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var errNoCredentials = errors.New("rentsyst: no client credentials or fallback token configured")

// fallbackTokenSource serves tokens from the client-credentials flow and falls
// back to a static token when that flow is unavailable or failing.
type fallbackTokenSource struct {
	primary  oauth2.TokenSource
	fallback string
	log      *slog.Logger
}

func (s *fallbackTokenSource) Token() (*oauth2.Token, error) {
	if s.primary != nil {
		tok, err := s.primary.Token()
		if err == nil {
			return tok, nil
		}
		if s.fallback == "" {
			return nil, err
		}
		s.log.Warn("token request failed, using fallback token", "err", err)
	}
	if s.fallback == "" {
		return nil, errNoCredentials
	}
	return &oauth2.Token{AccessToken: s.fallback, TokenType: "Bearer"}, nil
}

func newTokenSource(cfg Config, tokenClient *http.Client, log *slog.Logger) oauth2.TokenSource {
	src := &fallbackTokenSource{fallback: cfg.FallbackToken, log: log}
	if cfg.AuthURL != "" && cfg.ClientID != "" && cfg.ClientSecret != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.AuthURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, tokenClient)
		src.primary = cc.TokenSource(ctx)
	}
	return src
}
