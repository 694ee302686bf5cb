// Command token mints a signed bearer token for a user, using the same
// auth configuration the server verifies with.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/frodan/league-exchange/internal/config"
	"github.com/frodan/league-exchange/internal/identity"
	"github.com/frodan/league-exchange/internal/logger"
)

func main() {
	cfgPath := os.Getenv("LX_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	envOnly := strings.EqualFold(os.Getenv("LX_ENV_ONLY"), "true") || os.Getenv("LX_ENV_ONLY") == "1"

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg.Auth, os.Args[1:], os.Stdout); err != nil {
		log.Fatal("mint token failed", zap.Error(err))
	}
}

// run parses flags and writes the token followed by a newline to out.
func run(auth config.AuthConfig, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	user := fs.String("user", "", "user id (token subject)")
	username := fs.String("username", "", "display name")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" {
		return errors.New("-user is required")
	}
	if auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is not set")
	}

	j := identity.JWT{Secret: []byte(auth.JWTSecret), Issuer: auth.Issuer, TokenTTL: *ttl}
	c := identity.Claims{Username: *username}
	c.Subject = *user
	tok, _, err := j.Sign(c)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	_, err = fmt.Fprintln(out, tok)
	return err
}
