package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/frodan/league-exchange/internal/config"
	"github.com/frodan/league-exchange/internal/identity"
)

func TestRun_TokenVerifiesWithServerConfig(t *testing.T) {
	auth := config.AuthConfig{JWTSecret: "s3cret", Issuer: "league-exchange"}
	var out bytes.Buffer
	if err := run(auth, []string{"-user", "u42", "-username", "ana", "-ttl", "1h"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	c, err := identity.JWT{Secret: []byte(auth.JWTSecret), Issuer: auth.Issuer}.Verify(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if c.UserID() != "u42" || c.Username != "ana" {
		t.Errorf("claims = %+v", c)
	}
	if left := time.Until(c.ExpiresAt.Time); left <= 0 || left > time.Hour {
		t.Errorf("expires in %s, want within 1h", left)
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		auth config.AuthConfig
		args []string
		want string
	}{
		{"missing user", config.AuthConfig{JWTSecret: "s"}, nil, "-user is required"},
		{"missing secret", config.AuthConfig{}, []string{"-user", "u1"}, "jwt_secret"},
		{"bad ttl", config.AuthConfig{JWTSecret: "s"}, []string{"-ttl", "soon"}, "invalid value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := run(tt.auth, tt.args, &out)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
			if out.Len() != 0 {
				t.Errorf("wrote %q on error", out.String())
			}
		})
	}
}
