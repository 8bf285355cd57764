package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/abduss/msc/internal/auth"
	"github.com/abduss/msc/internal/config"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()

	want := []string{"serve", "reindex", "enforce", "migrate", "token"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("expected subcommand %q, got %v (err %v)", name, cmd, err)
		}
	}
}

func TestTokenCommandIssuesVerifiableToken(t *testing.T) {
	t.Setenv("MSC_ADMIN_TOKEN_SECRET", "cli-secret")
	t.Setenv("LOG_LEVEL", "error")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"token", "--subject", "ci", "--ttl", "1m"})

	if err := root.Execute(); err != nil {
		t.Fatalf("token command failed: %v", err)
	}

	token := strings.TrimSpace(out.String())
	claims, err := auth.NewVerifier(config.AuthConfig{AdminTokenSecret: "cli-secret"}).Validate(token)
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if claims.Subject != "ci" {
		t.Fatalf("expected subject ci, got %q", claims.Subject)
	}
}

func TestTokenCommandRequiresSecret(t *testing.T) {
	t.Setenv("MSC_ADMIN_TOKEN_SECRET", "")
	t.Setenv("LOG_LEVEL", "error")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"token"})

	if err := root.Execute(); err == nil {
		t.Fatalf("expected error without a signing secret")
	}
}

func TestInvalidConfigIsReported(t *testing.T) {
	t.Setenv("PERCENT_DELETE_FILES", "0")
	t.Setenv("LOG_LEVEL", "error")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"migrate"})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("expected config error, got %v", err)
	}
}
