package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVAPIDKeysCommand(t *testing.T) {
	out, err := run(t, "vapid-keys")
	if err != nil {
		t.Fatalf("vapid-keys: %v", err)
	}
	if !strings.Contains(out, "CHORELEDGER_VAPID_PUBLIC_KEY=") || !strings.Contains(out, "CHORELEDGER_VAPID_PRIVATE_KEY=") {
		t.Errorf("output = %q", out)
	}
}

func TestRemindWithoutPush(t *testing.T) {
	t.Setenv("CHORELEDGER_DB_PATH", filepath.Join(t.TempDir(), "ledger.db"))
	t.Setenv("CHORELEDGER_VAPID_PUBLIC_KEY", "")
	t.Setenv("CHORELEDGER_VAPID_PRIVATE_KEY", "")

	if _, err := run(t, "remind"); err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Errorf("remind without keys: err = %v", err)
	}
}

func TestBackupWithoutStorage(t *testing.T) {
	t.Setenv("CHORELEDGER_DB_PATH", filepath.Join(t.TempDir(), "ledger.db"))
	t.Setenv("CHORELEDGER_S3_BUCKET", "")

	if _, err := run(t, "backup"); err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Errorf("backup without storage: err = %v", err)
	}
	if _, err := run(t, "backup", "restore"); err == nil || !strings.Contains(err.Error(), "--id") {
		t.Errorf("restore without flags: err = %v", err)
	}
}

func TestBadConfigFile(t *testing.T) {
	if _, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "remind"); err == nil {
		t.Error("missing config file should fail")
	}
}
