package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/forgelocal/giteactl/pkg/config"
	"github.com/forgelocal/giteactl/pkg/oskeyring"
)

func TestSecretCmd(t *testing.T) {
	cmd := &SecretCmd{Length: 32}
	out, errString := captureOutput(func() error { return cmd.Run(testCtx(t)) })
	assert.Equal(t, errString, "")

	secret := strings.TrimSpace(out)
	assert.Equal(t, 32, len(secret))
	for _, r := range secret {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		assert.True(t, ok, "secret must be alphanumeric")
	}
}

func TestSecretCmdStoresEnvKey(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	assert.NoError(t, os.WriteFile(envPath, []byte("EXISTING=1\n"), 0o600))

	cmd := &SecretCmd{Length: 24, EnvKey: "MY_SECRET", EnvFile: envPath}
	out, errString := captureOutput(func() error { return cmd.Run(testCtx(t)) })
	assert.Equal(t, errString, "")

	saved, err := os.ReadFile(envPath)
	assert.NoError(t, err)
	assert.Contains(t, string(saved), "MY_SECRET="+strings.TrimSpace(out))
	assert.Contains(t, string(saved), "EXISTING=1")
}

func TestSecretCmdRejectsBadLength(t *testing.T) {
	cmd := &SecretCmd{Length: 0}
	assert.Error(t, cmd.Run(testCtx(t)))
}

func TestInitCmd(t *testing.T) {
	dir := t.TempDir()
	cmd := &InitCmd{
		Config:  filepath.Join(dir, "config", "setup.toml"),
		EnvFile: filepath.Join(dir, ".env"),
	}
	_, errString := captureOutput(func() error { return cmd.Run(testCtx(t)) })
	assert.Equal(t, errString, "")

	// The scaffolded config is valid as-is.
	cfg, err := config.Load(cmd.Config)
	assert.NoError(t, err)
	assert.NotEqual(t, "", cfg.Gitea.URL)

	env, err := os.ReadFile(cmd.EnvFile)
	assert.NoError(t, err)
	assert.Contains(t, string(env), "GITEA_ADMIN_PASSWORD=")
}

func TestInitCmdRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	cmd := &InitCmd{
		Config:  filepath.Join(dir, "setup.toml"),
		EnvFile: filepath.Join(dir, ".env"),
	}
	_, errString := captureOutput(func() error { return cmd.Run(testCtx(t)) })
	assert.Equal(t, errString, "")
	original, err := os.ReadFile(cmd.EnvFile)
	assert.NoError(t, err)

	out, errString := captureOutput(func() error { return cmd.Run(testCtx(t)) })
	assert.Equal(t, errString, "")
	assert.Contains(t, out, "already exists")

	unchanged, err := os.ReadFile(cmd.EnvFile)
	assert.NoError(t, err)
	assert.Equal(t, string(original), string(unchanged))
}

func TestAuthSetAndClear(t *testing.T) {
	ctx := testCtx(t)

	setCmd := &AuthSetCmd{Password: "hunter2"}
	_, errString := captureOutput(func() error { return setCmd.Run(ctx) })
	assert.Equal(t, errString, "")

	stored, err := ctx.Keyring.Get(oskeyring.ServiceName, oskeyring.AdminPasswordKey)
	assert.NoError(t, err)
	assert.Equal(t, "hunter2", stored)

	clearCmd := &AuthClearCmd{}
	_, errString = captureOutput(func() error { return clearCmd.Run(ctx) })
	assert.Equal(t, errString, "")

	_, err = ctx.Keyring.Get(oskeyring.ServiceName, oskeyring.AdminPasswordKey)
	assert.IsError(t, err, oskeyring.ErrNotFound)
}

func TestAuthSetGeneratesWhenOmitted(t *testing.T) {
	ctx := testCtx(t)
	cmd := &AuthSetCmd{}
	out, errString := captureOutput(func() error { return cmd.Run(ctx) })
	assert.Equal(t, errString, "")
	assert.Contains(t, out, "generated admin password")

	stored, err := ctx.Keyring.Get(oskeyring.ServiceName, oskeyring.AdminPasswordKey)
	assert.NoError(t, err)
	assert.NotEqual(t, "", stored)
}

func TestAdminPasswordResolutionOrder(t *testing.T) {
	t.Setenv("GITEA_ADMIN_PASSWORD", "")
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	assert.NoError(t, os.WriteFile(envPath, []byte("GITEA_ADMIN_PASSWORD=from-env-file\n"), 0o600))

	ctx := testCtx(t)
	assert.NoError(t, ctx.Keyring.Set(oskeyring.ServiceName, oskeyring.AdminPasswordKey, "from-keyring"))

	// Explicit flag wins over everything.
	pw, err := adminPassword(ctx, "from-flag", envPath)
	assert.NoError(t, err)
	assert.Equal(t, "from-flag", pw)

	// Env file beats the keyring.
	pw, err = adminPassword(ctx, "", envPath)
	assert.NoError(t, err)
	assert.Equal(t, "from-env-file", pw)

	// Keyring is the last resort.
	pw, err = adminPassword(ctx, "", filepath.Join(dir, "missing.env"))
	assert.NoError(t, err)
	assert.Equal(t, "from-keyring", pw)

	// Nothing anywhere is an actionable error.
	empty := testCtx(t)
	_, err = adminPassword(empty, "", filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "giteactl auth set")
}
