package wizard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/forgelocal/giteactl/pkg/config"
)

func TestParseTeam(t *testing.T) {
	team, err := ParseTeam("developers:write:alice,bob")
	assert.NoError(t, err)
	assert.Equal(t, "developers", team.Name)
	assert.Equal(t, "write", team.Permission)
	assert.Equal(t, []string{"alice", "bob"}, team.Members)

	team, err = ParseTeam("maintainers:admin")
	assert.NoError(t, err)
	assert.Equal(t, "admin", team.Permission)
	assert.Zero(t, team.Members)

	// Unknown permissions fall back to write rather than failing the run.
	team, err = ParseTeam("ops:owner")
	assert.NoError(t, err)
	assert.Equal(t, "write", team.Permission)

	_, err = ParseTeam("solo")
	assert.Error(t, err)
}

func TestParseUser(t *testing.T) {
	user, err := ParseUser("alice:alice@example.org")
	assert.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.org", user.Email)

	user, err = ParseUser("bob")
	assert.NoError(t, err)
	assert.Equal(t, "bob@example.com", user.Email)

	_, err = ParseUser(":nobody@example.com")
	assert.Error(t, err)
}

func TestParseOAuth(t *testing.T) {
	app, err := ParseOAuth("Woodpecker CI:http://ci.localhost/authorize:confidential")
	assert.NoError(t, err)
	assert.Equal(t, "Woodpecker CI", app.Name)
	assert.Equal(t, "http://ci.localhost/authorize", app.RedirectURI)
	assert.True(t, app.IsConfidential())

	// Redirect URIs contain colons; the type is a suffix, not a field.
	app, err = ParseOAuth("Grafana:https://grafana.localhost:3000/login:public")
	assert.NoError(t, err)
	assert.Equal(t, "https://grafana.localhost:3000/login", app.RedirectURI)
	assert.False(t, app.IsConfidential())

	app, err = ParseOAuth("Simple:http://app.localhost/cb")
	assert.NoError(t, err)
	assert.Equal(t, "http://app.localhost/cb", app.RedirectURI)
	assert.True(t, app.IsConfidential())

	_, err = ParseOAuth("nameonly")
	assert.Error(t, err)
}

func TestFromFlagsFull(t *testing.T) {
	res, err := FromFlags(Flags{
		GiteaURL:         "http://gitea.localhost",
		NewAdminUsername: "ac",
		NewAdminPassword: true,
		OrgName:          "myorg",
		OrgVisibility:    "public",
		Teams:            []string{"developers:write:alice,bob", "maintainers:admin:alice"},
		Users:            []string{"alice:alice@example.com", "bob:bob@example.com"},
		OAuthWoodpecker:  true,
	})
	assert.NoError(t, err)

	cfg := res.Config
	assert.Equal(t, "admin", cfg.Admin.Username)
	assert.Equal(t, "ac", cfg.AdminUpdate.NewUsername)
	assert.True(t, cfg.AdminUpdate.ChangePassword)
	assert.NotEqual(t, "", res.AdminPassword, "password rotation yields a generated password")

	assert.Equal(t, 2, len(cfg.Organization.Teams))
	assert.Equal(t, []string{"alice", "bob"}, cfg.Organization.Teams[0].Members)
	assert.Equal(t, 2, len(cfg.Users))

	assert.Equal(t, 1, len(cfg.OAuthApps))
	assert.Equal(t, WoodpeckerAppName, cfg.OAuthApps[0].Name)
	assert.Equal(t, WoodpeckerRedirectURI, cfg.OAuthApps[0].RedirectURI)
}

func TestFromFlagsMinimal(t *testing.T) {
	res, err := FromFlags(Flags{OAuthWoodpecker: true})
	assert.NoError(t, err)
	assert.Equal(t, DefaultGiteaURL, res.Config.Gitea.URL)
	assert.Equal(t, "", res.AdminPassword)
	assert.Zero(t, res.Config.AdminUpdate)
	assert.Zero(t, res.Config.Organization)
}

func TestFromFlagsTeamsNeedOrg(t *testing.T) {
	_, err := FromFlags(Flags{Teams: []string{"developers:write"}})
	assert.Error(t, err)
}

func TestFromFlagsValidates(t *testing.T) {
	_, err := FromFlags(Flags{OrgName: "myorg", OrgVisibility: "internal"})
	assert.Error(t, err)
}

func TestFromTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "setup.toml")
	content := `
[gitea]
url = "http://gitea.localhost"

[admin]
username = "admin"
email = "admin@localhost"

[admin_update]
change_password = true
`
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	res, err := FromTOML(path)
	assert.NoError(t, err)
	assert.True(t, res.Config.AdminUpdate.ChangePassword)
	// The old password was never written to the TOML; a rotation request
	// always gets a fresh one.
	assert.NotEqual(t, "", res.AdminPassword)
}

func TestFromTOMLMissing(t *testing.T) {
	_, err := FromTOML(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadEnvDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	assert.NoError(t, os.WriteFile(path, []byte("GITEA_ADMIN=root\nGITEA_EXTERNAL_URL=https://git.example.com\n"), 0o644))

	d := loadEnvDefaults(path)
	assert.Equal(t, "root", d.adminUsername)
	assert.Equal(t, "https://git.example.com", d.giteaURL)
	assert.Equal(t, DefaultAdminEmail, d.adminEmail)

	d = loadEnvDefaults(filepath.Join(dir, "missing.env"))
	assert.Equal(t, DefaultAdminUsername, d.adminUsername)
}

func TestSummaryRendersEverySection(t *testing.T) {
	confidential := false
	cfg := &config.Config{
		Gitea: config.Gitea{URL: "http://gitea.localhost"},
		Admin: config.Admin{Username: "admin", Email: "admin@localhost"},
		AdminUpdate: &config.AdminUpdate{
			NewUsername:    "ac",
			ChangePassword: true,
		},
		Organization: &config.Organization{
			Name:       "myorg",
			Visibility: "public",
			Teams:      []config.Team{{Name: "developers", Permission: "write", Members: []string{"alice"}}},
		},
		Users:     []config.User{{Username: "alice", Email: "alice@example.com"}},
		OAuthApps: []config.OAuthApp{{Name: "Woodpecker CI", RedirectURI: "http://ci.localhost/authorize", Confidential: &confidential}},
	}

	out := Summary(cfg)
	assert.Contains(t, out, "http://gitea.localhost")
	assert.Contains(t, out, "ac")
	assert.Contains(t, out, "will be rotated")
	assert.Contains(t, out, "developers")
	assert.Contains(t, out, "alice@example.com")
	assert.Contains(t, out, "public")
	// The secret itself never appears in the summary.
	assert.NotContains(t, out, "password:")
}
