package wizard

import (
	"fmt"
	"strings"

	"github.com/forgelocal/giteactl/pkg/config"
	"github.com/forgelocal/giteactl/pkg/secrets"
)

// Defaults mirror a fresh local compose stack.
const (
	DefaultGiteaURL      = "http://gitea.localhost"
	DefaultAdminUsername = "admin"
	DefaultAdminEmail    = "admin@localhost"

	WoodpeckerAppName     = "Woodpecker CI"
	WoodpeckerRedirectURI = "http://ci.localhost/authorize"
)

// Flags is the non-interactive wizard input. Repeatable flags use compact
// colon syntax: teams as name:permission:member1,member2, users as
// username:email, OAuth apps as name:redirect_uri:confidential|public.
type Flags struct {
	GiteaURL      string
	AdminUsername string
	AdminEmail    string

	NewAdminUsername string
	NewAdminEmail    string
	NewAdminPassword bool

	OrgName        string
	OrgDescription string
	OrgVisibility  string

	Teams []string
	Users []string

	OAuth           []string
	OAuthWoodpecker bool
}

// Result is a built configuration plus the one secret that must not go
// into the TOML file. AdminPassword is set only when a password rotation
// was requested; the caller persists it to the env file.
type Result struct {
	Config        *config.Config
	AdminPassword string
}

// ParseTeam parses a name:permission:members flag value. Members are
// optional; an unknown permission falls back to write.
func ParseTeam(s string) (config.Team, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 || parts[0] == "" {
		return config.Team{}, fmt.Errorf("invalid team %q, expected name:permission[:members]", s)
	}
	permission := parts[1]
	switch permission {
	case "read", "write", "admin":
	default:
		permission = "write"
	}
	team := config.Team{Name: parts[0], Permission: permission}
	if len(parts) == 3 && parts[2] != "" {
		team.Members = strings.Split(parts[2], ",")
	}
	return team, nil
}

// ParseUser parses a username:email flag value. Without an email the
// username gets an example.com address, same as the interactive default.
func ParseUser(s string) (config.User, error) {
	parts := strings.SplitN(s, ":", 2)
	if parts[0] == "" {
		return config.User{}, fmt.Errorf("invalid user %q, expected username[:email]", s)
	}
	user := config.User{Username: parts[0]}
	if len(parts) == 2 && parts[1] != "" {
		user.Email = parts[1]
	} else {
		user.Email = parts[0] + "@example.com"
	}
	return user, nil
}

// ParseOAuth parses a name:redirect_uri[:confidential|public] flag value.
// Redirect URIs contain colons themselves, so the client type is detected
// as a literal suffix rather than by splitting.
func ParseOAuth(s string) (config.OAuthApp, error) {
	name, rest, ok := strings.Cut(s, ":")
	if !ok || name == "" || rest == "" {
		return config.OAuthApp{}, fmt.Errorf("invalid oauth app %q, expected name:redirect_uri[:confidential|public]", s)
	}

	confidential := true
	switch {
	case strings.HasSuffix(rest, ":public"):
		rest = strings.TrimSuffix(rest, ":public")
		confidential = false
	case strings.HasSuffix(rest, ":confidential"):
		rest = strings.TrimSuffix(rest, ":confidential")
	}
	if rest == "" {
		return config.OAuthApp{}, fmt.Errorf("invalid oauth app %q, missing redirect URI", s)
	}
	return config.OAuthApp{Name: name, RedirectURI: rest, Confidential: &confidential}, nil
}

// FromFlags builds a configuration from non-interactive flags.
func FromFlags(f Flags) (*Result, error) {
	cfg := &config.Config{
		Gitea: config.Gitea{URL: orDefault(f.GiteaURL, DefaultGiteaURL)},
		Admin: config.Admin{
			Username: orDefault(f.AdminUsername, DefaultAdminUsername),
			Email:    orDefault(f.AdminEmail, DefaultAdminEmail),
		},
	}
	res := &Result{Config: cfg}

	if f.NewAdminUsername != "" || f.NewAdminEmail != "" || f.NewAdminPassword {
		cfg.AdminUpdate = &config.AdminUpdate{
			NewUsername:    f.NewAdminUsername,
			NewEmail:       f.NewAdminEmail,
			ChangePassword: f.NewAdminPassword,
		}
		if f.NewAdminPassword {
			pw, err := secrets.Generate(secrets.DefaultLength)
			if err != nil {
				return nil, fmt.Errorf("generating admin password: %w", err)
			}
			res.AdminPassword = pw
		}
	}

	if f.OrgName != "" {
		org := &config.Organization{
			Name:        f.OrgName,
			Description: f.OrgDescription,
			Visibility:  orDefault(f.OrgVisibility, "public"),
		}
		for _, s := range f.Teams {
			team, err := ParseTeam(s)
			if err != nil {
				return nil, err
			}
			org.Teams = append(org.Teams, team)
		}
		cfg.Organization = org
	} else if len(f.Teams) > 0 {
		return nil, fmt.Errorf("--team requires --org-name")
	}

	for _, s := range f.Users {
		user, err := ParseUser(s)
		if err != nil {
			return nil, err
		}
		cfg.Users = append(cfg.Users, user)
	}

	if f.OAuthWoodpecker {
		confidential := true
		cfg.OAuthApps = append(cfg.OAuthApps, config.OAuthApp{
			Name:         WoodpeckerAppName,
			RedirectURI:  WoodpeckerRedirectURI,
			Confidential: &confidential,
		})
	}
	for _, s := range f.OAuth {
		app, err := ParseOAuth(s)
		if err != nil {
			return nil, err
		}
		cfg.OAuthApps = append(cfg.OAuthApps, app)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return res, nil
}

// FromTOML reloads a previously written configuration, typically a backup.
// A requested password rotation gets a fresh password: the old one was
// never stored in the TOML.
func FromTOML(path string) (*Result, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	res := &Result{Config: cfg}
	if cfg.AdminUpdate != nil && cfg.AdminUpdate.ChangePassword {
		pw, err := secrets.Generate(secrets.DefaultLength)
		if err != nil {
			return nil, fmt.Errorf("generating admin password: %w", err)
		}
		res.AdminPassword = pw
	}
	return res, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
