// Package config loads and validates the declarative provisioning
// configuration (config/setup.toml).
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is the conventional location of the provisioning config.
const DefaultPath = "config/setup.toml"

// Config is the root of the declarative configuration. It is loaded once
// per invocation and never mutated afterwards.
type Config struct {
	Gitea        Gitea         `toml:"gitea"`
	Admin        Admin         `toml:"admin"`
	AdminUpdate  *AdminUpdate  `toml:"admin_update,omitempty"`
	Organization *Organization `toml:"organization,omitempty"`
	Users        []User        `toml:"users,omitempty"`
	OAuthApps    []OAuthApp    `toml:"oauth_apps,omitempty"`
	Demo         *Demo         `toml:"demo,omitempty"`
}

// Gitea points at the instance being provisioned.
type Gitea struct {
	URL string `toml:"url"`
}

// Admin holds the credentials identity used for API authentication.
// The password itself comes from the environment or the OS keyring,
// never from this file.
type Admin struct {
	Username string `toml:"username"`
	Email    string `toml:"email"`
}

// AdminUpdate describes optional changes to the admin account applied
// after provisioning: rename, new email, or a password rotation.
type AdminUpdate struct {
	NewUsername    string `toml:"new_username,omitempty"`
	NewEmail       string `toml:"new_email,omitempty"`
	ChangePassword bool   `toml:"change_password,omitempty"`
}

// Organization declares the org and its teams.
type Organization struct {
	Name        string `toml:"name"`
	Description string `toml:"description,omitempty"`
	Visibility  string `toml:"visibility,omitempty"` // public|private, defaults to public
	Teams       []Team `toml:"teams,omitempty"`
}

// Team declares a team inside the organization. Members reference
// usernames from [[users]] by name; existence is only checked at
// provisioning time.
type Team struct {
	Name       string   `toml:"name"`
	Permission string   `toml:"permission,omitempty"` // read|write|admin, defaults to read
	Members    []string `toml:"members,omitempty"`
}

// User declares an account to create. Its password is resolved from the
// {USERNAME}_PASSWORD environment variable or generated.
type User struct {
	Username string `toml:"username"`
	Email    string `toml:"email"`
}

// OAuthApp declares an OAuth2 application, deduplicated by name.
type OAuthApp struct {
	Name         string `toml:"name"`
	RedirectURI  string `toml:"redirect_uri"`
	Confidential *bool  `toml:"confidential,omitempty"`
}

// IsConfidential reports whether the app is a confidential client.
// Unset means confidential, matching the Gitea default for CI apps.
func (a OAuthApp) IsConfidential() bool {
	return a.Confidential == nil || *a.Confidential
}

// Demo declares the demo repository, its uploaded files and sample issues.
type Demo struct {
	Enabled         *bool   `toml:"enabled,omitempty"` // unset means enabled
	RepoName        string  `toml:"repo_name,omitempty"`
	RepoDescription string  `toml:"repo_description,omitempty"`
	CreateIssues    bool    `toml:"create_issues,omitempty"`
	Issues          []Issue `toml:"issues,omitempty"`
}

// IsEnabled reports whether demo provisioning should run.
func (d *Demo) IsEnabled() bool {
	return d == nil || d.Enabled == nil || *d.Enabled
}

// Issue is a sample issue, deduplicated by exact title.
type Issue struct {
	Title  string   `toml:"title"`
	Body   string   `toml:"body,omitempty"`
	Labels []string `toml:"labels,omitempty"`
}

// Load reads, parses and validates the configuration file. It fails before
// any API call can be made: a missing file wraps ErrMissing, broken TOML
// becomes a *ParseError naming the position, and semantic problems become
// a *ValidationError naming the offending entry.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s (run 'giteactl init' or 'giteactl wizard' to create one)", ErrMissing, path)
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, &ParseError{Path: path, Row: row, Column: col, Message: derr.Error()}
		}
		return nil, &ParseError{Path: path, Message: err.Error()}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and enumerated values. Optional fields
// keep their documented defaults; required fields are never silently
// substituted.
func (c *Config) Validate() error {
	if c.Gitea.URL == "" {
		return &ValidationError{Section: "gitea", Message: "url is required"}
	}
	if c.Admin.Username == "" {
		return &ValidationError{Section: "admin", Message: "username is required"}
	}

	if org := c.Organization; org != nil {
		if org.Name == "" {
			return &ValidationError{Section: "organization", Message: "name is required"}
		}
		switch org.Visibility {
		case "", "public", "private":
		default:
			return &ValidationError{
				Section: "organization",
				Message: fmt.Sprintf("visibility must be public or private, got %q", org.Visibility),
			}
		}
		for i, team := range org.Teams {
			if team.Name == "" {
				return &ValidationError{
					Section: fmt.Sprintf("organization.teams[%d]", i),
					Message: "name is required",
				}
			}
			switch team.Permission {
			case "", "read", "write", "admin":
			default:
				return &ValidationError{
					Section: fmt.Sprintf("organization.teams[%d] (%s)", i, team.Name),
					Message: fmt.Sprintf("permission must be read, write or admin, got %q", team.Permission),
				}
			}
		}
	}

	for i, user := range c.Users {
		if user.Username == "" {
			return &ValidationError{
				Section: fmt.Sprintf("users[%d]", i),
				Message: "username is required",
			}
		}
		if user.Email == "" {
			return &ValidationError{
				Section: fmt.Sprintf("users[%d] (%s)", i, user.Username),
				Message: "email is required",
			}
		}
	}

	for i, app := range c.OAuthApps {
		if app.Name == "" {
			return &ValidationError{
				Section: fmt.Sprintf("oauth_apps[%d]", i),
				Message: "name is required",
			}
		}
		if app.RedirectURI == "" {
			return &ValidationError{
				Section: fmt.Sprintf("oauth_apps[%d] (%s)", i, app.Name),
				Message: "redirect_uri is required",
			}
		}
	}

	if c.Demo != nil {
		for i, issue := range c.Demo.Issues {
			if issue.Title == "" {
				return &ValidationError{
					Section: fmt.Sprintf("demo.issues[%d]", i),
					Message: "title is required",
				}
			}
		}
	}

	return nil
}

// Marshal renders the configuration back to TOML, as written by the wizard.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
