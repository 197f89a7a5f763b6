// Package wizard builds a provisioning configuration either from an
// interactive terminal session or from compact non-interactive flags,
// and renders the result for operator review before it is written.
package wizard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/forgelocal/giteactl/pkg/config"
	"github.com/forgelocal/giteactl/pkg/envfile"
	"github.com/forgelocal/giteactl/pkg/secrets"
)

// envDefaults pulls interactive prompt defaults out of the env file so a
// stack bootstrapped with `giteactl init` pre-fills its own values.
type envDefaults struct {
	giteaURL      string
	adminUsername string
	adminEmail    string
}

func loadEnvDefaults(envPath string) envDefaults {
	d := envDefaults{
		giteaURL:      DefaultGiteaURL,
		adminUsername: DefaultAdminUsername,
		adminEmail:    DefaultAdminEmail,
	}
	values, err := envfile.Read(envPath)
	if err != nil {
		return d
	}
	if v := values["GITEA_EXTERNAL_URL"]; v != "" {
		d.giteaURL = v
	}
	if v := values["GITEA_ADMIN"]; v != "" {
		d.adminUsername = v
	}
	if v := values["GITEA_ADMIN_EMAIL"]; v != "" {
		d.adminEmail = v
	}
	return d
}

// Run walks the operator through the full interactive flow and returns
// the configuration to write. It never touches the filesystem itself.
func Run(envPath string) (*Result, error) {
	defaults := loadEnvDefaults(envPath)

	cfg := &config.Config{
		Gitea: config.Gitea{URL: defaults.giteaURL},
		Admin: config.Admin{Username: defaults.adminUsername, Email: defaults.adminEmail},
	}
	res := &Result{Config: cfg}

	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Gitea URL").
			Description("Where the instance is reachable.").
			Value(&cfg.Gitea.URL).
			Validate(notEmpty("url")),
		huh.NewInput().
			Title("Current admin username").
			Description("Used for API authentication.").
			Value(&cfg.Admin.Username).
			Validate(notEmpty("username")),
		huh.NewInput().
			Title("Current admin email").
			Value(&cfg.Admin.Email),
	)).Run()
	if err != nil {
		return nil, err
	}

	if err := runAdminUpdate(res); err != nil {
		return nil, err
	}
	if err := runOrganization(cfg); err != nil {
		return nil, err
	}
	if err := runUsers(cfg); err != nil {
		return nil, err
	}
	if err := runOAuthApps(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return res, nil
}

func runAdminUpdate(res *Result) error {
	cfg := res.Config

	var wantUpdate bool
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Update the admin profile?").
			Description("Rename the admin user or change its email/password.").
			Value(&wantUpdate),
	)).Run()
	if err != nil || !wantUpdate {
		return err
	}

	newUsername := cfg.Admin.Username
	newEmail := cfg.Admin.Email
	var changePassword bool
	err = huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("New username").Value(&newUsername),
		huh.NewInput().Title("New email").Value(&newEmail),
		huh.NewConfirm().
			Title("Rotate the password?").
			Description("A generated password is saved to the env file, never to the TOML.").
			Value(&changePassword),
	)).Run()
	if err != nil {
		return err
	}

	update := &config.AdminUpdate{ChangePassword: changePassword}
	if newUsername != cfg.Admin.Username {
		update.NewUsername = newUsername
	}
	if newEmail != cfg.Admin.Email {
		update.NewEmail = newEmail
	}
	if update.NewUsername == "" && update.NewEmail == "" && !changePassword {
		return nil
	}
	if changePassword {
		pw, err := secrets.Generate(secrets.DefaultLength)
		if err != nil {
			return fmt.Errorf("generating admin password: %w", err)
		}
		res.AdminPassword = pw
	}
	cfg.AdminUpdate = update
	return nil
}

func runOrganization(cfg *config.Config) error {
	wantOrg := true
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title("Create an organization?").Value(&wantOrg),
	)).Run()
	if err != nil || !wantOrg {
		return err
	}

	org := &config.Organization{Visibility: "public"}
	err = huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Organization name").
			Placeholder("myorg").
			Value(&org.Name).
			Validate(notEmpty("name")),
		huh.NewInput().
			Title("Description").
			Value(&org.Description),
		huh.NewSelect[string]().
			Title("Visibility").
			Options(huh.NewOptions("public", "private")...).
			Value(&org.Visibility),
	)).Run()
	if err != nil {
		return err
	}

	for {
		addTeam := len(org.Teams) < 2
		err := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().Title("Add a team?").Value(&addTeam),
		)).Run()
		if err != nil {
			return err
		}
		if !addTeam {
			break
		}

		team := config.Team{Permission: "write"}
		err = huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Team name").
				Placeholder("developers").
				Value(&team.Name).
				Validate(notEmpty("name")),
			huh.NewSelect[string]().
				Title("Permission level").
				Options(huh.NewOptions("read", "write", "admin")...).
				Value(&team.Permission),
		)).Run()
		if err != nil {
			return err
		}
		org.Teams = append(org.Teams, team)
	}

	cfg.Organization = org
	return nil
}

func runUsers(cfg *config.Config) error {
	for {
		addUser := len(cfg.Users) < 2
		err := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title("Add a user?").
				Description("Passwords come from {USERNAME}_PASSWORD env vars or are generated.").
				Value(&addUser),
		)).Run()
		if err != nil {
			return err
		}
		if !addUser {
			break
		}

		var user config.User
		err = huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&user.Username).
				Validate(notEmpty("username")),
		)).Run()
		if err != nil {
			return err
		}
		user.Email = user.Username + "@example.com"
		err = huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Email").Value(&user.Email),
		)).Run()
		if err != nil {
			return err
		}
		cfg.Users = append(cfg.Users, user)

		if cfg.Organization != nil {
			for i := range cfg.Organization.Teams {
				team := &cfg.Organization.Teams[i]
				join := true
				err := huh.NewForm(huh.NewGroup(
					huh.NewConfirm().
						Title(fmt.Sprintf("Add %s to team %q?", user.Username, team.Name)).
						Value(&join),
				)).Run()
				if err != nil {
					return err
				}
				if join && !contains(team.Members, user.Username) {
					team.Members = append(team.Members, user.Username)
				}
			}
		}
	}
	return nil
}

func runOAuthApps(cfg *config.Config) error {
	addWoodpecker := true
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Add the Woodpecker CI OAuth app?").
			Value(&addWoodpecker),
	)).Run()
	if err != nil {
		return err
	}
	if addWoodpecker {
		redirect := WoodpeckerRedirectURI
		err := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Redirect URI").Value(&redirect),
		)).Run()
		if err != nil {
			return err
		}
		confidential := true
		cfg.OAuthApps = append(cfg.OAuthApps, config.OAuthApp{
			Name:         WoodpeckerAppName,
			RedirectURI:  redirect,
			Confidential: &confidential,
		})
	}

	for {
		var addMore bool
		err := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().Title("Add another OAuth app?").Value(&addMore),
		)).Run()
		if err != nil {
			return err
		}
		if !addMore {
			break
		}

		app := config.OAuthApp{}
		confidential := true
		err = huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("App name").
				Value(&app.Name).
				Validate(notEmpty("name")),
			huh.NewInput().
				Title("Redirect URI").
				Value(&app.RedirectURI).
				Validate(notEmpty("redirect URI")),
			huh.NewConfirm().Title("Confidential client?").Value(&confidential),
		)).Run()
		if err != nil {
			return err
		}
		app.Confidential = &confidential
		cfg.OAuthApps = append(cfg.OAuthApps, app)
	}
	return nil
}

// Confirm asks a single yes/no question, for the write-file gate.
func Confirm(title string, def bool) (bool, error) {
	answer := def
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title(title).Value(&answer),
	)).Run()
	return answer, err
}

func notEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s must not be empty", field)
		}
		return nil
	}
}

func contains(s []string, v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}
