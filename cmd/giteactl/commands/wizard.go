package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/forgelocal/giteactl/pkg/config"
	"github.com/forgelocal/giteactl/pkg/envfile"
	"github.com/forgelocal/giteactl/pkg/wizard"
)

type WizardCmd struct {
	NonInteractive bool   `help:"Build the config from flags instead of prompts" short:"n"`
	FromToml       string `help:"Load configuration from an existing TOML file" name:"from-toml" type:"path"`
	Output         string `help:"Where to write the config" default:"config/setup.toml" short:"o"`
	EnvFile        string `help:"Path to the environment file" default:".env"`
	Overwrite      bool   `help:"Overwrite an existing config without asking" short:"y"`

	GiteaURL      string `help:"Gitea server URL"`
	AdminUsername string `help:"Current admin username"`
	AdminEmail    string `help:"Current admin email"`

	NewAdminUsername string `help:"Rename the admin to this username"`
	NewAdminEmail    string `help:"Change the admin email"`
	NewAdminPassword bool   `help:"Generate and set a new admin password (saved to the env file)"`

	OrgName        string `help:"Organization name (omit to skip org creation)"`
	OrgDescription string `help:"Organization description"`
	OrgVisibility  string `help:"Organization visibility" enum:"public,private," default:""`

	Team  []string `help:"Team as name:permission:member1,member2 (repeatable)"`
	User  []string `help:"User as username:email (repeatable)"`
	Oauth []string `help:"OAuth app as name:redirect_uri:confidential|public (repeatable)"`

	OauthWoodpecker bool `help:"Add the default Woodpecker CI OAuth app"`
}

func (c *WizardCmd) Run(ctx *cliCtx) error {
	res, err := c.build()
	if err != nil {
		return err
	}

	fmt.Println(wizard.Summary(res.Config))

	if _, err := os.Stat(c.Output); err == nil && !c.Overwrite {
		if c.NonInteractive || c.FromToml != "" {
			return fmt.Errorf("%s already exists, use -y to overwrite", c.Output)
		}
		ok, err := wizard.Confirm(fmt.Sprintf("%s already exists, overwrite?", c.Output), false)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("cancelled, existing file preserved")
			return nil
		}
	}

	if err := c.write(res.Config); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", c.Output)

	if res.AdminPassword != "" {
		err := envfile.Set(c.EnvFile,
			envfile.Pair{Key: "NEW_GITEA_ADMIN_PASSWORD", Value: res.AdminPassword})
		if err != nil {
			fmt.Printf("could not update %s, generated admin password: %s\n", c.EnvFile, res.AdminPassword)
		} else {
			fmt.Println("saved NEW_GITEA_ADMIN_PASSWORD to " + c.EnvFile)
		}
	}

	fmt.Println("\nnext steps:")
	fmt.Println("  giteactl setup --dry-run   # preview")
	fmt.Println("  giteactl setup             # apply")
	return nil
}

func (c *WizardCmd) build() (*wizard.Result, error) {
	if c.FromToml != "" {
		return wizard.FromTOML(c.FromToml)
	}
	if c.NonInteractive {
		return wizard.FromFlags(wizard.Flags{
			GiteaURL:         c.GiteaURL,
			AdminUsername:    c.AdminUsername,
			AdminEmail:       c.AdminEmail,
			NewAdminUsername: c.NewAdminUsername,
			NewAdminEmail:    c.NewAdminEmail,
			NewAdminPassword: c.NewAdminPassword,
			OrgName:          c.OrgName,
			OrgDescription:   c.OrgDescription,
			OrgVisibility:    c.OrgVisibility,
			Teams:            c.Team,
			Users:            c.User,
			OAuth:            c.Oauth,
			OAuthWoodpecker:  c.OauthWoodpecker,
		})
	}
	return wizard.Run(c.EnvFile)
}

func (c *WizardCmd) write(cfg *config.Config) error {
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.Output), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(c.Output, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", c.Output, err)
	}
	return nil
}
