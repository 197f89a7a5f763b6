package commands

import (
	"fmt"

	"github.com/forgelocal/giteactl/pkg/envfile"
	"github.com/forgelocal/giteactl/pkg/provision"
)

type SetupCmd struct {
	Config   string `help:"Path to the provisioning config" default:"config/setup.toml" short:"c"`
	EnvFile  string `help:"Path to the environment file" default:".env"`
	Password string `help:"Admin password (overrides env file and keyring)" env:"GITEA_ADMIN_PASSWORD"`
	DryRun   bool   `help:"Preview changes without mutating anything" short:"n"`
}

func (c *SetupCmd) Run(ctx *cliCtx) error {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}
	password, err := adminPassword(ctx, c.Password, c.EnvFile)
	if err != nil {
		return err
	}
	client, err := newClient(ctx, cfg.Gitea.URL, cfg.Admin.Username, password)
	if err != nil {
		return err
	}

	p := provision.New(client, cfg, provision.Options{Logger: ctx.Logger, DryRun: c.DryRun})
	sum, err := p.Setup(ctx)
	if err != nil {
		return err
	}
	if c.DryRun {
		printIntents(p)
	}
	if err := printSummary(sum); err != nil {
		return err
	}

	if pw := p.GeneratedAdminPassword(); pw != "" && !c.DryRun {
		err := envfile.Set(c.EnvFile,
			envfile.Pair{Key: "NEW_GITEA_ADMIN_PASSWORD", Value: pw})
		if err != nil {
			// The rotation already happened; losing the password would
			// lock the operator out.
			fmt.Printf("could not update %s, new admin password: %s\n", c.EnvFile, pw)
			return err
		}
		fmt.Println("saved NEW_GITEA_ADMIN_PASSWORD to " + c.EnvFile)
	}
	return nil
}
