package commands

import (
	"github.com/forgelocal/giteactl/pkg/config"
	"github.com/forgelocal/giteactl/pkg/provision"
)

type DemoCmd struct {
	Config       string `help:"Path to the provisioning config" default:"config/setup.toml" short:"c"`
	Dir          string `help:"Demo repository template directory" default:"demo-repo"`
	EnvFile      string `help:"Path to the environment file" default:".env"`
	Password     string `help:"Admin password (overrides env file and keyring)" env:"GITEA_ADMIN_PASSWORD"`
	DryRun       bool   `help:"Preview changes without mutating anything" short:"n"`
	CreateIssues bool   `help:"Also create the sample issues"`
}

func (c *DemoCmd) Run(ctx *cliCtx) error {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}

	files, err := provision.LoadTemplateDir(c.Dir)
	if err != nil {
		return err
	}
	issues, err := c.loadIssues(cfg)
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
	sum := &provision.Summary{DryRun: c.DryRun}
	if err := p.ApplyDemo(ctx, sum, files, issues); err != nil {
		return err
	}
	if c.DryRun {
		printIntents(p)
	}
	return printSummary(sum)
}

// loadIssues is gated by the --create-issues flag or [demo] create_issues.
// Issues declared in the config win over the template directory's
// issues.json.
func (c *DemoCmd) loadIssues(cfg *config.Config) ([]config.Issue, error) {
	enabled := c.CreateIssues
	if cfg.Demo != nil && cfg.Demo.CreateIssues {
		enabled = true
	}
	if !enabled {
		return nil, nil
	}
	if cfg.Demo != nil && len(cfg.Demo.Issues) > 0 {
		return cfg.Demo.Issues, nil
	}
	return provision.LoadTemplateIssues(c.Dir)
}
