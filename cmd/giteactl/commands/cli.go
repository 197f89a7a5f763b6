// Package commands implements the giteactl command tree.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/forgelocal/giteactl/pkg/config"
	"github.com/forgelocal/giteactl/pkg/envfile"
	"github.com/forgelocal/giteactl/pkg/gitea"
	"github.com/forgelocal/giteactl/pkg/oskeyring"
	"github.com/forgelocal/giteactl/pkg/provision"
)

type cliCtx struct {
	Debug bool
	context.Context
	Logger  *slog.Logger
	Keyring oskeyring.Service
}

type cli struct {
	Init   InitCmd   `cmd:"" help:"Scaffold config/setup.toml and .env defaults"`
	Secret SecretCmd `cmd:"" help:"Generate an alphanumeric secret"`
	Setup  SetupCmd  `cmd:"" help:"Provision users, organization and teams from the config"`
	Oauth  OauthCmd  `cmd:"" help:"Create OAuth2 applications for CI integration"`
	Demo   DemoCmd   `cmd:"" help:"Create the demo repository with files and sample issues"`
	Wizard WizardCmd `cmd:"" help:"Generate config/setup.toml interactively or from flags"`
	Auth   AuthCmd   `cmd:"" help:"Manage the admin password in the OS keyring"`

	Debug   bool             `help:"Enable debug logging"`
	Version kong.VersionFlag `help:"Show version"`
}

func Execute(version string) {
	var cli cli
	ctx := kong.Parse(&cli,
		kong.UsageOnError(),
		kong.Name("giteactl"),
		kong.Description("giteactl provisions a Gitea instance from a declarative TOML file"),
		kong.Vars{"version": version},
	)

	level := slog.LevelInfo
	if cli.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	err := ctx.Run(&cliCtx{
		Context: context.Background(),
		Debug:   cli.Debug,
		Logger:  logger,
		Keyring: oskeyring.NewDefaultService(),
	})
	ctx.FatalIfErrorf(err)
}

// adminPassword resolves the Gitea admin password: explicit flag first,
// then GITEA_ADMIN_PASSWORD from the env file or process environment,
// finally the OS keyring.
func adminPassword(ctx *cliCtx, flag, envPath string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if v := envfile.Lookup(envPath, "GITEA_ADMIN_PASSWORD", ""); v != "" {
		return v, nil
	}
	secret, err := ctx.Keyring.Get(oskeyring.ServiceName, oskeyring.AdminPasswordKey)
	if err == nil && secret != "" {
		return secret, nil
	}
	return "", fmt.Errorf("no admin password found: set GITEA_ADMIN_PASSWORD, pass --password, or run 'giteactl auth set'")
}

// newClient builds the API client and probes /version so connection
// problems surface before any provisioning starts.
func newClient(ctx *cliCtx, baseURL, username, password string) (*gitea.Client, error) {
	client, err := gitea.NewClient(gitea.ClientConfig{
		BaseURL:  baseURL,
		Username: username,
		Password: password,
		Logger:   ctx.Logger,
	})
	if err != nil {
		return nil, err
	}
	version, err := client.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", baseURL, err)
	}
	ctx.Logger.Debug("connected to gitea", "url", baseURL, "version", version)
	return client, nil
}

func printSummary(sum *provision.Summary) error {
	for _, o := range sum.Outcomes {
		fmt.Println(o.String())
		if o.Note != "" {
			fmt.Println("  " + o.Note)
		}
	}
	created, skipped, failed, warnings := sum.Counts()
	if sum.DryRun {
		fmt.Printf("\ndry run: %d to create, %d already present, %d failed, %d warnings\n",
			created, skipped, failed, warnings)
	} else {
		fmt.Printf("\n%d created, %d skipped, %d failed, %d warnings\n",
			created, skipped, failed, warnings)
	}
	if !sum.OK() {
		return fmt.Errorf("%d resources failed", failed)
	}
	return nil
}

func printIntents(p *provision.Provisioner) {
	for _, intent := range p.Intents() {
		fmt.Println(intent)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.DefaultPath
	}
	return config.Load(path)
}
