package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/forgelocal/giteactl/pkg/config"
	"github.com/forgelocal/giteactl/pkg/envfile"
	"github.com/forgelocal/giteactl/pkg/provision"
	"github.com/forgelocal/giteactl/pkg/wizard"
)

// envPrefix names the env file keys the CI stack reads its OAuth
// credentials from.
const envPrefix = "WOODPECKER_GITEA"

type OauthCmd struct {
	Config   string `help:"Path to TOML config with [[oauth_apps]] (flags are used without it)" short:"c"`
	Name     string `help:"OAuth application name" default:"Woodpecker CI" short:"n"`
	Redirect string `help:"OAuth redirect URI" default:"http://ci.localhost/authorize" short:"r"`
	Public   bool   `help:"Create a public client (PKCE, no secret)"`
	Format   string `help:"Output format" enum:"human,json,env,export" default:"human" short:"f"`
	NoEnv    bool   `help:"Do not update the env file"`
	EnvFile  string `help:"Path to the environment file" default:".env"`
	URL      string `help:"Gitea server URL" default:"http://gitea.localhost"`
	Admin    string `help:"Admin username" default:"admin"`
	Password string `help:"Admin password (overrides env file and keyring)" env:"GITEA_ADMIN_PASSWORD"`
}

func (c *OauthCmd) Run(ctx *cliCtx) error {
	cfg, err := c.buildConfig()
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

	p := provision.New(client, cfg, provision.Options{Logger: ctx.Logger})
	sum := &provision.Summary{}
	creds, err := p.ApplyOAuthApps(ctx, sum)
	if err != nil {
		return err
	}

	for i, cred := range creds {
		if err := c.printCredential(cred, sum); err != nil {
			return err
		}
		// Only a freshly created first app updates the env file: an
		// existing app has no recoverable secret to store.
		if i == 0 && cred.Created && c.Format == "human" && !c.NoEnv {
			err := envfile.Set(c.EnvFile,
				envfile.Pair{Key: envPrefix + "_CLIENT", Value: cred.ClientID},
				envfile.Pair{Key: envPrefix + "_SECRET", Value: cred.ClientSecret},
			)
			if err != nil {
				fmt.Printf("could not update %s: %v\n", c.EnvFile, err)
			} else {
				fmt.Println("updated " + c.EnvFile + " with OAuth credentials")
			}
		}
	}

	if !sum.OK() {
		return fmt.Errorf("%d OAuth apps failed", len(sum.Failed()))
	}
	return nil
}

// buildConfig loads the TOML config when given, otherwise synthesizes a
// single-app config from the flags.
func (c *OauthCmd) buildConfig() (*config.Config, error) {
	if c.Config != "" {
		cfg, err := config.Load(c.Config)
		if err != nil {
			return nil, err
		}
		if len(cfg.OAuthApps) == 0 {
			return nil, fmt.Errorf("no [[oauth_apps]] entries in %s", c.Config)
		}
		return cfg, nil
	}

	confidential := !c.Public
	return &config.Config{
		Gitea: config.Gitea{URL: c.URL},
		Admin: config.Admin{Username: c.Admin, Email: wizard.DefaultAdminEmail},
		OAuthApps: []config.OAuthApp{{
			Name:         c.Name,
			RedirectURI:  c.Redirect,
			Confidential: &confidential,
		}},
	}, nil
}

func (c *OauthCmd) printCredential(cred provision.OAuthCredential, sum *provision.Summary) error {
	secret := cred.ClientSecret
	if !cred.Created {
		secret = ""
	}

	switch c.Format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(map[string]string{
			"name":          cred.Name,
			"client_id":     cred.ClientID,
			"client_secret": secret,
		})
	case "env":
		fmt.Printf("%s_CLIENT=%s\n%s_SECRET=%s\n", envPrefix, cred.ClientID, envPrefix, secret)
	case "export":
		fmt.Printf("export %s_CLIENT=%s\nexport %s_SECRET=%s\n", envPrefix, cred.ClientID, envPrefix, secret)
	default:
		if cred.Created {
			fmt.Printf("OAuth2 app %q created\n  Client ID:     %s\n  Client Secret: %s\n",
				cred.Name, cred.ClientID, cred.ClientSecret)
		} else {
			fmt.Printf("OAuth2 app %q already exists\n  Client ID: %s\n", cred.Name, cred.ClientID)
			fmt.Println("  the existing secret cannot be recovered; delete the app and re-run to rotate it")
		}
	}
	return nil
}
