package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/forgelocal/giteactl/pkg/config"
	"github.com/forgelocal/giteactl/pkg/secrets"
)

// envTemplate seeds a fresh stack. The admin password is generated so no
// two stacks share the default credential.
const envTemplate = `# giteactl environment
GITEA_EXTERNAL_URL=http://gitea.localhost
GITEA_ADMIN=admin
GITEA_ADMIN_EMAIL=admin@localhost
GITEA_ADMIN_PASSWORD=%s
`

type InitCmd struct {
	Config    string `help:"Path for the provisioning config" default:"config/setup.toml" short:"c"`
	EnvFile   string `help:"Path for the environment file" default:".env"`
	Overwrite bool   `help:"Overwrite existing files" short:"y"`
}

func (c *InitCmd) Run(ctx *cliCtx) error {
	if err := c.writeConfig(); err != nil {
		return err
	}
	return c.writeEnv(ctx)
}

func (c *InitCmd) writeConfig() error {
	if _, err := os.Stat(c.Config); err == nil && !c.Overwrite {
		fmt.Printf("%s already exists, use -y to overwrite\n", c.Config)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.Config), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(c.Config, config.ExampleTOML, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", c.Config, err)
	}
	fmt.Printf("wrote %s\n", c.Config)
	return nil
}

func (c *InitCmd) writeEnv(ctx *cliCtx) error {
	if _, err := os.Stat(c.EnvFile); err == nil && !c.Overwrite {
		fmt.Printf("%s already exists, use -y to overwrite\n", c.EnvFile)
		return nil
	}
	password, err := secrets.Generate(secrets.DefaultLength)
	if err != nil {
		return fmt.Errorf("generating admin password: %w", err)
	}
	if err := os.WriteFile(c.EnvFile, []byte(fmt.Sprintf(envTemplate, password)), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", c.EnvFile, err)
	}
	ctx.Logger.Debug("scaffolded env file", "path", c.EnvFile)
	fmt.Printf("wrote %s with a generated admin password\n", c.EnvFile)
	return nil
}
