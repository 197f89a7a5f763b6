package commands

import (
	"fmt"

	"github.com/forgelocal/giteactl/pkg/envfile"
	"github.com/forgelocal/giteactl/pkg/secrets"
)

type SecretCmd struct {
	Length  int    `help:"Secret length" default:"24" short:"l"`
	EnvKey  string `help:"Also store the secret under this key in the env file"`
	EnvFile string `help:"Path to the environment file" default:".env"`
}

func (c *SecretCmd) Run(ctx *cliCtx) error {
	if c.Length < 1 {
		return fmt.Errorf("length must be positive, got %d", c.Length)
	}
	secret, err := secrets.Generate(c.Length)
	if err != nil {
		return err
	}
	fmt.Println(secret)

	if c.EnvKey != "" {
		if err := envfile.Set(c.EnvFile, envfile.Pair{Key: c.EnvKey, Value: secret}); err != nil {
			return err
		}
		ctx.Logger.Debug("stored secret in env file", "key", c.EnvKey, "path", c.EnvFile)
	}
	return nil
}
