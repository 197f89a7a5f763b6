package commands

import (
	"fmt"

	"github.com/forgelocal/giteactl/pkg/oskeyring"
	"github.com/forgelocal/giteactl/pkg/secrets"
)

type AuthCmd struct {
	Set   AuthSetCmd   `cmd:"" help:"Store the admin password in the OS keyring"`
	Clear AuthClearCmd `cmd:"" help:"Remove the admin password from the OS keyring"`
}

type AuthSetCmd struct {
	Password string `help:"Password to store (generated when omitted)" short:"p"`
}

func (c *AuthSetCmd) Run(ctx *cliCtx) error {
	password := c.Password
	if password == "" {
		pw, err := secrets.Generate(secrets.DefaultLength)
		if err != nil {
			return err
		}
		password = pw
		fmt.Printf("generated admin password: %s\n", password)
	}
	if err := ctx.Keyring.Set(oskeyring.ServiceName, oskeyring.AdminPasswordKey, password); err != nil {
		return fmt.Errorf("storing password in keyring: %w", err)
	}
	fmt.Println("admin password stored in the OS keyring")
	return nil
}

type AuthClearCmd struct{}

func (c *AuthClearCmd) Run(ctx *cliCtx) error {
	if err := ctx.Keyring.Delete(oskeyring.ServiceName, oskeyring.AdminPasswordKey); err != nil {
		return fmt.Errorf("removing password from keyring: %w", err)
	}
	fmt.Println("admin password removed from the OS keyring")
	return nil
}
