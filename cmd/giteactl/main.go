// Package main provides the giteactl CLI for provisioning Gitea instances.
package main

import "github.com/forgelocal/giteactl/cmd/giteactl/commands"

func main() {
	commands.Execute(Version)
}
