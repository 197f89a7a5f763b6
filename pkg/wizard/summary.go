package wizard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/forgelocal/giteactl/pkg/config"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			MarginTop(1)

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Width(14)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Italic(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))
)

// Summary renders the configuration for operator review before writing.
func Summary(cfg *config.Config) string {
	var b strings.Builder

	section := func(title string) {
		b.WriteString(titleStyle.Render(title))
		b.WriteString("\n")
	}
	row := func(key, value string) {
		b.WriteString(keyStyle.Render(key))
		b.WriteString(value)
		b.WriteString("\n")
	}

	section("Server & Current Admin")
	row("Gitea URL", cfg.Gitea.URL)
	row("Admin user", cfg.Admin.Username)
	row("Admin email", cfg.Admin.Email)

	if update := cfg.AdminUpdate; update != nil {
		section("Admin Profile Updates")
		if update.NewUsername != "" {
			row("Rename to", update.NewUsername)
		}
		if update.NewEmail != "" {
			row("New email", update.NewEmail)
		}
		if update.ChangePassword {
			row("Password", warnStyle.Render("will be rotated"))
		}
	}

	if org := cfg.Organization; org != nil {
		section("Organization")
		row("Name", org.Name)
		row("Visibility", org.Visibility)
		if org.Description != "" {
			row("Description", org.Description)
		}
		for _, team := range org.Teams {
			members := strings.Join(team.Members, ", ")
			if members == "" {
				members = mutedStyle.Render("no members")
			}
			row("Team", team.Name+" ("+team.Permission+"): "+members)
		}
	}

	if len(cfg.Users) > 0 {
		section("Users")
		for _, user := range cfg.Users {
			row("User", user.Username+" <"+user.Email+">")
		}
	}

	if len(cfg.OAuthApps) > 0 {
		section("OAuth Applications")
		for _, app := range cfg.OAuthApps {
			kind := "confidential"
			if !app.IsConfidential() {
				kind = "public"
			}
			row("App", app.Name+" ("+kind+"): "+app.RedirectURI)
		}
	}

	return b.String()
}
