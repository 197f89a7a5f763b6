// Package provision walks a declarative configuration in a fixed
// dependency order and applies each resource to a Gitea instance: look
// up by name, create when absent, record an outcome either way. Runs are
// idempotent; a failed resource never aborts the rest of the run.
package provision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/forgelocal/giteactl/pkg/config"
	"github.com/forgelocal/giteactl/pkg/gitea"
	"github.com/forgelocal/giteactl/pkg/secrets"
)

// generatedPasswordLength is used for users without a {USERNAME}_PASSWORD
// variable.
const generatedPasswordLength = 16

// adminPasswordLength is used when rotating the admin password.
const adminPasswordLength = 24

// Options configures a Provisioner.
type Options struct {
	Logger *slog.Logger
	// DryRun swaps the mutating half of the API for a Recorder.
	DryRun bool
	// LookupEnv resolves {USERNAME}_PASSWORD variables. Defaults to
	// os.LookupEnv; tests inject their own so no process environment is
	// touched.
	LookupEnv func(key string) (string, bool)
}

// Provisioner applies one configuration to one instance.
type Provisioner struct {
	api       API
	rec       *Recorder
	cfg       *config.Config
	logger    *slog.Logger
	lookupEnv func(string) (string, bool)

	// teamIDs caches name -> id across the teams and membership stages so
	// memberships do not re-list teams the run just created.
	teamIDs map[string]int64

	adminPassword string
}

// New creates a Provisioner over the given API. With Options.DryRun the
// api is wrapped in a Recorder and no mutation ever reaches it.
func New(api API, cfg *config.Config, opts Options) *Provisioner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	p := &Provisioner{
		api:       api,
		cfg:       cfg,
		logger:    logger,
		lookupEnv: lookup,
		teamIDs:   make(map[string]int64),
	}
	if opts.DryRun {
		p.rec = NewRecorder(api)
		p.api = p.rec
	}
	return p
}

// Intents returns the recorded dry-run intentions, nil outside dry-run.
func (p *Provisioner) Intents() []string {
	if p.rec == nil {
		return nil
	}
	return p.rec.Intents()
}

// DryRun reports whether this provisioner records instead of mutating.
func (p *Provisioner) DryRun() bool { return p.rec != nil }

// GeneratedAdminPassword returns the password generated by the admin
// update stage, empty when no rotation happened. The caller persists it
// to the env file; it appears nowhere else.
func (p *Provisioner) GeneratedAdminPassword() string { return p.adminPassword }

// fatal reports whether err must abort the whole run. Only transport
// failures qualify: if one request cannot reach the instance, none can.
func fatal(err error) bool {
	var te *gitea.TransportError
	return errors.As(err, &te) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Setup runs the account stages in dependency order: organization, teams,
// users, team memberships, then the optional admin profile update. The
// returned summary is complete unless the instance became unreachable.
func (p *Provisioner) Setup(ctx context.Context) (*Summary, error) {
	sum := &Summary{DryRun: p.DryRun()}
	if err := p.ApplyOrganization(ctx, sum); err != nil {
		return sum, err
	}
	if err := p.ApplyTeams(ctx, sum); err != nil {
		return sum, err
	}
	if err := p.ApplyUsers(ctx, sum); err != nil {
		return sum, err
	}
	if err := p.ApplyMemberships(ctx, sum); err != nil {
		return sum, err
	}
	if _, err := p.ApplyAdminUpdate(ctx, sum); err != nil {
		return sum, err
	}
	return sum, nil
}

// ApplyOrganization creates the configured organization when absent.
func (p *Provisioner) ApplyOrganization(ctx context.Context, sum *Summary) error {
	org := p.cfg.Organization
	if org == nil {
		return nil
	}

	existing, err := p.api.GetOrg(ctx, org.Name)
	if err != nil {
		if fatal(err) {
			return err
		}
		sum.add(Outcome{Stage: StageOrganization, Name: org.Name, Action: ActionFailed, Err: err})
		return nil
	}
	if existing != nil {
		sum.add(Outcome{Stage: StageOrganization, Name: org.Name, Action: ActionSkipped})
		return nil
	}

	visibility := org.Visibility
	if visibility == "" {
		visibility = "public"
	}
	_, err = p.api.CreateOrg(ctx, gitea.CreateOrgOption{
		UserName:    org.Name,
		Description: org.Description,
		Visibility:  visibility,
	})
	switch {
	case err == nil:
		sum.add(Outcome{Stage: StageOrganization, Name: org.Name, Action: ActionCreated})
	case errors.Is(err, gitea.ErrAlreadyExists):
		sum.add(Outcome{Stage: StageOrganization, Name: org.Name, Action: ActionSkipped})
	case fatal(err):
		return err
	default:
		sum.add(Outcome{Stage: StageOrganization, Name: org.Name, Action: ActionFailed, Err: err})
	}
	return nil
}

// ApplyTeams creates the organization's teams when absent and caches
// their ids for the membership stage.
func (p *Provisioner) ApplyTeams(ctx context.Context, sum *Summary) error {
	org := p.cfg.Organization
	if org == nil {
		return nil
	}

	for _, team := range org.Teams {
		existing, err := p.api.FindTeam(ctx, org.Name, team.Name)
		if err != nil {
			if fatal(err) {
				return err
			}
			sum.add(Outcome{Stage: StageTeam, Name: team.Name, Action: ActionFailed, Err: err})
			continue
		}
		if existing != nil {
			p.teamIDs[team.Name] = existing.ID
			sum.add(Outcome{Stage: StageTeam, Name: team.Name, Action: ActionSkipped})
			continue
		}

		permission := team.Permission
		if permission == "" {
			permission = "read"
		}
		created, err := p.api.CreateTeam(ctx, org.Name, gitea.CreateTeamOption{
			Name:       team.Name,
			Permission: permission,
			Units:      gitea.DefaultTeamUnits,
		})
		switch {
		case err == nil:
			p.teamIDs[team.Name] = created.ID
			sum.add(Outcome{Stage: StageTeam, Name: team.Name, Action: ActionCreated})
		case errors.Is(err, gitea.ErrAlreadyExists):
			sum.add(Outcome{Stage: StageTeam, Name: team.Name, Action: ActionSkipped})
		case fatal(err):
			return err
		default:
			sum.add(Outcome{Stage: StageTeam, Name: team.Name, Action: ActionFailed, Err: err})
		}
	}
	return nil
}

// ApplyUsers creates declared users when absent. Passwords come from
// {USERNAME}_PASSWORD or are generated and surfaced once in the outcome.
func (p *Provisioner) ApplyUsers(ctx context.Context, sum *Summary) error {
	for _, user := range p.cfg.Users {
		existing, err := p.api.GetUser(ctx, user.Username)
		if err != nil {
			if fatal(err) {
				return err
			}
			sum.add(Outcome{Stage: StageUser, Name: user.Username, Action: ActionFailed, Err: err})
			continue
		}
		if existing != nil {
			sum.add(Outcome{Stage: StageUser, Name: user.Username, Action: ActionSkipped})
			continue
		}

		envKey := strings.ToUpper(user.Username) + "_PASSWORD"
		password, fromEnv := p.lookupEnv(envKey)
		var note string
		if !fromEnv || password == "" {
			password, err = secrets.Generate(generatedPasswordLength)
			if err != nil {
				return fmt.Errorf("generating password for %s: %w", user.Username, err)
			}
			if p.DryRun() {
				// The real run generates its own password; this one is
				// discarded, so printing it would mislead.
				note = fmt.Sprintf("a password will be generated (set %s to choose one)", envKey)
			} else {
				note = fmt.Sprintf("generated password: %s (set %s to choose one)", password, envKey)
			}
		}

		_, err = p.api.CreateUser(ctx, gitea.CreateUserOption{
			Username:           user.Username,
			Email:              user.Email,
			Password:           password,
			MustChangePassword: false,
		})
		switch {
		case err == nil:
			sum.add(Outcome{Stage: StageUser, Name: user.Username, Action: ActionCreated, Note: note})
		case errors.Is(err, gitea.ErrAlreadyExists):
			sum.add(Outcome{Stage: StageUser, Name: user.Username, Action: ActionSkipped})
		case fatal(err):
			return err
		default:
			sum.add(Outcome{Stage: StageUser, Name: user.Username, Action: ActionFailed, Err: err})
		}
	}
	return nil
}

// ApplyMemberships assigns team members. A member referencing an unknown
// user records a member-not-found warning and never creates the user
// implicitly; the rest of the team is still assigned.
func (p *Provisioner) ApplyMemberships(ctx context.Context, sum *Summary) error {
	org := p.cfg.Organization
	if org == nil {
		return nil
	}

	for _, team := range org.Teams {
		teamID, ok := p.teamIDs[team.Name]
		if !ok {
			found, err := p.api.FindTeam(ctx, org.Name, team.Name)
			if err != nil {
				if fatal(err) {
					return err
				}
			}
			if found == nil {
				for _, member := range team.Members {
					sum.add(Outcome{
						Stage:  StageMembership,
						Name:   team.Name + "/" + member,
						Action: ActionFailed,
						Err:    fmt.Errorf("team %q not found", team.Name),
					})
				}
				continue
			}
			teamID = found.ID
			p.teamIDs[team.Name] = teamID
		}

		for _, member := range team.Members {
			name := team.Name + "/" + member
			user, err := p.api.GetUser(ctx, member)
			if err != nil {
				if fatal(err) {
					return err
				}
				sum.add(Outcome{Stage: StageMembership, Name: name, Action: ActionFailed, Err: err})
				continue
			}
			if user == nil {
				sum.add(Outcome{
					Stage:  StageMembership,
					Name:   name,
					Action: ActionMemberNotFound,
					Note:   fmt.Sprintf("user %q does not exist, not adding to team %q", member, team.Name),
				})
				continue
			}

			isMember, err := p.api.IsTeamMember(ctx, teamID, member)
			if err != nil {
				if fatal(err) {
					return err
				}
				sum.add(Outcome{Stage: StageMembership, Name: name, Action: ActionFailed, Err: err})
				continue
			}
			if isMember {
				sum.add(Outcome{Stage: StageMembership, Name: name, Action: ActionSkipped})
				continue
			}

			err = p.api.AddTeamMember(ctx, teamID, member)
			switch {
			case err == nil:
				sum.add(Outcome{Stage: StageMembership, Name: name, Action: ActionCreated})
			case errors.Is(err, gitea.ErrAlreadyExists):
				sum.add(Outcome{Stage: StageMembership, Name: name, Action: ActionSkipped})
			case fatal(err):
				return err
			default:
				sum.add(Outcome{Stage: StageMembership, Name: name, Action: ActionFailed, Err: err})
			}
		}
	}
	return nil
}

// OAuthCredential is the result of one OAuth app stage entry. The secret
// is only set when the app was created in this run; Gitea cannot reveal
// it afterwards.
type OAuthCredential struct {
	Name         string
	ClientID     string
	ClientSecret string
	Created      bool
}

// ApplyOAuthApps creates the configured OAuth2 applications, deduplicated
// by name. Existing apps are reported without a secret: the original one
// is unrecoverable and must be regenerated manually if needed.
func (p *Provisioner) ApplyOAuthApps(ctx context.Context, sum *Summary) ([]OAuthCredential, error) {
	var creds []OAuthCredential
	for _, app := range p.cfg.OAuthApps {
		existing, err := p.api.FindOAuthApp(ctx, app.Name)
		if err != nil {
			if fatal(err) {
				return creds, err
			}
			sum.add(Outcome{Stage: StageOAuthApp, Name: app.Name, Action: ActionFailed, Err: err})
			continue
		}
		if existing != nil {
			sum.add(Outcome{
				Stage:  StageOAuthApp,
				Name:   app.Name,
				Action: ActionSkipped,
				Note:   "existing secret cannot be recovered; delete the app and re-run to rotate it",
			})
			creds = append(creds, OAuthCredential{Name: app.Name, ClientID: existing.ClientID})
			continue
		}

		created, err := p.api.CreateOAuthApp(ctx, gitea.CreateOAuth2Option{
			Name:               app.Name,
			RedirectURIs:       []string{app.RedirectURI},
			ConfidentialClient: app.IsConfidential(),
		})
		switch {
		case err == nil:
			sum.add(Outcome{Stage: StageOAuthApp, Name: app.Name, Action: ActionCreated})
			creds = append(creds, OAuthCredential{
				Name:         app.Name,
				ClientID:     created.ClientID,
				ClientSecret: created.ClientSecret,
				Created:      true,
			})
		case errors.Is(err, gitea.ErrAlreadyExists):
			sum.add(Outcome{Stage: StageOAuthApp, Name: app.Name, Action: ActionSkipped})
		case fatal(err):
			return creds, err
		default:
			sum.add(Outcome{Stage: StageOAuthApp, Name: app.Name, Action: ActionFailed, Err: err})
		}
	}
	return creds, nil
}

// ApplyAdminUpdate applies the optional [admin_update] section: email and
// password changes first, then the rename. The generated password, if
// any, is returned so the caller can persist it to the env file.
func (p *Provisioner) ApplyAdminUpdate(ctx context.Context, sum *Summary) (string, error) {
	update := p.cfg.AdminUpdate
	if update == nil {
		return "", nil
	}
	admin := p.cfg.Admin.Username

	var newPassword string
	if update.NewEmail != "" || update.ChangePassword {
		opt := gitea.EditUserOption{LoginName: admin, Email: update.NewEmail}
		if update.ChangePassword {
			pw, err := secrets.Generate(adminPasswordLength)
			if err != nil {
				return "", fmt.Errorf("generating admin password: %w", err)
			}
			newPassword = pw
			opt.Password = pw
		}
		err := p.api.EditUser(ctx, admin, opt)
		switch {
		case err == nil:
			p.adminPassword = newPassword
			sum.add(Outcome{Stage: StageAdminUpdate, Name: admin, Action: ActionUpdated})
		case fatal(err):
			return "", err
		default:
			sum.add(Outcome{Stage: StageAdminUpdate, Name: admin, Action: ActionFailed, Err: err})
			return "", nil
		}
	}

	if update.NewUsername != "" && update.NewUsername != admin {
		err := p.api.RenameUser(ctx, admin, update.NewUsername)
		switch {
		case err == nil:
			sum.add(Outcome{
				Stage:  StageAdminUpdate,
				Name:   admin,
				Action: ActionUpdated,
				Note:   fmt.Sprintf("renamed to %q", update.NewUsername),
			})
		case fatal(err):
			return newPassword, err
		default:
			sum.add(Outcome{Stage: StageAdminUpdate, Name: admin, Action: ActionFailed, Err: err})
		}
	}
	return newPassword, nil
}

// DemoOwner resolves who owns the demo repository: the configured
// organization when it exists remotely, otherwise the admin account.
func (p *Provisioner) DemoOwner(ctx context.Context) (owner string, isOrg bool, err error) {
	if org := p.cfg.Organization; org != nil {
		existing, err := p.api.GetOrg(ctx, org.Name)
		if err != nil && fatal(err) {
			return "", false, err
		}
		if existing != nil {
			return org.Name, true, nil
		}
	}
	return p.cfg.Admin.Username, false, nil
}

// ApplyDemo creates the demo repository, uploads the template files and
// optionally creates the sample issues. Files already present with
// identical content are skipped; differing files are updated against the
// current remote blob hash; a readable-but-undecodable remote file is a
// loud per-file failure, never a guess.
func (p *Provisioner) ApplyDemo(ctx context.Context, sum *Summary, files []TemplateFile, issues []config.Issue) error {
	demo := p.cfg.Demo
	if !demo.IsEnabled() {
		return nil
	}

	repoName := "demo-app"
	repoDescription := "Demo application for CI testing"
	if demo != nil {
		if demo.RepoName != "" {
			repoName = demo.RepoName
		}
		if demo.RepoDescription != "" {
			repoDescription = demo.RepoDescription
		}
	}

	owner, isOrg, err := p.DemoOwner(ctx)
	if err != nil {
		return err
	}
	fullName := owner + "/" + repoName

	existing, err := p.api.GetRepo(ctx, owner, repoName)
	if err != nil {
		if fatal(err) {
			return err
		}
		sum.add(Outcome{Stage: StageRepository, Name: fullName, Action: ActionFailed, Err: err})
		return nil
	}
	if existing != nil {
		sum.add(Outcome{Stage: StageRepository, Name: fullName, Action: ActionSkipped})
	} else {
		opt := gitea.CreateRepoOption{Name: repoName, Description: repoDescription}
		if isOrg {
			_, err = p.api.CreateOrgRepo(ctx, owner, opt)
		} else {
			_, err = p.api.CreateUserRepo(ctx, opt)
		}
		switch {
		case err == nil:
			sum.add(Outcome{Stage: StageRepository, Name: fullName, Action: ActionCreated})
		case errors.Is(err, gitea.ErrAlreadyExists):
			sum.add(Outcome{Stage: StageRepository, Name: fullName, Action: ActionSkipped})
		case fatal(err):
			return err
		default:
			sum.add(Outcome{Stage: StageRepository, Name: fullName, Action: ActionFailed, Err: err})
			// Without the repository there is nothing to upload into.
			return nil
		}
	}

	for _, file := range files {
		if err := p.applyFile(ctx, sum, owner, repoName, file); err != nil {
			return err
		}
	}

	for _, issue := range issues {
		if err := p.applyIssue(ctx, sum, owner, repoName, issue); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provisioner) applyFile(ctx context.Context, sum *Summary, owner, repo string, file TemplateFile) error {
	name := repo + "/" + file.Path
	remote, err := p.api.GetContents(ctx, owner, repo, file.Path)
	if err != nil {
		if fatal(err) {
			return err
		}
		sum.add(Outcome{Stage: StageFile, Name: name, Action: ActionFailed, Err: err})
		return nil
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(file.Content))

	if remote == nil {
		err := p.api.CreateFile(ctx, owner, repo, file.Path, gitea.CreateFileOption{
			Content: encoded,
			Message: "Add " + file.Path,
		})
		switch {
		case err == nil:
			sum.add(Outcome{Stage: StageFile, Name: name, Action: ActionCreated})
		case errors.Is(err, gitea.ErrAlreadyExists):
			sum.add(Outcome{Stage: StageFile, Name: name, Action: ActionSkipped})
		case fatal(err):
			return err
		default:
			sum.add(Outcome{Stage: StageFile, Name: name, Action: ActionFailed, Err: err})
		}
		return nil
	}

	// Present but unreadable is distinct from absent: refuse to guess.
	if remote.SHA == "" {
		sum.add(Outcome{
			Stage: StageFile, Name: name, Action: ActionFailed,
			Err: fmt.Errorf("remote file exists but its content hash is unavailable"),
		})
		return nil
	}
	remoteContent, err := base64.StdEncoding.DecodeString(remote.Content)
	if err != nil {
		sum.add(Outcome{
			Stage: StageFile, Name: name, Action: ActionFailed,
			Err: fmt.Errorf("remote file exists but its content is not decodable: %w", err),
		})
		return nil
	}

	if string(remoteContent) == file.Content {
		sum.add(Outcome{Stage: StageFile, Name: name, Action: ActionSkipped})
		return nil
	}

	err = p.api.UpdateFile(ctx, owner, repo, file.Path, gitea.UpdateFileOption{
		Content: encoded,
		Message: "Update " + file.Path,
		SHA:     remote.SHA,
	})
	switch {
	case err == nil:
		sum.add(Outcome{Stage: StageFile, Name: name, Action: ActionUpdated})
	case fatal(err):
		return err
	default:
		sum.add(Outcome{Stage: StageFile, Name: name, Action: ActionFailed, Err: err})
	}
	return nil
}

func (p *Provisioner) applyIssue(ctx context.Context, sum *Summary, owner, repo string, issue config.Issue) error {
	existing, err := p.api.ListIssues(ctx, owner, repo)
	if err != nil {
		if fatal(err) {
			return err
		}
		sum.add(Outcome{Stage: StageIssue, Name: issue.Title, Action: ActionFailed, Err: err})
		return nil
	}
	for _, e := range existing {
		if e.Title == issue.Title {
			sum.add(Outcome{Stage: StageIssue, Name: issue.Title, Action: ActionSkipped})
			return nil
		}
	}

	_, err = p.api.CreateIssue(ctx, owner, repo, gitea.CreateIssueOption{Title: issue.Title, Body: issue.Body})
	switch {
	case err == nil:
		sum.add(Outcome{Stage: StageIssue, Name: issue.Title, Action: ActionCreated})
	case errors.Is(err, gitea.ErrAlreadyExists):
		sum.add(Outcome{Stage: StageIssue, Name: issue.Title, Action: ActionSkipped})
	case fatal(err):
		return err
	default:
		sum.add(Outcome{Stage: StageIssue, Name: issue.Title, Action: ActionFailed, Err: err})
	}
	return nil
}
