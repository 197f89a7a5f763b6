package provision

import (
	"context"
	"fmt"

	"github.com/forgelocal/giteactl/pkg/gitea"
)

// Recorder is the dry-run strategy: existence checks pass through to the
// real API so would-create/would-skip is accurate, while every mutating
// call is replaced with a recorded intention. Resources the run would
// create are remembered, so a later lookup in the same run sees them the
// way a real run would. Nothing behind a Recorder ever changes remote
// state.
type Recorder struct {
	API
	intents []string

	users     map[string]*gitea.User
	teams     map[string]*gitea.Team
	teamNames map[int64]string
	// Teams this run would create get distinct negative placeholder ids
	// so membership calls against them never reach the wire.
	nextTeamID int64
}

// NewRecorder wraps api for a dry run.
func NewRecorder(api API) *Recorder {
	return &Recorder{
		API:        api,
		users:      make(map[string]*gitea.User),
		teams:      make(map[string]*gitea.Team),
		teamNames:  make(map[int64]string),
		nextTeamID: -1,
	}
}

// Intents returns the mutations that would have been performed, in order.
func (r *Recorder) Intents() []string {
	return r.intents
}

func (r *Recorder) record(format string, args ...any) {
	r.intents = append(r.intents, fmt.Sprintf(format, args...))
}

func (r *Recorder) GetUser(ctx context.Context, username string) (*gitea.User, error) {
	if u, ok := r.users[username]; ok {
		return u, nil
	}
	return r.API.GetUser(ctx, username)
}

func (r *Recorder) CreateUser(_ context.Context, opt gitea.CreateUserOption) (*gitea.User, error) {
	r.record("would create user %q (%s)", opt.Username, opt.Email)
	u := &gitea.User{UserName: opt.Username, Email: opt.Email}
	r.users[opt.Username] = u
	return u, nil
}

func (r *Recorder) EditUser(_ context.Context, username string, opt gitea.EditUserOption) error {
	r.record("would update admin user %q", username)
	return nil
}

func (r *Recorder) RenameUser(_ context.Context, username, newUsername string) error {
	r.record("would rename user %q to %q", username, newUsername)
	return nil
}

func (r *Recorder) CreateOrg(_ context.Context, opt gitea.CreateOrgOption) (*gitea.Organization, error) {
	r.record("would create organization %q (%s)", opt.UserName, opt.Visibility)
	return &gitea.Organization{UserName: opt.UserName, Visibility: opt.Visibility}, nil
}

func (r *Recorder) FindTeam(ctx context.Context, org, name string) (*gitea.Team, error) {
	if t, ok := r.teams[org+"/"+name]; ok {
		return t, nil
	}
	t, err := r.API.FindTeam(ctx, org, name)
	if t != nil {
		r.teamNames[t.ID] = t.Name
	}
	return t, err
}

func (r *Recorder) CreateTeam(_ context.Context, org string, opt gitea.CreateTeamOption) (*gitea.Team, error) {
	r.record("would create team %q in %q (%s)", opt.Name, org, opt.Permission)
	t := &gitea.Team{ID: r.nextTeamID, Name: opt.Name, Permission: opt.Permission}
	r.nextTeamID--
	r.teams[org+"/"+opt.Name] = t
	r.teamNames[t.ID] = t.Name
	return t, nil
}

func (r *Recorder) IsTeamMember(ctx context.Context, teamID int64, username string) (bool, error) {
	// A placeholder id means the team does not exist yet, so nobody can
	// be a member of it.
	if teamID < 0 {
		return false, nil
	}
	return r.API.IsTeamMember(ctx, teamID, username)
}

func (r *Recorder) AddTeamMember(_ context.Context, teamID int64, username string) error {
	if name, ok := r.teamNames[teamID]; ok {
		r.record("would add %q to team %q", username, name)
	} else {
		r.record("would add %q to team %d", username, teamID)
	}
	return nil
}

func (r *Recorder) CreateOAuthApp(_ context.Context, opt gitea.CreateOAuth2Option) (*gitea.OAuth2App, error) {
	r.record("would create OAuth app %q (redirect %s)", opt.Name, firstOrEmpty(opt.RedirectURIs))
	return &gitea.OAuth2App{Name: opt.Name, RedirectURIs: opt.RedirectURIs, ConfidentialClient: opt.ConfidentialClient}, nil
}

func (r *Recorder) CreateOrgRepo(_ context.Context, org string, opt gitea.CreateRepoOption) (*gitea.Repository, error) {
	r.record("would create repository %q in organization %q", opt.Name, org)
	return &gitea.Repository{Name: opt.Name, FullName: org + "/" + opt.Name}, nil
}

func (r *Recorder) CreateUserRepo(_ context.Context, opt gitea.CreateRepoOption) (*gitea.Repository, error) {
	r.record("would create repository %q under the admin user", opt.Name)
	return &gitea.Repository{Name: opt.Name}, nil
}

func (r *Recorder) CreateFile(_ context.Context, owner, repo, path string, _ gitea.CreateFileOption) error {
	r.record("would create file %s in %s/%s", path, owner, repo)
	return nil
}

func (r *Recorder) UpdateFile(_ context.Context, owner, repo, path string, _ gitea.UpdateFileOption) error {
	r.record("would update file %s in %s/%s", path, owner, repo)
	return nil
}

func (r *Recorder) CreateIssue(_ context.Context, owner, repo string, opt gitea.CreateIssueOption) (*gitea.Issue, error) {
	r.record("would create issue %q in %s/%s", opt.Title, owner, repo)
	return &gitea.Issue{Title: opt.Title, Body: opt.Body}, nil
}

func firstOrEmpty(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

var _ API = (*Recorder)(nil)
