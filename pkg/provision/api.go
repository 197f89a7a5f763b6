package provision

import (
	"context"

	"github.com/forgelocal/giteactl/pkg/gitea"
)

// API is the slice of the Gitea client the driver depends on. Lookups
// return (nil, nil) for absent resources. *gitea.Client implements it;
// the dry-run Recorder wraps it.
type API interface {
	Version(ctx context.Context) (string, error)

	GetUser(ctx context.Context, username string) (*gitea.User, error)
	CreateUser(ctx context.Context, opt gitea.CreateUserOption) (*gitea.User, error)
	EditUser(ctx context.Context, username string, opt gitea.EditUserOption) error
	RenameUser(ctx context.Context, username, newUsername string) error

	GetOrg(ctx context.Context, name string) (*gitea.Organization, error)
	CreateOrg(ctx context.Context, opt gitea.CreateOrgOption) (*gitea.Organization, error)

	FindTeam(ctx context.Context, org, name string) (*gitea.Team, error)
	CreateTeam(ctx context.Context, org string, opt gitea.CreateTeamOption) (*gitea.Team, error)
	IsTeamMember(ctx context.Context, teamID int64, username string) (bool, error)
	AddTeamMember(ctx context.Context, teamID int64, username string) error

	FindOAuthApp(ctx context.Context, name string) (*gitea.OAuth2App, error)
	CreateOAuthApp(ctx context.Context, opt gitea.CreateOAuth2Option) (*gitea.OAuth2App, error)

	GetRepo(ctx context.Context, owner, repo string) (*gitea.Repository, error)
	CreateOrgRepo(ctx context.Context, org string, opt gitea.CreateRepoOption) (*gitea.Repository, error)
	CreateUserRepo(ctx context.Context, opt gitea.CreateRepoOption) (*gitea.Repository, error)

	GetContents(ctx context.Context, owner, repo, path string) (*gitea.ContentsResponse, error)
	CreateFile(ctx context.Context, owner, repo, path string, opt gitea.CreateFileOption) error
	UpdateFile(ctx context.Context, owner, repo, path string, opt gitea.UpdateFileOption) error

	ListIssues(ctx context.Context, owner, repo string) ([]*gitea.Issue, error)
	CreateIssue(ctx context.Context, owner, repo string, opt gitea.CreateIssueOption) (*gitea.Issue, error)
}

var _ API = (*gitea.Client)(nil)
