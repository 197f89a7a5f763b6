package gitea

// API payload types for the subset of the Gitea v1 API the provisioner
// touches. Field names follow the wire format, not the config schema.

// ServerVersion is the response of GET /version.
type ServerVersion struct {
	Version string `json:"version"`
}

// User is a Gitea account.
type User struct {
	ID       int64  `json:"id"`
	UserName string `json:"login"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
}

// CreateUserOption is the body of POST /admin/users.
type CreateUserOption struct {
	Username           string `json:"username"`
	Email              string `json:"email"`
	Password           string `json:"password"`
	MustChangePassword bool   `json:"must_change_password"`
}

// EditUserOption is the body of PATCH /admin/users/{username}.
type EditUserOption struct {
	LoginName string `json:"login_name"`
	SourceID  int64  `json:"source_id"`
	Email     string `json:"email,omitempty"`
	Password  string `json:"password,omitempty"`
}

// RenameUserOption is the body of POST /admin/users/{username}/rename.
type RenameUserOption struct {
	NewUsername string `json:"new_username"`
}

// Organization is a Gitea organization.
type Organization struct {
	ID          int64  `json:"id"`
	UserName    string `json:"username"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
}

// CreateOrgOption is the body of POST /orgs.
type CreateOrgOption struct {
	UserName    string `json:"username"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
}

// Team is a team within an organization.
type Team struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Permission string `json:"permission"`
}

// CreateTeamOption is the body of POST /orgs/{org}/teams.
type CreateTeamOption struct {
	Name       string   `json:"name"`
	Permission string   `json:"permission"`
	Units      []string `json:"units"`
}

// DefaultTeamUnits are the repository features a provisioned team gets
// access to.
var DefaultTeamUnits = []string{
	"repo.code",
	"repo.issues",
	"repo.pulls",
	"repo.releases",
	"repo.wiki",
}

// OAuth2App is a registered OAuth2 application. ClientSecret is only
// populated in the creation response and can never be fetched again.
type OAuth2App struct {
	ID                 int64    `json:"id"`
	Name               string   `json:"name"`
	ClientID           string   `json:"client_id"`
	ClientSecret       string   `json:"client_secret"`
	RedirectURIs       []string `json:"redirect_uris"`
	ConfidentialClient bool     `json:"confidential_client"`
}

// CreateOAuth2Option is the body of POST /user/applications/oauth2.
type CreateOAuth2Option struct {
	Name               string   `json:"name"`
	RedirectURIs       []string `json:"redirect_uris"`
	ConfidentialClient bool     `json:"confidential_client"`
}

// Repository is a Gitea repository.
type Repository struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
	HTMLURL     string `json:"html_url"`
}

// CreateRepoOption is the body of POST /orgs/{org}/repos and
// POST /user/repos.
type CreateRepoOption struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	AutoInit    bool   `json:"auto_init"`
	Private     bool   `json:"private"`
}

// ContentsResponse is the response of GET /repos/{o}/{r}/contents/{path}.
// Content is base64 and SHA is the blob hash used for conflict detection
// on updates.
type ContentsResponse struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// CreateFileOption is the body of POST /repos/{o}/{r}/contents/{path}.
// Content must be base64-encoded.
type CreateFileOption struct {
	Content string `json:"content"`
	Message string `json:"message"`
}

// UpdateFileOption is the body of PUT /repos/{o}/{r}/contents/{path}.
// SHA must match the current remote blob or Gitea rejects the update.
type UpdateFileOption struct {
	Content string `json:"content"`
	Message string `json:"message"`
	SHA     string `json:"sha"`
}

// Issue is a repository issue.
type Issue struct {
	ID     int64  `json:"id"`
	Number int64  `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	State  string `json:"state"`
}

// CreateIssueOption is the body of POST /repos/{o}/{r}/issues.
type CreateIssueOption struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}
