// Package gitea is a thin client for the subset of the Gitea REST API
// used for provisioning: users, organizations, teams, OAuth2 applications,
// repositories, file contents and issues.
package gitea

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"golang.org/x/time/rate"
)

const apiBase = "/api/v1"

// defaultTimeout bounds every request; the instance is local, anything
// slower is a deployment problem.
const defaultTimeout = 30 * time.Second

// Client talks to a single Gitea instance with admin basic auth. It
// performs no retries: a failed create is reported to the caller and the
// run moves on.
type Client struct {
	baseURL    *url.URL
	username   string
	password   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// ClientConfig holds everything needed to construct a Client.
type ClientConfig struct {
	// BaseURL is the root of the instance, e.g. http://gitea.localhost.
	BaseURL  string
	Username string
	Password string
	// HTTPClient overrides the default 30s-timeout client, mainly for tests.
	HTTPClient *http.Client
	Logger     *slog.Logger
	// RequestsPerSecond caps the request rate against the instance.
	// Zero means the default of 10.
	RequestsPerSecond float64
}

// NewClient creates a Client from the given configuration.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("gitea base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid gitea URL %q: %w", cfg.BaseURL, err)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	return &Client{
		baseURL:    base,
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: cfg.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), 5),
		logger:     cfg.Logger,
	}, nil
}

// do issues one API request. On 2xx the body is decoded into out when out
// is non-nil. On any other status the returned error carries the
// classification from errors.go; the status is returned either way so
// lookups can treat 404 as "absent" rather than as a failure.
func (c *Client) do(ctx context.Context, method, apiPath string, query url.Values, body, out any) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	u := c.baseURL.ResolveReference(&url.URL{Path: path.Join(c.baseURL.Path, apiBase, apiPath)})
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("gitea api request", "method", method, "path", apiPath)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &TransportError{URL: u.String(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, &TransportError{URL: u.String(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, classifyStatus(resp.StatusCode, respBody)
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding response from %s: %w", apiPath, err)
		}
	}
	return resp.StatusCode, nil
}

// Version probes the instance, doubling as a connectivity check.
func (c *Client) Version(ctx context.Context) (string, error) {
	var v ServerVersion
	if _, err := c.do(ctx, http.MethodGet, "/version", nil, nil, &v); err != nil {
		return "", err
	}
	return v.Version, nil
}

// GetUser looks a user up by name. Absent users return (nil, nil).
func (c *Client) GetUser(ctx context.Context, username string) (*User, error) {
	var u User
	status, err := c.do(ctx, http.MethodGet, "/users/"+username, nil, nil, &u)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser creates an account via the admin endpoint.
func (c *Client) CreateUser(ctx context.Context, opt CreateUserOption) (*User, error) {
	var u User
	if _, err := c.do(ctx, http.MethodPost, "/admin/users", nil, opt, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// EditUser updates email and/or password of an existing account.
func (c *Client) EditUser(ctx context.Context, username string, opt EditUserOption) error {
	_, err := c.do(ctx, http.MethodPatch, "/admin/users/"+username, nil, opt, nil)
	return err
}

// RenameUser changes an account's username.
func (c *Client) RenameUser(ctx context.Context, username, newUsername string) error {
	opt := RenameUserOption{NewUsername: newUsername}
	_, err := c.do(ctx, http.MethodPost, "/admin/users/"+username+"/rename", nil, opt, nil)
	return err
}

// GetOrg looks an organization up by name. Absent orgs return (nil, nil).
func (c *Client) GetOrg(ctx context.Context, name string) (*Organization, error) {
	var o Organization
	status, err := c.do(ctx, http.MethodGet, "/orgs/"+name, nil, nil, &o)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrg creates an organization owned by the authenticated admin.
func (c *Client) CreateOrg(ctx context.Context, opt CreateOrgOption) (*Organization, error) {
	var o Organization
	if _, err := c.do(ctx, http.MethodPost, "/orgs", nil, opt, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListTeams returns the teams of an organization.
func (c *Client) ListTeams(ctx context.Context, org string) ([]*Team, error) {
	var teams []*Team
	if _, err := c.do(ctx, http.MethodGet, "/orgs/"+org+"/teams", nil, nil, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// FindTeam returns the named team of an organization, or nil when absent.
func (c *Client) FindTeam(ctx context.Context, org, name string) (*Team, error) {
	teams, err := c.ListTeams(ctx, org)
	if err != nil {
		return nil, err
	}
	for _, t := range teams {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, nil
}

// CreateTeam creates a team in an organization.
func (c *Client) CreateTeam(ctx context.Context, org string, opt CreateTeamOption) (*Team, error) {
	var t Team
	if _, err := c.do(ctx, http.MethodPost, "/orgs/"+org+"/teams", nil, opt, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// IsTeamMember reports whether the user is already on the team.
func (c *Client) IsTeamMember(ctx context.Context, teamID int64, username string) (bool, error) {
	p := fmt.Sprintf("/teams/%d/members/%s", teamID, username)
	status, err := c.do(ctx, http.MethodGet, p, nil, nil, nil)
	if status == http.StatusNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AddTeamMember adds a user to a team. The user must already exist.
func (c *Client) AddTeamMember(ctx context.Context, teamID int64, username string) error {
	p := fmt.Sprintf("/teams/%d/members/%s", teamID, username)
	_, err := c.do(ctx, http.MethodPut, p, nil, nil, nil)
	return err
}

// ListOAuthApps returns the admin user's OAuth2 applications. Secrets are
// never included; Gitea only reveals them at creation.
func (c *Client) ListOAuthApps(ctx context.Context) ([]*OAuth2App, error) {
	var apps []*OAuth2App
	if _, err := c.do(ctx, http.MethodGet, "/user/applications/oauth2", nil, nil, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// FindOAuthApp returns the app with the given name, or nil when absent.
func (c *Client) FindOAuthApp(ctx context.Context, name string) (*OAuth2App, error) {
	apps, err := c.ListOAuthApps(ctx)
	if err != nil {
		return nil, err
	}
	for _, app := range apps {
		if app.Name == name {
			return app, nil
		}
	}
	return nil, nil
}

// CreateOAuthApp registers an OAuth2 application. The response is the only
// place the client secret ever appears.
func (c *Client) CreateOAuthApp(ctx context.Context, opt CreateOAuth2Option) (*OAuth2App, error) {
	var app OAuth2App
	if _, err := c.do(ctx, http.MethodPost, "/user/applications/oauth2", nil, opt, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// GetRepo looks a repository up. Absent repos return (nil, nil).
func (c *Client) GetRepo(ctx context.Context, owner, repo string) (*Repository, error) {
	var r Repository
	status, err := c.do(ctx, http.MethodGet, "/repos/"+owner+"/"+repo, nil, nil, &r)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateOrgRepo creates a repository under an organization.
func (c *Client) CreateOrgRepo(ctx context.Context, org string, opt CreateRepoOption) (*Repository, error) {
	var r Repository
	if _, err := c.do(ctx, http.MethodPost, "/orgs/"+org+"/repos", nil, opt, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateUserRepo creates a repository under the authenticated admin.
func (c *Client) CreateUserRepo(ctx context.Context, opt CreateRepoOption) (*Repository, error) {
	var r Repository
	if _, err := c.do(ctx, http.MethodPost, "/user/repos", nil, opt, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetContents fetches a file from a repository. Absent files return
// (nil, nil).
func (c *Client) GetContents(ctx context.Context, owner, repo, filePath string) (*ContentsResponse, error) {
	var cr ContentsResponse
	p := "/repos/" + owner + "/" + repo + "/contents/" + filePath
	status, err := c.do(ctx, http.MethodGet, p, nil, nil, &cr)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cr, nil
}

// CreateFile adds a new file to a repository.
func (c *Client) CreateFile(ctx context.Context, owner, repo, filePath string, opt CreateFileOption) error {
	p := "/repos/" + owner + "/" + repo + "/contents/" + filePath
	_, err := c.do(ctx, http.MethodPost, p, nil, opt, nil)
	return err
}

// UpdateFile replaces an existing file; opt.SHA must be the current blob
// hash or the instance rejects the write.
func (c *Client) UpdateFile(ctx context.Context, owner, repo, filePath string, opt UpdateFileOption) error {
	p := "/repos/" + owner + "/" + repo + "/contents/" + filePath
	_, err := c.do(ctx, http.MethodPut, p, nil, opt, nil)
	return err
}

// ListIssues returns issues of every state so duplicates are detected
// even after an issue was closed.
func (c *Client) ListIssues(ctx context.Context, owner, repo string) ([]*Issue, error) {
	var issues []*Issue
	q := url.Values{"state": {"all"}, "type": {"issues"}}
	p := "/repos/" + owner + "/" + repo + "/issues"
	if _, err := c.do(ctx, http.MethodGet, p, q, nil, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// CreateIssue opens an issue in a repository.
func (c *Client) CreateIssue(ctx context.Context, owner, repo string, opt CreateIssueOption) (*Issue, error) {
	var issue Issue
	p := "/repos/" + owner + "/" + repo + "/issues"
	if _, err := c.do(ctx, http.MethodPost, p, nil, opt, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}
