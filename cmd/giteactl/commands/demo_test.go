package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func writeDemoDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# demo\n"), 0o644))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, ".woodpecker.yaml"), []byte("steps: []\n"), 0o644))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "issues.json"), []byte(`[{"title": "Try the pipeline", "body": "push a commit"}]`), 0o644))
	return dir
}

func TestDemoCmdUploadsTemplate(t *testing.T) {
	gitea := newFakeGitea(t)
	gitea.orgs["myorg"] = true
	dir := t.TempDir()

	cmd := &DemoCmd{
		Config:   writeSetupConfig(t, dir, gitea.URL()),
		Dir:      writeDemoDir(t),
		EnvFile:  filepath.Join(dir, ".env"),
		Password: "admin123",
	}
	out, errString := captureOutput(func() error { return cmd.Run(testCtx(t)) })
	assert.Equal(t, errString, "")

	assert.True(t, gitea.repos["myorg/demo-app"])
	assert.NotEqual(t, "", gitea.files["myorg/demo-app/contents/README.md"])
	assert.Equal(t, 0, len(gitea.issues["myorg/demo-app"]), "issues are opt-in")
	assert.Contains(t, out, "0 failed")
}

func TestDemoCmdCreateIssues(t *testing.T) {
	gitea := newFakeGitea(t)
	gitea.orgs["myorg"] = true
	dir := t.TempDir()

	cmd := &DemoCmd{
		Config:       writeSetupConfig(t, dir, gitea.URL()),
		Dir:          writeDemoDir(t),
		EnvFile:      filepath.Join(dir, ".env"),
		Password:     "admin123",
		CreateIssues: true,
	}
	_, errString := captureOutput(func() error { return cmd.Run(testCtx(t)) })
	assert.Equal(t, errString, "")
	assert.Equal(t, []string{"Try the pipeline"}, gitea.issues["myorg/demo-app"])

	// Re-running does not duplicate the issue.
	_, errString = captureOutput(func() error { return cmd.Run(testCtx(t)) })
	assert.Equal(t, errString, "")
	assert.Equal(t, 1, len(gitea.issues["myorg/demo-app"]))
}

func TestDemoCmdDryRunNeverMutates(t *testing.T) {
	gitea := newFakeGitea(t)
	gitea.orgs["myorg"] = true
	dir := t.TempDir()

	cmd := &DemoCmd{
		Config:   writeSetupConfig(t, dir, gitea.URL()),
		Dir:      writeDemoDir(t),
		EnvFile:  filepath.Join(dir, ".env"),
		Password: "admin123",
		DryRun:   true,
	}
	out, errString := captureOutput(func() error { return cmd.Run(testCtx(t)) })
	assert.Equal(t, errString, "")

	assert.Equal(t, 0, gitea.Mutations())
	assert.False(t, gitea.repos["myorg/demo-app"])
	assert.Contains(t, out, "would create repository")
}

func TestDemoCmdMissingTemplateDir(t *testing.T) {
	gitea := newFakeGitea(t)
	dir := t.TempDir()
	cmd := &DemoCmd{
		Config:   writeSetupConfig(t, dir, gitea.URL()),
		Dir:      filepath.Join(dir, "no-such-dir"),
		EnvFile:  filepath.Join(dir, ".env"),
		Password: "admin123",
	}
	err := cmd.Run(testCtx(t))
	assert.Error(t, err)
	assert.Equal(t, 0, gitea.Requests(), "template problems fail before any API call")
}

func TestDemoCmdConfigIssuesWinOverTemplate(t *testing.T) {
	gitea := newFakeGitea(t)
	gitea.orgs["myorg"] = true
	dir := t.TempDir()

	content := fmt.Sprintf(`
[gitea]
url = %q

[admin]
username = "admin"
email = "admin@localhost"

[organization]
name = "myorg"
visibility = "public"

[demo]
create_issues = true

[[demo.issues]]
title = "From the config"
`, gitea.URL())
	path := filepath.Join(dir, "setup.toml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cmd := &DemoCmd{
		Config:   path,
		Dir:      writeDemoDir(t),
		EnvFile:  filepath.Join(dir, ".env"),
		Password: "admin123",
	}
	_, errString := captureOutput(func() error { return cmd.Run(testCtx(t)) })
	assert.Equal(t, errString, "")
	assert.Equal(t, []string{"From the config"}, gitea.issues["myorg/demo-app"])
}
