package provision

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func writeTemplate(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	assert.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadTemplateDir(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "README.md", "# demo\n")
	writeTemplate(t, dir, ".woodpecker.yaml", "steps: []\n")
	writeTemplate(t, dir, "src/main.py", "print('hi')\n")
	writeTemplate(t, dir, IssuesFile, `[]`)
	writeTemplate(t, dir, ".git/config", "ignored")

	files, err := LoadTemplateDir(dir)
	assert.NoError(t, err)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	// Dotfiles are included, issues.json and .git are not, order is lexical.
	assert.Equal(t, []string{".woodpecker.yaml", "README.md", "src/main.py"}, paths)
	assert.Equal(t, "# demo\n", files[1].Content)
}

func TestLoadTemplateDirEmpty(t *testing.T) {
	_, err := LoadTemplateDir(t.TempDir())
	assert.Error(t, err)
}

func TestLoadTemplateIssues(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, IssuesFile, `[{"title": "First issue", "body": "hello"}]`)

	issues, err := LoadTemplateIssues(dir)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(issues))
	assert.Equal(t, "First issue", issues[0].Title)
	assert.Equal(t, "hello", issues[0].Body)
}

func TestLoadTemplateIssuesMissing(t *testing.T) {
	issues, err := LoadTemplateIssues(t.TempDir())
	assert.NoError(t, err)
	assert.Zero(t, issues)
}

func TestLoadTemplateIssuesMalformed(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, IssuesFile, `{not json`)
	_, err := LoadTemplateIssues(dir)
	assert.Error(t, err)
}
