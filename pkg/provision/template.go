package provision

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/forgelocal/giteactl/pkg/config"
)

// IssuesFile is the optional issue list inside a demo template directory.
// It is uploaded to the repository's issue tracker, not as a file.
const IssuesFile = "issues.json"

// TemplateFile is one file of the demo repository template, with its
// repository-relative path.
type TemplateFile struct {
	Path    string
	Content string
}

// LoadTemplateDir reads every regular file under dir in lexical order.
// Dotfiles are included (.woodpecker.yaml is the whole point of the demo);
// .git directories and the issues file are not.
func LoadTemplateDir(dir string) ([]TemplateFile, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("demo template directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("demo template path %s is not a directory", dir)
	}

	var files []TemplateFile
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if rel == IssuesFile {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("reading template file %s: %w", p, err)
		}
		files = append(files, TemplateFile{Path: filepath.ToSlash(rel), Content: string(data)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no template files found in %s", dir)
	}
	return files, nil
}

// LoadTemplateIssues reads issues.json from the template directory. A
// missing file yields nil so config-declared issues can take over.
func LoadTemplateIssues(dir string) ([]config.Issue, error) {
	data, err := os.ReadFile(filepath.Join(dir, IssuesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var issues []config.Issue
	if err := json.Unmarshal(data, &issues); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", IssuesFile, err)
	}
	return issues, nil
}
