// Package envfile reads and updates the stack's .env file. Reads go
// through godotenv; writes preserve existing lines, comments and ordering
// instead of rewriting the whole file.
package envfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultPath is where the stack keeps its environment file.
const DefaultPath = ".env"

// Pair is a single KEY=VALUE assignment. Updates are ordered, so related
// keys (client id then secret) stay adjacent when appended.
type Pair struct {
	Key   string
	Value string
}

// Read parses the env file into a map. A missing file is not an error and
// yields an empty map, matching how defaults are layered over it.
func Read(path string) (map[string]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("parsing env file %s: %w", path, err)
	}
	return vars, nil
}

// Lookup returns the value for key from the env file, falling back to the
// process environment and then to def.
func Lookup(path, key, def string) string {
	vars, err := Read(path)
	if err == nil {
		if v, ok := vars[key]; ok && v != "" {
			return v
		}
	}
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// Set updates or appends the given assignments in the env file, keeping
// every untouched line byte-identical. The file must already exist; secrets
// are never written to a location the operator did not create.
func Set(path string, pairs ...Pair) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("env file %s: %w", path, err)
	}

	var lines []string
	if trimmed := strings.TrimRight(string(content), "\n"); trimmed != "" {
		lines = strings.Split(trimmed, "\n")
	}
	seen := make(map[string]bool, len(pairs))
	for i, line := range lines {
		for _, p := range pairs {
			if strings.HasPrefix(line, p.Key+"=") {
				lines[i] = p.Key + "=" + p.Value
				seen[p.Key] = true
			}
		}
	}
	for _, p := range pairs {
		if !seen[p.Key] {
			lines = append(lines, p.Key+"="+p.Value)
		}
	}

	out := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(out), 0o600); err != nil {
		return fmt.Errorf("writing env file %s: %w", path, err)
	}
	return nil
}
