package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/forgelocal/giteactl/pkg/oskeyring"
)

func testCtx(t *testing.T) *cliCtx {
	t.Helper()
	return &cliCtx{
		Context: context.Background(),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Keyring: oskeyring.NewMemoryService(),
	}
}

func captureOutput(f func() error) (string, string) {
	// Save original stdout and stderr
	oldOut := os.Stdout
	oldErr := os.Stderr

	// Create new pipes to capture output
	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()

	os.Stdout = wOut
	os.Stderr = wErr

	// Run function while capturing output
	err := f()
	if err != nil {
		os.Stdout = oldOut
		os.Stderr = oldErr
		wOut.Close()
		wErr.Close()
		return "", err.Error()
	}
	// Close writers
	wOut.Close()
	wErr.Close()

	// Read output from pipes
	var outBuf, errBuf bytes.Buffer
	io.Copy(&outBuf, rOut)
	io.Copy(&errBuf, rErr)

	// Restore original stdout and stderr
	os.Stdout = oldOut
	os.Stderr = oldErr

	return outBuf.String(), errBuf.String()
}

// fakeGitea is an in-memory Gitea instance behind httptest, counting
// requests so tests can assert that dry runs never mutate and that broken
// configs never reach the network.
type fakeGitea struct {
	srv *httptest.Server

	mu        sync.Mutex
	requests  int
	mutations int
	users     map[string]bool
	orgs      map[string]bool
	teams     map[string]map[string]int64
	members   map[string]bool
	apps      map[string]string
	repos     map[string]bool
	files     map[string]string
	issues    map[string][]string
	nextID    int64
}

func newFakeGitea(t *testing.T) *fakeGitea {
	t.Helper()
	f := &fakeGitea{
		users:   map[string]bool{},
		orgs:    map[string]bool{},
		teams:   map[string]map[string]int64{},
		members: map[string]bool{},
		apps:    map[string]string{},
		repos:   map[string]bool{},
		files:   map[string]string{},
		issues:  map[string][]string{},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGitea) URL() string { return f.srv.URL }

func (f *fakeGitea) Requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func (f *fakeGitea) Mutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mutations
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusNotFound, map[string]string{"message": msg})
}

func (f *fakeGitea) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	if r.Method != http.MethodGet {
		f.mutations++
	}

	p := strings.TrimPrefix(r.URL.Path, "/api/v1")
	parts := strings.Split(strings.Trim(p, "/"), "/")

	switch {
	case p == "/version":
		writeJSON(w, http.StatusOK, map[string]string{"version": "1.22.0"})

	case r.Method == http.MethodGet && parts[0] == "users" && len(parts) == 2:
		if f.users[parts[1]] {
			writeJSON(w, http.StatusOK, map[string]any{"login": parts[1], "id": 1})
		} else {
			notFound(w, "user does not exist")
		}
	case r.Method == http.MethodPost && p == "/admin/users":
		var body struct {
			Username string `json:"username"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if f.users[body.Username] {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "user already exists"})
			return
		}
		f.users[body.Username] = true
		writeJSON(w, http.StatusCreated, map[string]any{"login": body.Username, "id": 1})

	case r.Method == http.MethodPatch && len(parts) == 3 && parts[0] == "admin" && parts[1] == "users":
		if !f.users[parts[2]] {
			notFound(w, "user does not exist")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"login": parts[2], "id": 1})
	case r.Method == http.MethodPost && len(parts) == 4 && parts[0] == "admin" && parts[3] == "rename":
		var body struct {
			NewUsername string `json:"new_username"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		delete(f.users, parts[2])
		f.users[body.NewUsername] = true
		w.WriteHeader(http.StatusNoContent)

	case r.Method == http.MethodGet && parts[0] == "orgs" && len(parts) == 2:
		if f.orgs[parts[1]] {
			writeJSON(w, http.StatusOK, map[string]any{"username": parts[1], "id": 1})
		} else {
			notFound(w, "organization does not exist")
		}
	case r.Method == http.MethodPost && p == "/orgs":
		var body struct {
			Username string `json:"username"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.orgs[body.Username] = true
		writeJSON(w, http.StatusCreated, map[string]any{"username": body.Username, "id": 1})

	case parts[0] == "orgs" && len(parts) == 3 && parts[2] == "teams":
		org := parts[1]
		if r.Method == http.MethodGet {
			teams := []map[string]any{}
			for name, id := range f.teams[org] {
				teams = append(teams, map[string]any{"id": id, "name": name})
			}
			writeJSON(w, http.StatusOK, teams)
			return
		}
		var body struct {
			Name string `json:"name"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if f.teams[org] == nil {
			f.teams[org] = map[string]int64{}
		}
		f.nextID++
		f.teams[org][body.Name] = f.nextID
		writeJSON(w, http.StatusCreated, map[string]any{"id": f.nextID, "name": body.Name})

	case parts[0] == "teams" && len(parts) == 4 && parts[2] == "members":
		key := parts[1] + "/" + parts[3]
		if r.Method == http.MethodGet {
			if f.members[key] {
				w.WriteHeader(http.StatusNoContent)
			} else {
				notFound(w, "not a member")
			}
			return
		}
		f.members[key] = true
		w.WriteHeader(http.StatusNoContent)

	case p == "/user/applications/oauth2":
		if r.Method == http.MethodGet {
			apps := []map[string]any{}
			for name, clientID := range f.apps {
				apps = append(apps, map[string]any{"id": 1, "name": name, "client_id": clientID})
			}
			writeJSON(w, http.StatusOK, apps)
			return
		}
		var body struct {
			Name string `json:"name"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		clientID := fmt.Sprintf("client-%s", body.Name)
		f.apps[body.Name] = clientID
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":            1,
			"name":          body.Name,
			"client_id":     clientID,
			"client_secret": "secret-" + body.Name,
		})

	case parts[0] == "repos" && len(parts) == 3:
		key := parts[1] + "/" + parts[2]
		if f.repos[key] {
			writeJSON(w, http.StatusOK, map[string]any{"id": 1, "name": parts[2], "full_name": key})
		} else {
			notFound(w, "repository does not exist")
		}
	case r.Method == http.MethodPost && parts[0] == "orgs" && len(parts) == 3 && parts[2] == "repos":
		var body struct {
			Name string `json:"name"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.repos[parts[1]+"/"+body.Name] = true
		writeJSON(w, http.StatusCreated, map[string]any{"id": 1, "name": body.Name})
	case r.Method == http.MethodPost && p == "/user/repos":
		var body struct {
			Name string `json:"name"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.repos["admin/"+body.Name] = true
		writeJSON(w, http.StatusCreated, map[string]any{"id": 1, "name": body.Name})

	case parts[0] == "repos" && len(parts) >= 5 && parts[3] == "contents":
		key := strings.Join(parts[1:], "/")
		switch r.Method {
		case http.MethodGet:
			if file, ok := f.files[key]; ok {
				writeJSON(w, http.StatusOK, map[string]any{
					"path": strings.Join(parts[4:], "/"), "sha": "sha-1", "content": file,
				})
			} else {
				notFound(w, "file does not exist")
			}
		default:
			var body struct {
				Content string `json:"content"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			f.files[key] = body.Content
			writeJSON(w, http.StatusCreated, map[string]any{})
		}

	case parts[0] == "repos" && len(parts) == 4 && parts[3] == "issues":
		key := parts[1] + "/" + parts[2]
		if r.Method == http.MethodGet {
			issues := []map[string]any{}
			for _, title := range f.issues[key] {
				issues = append(issues, map[string]any{"id": 1, "title": title})
			}
			writeJSON(w, http.StatusOK, issues)
			return
		}
		var body struct {
			Title string `json:"title"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.issues[key] = append(f.issues[key], body.Title)
		writeJSON(w, http.StatusCreated, map[string]any{"id": 1, "title": body.Title})

	default:
		notFound(w, "not found")
	}
}
