package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/unreleased/internal/domain"
	"github.com/waabox/unreleased/internal/service"
)

var fixedNow = time.Date(2025, 1, 16, 12, 0, 0, 0, time.UTC)

type harness struct {
	app    *app
	stdout bytes.Buffer
	stderr bytes.Buffer
	env    map[string]string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("UNRELEASED_GH_TOKEN", "")
	t.Setenv("UNRELEASED_GH_API_URL", "")
	h := &harness{env: map[string]string{"UNRELEASED_GH_TOKEN": "test-token"}}
	h.app = newApp(&h.stdout, &h.stderr)
	h.app.getenv = func(k string) string { return h.env[k] }
	h.app.runner = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return nil, []byte("gh not available in tests"), errors.New("exit status 1")
	}
	h.app.now = func() time.Time { return fixedNow }
	h.app.terminal = func(io.Writer) bool { return false }
	return h
}

func (h *harness) run(args ...string) error {
	cmd := h.app.rootCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func fakeGitHub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/api/releases", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`[{"tag_name":"v1.0.0","prerelease":false}]`))
	})
	mux.HandleFunc("/repos/acme/api/compare/v1.0.0...main", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"html_url": "https://github.com/acme/api/compare/v1.0.0...main",
			"commits": []map[string]any{
				{
					"sha":      "bbbbbbbbbbbb",
					"html_url": "https://github.com/acme/api/commit/bbbbbbbbbbbb",
					"commit":   map[string]any{"message": "second change\n\ndetails", "author": map[string]any{"name": "User B", "date": fixedNow.Add(-30 * time.Minute)}},
				},
				{
					"sha":      "aaaaaaaaaaaa",
					"html_url": "https://github.com/acme/api/commit/aaaaaaaaaaaa",
					"commit":   map[string]any{"message": "first change", "author": map[string]any{"name": "User A", "date": fixedNow.Add(-48 * time.Hour)}},
				},
			},
		})
	})
	mux.HandleFunc("/repos/acme/web/releases", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/repos/acme/broken/releases", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeConfigWithToken(t *testing.T, apiURL, token string, repos ...string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("[github]\napi_url = \"" + apiURL + "\"\n")
	if token != "" {
		b.WriteString("token = \"" + token + "\"\n")
	}
	for _, r := range repos {
		b.WriteString("\n[[repos]]\nrepo = \"" + r + "\"\n")
	}
	path := filepath.Join(t.TempDir(), "unreleased.toml")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0600))
	return path
}

func writeConfig(t *testing.T, apiURL string, repos ...string) string {
	t.Helper()
	return writeConfigWithToken(t, apiURL, "", repos...)
}

func TestReport_Stdout(t *testing.T) {
	srv := fakeGitHub(t)
	path := writeConfig(t, srv.URL, "acme/web", "acme/api")
	h := newHarness(t)

	require.NoError(t, h.run("report", "-c", path, "--stdout-plain", "--progress", "never"))

	out := h.stdout.String()
	assert.True(t, strings.HasPrefix(out, "acme/api v1.0.0..main\n\n"), "unexpected heading:\n%s", out)
	first := strings.Index(out, "first change")
	second := strings.Index(out, "second change")
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, second, 0)
	assert.Less(t, first, second, "expected commits oldest first, got:\n%s", out)
	for _, want := range []string{"aaaaaaa", "User A", "2d ago", "30m ago"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "acme/web", "repo without release should be skipped")
}

func TestReport_HTML(t *testing.T) {
	srv := fakeGitHub(t)
	path := writeConfig(t, srv.URL, "acme/api")
	htmlPath := filepath.Join(t.TempDir(), "report.html")
	h := newHarness(t)

	require.NoError(t, h.run("report", "-c", path, "-o", "html", "--html-output", htmlPath, "--html-title", "release train", "--progress", "never"))

	data, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	html := string(data)
	for _, want := range []string{"<title>release train</title>", "acme/api", "https://github.com/acme/api/compare/v1.0.0...main", "2025-01-16T12:00:00Z"} {
		assert.Contains(t, html, want)
	}
	assert.Contains(t, h.stderr.String(), htmlPath)
	assert.Zero(t, h.stdout.Len(), "expected nothing on stdout, got %q", h.stdout.String())
}

func TestReport_CustomTemplate(t *testing.T) {
	srv := fakeGitHub(t)
	path := writeConfig(t, srv.URL, "acme/api")
	dir := t.TempDir()
	tmplPath := filepath.Join(dir, "custom.html")
	require.NoError(t, os.WriteFile(tmplPath, []byte(`{{ range .CommitLogs }}{{ .Repo }}={{ len .Commits }}{{ end }}`), 0600))
	htmlPath := filepath.Join(dir, "out.html")
	h := newHarness(t)

	require.NoError(t, h.run("report", "-c", path, "-o", "html", "--html-template", tmplPath, "--html-output", htmlPath, "--progress", "never"))
	data, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Equal(t, "acme/api=2", string(data))
}

func TestReport_MissingTemplate(t *testing.T) {
	h := newHarness(t)
	err := h.run("report", "-o", "html", "--html-template", "/nonexistent/template.html")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), `failed to read HTML template from "/nonexistent/template.html"`), "unexpected error: %v", err)
}

func TestReport_PartialFailureFailsTheRun(t *testing.T) {
	srv := fakeGitHub(t)
	path := writeConfig(t, srv.URL, "acme/api", "acme/broken")
	h := newHarness(t)

	err := h.run("report", "-c", path, "--progress", "never")
	require.Error(t, err)
	assert.EqualError(t, err, "couldn't fetch commit logs for some repos:\n - acme/broken: couldn't get the latest release: GitHub API request failed with status 404 Not Found: {\"message\":\"Not Found\"}")
	assert.NotContains(t, err.Error(), "rejected the token")
	assert.Zero(t, h.stdout.Len(), "expected no report on failure, got:\n%s", h.stdout.String())
}

func TestReport_RejectedEnvTokenPointsAtEnvVar(t *testing.T) {
	srv := fakeGitHub(t)
	path := writeConfig(t, srv.URL, "acme/api", "acme/web")
	h := newHarness(t)
	h.env["UNRELEASED_GH_TOKEN"] = "expired-token"

	err := h.run("report", "-c", path, "--progress", "never")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	var ferr *service.FetchErrors
	require.ErrorAs(t, err, &ferr)
	assert.Len(t, ferr.Errors, 1)

	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "couldn't fetch commit logs for some repos:\n - acme/api:"), "unexpected message:\n%s", msg)
	assert.True(t, strings.HasSuffix(msg, "\n\nGitHub rejected the token from env; check the value of UNRELEASED_GH_TOKEN"), "unexpected message:\n%s", msg)
	assert.Zero(t, h.stdout.Len())
}

func TestReport_RejectedConfigTokenPointsAtConfigFile(t *testing.T) {
	srv := fakeGitHub(t)
	path := writeConfigWithToken(t, srv.URL, "stale-token", "acme/api")
	h := newHarness(t)
	h.env = map[string]string{}

	err := h.run("report", "-c", path, "--progress", "never")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.True(t, strings.HasSuffix(err.Error(), "GitHub rejected the token from config; check github.token in "+path), "unexpected message:\n%s", err.Error())
}

func TestReport_FilterNoMatch(t *testing.T) {
	path := writeConfig(t, "http://127.0.0.1:1", "acme/api")
	h := newHarness(t)

	err := h.run("report", "-c", path, "-f", "^other/")
	require.Error(t, err)
	assert.True(t, strings.HasSuffix(err.Error(), "no repos match the provided filter"), "unexpected error: %v", err)
}

func TestReport_InvalidRegex(t *testing.T) {
	h := newHarness(t)
	err := h.run("report", "-f", "(")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "invalid regex pattern provided"), "unexpected error: %v", err)
}

func TestReport_InvalidConfigReportsEveryEntry(t *testing.T) {
	path := writeConfig(t, "http://127.0.0.1:1", "acme", "/api")
	h := newHarness(t)

	err := h.run("report", "-c", path)
	require.Error(t, err)
	for _, want := range []string{"config has errors:", " - repo #0 has errors:", `repo needs to be in the format "owner/repo"`, " - repo #1 has errors:", "owner is empty"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestReport_DuplicateEntriesAreRejected(t *testing.T) {
	path := writeConfig(t, "http://127.0.0.1:1", "acme/api", "acme/web", "acme/api")
	h := newHarness(t)

	err := h.run("report", "-c", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), " - repo #2 has errors:\n   - duplicate of repo #0")
}

func TestReport_NoTokenAnywhere(t *testing.T) {
	srv := fakeGitHub(t)
	path := writeConfig(t, srv.URL, "acme/api")
	h := newHarness(t)
	h.env = map[string]string{}

	err := h.run("report", "-c", path)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "couldn't get a GitHub authentication token"), "unexpected error: %v", err)
}

func TestReport_InvalidOutputFormat(t *testing.T) {
	h := newHarness(t)
	assert.Error(t, h.run("report", "-o", "pdf"))
}

func TestReport_Debug(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("report", "--debug", "-f", "acme"))

	out := h.stdout.String()
	for _, want := range []string{"DEBUG INFO", "command:                report", "config file path:       <NOT PROVIDED>", "repo filter:            acme"} {
		assert.Contains(t, out, want)
	}
}

func TestInvalidLogLevel(t *testing.T) {
	h := newHarness(t)
	err := h.run("report", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func initClone(t *testing.T, url string) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{url}})
	require.NoError(t, err)
	return dir
}

func TestAdd_AppendsDetectedRepo(t *testing.T) {
	clone := initClone(t, "git@github.com:acme/api.git")
	path := filepath.Join(t.TempDir(), "conf", "unreleased.toml")
	h := newHarness(t)

	require.NoError(t, h.run("add", clone, "-c", path, "--head-ref", "develop"))
	assert.Contains(t, h.stdout.String(), "added acme/api to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, `repo = "acme/api"`)
	assert.Contains(t, content, `head_ref = "develop"`)
	assert.NotContains(t, content, "consider_prereleases", "unset flags should not be written")
}

func TestAdd_RefusesDuplicates(t *testing.T) {
	clone := initClone(t, "https://github.com/acme/api.git")
	path := writeConfig(t, "http://127.0.0.1:1", "acme/api")
	h := newHarness(t)

	err := h.run("add", clone, "-c", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is already in")
}

func TestAdd_NotAClone(t *testing.T) {
	h := newHarness(t)
	err := h.run("add", t.TempDir(), "-c", filepath.Join(t.TempDir(), "u.toml"))
	assert.Error(t, err, "expected an error outside a git repository")
}
