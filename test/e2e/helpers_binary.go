//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// pagesmithServer is a running pagesmith binary plus the fakes it talks to.
type pagesmithServer struct {
	cmd     *exec.Cmd
	address string
	apiKey  string
	dataDir string
	dbPath  string
	stdout  *bytes.Buffer
	rewrite *fakeRewriter
}

type serverOption func(env map[string]string)

func withAPIKey(key string) serverOption {
	return func(env map[string]string) { env["PAGESMITH_API_KEY"] = key }
}

func withDBPath(path string) serverOption {
	return func(env map[string]string) { env["PAGESMITH_DB_PATH"] = path }
}

func startPagesmith(t *testing.T, opts ...serverOption) *pagesmithServer {
	t.Helper()
	requirePagesmith(t)

	dataDir := t.TempDir()
	rw := newFakeRewriter(t)
	port := freePort(t)

	env := map[string]string{
		"PAGESMITH_CONFIG_PATH":      filepath.Join(dataDir, "absent.yaml"),
		"PAGESMITH_DEV_MODE":         "true",
		"PAGESMITH_PORT":             fmt.Sprint(port),
		"PAGESMITH_DB_DRIVER":        "sqlite",
		"PAGESMITH_DB_PATH":          filepath.Join(dataDir, "pagesmith.db"),
		"PAGESMITH_FETCH_MODE":       "http",
		"PAGESMITH_FETCH_TIMEOUT":    "10s",
		"PAGESMITH_VECTORIZER":       "tfidf",
		"PAGESMITH_REWRITE_PROVIDER": "openai",
		"PAGESMITH_REWRITE_BASE_URL": rw.srv.URL + "/v1/",
		"PAGESMITH_REWRITE_API_KEY":  "sk-e2e",
		"PAGESMITH_AUDIO_DIR":        filepath.Join(dataDir, "audio"),
		"PAGESMITH_LOG_LEVEL":        "debug",
	}
	for _, opt := range opts {
		opt(env)
	}

	s := &pagesmithServer{
		address: fmt.Sprintf("127.0.0.1:%d", port),
		apiKey:  env["PAGESMITH_API_KEY"],
		dataDir: dataDir,
		dbPath:  env["PAGESMITH_DB_PATH"],
		stdout:  &bytes.Buffer{},
		rewrite: rw,
	}

	s.cmd = exec.Command(pagesmithBin)
	s.cmd.Env = os.Environ()
	for k, v := range env {
		s.cmd.Env = append(s.cmd.Env, k+"="+v)
	}
	s.cmd.Stdout = s.stdout
	s.cmd.Stderr = s.stdout

	if err := s.cmd.Start(); err != nil {
		t.Fatalf("start pagesmith: %v", err)
	}
	t.Cleanup(func() {
		s.stop()
		if t.Failed() {
			t.Logf("pagesmith output:\n%s", s.stdout.String())
		}
	})

	if err := s.waitHealthy(10 * time.Second); err != nil {
		t.Fatalf("pagesmith not healthy: %v", err)
	}
	return s
}

func (s *pagesmithServer) stop() {
	if s.cmd != nil && s.cmd.Process != nil && s.cmd.ProcessState == nil {
		_ = s.cmd.Process.Signal(os.Interrupt)
		_ = s.cmd.Wait()
	}
}

func (s *pagesmithServer) baseURL() string {
	return "http://" + s.address
}

func (s *pagesmithServer) waitHealthy(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	url := s.baseURL() + "/health"

	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("timed out after %v", timeout)
}

// cache runs a cache subcommand against the server's database.
func (s *pagesmithServer) cache(t *testing.T, args ...string) string {
	t.Helper()
	cmd := exec.Command(pagesmithBin, append([]string{"cache"}, args...)...)
	cmd.Env = append(os.Environ(),
		"PAGESMITH_CONFIG_PATH="+filepath.Join(s.dataDir, "absent.yaml"),
		"PAGESMITH_DB_DRIVER=sqlite",
		"PAGESMITH_DB_PATH="+s.dbPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("pagesmith cache %v: %v\n%s", args, err, out)
	}
	return string(out)
}

// fakeRewriter answers OpenAI-style chat completions with a fixed page.
type fakeRewriter struct {
	srv   *httptest.Server
	calls atomic.Int32
}

const rewrittenPage = "<main><h1>Rewritten</h1></main>"

func newFakeRewriter(t *testing.T) *fakeRewriter {
	t.Helper()
	f := &fakeRewriter{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || filepath.Base(r.URL.Path) != "completions" {
			http.NotFound(w, r)
			return
		}
		f.calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-e2e",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": "```html\n" + rewrittenPage + "\n```",
				},
			}},
		})
	}))
	t.Cleanup(f.srv.Close)
	return f
}

// newPageServer serves body at "/" and 500s everywhere else.
func newPageServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
