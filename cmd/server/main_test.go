package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestVersionNotEmpty(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
}

func TestExecuteVersion(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "realtime-listings ") {
		t.Errorf("output = %q", out.String())
	}
}

func TestExecuteOnce(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer ph" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("ETag", `"1"`)
		_, _ = w.Write([]byte(`{"posts":[{"id":2},{"id":1}]}`))
	}))
	defer upstream.Close()

	var mu sync.Mutex
	var published []string
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var m struct {
			Data json.RawMessage `json:"data"`
		}
		_ = json.NewDecoder(r.Body).Decode(&m)
		mu.Lock()
		defer mu.Unlock()
		published = append(published, string(m.Data))
	}))
	defer hook.Close()

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := "upstream:\n  url: " + upstream.URL + "\n  token: ph\npublisher:\n  type: webhook\n  webhook:\n    url: " + hook.URL + "\n"
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PORT", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"once", "--config", path})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("once command failed: %v", err)
	}

	var fresh []map[string]int
	if err := json.Unmarshal(out.Bytes(), &fresh); err != nil {
		t.Fatalf("decode output %q: %v", out.String(), err)
	}
	if len(fresh) != 2 || fresh[0]["id"] != 1 || fresh[1]["id"] != 2 {
		t.Errorf("output = %v, want ids [1 2]", fresh)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(published) != 2 || published[0] != `{"id":1}` {
		t.Errorf("published = %v", published)
	}
}
