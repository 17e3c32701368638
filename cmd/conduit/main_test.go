package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TobiSchelling/conduit/internal/api"
	"github.com/TobiSchelling/conduit/internal/model"
	"github.com/TobiSchelling/conduit/internal/session"
	"github.com/TobiSchelling/conduit/internal/stubserver"
)

// writeConfig points a config file at baseURL with a throwaway data dir.
func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := fmt.Sprintf("api:\n  base_url: %s\n  rate_limit:\n    rps: 0\noutput:\n  data_dir: %s\n", baseURL, dir)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestFeedCommandListsArticles(t *testing.T) {
	srv := httptest.NewServer(stubserver.New().Handler())
	t.Cleanup(srv.Close)

	c := api.New(srv.URL)
	m := session.New(c, &session.MemoryStore{})
	c.SetTokenSource(m.Token)
	if err := m.Register(context.Background(), "alice@example.com", "alice", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}
	for _, title := range []string{"Tabs versus spaces", "On error wrapping"} {
		if _, err := c.CreateArticle(context.Background(), model.NewArticle{
			Title: title, Description: "d", Body: "b", TagList: []string{"go"},
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--config", writeConfig(t, srv.URL), "feed", "--tag", "go"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		feedTag = ""
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "Tabs versus spaces") || !strings.Contains(got, "On error wrapping") {
		t.Errorf("expected both articles in output:\n%s", got)
	}
	if strings.Index(got, "On error wrapping") > strings.Index(got, "Tabs versus spaces") {
		t.Errorf("expected newest article first:\n%s", got)
	}
	if strings.Contains(got, "page 1 of") {
		t.Errorf("pager shown for a single page:\n%s", got)
	}
}

func TestDescribe(t *testing.T) {
	err := describe(&api.ValidationError{Fields: map[string][]string{"title": {"can't be blank"}}})
	if err.Error() != "title can't be blank" {
		t.Errorf("unexpected message %q", err)
	}
	if err := describe(&api.NotFoundError{}); err.Error() != "not found" {
		t.Errorf("unexpected message %q", err)
	}
}

func TestConfirmerAssumeYes(t *testing.T) {
	if !(stdinConfirmer{assumeYes: true}).Confirm("Delete?") {
		t.Error("expected assumeYes to confirm without asking")
	}
}
