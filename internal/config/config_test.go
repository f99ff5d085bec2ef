package config

import (
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sqldispatch/cli/internal/errors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SQLDISPATCH_PROJECT_REF", "SUPABASE_PROJECT_REF",
		"SQLDISPATCH_ACCESS_TOKEN", "SUPABASE_ACCESS_TOKEN",
		"SQLDISPATCH_DB_URL", "DATABASE_URL",
		"SQLDISPATCH_API_URL", "SQLDISPATCH_TIMEOUT",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestResolveFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("SUPABASE_PROJECT_REF", "abcdefghijklmnop")
	t.Setenv("SUPABASE_ACCESS_TOKEN", "sbp_envtoken")
	t.Setenv("SQLDISPATCH_TIMEOUT", "30s")

	v, err := newWithFile(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("newWithFile() error = %v", err)
	}
	s, err := Resolve(v, func() (string, error) { return "sbp_keychain", nil })
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if s.ProjectRef != "abcdefghijklmnop" {
		t.Errorf("ProjectRef = %q", s.ProjectRef)
	}
	if s.AccessToken != "sbp_envtoken" || s.TokenSource != "environment" {
		t.Errorf("token = %q from %q, want env token", s.AccessToken, s.TokenSource)
	}
	if s.APIURL != DefaultAPIURL {
		t.Errorf("APIURL = %q, want default", s.APIURL)
	}
	if s.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", s.Timeout)
	}
}

func TestResolveFallsBackToKeychain(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"project_ref":"fromfile","api_url":"http://localhost:54321/"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	v, err := newWithFile(path)
	if err != nil {
		t.Fatalf("newWithFile() error = %v", err)
	}
	s, err := Resolve(v, func() (string, error) { return " sbp_keychain\n", nil })
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if s.ProjectRef != "fromfile" {
		t.Errorf("ProjectRef = %q, want fromfile", s.ProjectRef)
	}
	if s.APIURL != "http://localhost:54321" {
		t.Errorf("APIURL = %q, want trailing slash trimmed", s.APIURL)
	}
	if s.AccessToken != "sbp_keychain" || s.TokenSource != "keychain" {
		t.Errorf("token = %q from %q", s.AccessToken, s.TokenSource)
	}
	if s.Timeout != 0 {
		t.Errorf("Timeout = %v, want no timeout by default", s.Timeout)
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		loader  SecretLoader
		wantMsg string
	}{
		{
			name:    "missing project ref",
			env:     map[string]string{"SUPABASE_ACCESS_TOKEN": "sbp_x"},
			wantMsg: "no project reference",
		},
		{
			name:    "missing token",
			env:     map[string]string{"SUPABASE_PROJECT_REF": "ref"},
			loader:  func() (string, error) { return "", stderrors.New("key not found") },
			wantMsg: "no access token",
		},
		{
			name:    "bad timeout",
			env:     map[string]string{"SUPABASE_PROJECT_REF": "ref", "SQLDISPATCH_TIMEOUT": "soon"},
			wantMsg: "invalid timeout",
		},
		{
			name:    "bad api url",
			env:     map[string]string{"SUPABASE_PROJECT_REF": "ref", "SQLDISPATCH_API_URL": "ftp://x"},
			wantMsg: "invalid api_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, val := range tt.env {
				t.Setenv(k, val)
			}
			v, err := newWithFile(filepath.Join(t.TempDir(), "config.json"))
			if err != nil {
				t.Fatalf("newWithFile() error = %v", err)
			}
			_, err = Resolve(v, tt.loader)
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.KindOf(err) != errors.Config {
				t.Errorf("kind = %q, want config", errors.KindOf(err))
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestResolveDSN(t *testing.T) {
	clearEnv(t)
	v, err := newWithFile(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := ResolveDSN(v, nil); errors.KindOf(err) != errors.Config {
		t.Fatalf("ResolveDSN() without sources: err = %v", err)
	}

	dsn, src, err := ResolveDSN(v, func() (string, error) { return "postgres://u:p@h/db", nil })
	if err != nil || dsn != "postgres://u:p@h/db" || src != "keychain" {
		t.Fatalf("ResolveDSN() = %q, %q, %v", dsn, src, err)
	}

	t.Setenv("DATABASE_URL", "postgres://env:p@h/db")
	dsn, src, err = ResolveDSN(v, func() (string, error) { return "postgres://u:p@h/db", nil })
	if err != nil || dsn != "postgres://env:p@h/db" || src != "environment" {
		t.Fatalf("ResolveDSN() = %q, %q, %v", dsn, src, err)
	}
}

func TestSetInFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	if err := setInFile(path, KeyProjectRef, "myref"); err != nil {
		t.Fatalf("setInFile() error = %v", err)
	}
	if err := setInFile(path, KeyTimeout, "45s"); err != nil {
		t.Fatalf("setInFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]string
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got[KeyProjectRef] != "myref" || got[KeyTimeout] != "45s" {
		t.Errorf("file contents = %v", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}

	for _, bad := range []struct{ key, value string }{
		{KeyAccessToken, "sbp_secret"},
		{"colour", "blue"},
		{KeyTimeout, "forever"},
		{KeyAPIURL, "not a url"},
	} {
		if err := setInFile(path, bad.key, bad.value); errors.KindOf(err) != errors.Config {
			t.Errorf("setInFile(%q, %q) err = %v, want config error", bad.key, bad.value, err)
		}
	}
}
