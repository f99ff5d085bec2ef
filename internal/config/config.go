// Package config resolves CLI configuration from flags, environment, .env files,
// the XDG config file and the OS keychain.
// Only non-secret settings are persisted here; the access token and DSN live in
// the keychain or the environment.
package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"sqldispatch/cli/internal/errors"
	"sqldispatch/cli/internal/xdg"

	"github.com/spf13/viper"
)

// Keys understood by the config layer.
const (
	KeyProjectRef   = "project_ref"
	KeyAPIURL       = "api_url"
	KeyDashboardURL = "dashboard_url"
	KeyTimeout      = "timeout"
	KeyLogLevel     = "log_level"
	KeyAccessToken  = "access_token"
	KeyDBURL        = "db_url"
)

// Defaults.
const (
	DefaultAPIURL       = "https://api.supabase.com"
	DefaultDashboardURL = "https://supabase.com/dashboard"
	DefaultLogLevel     = "info"
)

// persistable lists the keys `config set` may write to disk.
var persistable = map[string]bool{
	KeyProjectRef:   true,
	KeyAPIURL:       true,
	KeyDashboardURL: true,
	KeyTimeout:      true,
	KeyLogLevel:     true,
}

// Settings is the resolved, read-only configuration for one run.
type Settings struct {
	ProjectRef   string
	APIURL       string
	DashboardURL string
	AccessToken  string
	TokenSource  string
	Timeout      time.Duration
	LogLevel     string
}

// SecretLoader returns a secret from secure storage.
type SecretLoader func() (string, error)

// New builds a viper instance with defaults, environment bindings and the
// settings file loaded. A missing settings file is not an error.
func New() (*viper.Viper, error) {
	path, err := xdg.ConfigFile()
	if err != nil {
		return nil, err
	}
	return newWithFile(path)
}

func newWithFile(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(KeyAPIURL, DefaultAPIURL)
	v.SetDefault(KeyDashboardURL, DefaultDashboardURL)
	v.SetDefault(KeyTimeout, "0s")
	v.SetDefault(KeyLogLevel, DefaultLogLevel)

	v.SetEnvPrefix("SQLDISPATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(KeyProjectRef, "SQLDISPATCH_PROJECT_REF", "SUPABASE_PROJECT_REF")
	_ = v.BindEnv(KeyAccessToken, "SQLDISPATCH_ACCESS_TOKEN", "SUPABASE_ACCESS_TOKEN")
	_ = v.BindEnv(KeyDBURL, "SQLDISPATCH_DB_URL", "DATABASE_URL")

	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return v, nil
}

// Resolve produces Settings for a management API run.
// The token comes from the environment first, then from loadToken.
func Resolve(v *viper.Viper, loadToken SecretLoader) (Settings, error) {
	s := Settings{
		ProjectRef:   strings.TrimSpace(v.GetString(KeyProjectRef)),
		APIURL:       strings.TrimRight(strings.TrimSpace(v.GetString(KeyAPIURL)), "/"),
		DashboardURL: strings.TrimRight(strings.TrimSpace(v.GetString(KeyDashboardURL)), "/"),
		LogLevel:     v.GetString(KeyLogLevel),
	}

	timeout, err := time.ParseDuration(v.GetString(KeyTimeout))
	if err != nil {
		return s, errors.Wrap(errors.Config, "invalid timeout", err)
	}
	s.Timeout = timeout

	if err := validateURL(s.APIURL); err != nil {
		return s, errors.Wrap(errors.Config, "invalid api_url", err)
	}
	if s.ProjectRef == "" {
		return s, errors.New(errors.Config, "no project reference configured; set SUPABASE_PROJECT_REF, pass --project-ref or run 'sqldispatch config set project_ref <ref>'")
	}

	if tok := strings.TrimSpace(v.GetString(KeyAccessToken)); tok != "" {
		s.AccessToken = tok
		s.TokenSource = "environment"
		return s, nil
	}
	if loadToken != nil {
		if tok, err := loadToken(); err == nil && strings.TrimSpace(tok) != "" {
			s.AccessToken = strings.TrimSpace(tok)
			s.TokenSource = "keychain"
			return s, nil
		}
	}
	return s, errors.New(errors.Config, "no access token found; set SUPABASE_ACCESS_TOKEN or run 'sqldispatch login'")
}

// ResolveDSN returns the Postgres DSN for direct execution and where it came from.
func ResolveDSN(v *viper.Viper, loadDSN SecretLoader) (dsn string, source string, err error) {
	if d := strings.TrimSpace(v.GetString(KeyDBURL)); d != "" {
		return d, "environment", nil
	}
	if loadDSN != nil {
		if d, err := loadDSN(); err == nil && strings.TrimSpace(d) != "" {
			return strings.TrimSpace(d), "keychain", nil
		}
	}
	return "", "", errors.New(errors.Config, "no database URL found; pass --db-url, set DATABASE_URL or run 'sqldispatch connect'")
}

// Persistable reports whether key may be written with Set.
func Persistable(key string) bool { return persistable[key] }

// Set validates value and writes key to the settings file with 0600 permissions.
func Set(key, value string) error {
	path, err := xdg.ConfigFile()
	if err != nil {
		return err
	}
	return setInFile(path, key, value)
}

func setInFile(path, key, value string) error {
	if !persistable[key] {
		return errors.New(errors.Config, fmt.Sprintf("unknown or secret key %q", key))
	}
	switch key {
	case KeyTimeout:
		if _, err := time.ParseDuration(value); err != nil {
			return errors.Wrap(errors.Config, "timeout must be a duration like 30s", err)
		}
	case KeyAPIURL, KeyDashboardURL:
		if err := validateURL(value); err != nil {
			return errors.Wrap(errors.Config, "invalid URL", err)
		}
	}

	values := map[string]string{}
	data, err := os.ReadFile(path)
	if err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}
	values[key] = value

	b, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}
