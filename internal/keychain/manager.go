// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain provides centralized, thread-safe keychain operations for sqldispatch.
// It stores the management API access token and the direct-mode database URL in
// the OS credential store so neither ever has to live in source or on disk.
//
// On macOS the native `security` command is preferred; elsewhere the
// 99designs/keyring library picks a platform backend.
package keychain

import (
	"errors"
	"runtime"
	"sync"

	"github.com/99designs/keyring"
)

// Global keychain manager instance
var (
	globalManager *Manager
	globalError   error
	mu            sync.Mutex
)

// Manager provides centralized, thread-safe operations for the OS keychain.
type Manager struct {
	mu      sync.RWMutex
	backend keychainBackend
}

// keychainBackend defines the interface for keychain operations.
type keychainBackend interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "sqldispatch"

// Keys used for storing secrets in the OS keychain.
const (
	KeyAccessToken = "access_token"
	KeyDBURL       = "db_url"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("key not found")

// NewManager creates a new keychain manager with the OS keyring initialized.
func NewManager() (*Manager, error) {
	// Try native security backend first on macOS
	if runtime.GOOS == "darwin" {
		backend, err := newSecurityBackend()
		if err == nil {
			return &Manager{backend: backend}, nil
		}
	}

	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return &Manager{backend: ringBackend{ring: ring}}, nil
}

// newManagerWithBackend is used by tests to inject an in-memory store.
func newManagerWithBackend(b keychainBackend) *Manager {
	return &Manager{backend: b}
}

// GetManager returns the global keychain manager instance.
// If initialization fails, it will retry on subsequent calls.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}

	globalManager, globalError = NewManager()
	if globalError != nil {
		return nil, globalError
	}
	return globalManager, nil
}

// openRing opens the OS keyring using native platform backends only.
// There is deliberately no encrypted-file fallback.
func openRing() (keyring.Keyring, error) {
	var allowedBackends []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		allowedBackends = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowedBackends = []keyring.BackendType{keyring.WinCredBackend}
	case "linux":
		allowedBackends = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	default:
		return nil, errors.New("secure storage not supported on this OS")
	}

	cfg := keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: allowedBackends,
		PassPrefix:      ServiceName,
		WinCredPrefix:   ServiceName,
	}
	return keyring.Open(cfg)
}

// ringBackend adapts keyring.Keyring to keychainBackend.
type ringBackend struct {
	ring keyring.Keyring
}

func (r ringBackend) Set(key, value string) error {
	return r.ring.Set(keyring.Item{Key: key, Data: []byte(value)})
}

func (r ringBackend) Get(key string) (string, error) {
	it, err := r.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return string(it.Data), nil
}

func (r ringBackend) Delete(key string) error {
	err := r.ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}

// SaveAccessToken stores the management API token.
// This method is thread-safe.
func (m *Manager) SaveAccessToken(token string) error {
	if token == "" {
		return errors.New("empty access token")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend.Set(KeyAccessToken, token)
}

// LoadAccessToken retrieves the management API token.
// This method is thread-safe.
func (m *Manager) LoadAccessToken() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadNonEmpty(KeyAccessToken)
}

// SaveDBURL stores the Postgres DSN used by --direct.
// This method is thread-safe.
func (m *Manager) SaveDBURL(dsn string) error {
	if dsn == "" {
		return errors.New("empty database URL")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend.Set(KeyDBURL, dsn)
}

// LoadDBURL retrieves the Postgres DSN used by --direct.
// This method is thread-safe.
func (m *Manager) LoadDBURL() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadNonEmpty(KeyDBURL)
}

// ClearAll removes every secret sqldispatch stores.
// This method is thread-safe.
func (m *Manager) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, k := range []string{KeyAccessToken, KeyDBURL} {
		if err := m.backend.Delete(k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) loadNonEmpty(key string) (string, error) {
	v, err := m.backend.Get(key)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

// LoadAccessToken is a convenience wrapper over the global manager.
func LoadAccessToken() (string, error) {
	m, err := GetManager()
	if err != nil {
		return "", err
	}
	return m.LoadAccessToken()
}

// LoadDBURL is a convenience wrapper over the global manager.
func LoadDBURL() (string, error) {
	m, err := GetManager()
	if err != nil {
		return "", err
	}
	return m.LoadDBURL()
}
