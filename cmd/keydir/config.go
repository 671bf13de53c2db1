package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the persistent CLI configuration, read from a TOML file.
// Flags override file values, file values override defaults.
type Config struct {
	// Server is the directory base address, or srv:<domain> for DNS
	// SRV discovery.
	Server string `toml:"server"`

	// DNSResolver is the DNS server used for srv: discovery. Empty
	// means the local stub resolver.
	DNSResolver string `toml:"dns_resolver"`

	// SessionStore is the keyring store URI session state persists
	// through between invocations.
	SessionStore string `toml:"session_store"`

	// KeyringStores are the store URIs cached key artifacts replicate
	// across.
	KeyringStores []string `toml:"keyring_stores"`
}

// defaultConfigDir is ~/.keydir, created on first use.
func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not locate home directory: %w", err)
	}

	dir := filepath.Join(home, ".keydir")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("could not create config directory: %w", err)
	}
	return dir, nil
}

// loadConfig reads the config file at path, or the default location
// when path is empty. A missing file is not an error; defaults apply.
func loadConfig(path, configDir string) (Config, error) {
	cfg := Config{
		SessionStore:  "file://" + filepath.Join(configDir, "keyring"),
		KeyringStores: []string{"file://" + filepath.Join(configDir, "keyring")},
	}

	if path == "" {
		path = filepath.Join(configDir, "config.toml")
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("could not parse config file %s: %w", path, err)
	}
	return cfg, nil
}
