package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".scriptorium"

// LocalSuffix names the override file read next to the main one.
const LocalSuffix = ".local"

// Environment variables read by ApplyEnv.
const (
	EnvBaseURL     = "SCRIPTORIUM_BASE_URL"
	EnvAPIURL      = "SCRIPTORIUM_API_URL"
	EnvEmail       = "SCRIPTORIUM_EMAIL"
	EnvPassword    = "SCRIPTORIUM_PASSWORD"
	EnvDownloadDir = "SCRIPTORIUM_DOWNLOAD_DIR"
)

// File is the YAML configuration file layout.
type File struct {
	BaseURL          string        `yaml:"baseURL,omitempty"`
	APIURL           string        `yaml:"apiURL,omitempty"`
	LoginPath        string        `yaml:"loginPath,omitempty"`
	Email            string        `yaml:"email,omitempty"`
	Password         string        `yaml:"password,omitempty"`
	DownloadDir      string        `yaml:"downloadDir,omitempty"`
	TitlePrefixes    []string      `yaml:"titlePrefixes,omitempty"`
	ItemTimeout      time.Duration `yaml:"itemTimeout,omitempty"`
	RequestTimeout   time.Duration `yaml:"requestTimeout,omitempty"`
	PollInterval     time.Duration `yaml:"pollInterval,omitempty"`
	DownloadAttempts int           `yaml:"downloadAttempts,omitempty"`
	RetryDelay       time.Duration `yaml:"retryDelay,omitempty"`
	MaxPages         int           `yaml:"maxPages,omitempty"`
	UserAgent        string        `yaml:"userAgent,omitempty"`
	Selectors        Selectors     `yaml:"selectors,omitempty"`
}

// LoadConfigFile reads path and merges its ".local" sibling over it.
// ErrConfigNotFound is returned when neither file exists.
func LoadConfigFile(path string) (*File, error) {
	var out File
	found := false

	base, err := readFile(path)
	if err != nil && !errors.Is(err, ErrConfigNotFound) {
		return nil, err
	}
	if base != nil {
		out = *base
		found = true
	}

	localPath := path + LocalSuffix
	local, err := readFile(localPath)
	if err != nil && !errors.Is(err, ErrConfigNotFound) {
		return nil, err
	}
	if local != nil {
		if err := mergo.Merge(&out, *local, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge %s: %w", localPath, err)
		}
		slog.Debug("merged local config overrides", "local", localPath)
		found = true
	}

	if !found {
		return nil, ErrConfigNotFound
	}
	return &out, nil
}

func readFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

// FindConfigFile searches for the configuration file in the following order:
//  1. configPath, when given
//  2. .scriptorium (or .scriptorium.local) in the current directory
//  3. config.yaml in the XDG config directory
//  4. .scriptorium in the user's home directory
//
// It returns the base path to pass to LoadConfigFile, or "" if none exists.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if exists(configPath) || exists(configPath+LocalSuffix) {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, c := range candidates {
		if exists(c) || exists(c+LocalSuffix) {
			return c
		}
	}
	return ""
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ApplyFile copies every value set in f over c.
func (c *Config) ApplyFile(f *File) error {
	if f == nil {
		return nil
	}

	setString(&c.BaseURL, f.BaseURL)
	setString(&c.APIURL, f.APIURL)
	setString(&c.LoginPath, f.LoginPath)
	setString(&c.Email, f.Email)
	setString(&c.Password, f.Password)
	setString(&c.DownloadDir, f.DownloadDir)
	setString(&c.UserAgent, f.UserAgent)
	if len(f.TitlePrefixes) > 0 {
		c.TitlePrefixes = append([]string(nil), f.TitlePrefixes...)
	}
	setDuration(&c.ItemTimeout, f.ItemTimeout)
	setDuration(&c.RequestTimeout, f.RequestTimeout)
	setDuration(&c.PollInterval, f.PollInterval)
	setDuration(&c.RetryDelay, f.RetryDelay)
	if f.DownloadAttempts != 0 {
		c.DownloadAttempts = f.DownloadAttempts
	}
	if f.MaxPages != 0 {
		c.MaxPages = f.MaxPages
	}

	if err := mergo.Merge(&c.Selectors, f.Selectors, mergo.WithOverride); err != nil {
		return fmt.Errorf("merge selectors: %w", err)
	}
	return nil
}

// ApplyEnv overrides c with SCRIPTORIUM_* variables. A nil lookup uses
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for key, dst := range map[string]*string{
		EnvBaseURL:     &c.BaseURL,
		EnvAPIURL:      &c.APIURL,
		EnvEmail:       &c.Email,
		EnvPassword:    &c.Password,
		EnvDownloadDir: &c.DownloadDir,
	} {
		if v, ok := lookup(key); ok {
			setString(dst, strings.TrimSpace(v))
		}
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
