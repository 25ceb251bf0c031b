package entities

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	DefaultLedgerPath      = "store.json"
	DefaultConcurrency     = 4
	DefaultBranchPrefix    = "chore/imagebump"
	DefaultTitleTemplate   = "chore(deps): {{direction}} base image {{image}} to {{tag}}"
	DefaultMaxRetries      = 5
	DefaultInitialInterval = time.Second
	DefaultMaxElapsed      = 2 * time.Minute
)

// Settings is the top-level configuration for imagebump.
type Settings struct {
	Providers    []ProviderConfig  `yaml:"providers"`
	Image        ImageConfig       `yaml:"image"`
	Force        bool              `yaml:"force"`
	Ledger       string            `yaml:"ledger"`
	Concurrency  int               `yaml:"concurrency"`
	Repositories map[string]string `yaml:"repositories"` // full name -> Dockerfile path or glob
	PullRequest  PullRequestConfig `yaml:"pull_request"`
	Retry        RetryConfig       `yaml:"retry"`
}

// ProviderConfig describes a single Git hosting provider instance.
type ProviderConfig struct {
	Type          string   `yaml:"type"`     // "github", "gitlab"
	Token         string   `yaml:"token"`    // Inline, ${ENV_VAR}, or file path
	BaseURL       string   `yaml:"base_url"` // GitHub Enterprise or self-hosted GitLab
	Organizations []string `yaml:"organizations"`
}

// ImageConfig names the tracked base image and the tag every Dockerfile should move to.
type ImageConfig struct {
	Name string `yaml:"name"`
	Tag  string `yaml:"tag"`
}

// PullRequestConfig shapes the pull requests opened by the submitter.
type PullRequestConfig struct {
	BranchPrefix string `yaml:"branch_prefix"`
	Title        string `yaml:"title"`
	Changelog    bool   `yaml:"changelog"`
}

// RetryConfig bounds the backoff applied to transient hosting-service errors.
type RetryConfig struct {
	MaxRetries      int           `yaml:"max_retries"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxElapsed      time.Duration `yaml:"max_elapsed"`
}

// SettingsOverrides carries command-line values that take precedence over the file.
type SettingsOverrides struct {
	ImageName   string
	ImageTag    string
	Force       bool
	Concurrency int
	LedgerPath  string
}

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// NewSettings reads a configuration file, expands token references and fills defaults.
// The result still has to pass Validate once command-line overrides are applied.
func NewSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file %q: %w", ErrConfiguration, path, err)
	}

	var settings Settings
	if unmarshalErr := yaml.Unmarshal(data, &settings); unmarshalErr != nil {
		return nil, fmt.Errorf("%w: failed to parse config file: %w", ErrConfiguration, unmarshalErr)
	}

	for i := range settings.Providers {
		settings.Providers[i].Token = resolveToken(settings.Providers[i].Token)
	}
	settings.applyDefaults()

	return &settings, nil
}

// FindConfigFile searches for a configuration file in standard locations.
func FindConfigFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}

	locations := []string{".", ".config", "configs"}
	if homeDir != "" {
		locations = append(locations, homeDir, filepath.Join(homeDir, ".config"))
	}

	names := []string{
		".imagebump.yaml",
		".imagebump.yml",
		"imagebump.yaml",
		"imagebump.yml",
	}

	for _, location := range locations {
		for _, name := range names {
			candidate := filepath.Join(location, name)
			if _, statErr := os.Stat(candidate); statErr == nil {
				return candidate, nil
			}
		}
	}

	return "", fmt.Errorf("%w: config file not found in default locations", ErrConfiguration)
}

// ApplyOverrides copies every non-zero override onto the settings.
func (s *Settings) ApplyOverrides(overrides SettingsOverrides) {
	if overrides.ImageName != "" {
		s.Image.Name = overrides.ImageName
	}
	if overrides.ImageTag != "" {
		s.Image.Tag = overrides.ImageTag
	}
	if overrides.Force {
		s.Force = true
	}
	if overrides.Concurrency > 0 {
		s.Concurrency = overrides.Concurrency
	}
	if overrides.LedgerPath != "" {
		s.Ledger = overrides.LedgerPath
	}
}

// Validate checks the settings once, before any repository is touched.
// Every failure wraps ErrConfiguration.
func (s *Settings) Validate() error {
	if len(s.Providers) == 0 {
		return fmt.Errorf("%w: at least one provider must be configured", ErrConfiguration)
	}

	for i, provider := range s.Providers {
		if provider.Type == "" {
			return fmt.Errorf("%w: providers[%d].type is required", ErrConfiguration, i)
		}
		if provider.Token == "" {
			return fmt.Errorf(
				"%w: providers[%d].token is required (set inline, via ${ENV_VAR}, or as file path)",
				ErrConfiguration, i,
			)
		}
	}

	if s.Image.Name == "" {
		return fmt.Errorf("%w: image.name is required", ErrConfiguration)
	}
	if s.Image.Tag == "" {
		return fmt.Errorf("%w: image.tag is required", ErrConfiguration)
	}
	if _, err := s.TargetImage(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	if len(s.Repositories) == 0 {
		return fmt.Errorf("%w: repositories must map at least one repository to its Dockerfile", ErrConfiguration)
	}
	if s.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1", ErrConfiguration)
	}

	return nil
}

// TargetImage returns the image every tracked Dockerfile should reference.
func (s *Settings) TargetImage() (ImageReference, error) {
	return NewImageReference(s.Image.Name, s.Image.Tag)
}

func (s *Settings) applyDefaults() {
	if s.Ledger == "" {
		s.Ledger = DefaultLedgerPath
	}
	if s.Concurrency == 0 {
		s.Concurrency = DefaultConcurrency
	}
	if s.PullRequest.BranchPrefix == "" {
		s.PullRequest.BranchPrefix = DefaultBranchPrefix
	}
	if s.PullRequest.Title == "" {
		s.PullRequest.Title = DefaultTitleTemplate
	}
	if s.Retry.MaxRetries == 0 {
		s.Retry.MaxRetries = DefaultMaxRetries
	}
	if s.Retry.InitialInterval == 0 {
		s.Retry.InitialInterval = DefaultInitialInterval
	}
	if s.Retry.MaxElapsed == 0 {
		s.Retry.MaxElapsed = DefaultMaxElapsed
	}
}

// resolveToken expands ${VAR} references and, if the result is a path to an existing
// file, reads the token from that file.
func resolveToken(raw string) string {
	if raw == "" {
		return raw
	}

	resolved := envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("Environment variable %q is not set", varName)
		return ""
	})

	if info, statErr := os.Stat(resolved); statErr == nil && !info.IsDir() {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			logger.Warnf("Failed to read token file %q: %v", resolved, readErr)
			return resolved
		}
		logger.Infof("Read token from file %q", resolved)
		return strings.TrimSpace(string(data))
	}

	return resolved
}

// IsConfigurationError reports whether err must halt the whole run.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
