// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/classroom/lib/classroom"
	"github.com/bureau-foundation/classroom/lib/cron"
	"github.com/bureau-foundation/classroom/lib/sealed"
	"github.com/bureau-foundation/classroom/lib/secret"
)

// EnvConfig names the configuration file.
const EnvConfig = "CLASSROOM_CONFIG"

// TokenVariables are consulted in order before github.token_file.
var TokenVariables = []string{"CLASSROOM_TOKEN", "GITHUB_TOKEN"}

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the classroom configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	GitHub       GitHubConfig       `yaml:"github"`
	Classroom    ClassroomConfig    `yaml:"classroom"`
	Bot          BotConfig          `yaml:"bot"`
	Paths        PathsConfig        `yaml:"paths"`
	Provisioning ProvisioningConfig `yaml:"provisioning"`
	Service      ServiceConfig      `yaml:"service"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	GitHub  *GitHubConfig  `yaml:"github,omitempty"`
	Paths   *PathsConfig   `yaml:"paths,omitempty"`
	Service *ServiceConfig `yaml:"service,omitempty"`
}

// GitHubConfig locates the platform and its credentials.
type GitHubConfig struct {
	// Server is the git host. "github.com" unless the organization
	// lives on GitHub Enterprise Server.
	Server string `yaml:"server"`

	// APIURL is the REST root. Derived from Server when empty.
	APIURL string `yaml:"api_url"`

	// Organization holds the class teams and repositories.
	Organization string `yaml:"organization"`

	// TokenFile holds the access token. With IdentityFile set it is an
	// age-sealed file opened with that identity.
	TokenFile    string `yaml:"token_file"`
	IdentityFile string `yaml:"identity_file"`

	MaxRetries int `yaml:"max_retries"`
}

// ClassroomConfig shapes names and the issue-driven workflow.
type ClassroomConfig struct {
	Prefix             string `yaml:"prefix"`
	TemplateOwner      string `yaml:"template_owner"`
	TemplateRepository string `yaml:"template_repository"`
	DescriptionPrefix  string `yaml:"description_prefix"`

	// IssueOpsRepository is "owner/name" of the repository whose
	// issues request classes.
	IssueOpsRepository string `yaml:"issueops_repository"`
	ClassLabel         string `yaml:"class_label"`
	ProvisionedLabel   string `yaml:"provisioned_label"`

	// Environment is the deployment environment created in every
	// attendee repository.
	Environment string `yaml:"environment"`

	PartnerDomains  []string `yaml:"partner_domains"`
	InstructorsFile string   `yaml:"instructors_file"`
}

// BotConfig is the commit identity for lab content.
type BotConfig struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	Root string `yaml:"root"`

	// Workspace receives repository clones.
	Workspace string `yaml:"workspace"`

	// State holds the step ledgers.
	State string `yaml:"state"`

	// Record is the classroom.json used by record-mode commands.
	Record string `yaml:"record"`
}

// ProvisioningConfig tunes repository provisioning. Durations use
// time.ParseDuration syntax.
type ProvisioningConfig struct {
	ReadinessAttempts   int    `yaml:"readiness_attempts"`
	ReadinessBackoff    string `yaml:"readiness_backoff"`
	ReadinessMaxBackoff string `yaml:"readiness_max_backoff"`
	GitTimeout          string `yaml:"git_timeout"`
	Concurrency         int    `yaml:"concurrency"`
}

// ServiceConfig configures "classroom serve".
type ServiceConfig struct {
	Listen            string `yaml:"listen"`
	WebhookSecretFile string `yaml:"webhook_secret_file"`

	// ExpireSchedule is a 5-field cron expression in UTC. Empty
	// disables scheduled expiry.
	ExpireSchedule string `yaml:"expire_schedule"`
}

// Default returns the configuration used before the file is applied.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "classroom")

	return &Config{
		Environment: Development,
		GitHub: GitHubConfig{
			Server:     "github.com",
			MaxRetries: 3,
		},
		Classroom: ClassroomConfig{
			Prefix:             classroom.DefaultPrefix,
			TemplateOwner:      "githubpartners",
			TemplateRepository: "gh-intermediate-template",
			DescriptionPrefix:  "GitHub Intermediate",
			ClassLabel:         "gh-intermediate-class",
			ProvisionedLabel:   "provisioned",
			Environment:        "deployments",
		},
		Bot: BotConfig{
			Name:  "gh-intermediate-bot",
			Email: "gh-intermediate-bot@users.noreply.github.com",
		},
		Paths: PathsConfig{
			Root:      defaultRoot,
			Workspace: "${CLASSROOM_ROOT}/workspace",
			State:     "${CLASSROOM_ROOT}/state",
			Record:    "classroom.json",
		},
		Provisioning: ProvisioningConfig{
			ReadinessAttempts:   8,
			ReadinessBackoff:    "1s",
			ReadinessMaxBackoff: "30s",
			GitTimeout:          "5m",
			Concurrency:         4,
		},
		Service: ServiceConfig{
			Listen:         "127.0.0.1:8080",
			ExpireSchedule: "0 6 * * *",
		},
	}
}

// Load loads the file named by CLASSROOM_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvConfig)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your classroom.yaml, or use --config", EnvConfig)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path over [Default].
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.applyEnvironmentOverrides()
	cfg.Finish()
	return cfg, nil
}

// Finish expands variables in path fields. [LoadFile] calls it; callers
// building a Config from [Default] call it themselves.
func (c *Config) Finish() {
	vars := map[string]string{
		"CLASSROOM_ROOT": c.Paths.Root,
		"HOME":           os.Getenv("HOME"),
	}
	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["CLASSROOM_ROOT"] = c.Paths.Root

	c.Paths.Workspace = expandVars(c.Paths.Workspace, vars)
	c.Paths.State = expandVars(c.Paths.State, vars)
	c.Paths.Record = expandVars(c.Paths.Record, vars)
	c.GitHub.TokenFile = expandVars(c.GitHub.TokenFile, vars)
	c.GitHub.IdentityFile = expandVars(c.GitHub.IdentityFile, vars)
	c.Classroom.InstructorsFile = expandVars(c.Classroom.InstructorsFile, vars)
	c.Service.WebhookSecretFile = expandVars(c.Service.WebhookSecretFile, vars)
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if github := overrides.GitHub; github != nil {
		override(&c.GitHub.Server, github.Server)
		override(&c.GitHub.APIURL, github.APIURL)
		override(&c.GitHub.Organization, github.Organization)
		override(&c.GitHub.TokenFile, github.TokenFile)
		override(&c.GitHub.IdentityFile, github.IdentityFile)
		if github.MaxRetries != 0 {
			c.GitHub.MaxRetries = github.MaxRetries
		}
	}
	if paths := overrides.Paths; paths != nil {
		override(&c.Paths.Root, paths.Root)
		override(&c.Paths.Workspace, paths.Workspace)
		override(&c.Paths.State, paths.State)
		override(&c.Paths.Record, paths.Record)
	}
	if service := overrides.Service; service != nil {
		override(&c.Service.Listen, service.Listen)
		override(&c.Service.WebhookSecretFile, service.WebhookSecretFile)
		override(&c.Service.ExpireSchedule, service.ExpireSchedule)
	}
}

func override(target *string, value string) {
	if value != "" {
		*target = value
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, consulting
// vars before the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// APIURL returns the REST root for the configured server.
func (c *Config) APIURL() string {
	if c.GitHub.APIURL != "" {
		return c.GitHub.APIURL
	}
	server := strings.ToLower(strings.TrimSpace(c.GitHub.Server))
	if server == "" || server == "github.com" {
		return "https://api.github.com"
	}
	return "https://" + server + "/api/v3"
}

// IssueOpsRepository splits classroom.issueops_repository into owner
// and name.
func (c *Config) IssueOpsRepository() (owner, name string, err error) {
	owner, name, found := strings.Cut(c.Classroom.IssueOpsRepository, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("classroom.issueops_repository must be owner/name, got %q", c.Classroom.IssueOpsRepository)
	}
	return owner, name, nil
}

// Durations returns the parsed provisioning durations.
func (c *Config) Durations() (readinessBackoff, readinessMaxBackoff, gitTimeout time.Duration, err error) {
	values := []*time.Duration{&readinessBackoff, &readinessMaxBackoff, &gitTimeout}
	fields := []struct{ name, value string }{
		{"provisioning.readiness_backoff", c.Provisioning.ReadinessBackoff},
		{"provisioning.readiness_max_backoff", c.Provisioning.ReadinessMaxBackoff},
		{"provisioning.git_timeout", c.Provisioning.GitTimeout},
	}
	for index, field := range fields {
		if field.value == "" {
			continue
		}
		parsed, parseErr := time.ParseDuration(field.value)
		if parseErr != nil || parsed < 0 {
			return 0, 0, 0, fmt.Errorf("%s: invalid duration %q", field.name, field.value)
		}
		*values[index] = parsed
	}
	return readinessBackoff, readinessMaxBackoff, gitTimeout, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.GitHub.Organization == "" {
		errs = append(errs, errors.New("github.organization is required"))
	} else if !classroom.ValidOrganization(c.GitHub.Organization) {
		errs = append(errs, fmt.Errorf("github.organization %q is not a valid organization name", c.GitHub.Organization))
	}
	if c.GitHub.IdentityFile != "" && c.GitHub.TokenFile == "" {
		errs = append(errs, errors.New("github.identity_file requires github.token_file"))
	}
	if c.Classroom.TemplateOwner == "" || c.Classroom.TemplateRepository == "" {
		errs = append(errs, errors.New("classroom.template_owner and classroom.template_repository are required"))
	}
	if c.Classroom.IssueOpsRepository != "" {
		if _, _, err := c.IssueOpsRepository(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Paths.Workspace == "" {
		errs = append(errs, errors.New("paths.workspace is required"))
	}
	if c.Paths.State == "" {
		errs = append(errs, errors.New("paths.state is required"))
	}
	if c.Provisioning.Concurrency < 1 {
		errs = append(errs, errors.New("provisioning.concurrency must be at least 1"))
	}
	if c.Provisioning.ReadinessAttempts < 1 {
		errs = append(errs, errors.New("provisioning.readiness_attempts must be at least 1"))
	}
	if _, _, _, err := c.Durations(); err != nil {
		errs = append(errs, err)
	}
	if c.Service.ExpireSchedule != "" {
		if _, err := cron.Parse(c.Service.ExpireSchedule); err != nil {
			errs = append(errs, fmt.Errorf("service.expire_schedule: %w", err))
		}
	}

	return errors.Join(errs...)
}

// EnsurePaths creates the workspace and state directories.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.Paths.Workspace, c.Paths.State} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}

// LoadToken returns the access token and a description of where it
// came from. The caller closes the buffer.
func (c *Config) LoadToken() (*secret.Buffer, string, error) {
	token, name, err := secret.FromEnv(TokenVariables...)
	if err == nil {
		return token, "$" + name, nil
	}
	if !errors.Is(err, secret.ErrNoToken) {
		return nil, "", err
	}
	if c.GitHub.TokenFile == "" {
		return nil, "", fmt.Errorf("%w: set %s or github.token_file",
			secret.ErrNoToken, strings.Join(TokenVariables, " or "))
	}
	if c.GitHub.IdentityFile != "" {
		token, err := sealed.OpenFile(c.GitHub.TokenFile, c.GitHub.IdentityFile)
		if err != nil {
			return nil, "", err
		}
		return token, c.GitHub.TokenFile + " (sealed)", nil
	}
	token, err = secret.ReadFile(c.GitHub.TokenFile)
	if err != nil {
		return nil, "", err
	}
	return token, c.GitHub.TokenFile, nil
}
