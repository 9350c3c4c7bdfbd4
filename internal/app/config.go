package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the configuration reads,
// e.g. CHERRY_PICK_LOG_LEVEL.
const EnvPrefix = "CHERRY_PICK"

const (
	defaultRepoDir        = "."
	defaultLogLevel       = "info"
	defaultLogFormat      = "text"
	defaultGitBinary      = "git"
	defaultNetworkRetries = 2
	defaultNetworkTimeout = 2 * time.Minute
)

// Config keys shared by flags, environment variables and the config file.
const (
	KeyRepoDir         = "repo_dir"
	KeyDryRun          = "dry_run"
	KeyStartFrom       = "start_from"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
	KeyVerbose         = "verbose"
	KeyNoColor         = "no_color"
	KeyShowStatus      = "show_status"
	KeyGitBinary       = "git_binary"
	KeyMainline        = "mainline"
	KeyGitHubToken     = "github_token"
	KeyGitHubBaseURL   = "github_base_url"
	KeyGitHubUploadURL = "github_upload_url"
	KeyOffline         = "offline"
	KeySummaryFile     = "summary_file"
	KeyReportFile      = "report_file"
	KeyNetworkRetries  = "network_retries"
	KeyNetworkTimeout  = "network_timeout"
)

// Config captures runtime options sourced from flags, CHERRY_PICK_* environment
// variables and the optional config file.
type Config struct {
	RepoDir    string
	DryRun     bool
	StartFrom  string
	LogLevel   string
	LogFormat  string
	Verbose    bool
	NoColor    bool
	ShowStatus bool

	GitBinary string
	Mainline  int

	GitHubToken     string
	GitHubBaseURL   string
	GitHubUploadURL string
	Offline         bool

	SummaryFile string
	ReportFile  string

	NetworkRetries int
	NetworkTimeout time.Duration
}

// SetDefaults registers default values with v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyRepoDir, defaultRepoDir)
	v.SetDefault(KeyLogLevel, defaultLogLevel)
	v.SetDefault(KeyLogFormat, defaultLogFormat)
	v.SetDefault(KeyGitBinary, defaultGitBinary)
	v.SetDefault(KeyNetworkRetries, defaultNetworkRetries)
	v.SetDefault(KeyNetworkTimeout, defaultNetworkTimeout)
}

// ConfigureEnv makes v read CHERRY_PICK_* environment variables.
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// ReadConfigFile loads path into v. An empty path looks for config.yaml in
// the user config directory and tolerates its absence.
func ReadConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "cherry-pick-replay"))
	}
	v.AddConfigPath("$HOME/.config/cherry-pick-replay")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

// LoadConfig reads the layered configuration from v, applies fallbacks, and
// performs validation. Validation errors are fatal before any git command runs.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		RepoDir:         strings.TrimSpace(v.GetString(KeyRepoDir)),
		DryRun:          v.GetBool(KeyDryRun),
		StartFrom:       strings.TrimSpace(v.GetString(KeyStartFrom)),
		LogLevel:        strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel))),
		LogFormat:       strings.ToLower(strings.TrimSpace(v.GetString(KeyLogFormat))),
		Verbose:         v.GetBool(KeyVerbose),
		NoColor:         v.GetBool(KeyNoColor),
		ShowStatus:      v.GetBool(KeyShowStatus),
		GitBinary:       strings.TrimSpace(v.GetString(KeyGitBinary)),
		Mainline:        v.GetInt(KeyMainline),
		GitHubToken:     strings.TrimSpace(v.GetString(KeyGitHubToken)),
		GitHubBaseURL:   strings.TrimSpace(v.GetString(KeyGitHubBaseURL)),
		GitHubUploadURL: strings.TrimSpace(v.GetString(KeyGitHubUploadURL)),
		Offline:         v.GetBool(KeyOffline),
		SummaryFile:     strings.TrimSpace(v.GetString(KeySummaryFile)),
		ReportFile:      strings.TrimSpace(v.GetString(KeyReportFile)),
		NetworkRetries:  v.GetInt(KeyNetworkRetries),
		NetworkTimeout:  v.GetDuration(KeyNetworkTimeout),
	}

	if cfg.GitHubToken == "" {
		cfg.GitHubToken = strings.TrimSpace(os.Getenv("GITHUB_TOKEN"))
	}

	if cfg.SummaryFile == "" {
		cfg.SummaryFile = strings.TrimSpace(os.Getenv("GITHUB_STEP_SUMMARY"))
	}

	if cfg.RepoDir == "" {
		cfg.RepoDir = defaultRepoDir
	}

	if cfg.GitBinary == "" {
		cfg.GitBinary = defaultGitBinary
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = defaultLogFormat
	}

	if (cfg.GitHubBaseURL == "") != (cfg.GitHubUploadURL == "") {
		return Config{}, fmt.Errorf("%s and %s must both be set for GitHub Enterprise", KeyGitHubBaseURL, KeyGitHubUploadURL)
	}

	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return Config{}, err
	}

	supportedFormats := map[string]struct{}{"text": {}, "json": {}}
	if _, ok := supportedFormats[cfg.LogFormat]; !ok {
		return Config{}, fmt.Errorf("unsupported log format %q", cfg.LogFormat)
	}

	if cfg.Mainline < 0 {
		return Config{}, fmt.Errorf("%s must be a positive parent number, got %d", KeyMainline, cfg.Mainline)
	}

	if cfg.NetworkRetries < 0 {
		return Config{}, fmt.Errorf("%s cannot be negative, got %d", KeyNetworkRetries, cfg.NetworkRetries)
	}

	if cfg.NetworkTimeout < 0 {
		return Config{}, fmt.Errorf("%s cannot be negative, got %s", KeyNetworkTimeout, cfg.NetworkTimeout)
	}

	if cfg.Verbose {
		cfg.LogLevel = "debug"
	}

	return cfg, nil
}
