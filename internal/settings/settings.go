package settings

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"clipdeck/internal/store"
)

const schemaVersion = 1

type Settings struct {
	Source                string `json:"source,omitempty"`
	APIBaseURL            string `json:"api_base_url,omitempty"`
	DownloadDir           string `json:"download_dir,omitempty"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds,omitempty"`
	RevealMarginRows      int    `json:"reveal_margin_rows,omitempty"`
	DownloadWorkers       int    `json:"download_workers,omitempty"`
	S3Bucket              string `json:"s3_bucket,omitempty"`
	S3Region              string `json:"s3_region,omitempty"`
	S3Prefix              string `json:"s3_prefix,omitempty"`
	LogLevel              string `json:"log_level,omitempty"`
	LogFile               string `json:"log_file,omitempty"`
}

type settingsFile struct {
	SchemaVersion int      `json:"schema_version"`
	UpdatedAt     string   `json:"updated_at"`
	Settings      Settings `json:"settings"`
}

type UpdateOptions struct {
	ConfigPath string
	Settings   Settings
}

type UpdateResult struct {
	ConfigPath string   `json:"config_path"`
	Settings   Settings `json:"settings"`
}

func Defaults() Settings {
	return Settings{
		Source:                DefaultSource,
		APIBaseURL:            DefaultAPIBaseURL,
		DownloadDir:           DefaultDownloadDir,
		RequestTimeoutSeconds: DefaultRequestTimeoutSeconds,
		RevealMarginRows:      DefaultRevealMarginRows,
		DownloadWorkers:       DefaultDownloadWorkers,
		S3Bucket:              DefaultS3Bucket,
		S3Region:              DefaultS3Region,
		LogLevel:              DefaultLogLevel,
	}
}

func normalize(raw Settings) Settings {
	norm := raw
	norm.Source = normalizeSource(norm.Source)
	norm.APIBaseURL = strings.TrimRight(strings.TrimSpace(norm.APIBaseURL), "/")
	if norm.APIBaseURL == "" {
		norm.APIBaseURL = DefaultAPIBaseURL
	}
	norm.DownloadDir = strings.TrimSpace(norm.DownloadDir)
	if norm.DownloadDir == "" {
		norm.DownloadDir = DefaultDownloadDir
	}
	if norm.RequestTimeoutSeconds <= 0 {
		norm.RequestTimeoutSeconds = DefaultRequestTimeoutSeconds
	}
	if norm.RevealMarginRows < 0 {
		norm.RevealMarginRows = DefaultRevealMarginRows
	}
	if norm.DownloadWorkers <= 0 {
		norm.DownloadWorkers = DefaultDownloadWorkers
	}
	norm.S3Bucket = strings.TrimSpace(norm.S3Bucket)
	if norm.S3Bucket == "" {
		norm.S3Bucket = DefaultS3Bucket
	}
	norm.S3Region = strings.TrimSpace(norm.S3Region)
	if norm.S3Region == "" {
		norm.S3Region = DefaultS3Region
	}
	norm.S3Prefix = strings.TrimLeft(strings.TrimSpace(norm.S3Prefix), "/")
	norm.LogLevel = strings.ToLower(strings.TrimSpace(norm.LogLevel))
	if norm.LogLevel == "" {
		norm.LogLevel = DefaultLogLevel
	}
	norm.LogFile = strings.TrimSpace(norm.LogFile)
	return norm
}

func normalizeSource(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return SourceAPI
	}
	return v
}

func normalizeConfigPath(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return DefaultConfigPath
	}
	return p
}

func (s Settings) Validate() error {
	switch s.Source {
	case SourceAPI:
		u, err := url.Parse(s.APIBaseURL)
		if err != nil {
			return fmt.Errorf("invalid api base url %q: %w", s.APIBaseURL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid api base url %q: scheme must be http or https", s.APIBaseURL)
		}
		if u.Host == "" {
			return fmt.Errorf("invalid api base url %q: host is required", s.APIBaseURL)
		}
	case SourceS3:
		if s.S3Bucket == "" {
			return errors.New("source s3 requires a bucket")
		}
	default:
		return fmt.Errorf("unknown source %q (expected api or s3)", s.Source)
	}
	return nil
}

func (s Settings) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// Read returns the stored settings, or defaults when the file does not exist.
func Read(configPath string) (Settings, error) {
	path := normalizeConfigPath(configPath)
	var f settingsFile
	if err := store.ReadJSON(path, &f); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Defaults(), nil
		}
		return Settings{}, err
	}
	return normalize(f.Settings), nil
}

// Ensure reads the settings file, creating it with defaults when missing.
func Ensure(configPath string) (Settings, bool, error) {
	path := normalizeConfigPath(configPath)
	var f settingsFile
	err := store.ReadJSON(path, &f)
	if err == nil {
		return normalize(f.Settings), false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return Settings{}, false, err
	}
	def := Defaults()
	if err := save(path, def); err != nil {
		return Settings{}, false, err
	}
	return def, true, nil
}

func Update(opts UpdateOptions) (UpdateResult, error) {
	path := normalizeConfigPath(opts.ConfigPath)
	next := normalize(opts.Settings)
	if err := next.Validate(); err != nil {
		return UpdateResult{}, err
	}
	if err := save(path, next); err != nil {
		return UpdateResult{}, err
	}
	return UpdateResult{ConfigPath: path, Settings: next}, nil
}

func save(path string, s Settings) error {
	return store.WriteJSON(path, settingsFile{
		SchemaVersion: schemaVersion,
		UpdatedAt:     time.Now().UTC().Format(time.RFC3339),
		Settings:      s,
	})
}

// ApplyEnv overlays environment overrides on top of stored settings.
func ApplyEnv(s Settings, getenv func(string) string) (Settings, error) {
	out := s
	if v := strings.TrimSpace(getenv(EnvSource)); v != "" {
		out.Source = v
	}
	if v := strings.TrimSpace(getenv(EnvAPIBaseURL)); v != "" {
		out.APIBaseURL = v
	}
	if v := strings.TrimSpace(getenv(EnvDownloadDir)); v != "" {
		out.DownloadDir = v
	}
	if v := strings.TrimSpace(getenv(EnvDownloadWorkers)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Settings{}, fmt.Errorf("invalid %s: must be an integer >= 1", EnvDownloadWorkers)
		}
		out.DownloadWorkers = n
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		out.LogLevel = v
	}
	if v := strings.TrimSpace(getenv(EnvLogFile)); v != "" {
		out.LogFile = v
	}
	if v := strings.TrimSpace(getenv(EnvS3Bucket)); v != "" {
		out.S3Bucket = v
	}
	if v := strings.TrimSpace(getenv(EnvS3Region)); v != "" {
		out.S3Region = v
	}
	out = normalize(out)
	if err := out.Validate(); err != nil {
		return Settings{}, err
	}
	return out, nil
}

// Resolve reads the settings file and applies process environment overrides.
func Resolve(configPath string) (Settings, error) {
	s, err := Read(configPath)
	if err != nil {
		return Settings{}, err
	}
	return ApplyEnv(s, os.Getenv)
}
