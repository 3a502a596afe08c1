package settings

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"clipdeck/internal/store"
)

type DoctorOptions struct {
	ConfigPath string
	Settings   Settings
	// Probe checks that the configured clip source answers.
	Probe func(ctx context.Context) error
	// ClipboardSupported reports whether a system clipboard is usable.
	ClipboardSupported bool
}

type DoctorResult struct {
	OK     bool          `json:"ok"`
	Checks []DoctorCheck `json:"checks"`
}

type DoctorCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	// Optional checks report but do not fail the run.
	Optional bool `json:"optional,omitempty"`
}

type InitWorkspaceOptions struct {
	ConfigPath string
	Doctor     DoctorOptions
}

type InitWorkspaceResult struct {
	ConfigPath         string       `json:"config_path"`
	DownloadDir        string       `json:"download_dir"`
	CreatedConfig      bool         `json:"created_config"`
	CreatedDownloadDir bool         `json:"created_download_dir"`
	DoctorResult       DoctorResult `json:"doctor"`
}

func Doctor(ctx context.Context, opts DoctorOptions) DoctorResult {
	configPath := normalizeConfigPath(opts.ConfigPath)
	s := normalize(opts.Settings)

	checks := make([]DoctorCheck, 0, 4)
	sourceName := "source:" + s.Source
	if opts.Probe == nil {
		checks = append(checks, DoctorCheck{Name: sourceName, OK: false, Message: "no probe configured"})
	} else if err := opts.Probe(ctx); err != nil {
		checks = append(checks, DoctorCheck{Name: sourceName, OK: false, Message: err.Error()})
	} else {
		checks = append(checks, DoctorCheck{Name: sourceName, OK: true, Message: sourceMessage(s)})
	}

	dlOK, dlMessage := ensureWritableDir(s.DownloadDir)
	checks = append(checks, DoctorCheck{Name: "directory:downloads", OK: dlOK, Message: dlMessage})

	cfgOK, cfgMessage := ensureWritableDir(filepath.Dir(configPath))
	checks = append(checks, DoctorCheck{Name: "directory:config", OK: cfgOK, Message: cfgMessage})

	clipMessage := "system clipboard available"
	if !opts.ClipboardSupported {
		clipMessage = "no clipboard utility found; copy actions are no-ops"
	}
	checks = append(checks, DoctorCheck{Name: "clipboard", OK: opts.ClipboardSupported, Message: clipMessage, Optional: true})

	ok := true
	for _, c := range checks {
		if !c.OK && !c.Optional {
			ok = false
			break
		}
	}
	return DoctorResult{OK: ok, Checks: checks}
}

func InitWorkspace(ctx context.Context, opts InitWorkspaceOptions) (InitWorkspaceResult, error) {
	configPath := normalizeConfigPath(opts.ConfigPath)
	s, createdConfig, err := Ensure(configPath)
	if err != nil {
		return InitWorkspaceResult{}, err
	}
	s, err = ApplyEnv(s, os.Getenv)
	if err != nil {
		return InitWorkspaceResult{}, err
	}

	createdDownloadDir := false
	if _, err := os.Stat(s.DownloadDir); os.IsNotExist(err) {
		createdDownloadDir = true
	}
	if err := store.Mkdir(s.DownloadDir); err != nil {
		return InitWorkspaceResult{}, err
	}

	docOpts := opts.Doctor
	docOpts.ConfigPath = configPath
	docOpts.Settings = s
	return InitWorkspaceResult{
		ConfigPath:         configPath,
		DownloadDir:        s.DownloadDir,
		CreatedConfig:      createdConfig,
		CreatedDownloadDir: createdDownloadDir,
		DoctorResult:       Doctor(ctx, docOpts),
	}, nil
}

func sourceMessage(s Settings) string {
	if s.Source == SourceS3 {
		return "bucket " + s.S3Bucket + " reachable"
	}
	return "api " + s.APIBaseURL + " reachable"
}

func ensureWritableDir(path string) (bool, string) {
	if strings.TrimSpace(path) == "" {
		return false, "empty path"
	}
	if err := store.Mkdir(path); err != nil {
		return false, err.Error()
	}
	f, err := os.CreateTemp(path, "clipdeck-check-*.tmp")
	if err != nil {
		return false, err.Error()
	}
	_ = f.Close()
	_ = os.Remove(f.Name())
	return true, "writable"
}
