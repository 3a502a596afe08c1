package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"clipdeck/internal/settings"
)

func runSettings(args []string) error {
	if len(args) == 0 {
		printSettingsUsage()
		return nil
	}
	switch args[0] {
	case "show":
		return runSettingsShow(args[1:])
	case "set":
		return runSettingsSet(args[1:])
	case "help", "-h", "--help":
		printSettingsUsage()
		return nil
	default:
		printSettingsUsage()
		return fmt.Errorf("unknown settings subcommand %q", args[0])
	}
}

func runSettingsShow(args []string) error {
	fs := flag.NewFlagSet("settings show", flag.ContinueOnError)
	config := fs.String("config", settings.DefaultConfigPath, "settings file path")
	effective := fs.Bool("effective", false, "apply environment overrides before printing")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	configPath := strings.TrimSpace(*config)
	read := settings.Read
	if *effective {
		read = settings.Resolve
	}
	s, err := read(configPath)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(settings.UpdateResult{ConfigPath: configPath, Settings: s})
	}

	fmt.Printf("config: %s\n", configPath)
	printSettings(s)
	return nil
}

func runSettingsSet(args []string) error {
	fs := flag.NewFlagSet("settings set", flag.ContinueOnError)
	config := fs.String("config", settings.DefaultConfigPath, "settings file path")
	source := fs.String("source", "", "clip source: api|s3 (empty keeps current)")
	apiURL := fs.String("api-url", "", "backend base URL (empty keeps current)")
	downloadDir := fs.String("download-dir", "", "download directory (empty keeps current)")
	timeout := fs.Int("timeout-seconds", -1, "API request timeout in seconds (>=1, -1 keeps current)")
	revealMargin := fs.Int("reveal-margin", -1, "rows outside the screen that still reveal media (>=0, -1 keeps current)")
	workers := fs.Int("workers", -1, "parallel downloads (>=1, -1 keeps current)")
	bucket := fs.String("s3-bucket", "", "S3 bucket (empty keeps current)")
	region := fs.String("s3-region", "", "S3 region (empty keeps current)")
	prefix := fs.String("s3-prefix", "", "S3 key prefix; \"-\" clears it (empty keeps current)")
	logLevel := fs.String("log-level", "", "log level: debug|info|warn|error (empty keeps current)")
	logFile := fs.String("log-file", "", "gallery log file; \"-\" clears it (empty keeps current)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	configPath := strings.TrimSpace(*config)
	s, err := settings.Read(configPath)
	if err != nil {
		return err
	}

	if v := strings.TrimSpace(*source); v != "" {
		s.Source = v
	}
	if v := strings.TrimSpace(*apiURL); v != "" {
		s.APIBaseURL = v
	}
	if v := strings.TrimSpace(*downloadDir); v != "" {
		s.DownloadDir = v
	}
	if *timeout != -1 {
		if *timeout <= 0 {
			return errors.New("--timeout-seconds must be >= 1")
		}
		s.RequestTimeoutSeconds = *timeout
	}
	if *revealMargin != -1 {
		if *revealMargin < 0 {
			return errors.New("--reveal-margin must be >= 0")
		}
		s.RevealMarginRows = *revealMargin
	}
	if *workers != -1 {
		if *workers <= 0 {
			return errors.New("--workers must be >= 1")
		}
		s.DownloadWorkers = *workers
	}
	if v := strings.TrimSpace(*bucket); v != "" {
		s.S3Bucket = v
	}
	if v := strings.TrimSpace(*region); v != "" {
		s.S3Region = v
	}
	s.S3Prefix = clearable(*prefix, s.S3Prefix)
	if v := strings.TrimSpace(*logLevel); v != "" {
		switch strings.ToLower(v) {
		case "debug", "info", "warn", "error":
		default:
			return errors.New("--log-level must be debug, info, warn or error")
		}
		s.LogLevel = v
	}
	s.LogFile = clearable(*logFile, s.LogFile)

	res, err := settings.Update(settings.UpdateOptions{ConfigPath: configPath, Settings: s})
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}
	fmt.Printf("updated settings in %s\n", res.ConfigPath)
	printSettings(res.Settings)
	return nil
}

// clearable applies a string flag where empty keeps current and "-" clears.
func clearable(flagValue, current string) string {
	v := strings.TrimSpace(flagValue)
	switch v {
	case "":
		return current
	case "-":
		return ""
	default:
		return v
	}
}

func printSettings(s settings.Settings) {
	fmt.Printf("source: %s\n", s.Source)
	fmt.Printf("api_base_url: %s\n", s.APIBaseURL)
	fmt.Printf("download_dir: %s\n", s.DownloadDir)
	fmt.Printf("request_timeout_seconds: %d\n", s.RequestTimeoutSeconds)
	fmt.Printf("reveal_margin_rows: %d\n", s.RevealMarginRows)
	fmt.Printf("download_workers: %d\n", s.DownloadWorkers)
	fmt.Printf("s3_bucket: %s\n", s.S3Bucket)
	fmt.Printf("s3_region: %s\n", s.S3Region)
	fmt.Printf("s3_prefix: %s\n", firstNonEmpty(s.S3Prefix, "(none)"))
	fmt.Printf("log_level: %s\n", s.LogLevel)
	fmt.Printf("log_file: %s\n", firstNonEmpty(s.LogFile, "(disabled)"))
}

func printSettingsUsage() {
	fmt.Println("settings commands:")
	fmt.Println("  settings show [--effective]")
	fmt.Println("  settings set [--source api|s3] [--api-url URL] [--download-dir DIR] [--workers N]")
	fmt.Println("               [--timeout-seconds N] [--reveal-margin N] [--s3-bucket B] [--s3-region R] [--s3-prefix P]")
	fmt.Println("               [--log-level L] [--log-file PATH]")
}
