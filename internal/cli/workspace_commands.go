package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"clipdeck/internal/card"
	"clipdeck/internal/settings"
)

const probeTimeout = 10 * time.Second

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	config := fs.String("config", settings.DefaultConfigPath, "settings file path")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	configPath := strings.TrimSpace(*config)
	res, err := settings.InitWorkspace(context.Background(), settings.InitWorkspaceOptions{
		ConfigPath: configPath,
		Doctor: settings.DoctorOptions{
			Probe:              sourceProbe(configPath),
			ClipboardSupported: card.ClipboardSupported(),
		},
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}

	fmt.Println("workspace initialized")
	fmt.Printf("config: %s\n", res.ConfigPath)
	fmt.Printf("download_dir: %s\n", res.DownloadDir)
	fmt.Printf("created_config: %t\n", res.CreatedConfig)
	fmt.Printf("created_download_dir: %t\n", res.CreatedDownloadDir)
	fmt.Println("checks:")
	printChecks("  ", res.DoctorResult)
	if !res.DoctorResult.OK {
		return errors.New("doctor checks failed")
	}
	fmt.Println("next: clipdeck gallery")
	return nil
}

func runDoctor(args []string) error {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	config := fs.String("config", settings.DefaultConfigPath, "settings file path")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	configPath := strings.TrimSpace(*config)
	s, err := settings.Resolve(configPath)
	if err != nil {
		return err
	}
	res := settings.Doctor(context.Background(), settings.DoctorOptions{
		ConfigPath:         configPath,
		Settings:           s,
		Probe:              sourceProbe(configPath),
		ClipboardSupported: card.ClipboardSupported(),
	})
	if *jsonOut {
		if err := printJSON(res); err != nil {
			return err
		}
	} else {
		printChecks("", res)
	}
	if !res.OK {
		return errors.New("doctor checks failed")
	}
	if !*jsonOut {
		fmt.Println("doctor: all checks passed")
	}
	return nil
}

// sourceProbe opens the configured source lazily so init can probe the
// settings file it has just written.
func sourceProbe(configPath string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		env, err := openEnv(ctx, envOptions{configPath: configPath, logOut: io.Discard})
		if err != nil {
			return err
		}
		defer env.Close()
		return env.source.Ping(ctx)
	}
}

func printChecks(indent string, res settings.DoctorResult) {
	for _, c := range res.Checks {
		status := "ok"
		switch {
		case !c.OK && c.Optional:
			status = "warn"
		case !c.OK:
			status = "fail"
		}
		fmt.Printf("%s%s: %s (%s)\n", indent, c.Name, status, c.Message)
	}
}
