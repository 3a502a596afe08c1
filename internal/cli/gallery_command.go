package cli

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"

	"clipdeck/internal/settings"
	"clipdeck/internal/tui"
)

func runGallery(args []string) error {
	fs := flag.NewFlagSet("gallery", flag.ContinueOnError)
	config := fs.String("config", settings.DefaultConfigPath, "settings file path")
	source := fs.String("source", "", "clip source override: api|s3")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	env, err := openEnv(ctx, envOptions{
		configPath: strings.TrimSpace(*config),
		source:     *source,
		logToFile:  true,
	})
	if err != nil {
		return err
	}
	defer env.Close()

	env.logger.Info("gallery session started", "source", env.settings.Source, "target", env.label)
	return tui.Run(ctx, tui.Options{
		Source:       env.source,
		SourceLabel:  env.label,
		Prober:       env.api,
		Hooks:        env.api,
		Downloads:    env.downloads(),
		Clipboard:    env.clipboard(),
		Logger:       env.logger,
		RevealMargin: env.settings.RevealMarginRows,
	})
}
