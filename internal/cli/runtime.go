package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"clipdeck/internal/api"
	"clipdeck/internal/card"
	"clipdeck/internal/download"
	"clipdeck/internal/gallery"
	"clipdeck/internal/logging"
	"clipdeck/internal/s3source"
	"clipdeck/internal/settings"
)

// clipSource is what the gallery, list and download commands read clips from.
type clipSource interface {
	gallery.Source
	Ping(ctx context.Context) error
}

// runtimeEnv bundles everything a command needs once settings are resolved.
type runtimeEnv struct {
	settings settings.Settings
	logger   *slog.Logger
	closeLog func() error
	api      *api.Client
	source   clipSource
	label    string
}

type envOptions struct {
	configPath string
	// logToFile keeps stderr clean for full-screen commands.
	logToFile bool
	// source overrides the configured source (api|s3) when non-empty.
	source string
	// logOut receives logs when logToFile is false; defaults to stderr.
	logOut io.Writer
}

func openEnv(ctx context.Context, opts envOptions) (*runtimeEnv, error) {
	s, err := settings.Resolve(opts.configPath)
	if err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(opts.source); v != "" {
		s.Source = strings.ToLower(v)
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}

	env := &runtimeEnv{settings: s, closeLog: func() error { return nil }}
	if opts.logToFile {
		logger, closeLog, err := logging.OpenFile(s.LogFile, s.LogLevel)
		if err != nil {
			return nil, err
		}
		env.logger, env.closeLog = logger, closeLog
	} else {
		out := opts.logOut
		if out == nil {
			out = os.Stderr
		}
		level := s.LogLevel
		if logging.ParseLevel(level) < logging.ParseLevel("warn") {
			level = "warn"
		}
		env.logger = logging.NewLogger(out, level)
	}

	client, err := api.NewClient(s.APIBaseURL, s.RequestTimeout(), logging.WithComponent(env.logger, "api"))
	if err != nil {
		env.Close()
		return nil, err
	}
	env.api = client

	switch s.Source {
	case settings.SourceS3:
		src, err := s3source.New(ctx, s3source.Config{
			Bucket: s.S3Bucket,
			Region: s.S3Region,
			Prefix: s.S3Prefix,
		}, logging.WithComponent(env.logger, "s3source"))
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("open s3 source: %w", err)
		}
		env.source = src
		env.label = "s3://" + s.S3Bucket + "/" + s.S3Prefix
	default:
		env.source = client
		env.label = client.BaseURL()
	}
	return env, nil
}

func (e *runtimeEnv) downloads() *download.Service {
	return download.NewService(e.api, download.BrowserOpener{}, e.settings.DownloadDir, logging.WithComponent(e.logger, "download"))
}

func (e *runtimeEnv) clipboard() card.Clipboard {
	return card.SystemClipboard{}
}

func (e *runtimeEnv) Close() {
	if e.closeLog != nil {
		_ = e.closeLog()
	}
}
