package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"clipdeck/internal/download"
	"clipdeck/internal/gallery"
	"clipdeck/internal/hook"
	"clipdeck/internal/logging"
	"clipdeck/internal/model"
	"clipdeck/internal/settings"
	"clipdeck/internal/store"
)

type listResult struct {
	Source  string       `json:"source"`
	Offset  int          `json:"offset"`
	Count   int          `json:"count"`
	HasMore bool         `json:"has_more"`
	Clips   []model.Clip `json:"clips"`
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	config := fs.String("config", settings.DefaultConfigPath, "settings file path")
	source := fs.String("source", "", "clip source override: api|s3")
	offset := fs.Int("offset", 0, "first clip to return")
	limit := fs.Int("limit", gallery.PageSize, "clips per page")
	all := fs.Bool("all", false, "walk every page")
	maxPages := fs.Int("max-pages", 0, "with --all, stop after N pages (0 = no limit)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *offset < 0 {
		return errors.New("--offset must be >= 0")
	}
	if *limit <= 0 {
		return errors.New("--limit must be >= 1")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	env, err := openEnv(ctx, envOptions{configPath: strings.TrimSpace(*config), source: *source})
	if err != nil {
		return err
	}
	defer env.Close()

	res := listResult{Source: env.label, Offset: *offset}
	if *all {
		ctrl := gallery.New(ctx, env.source, logging.WithComponent(env.logger, "gallery"))
		defer ctrl.Close()
		if err := gallery.LoadAll(ctrl, *maxPages); err != nil {
			return err
		}
		res.Offset = 0
		res.Clips = ctrl.Items()
		res.HasMore = ctrl.HasMore()
	} else {
		page, err := env.source.ListClips(ctx, *limit, *offset)
		if err != nil {
			return err
		}
		res.Clips = page.Clips
		res.HasMore = len(page.Clips) == *limit
		if page.HasMore != nil {
			res.HasMore = *page.HasMore
		}
	}
	if res.Clips == nil {
		res.Clips = []model.Clip{}
	}
	res.Count = len(res.Clips)

	if *jsonOut {
		return printJSON(res)
	}
	if res.Count == 0 {
		fmt.Println("No clips found yet.")
		return nil
	}
	for i, c := range res.Clips {
		fmt.Printf("%3d. %s  clip %d  %5.1fs  %s\n", res.Offset+i+1, c.JobID, c.Index+1, c.Duration, firstNonEmpty(oneLine(c.Title), "(untitled)"))
	}
	fmt.Printf("clips: %d\n", res.Count)
	if res.HasMore {
		fmt.Printf("more: rerun with --offset %d or use --all\n", res.Offset+res.Count)
	}
	return nil
}

type downloadSummary struct {
	Dir             string                `json:"dir"`
	Saved           int                   `json:"saved"`
	Skipped         int                   `json:"skipped"`
	FellBack        int                   `json:"opened_in_browser"`
	FailedRetryable int                   `json:"failed_retryable"`
	FailedPermanent int                   `json:"failed_permanent"`
	Bytes           int64                 `json:"bytes"`
	Clips           []downloadClipSummary `json:"clips"`
}

type downloadClipSummary struct {
	JobID   string `json:"job_id"`
	Index   int    `json:"index"`
	Path    string `json:"path,omitempty"`
	Bytes   int64  `json:"bytes,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
	Opened  bool   `json:"opened_in_browser,omitempty"`
	Error   string `json:"error,omitempty"`
}

func runDownload(args []string) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	config := fs.String("config", settings.DefaultConfigPath, "settings file path")
	source := fs.String("source", "", "clip source override: api|s3")
	jobID := fs.String("job", "", "job id of the clip")
	clipNo := fs.Int("clip", 0, "clip number within the job (1-based)")
	all := fs.Bool("all", false, "download every clip from the source")
	workers := fs.Int("workers", 0, "parallel downloads (0 = settings default)")
	retries := fs.Int("retries", 1, "extra attempts for retryable failures")
	skipExisting := fs.Bool("skip-existing", true, "skip clips already present in the download dir")
	openOnFailure := fs.Bool("open-on-failure", false, "open clips that fail to save in the browser (always on for a single clip)")
	dir := fs.String("dir", "", "download directory override")
	progress := fs.Bool("progress", true, "show live progress")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	single := strings.TrimSpace(*jobID) != ""
	if single == *all {
		return errors.New("set either --job/--clip or --all")
	}
	if single && *clipNo <= 0 {
		return errors.New("--clip must be >= 1")
	}
	if *retries < 0 {
		return errors.New("--retries must be >= 0")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	env, err := openEnv(ctx, envOptions{configPath: strings.TrimSpace(*config), source: *source})
	if err != nil {
		return err
	}
	defer env.Close()
	if v := strings.TrimSpace(*dir); v != "" {
		env.settings.DownloadDir = v
	}

	clips, err := loadClips(ctx, env)
	if err != nil {
		return err
	}
	if single {
		clip, ok := findClip(clips, strings.TrimSpace(*jobID), *clipNo-1)
		if !ok {
			return fmt.Errorf("clip %d of job %s not found", *clipNo, strings.TrimSpace(*jobID))
		}
		clips = []model.Clip{clip}
	}
	if len(clips) == 0 {
		if *jsonOut {
			return printJSON(downloadSummary{Dir: env.settings.DownloadDir, Clips: []downloadClipSummary{}})
		}
		fmt.Println("No clips found yet.")
		return nil
	}

	svc := env.downloads()
	lock, err := store.LockDir(svc.Dir())
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	res := svc.DownloadAll(ctx, clips, download.BatchOptions{
		Workers:      firstNonZero(*workers, env.settings.DownloadWorkers),
		Retries:      *retries,
		SkipExisting: *skipExisting,
		Fallback:     single || *openOnFailure,
		Progress:     *progress && !*jsonOut && stdoutIsTTY(),
		Out:          os.Stdout,
	})
	summary := summarizeDownloads(svc.Dir(), res)

	if *jsonOut {
		if err := printJSON(summary); err != nil {
			return err
		}
	} else {
		printDownloadSummary(summary)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	unresolved := 0
	for _, c := range summary.Clips {
		if c.Error != "" && !c.Opened {
			unresolved++
		}
	}
	if unresolved > 0 {
		return fmt.Errorf("%d clip(s) failed to download", unresolved)
	}
	return nil
}

func summarizeDownloads(dir string, res download.BatchResult) downloadSummary {
	out := downloadSummary{
		Dir:             dir,
		Saved:           res.Saved,
		Skipped:         res.Skipped,
		FellBack:        res.FellBack,
		FailedRetryable: res.FailedRetryable,
		FailedPermanent: res.FailedPermanent,
		Bytes:           res.Bytes,
		Clips:           make([]downloadClipSummary, 0, len(res.Outcomes)),
	}
	for _, o := range res.Outcomes {
		row := downloadClipSummary{
			JobID:   o.Clip.JobID,
			Index:   o.Clip.Index,
			Path:    o.Path,
			Bytes:   o.Bytes,
			Skipped: o.Skipped,
			Opened:  o.FellBack && o.OpenErr == nil,
		}
		if o.Err != nil {
			row.Error = o.Err.Error()
		}
		out.Clips = append(out.Clips, row)
	}
	return out
}

func printDownloadSummary(s downloadSummary) {
	fmt.Println("download summary")
	fmt.Printf("dir: %s\n", s.Dir)
	fmt.Printf("saved: %d\n", s.Saved)
	fmt.Printf("skipped_existing: %d\n", s.Skipped)
	if s.FellBack > 0 {
		fmt.Printf("opened_in_browser: %d\n", s.FellBack)
	}
	fmt.Printf("failed_retryable: %d\n", s.FailedRetryable)
	fmt.Printf("failed_permanent: %d\n", s.FailedPermanent)
	fmt.Printf("downloaded: %s\n", download.FormatBytes(s.Bytes))
	for _, c := range s.Clips {
		if c.Error == "" {
			continue
		}
		fmt.Printf("  %s clip %d: %s\n", c.JobID, c.Index+1, c.Error)
	}
}

type hookCommandResult struct {
	Request model.HookRequest `json:"request"`
	URL     string            `json:"url,omitempty"`
}

func runHook(args []string) error {
	fs := flag.NewFlagSet("hook", flag.ContinueOnError)
	config := fs.String("config", settings.DefaultConfigPath, "settings file path")
	jobID := fs.String("job", "", "job id of the clip")
	clipNo := fs.Int("clip", 0, "clip number within the job (1-based)")
	text := fs.String("text", hook.DefaultText, "hook text")
	position := fs.String("position", string(model.HookTop), "overlay position: top|center|bottom")
	size := fs.String("size", string(model.HookMedium), "overlay size: S|M|L")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*jobID) == "" {
		return errors.New("--job is required")
	}
	if *clipNo <= 0 {
		return errors.New("--clip must be >= 1")
	}

	form := hook.NewForm(*text)
	pos, err := model.ParseHookPosition(*position)
	if err != nil {
		return err
	}
	sz, err := model.ParseHookSize(*size)
	if err != nil {
		return err
	}
	form.Position, form.Size = pos, sz
	req, err := form.Request(model.Clip{JobID: strings.TrimSpace(*jobID), Index: *clipNo - 1})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	env, err := openEnv(ctx, envOptions{configPath: strings.TrimSpace(*config)})
	if err != nil {
		return err
	}
	defer env.Close()

	res, err := env.api.SubmitHook(ctx, req)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(hookCommandResult{Request: req, URL: res.URL})
	}
	fmt.Printf("hook added to %s clip %d (%s, %s)\n", req.JobID, req.Index+1, req.Position, req.Size.Label())
	if res.URL != "" {
		fmt.Printf("url: %s\n", res.URL)
	}
	return nil
}

// loadClips walks the source page by page through the gallery controller.
func loadClips(ctx context.Context, env *runtimeEnv) ([]model.Clip, error) {
	ctrl := gallery.New(ctx, env.source, logging.WithComponent(env.logger, "gallery"))
	defer ctrl.Close()
	if err := gallery.LoadAll(ctrl, 0); err != nil {
		return nil, err
	}
	return ctrl.Items(), nil
}

func findClip(clips []model.Clip, jobID string, index int) (model.Clip, bool) {
	want := model.ClipKey{JobID: jobID, Index: index}
	for _, c := range clips {
		if c.Key() == want {
			return c, true
		}
	}
	return model.Clip{}, false
}
