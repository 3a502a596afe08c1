package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"clipdeck/internal/api"
	"clipdeck/internal/card"
	"clipdeck/internal/download"
	"clipdeck/internal/gallery"
	"clipdeck/internal/model"
)

type pageMsg struct {
	res gallery.Result
}

type probeMsg struct {
	key  string
	info api.MediaInfo
	err  error
}

type clipboardMsg struct {
	field string
	err   error
}

type copyExpiredMsg struct {
	key   string
	token uint64
}

type downloadMsg struct {
	key     string
	outcome download.Outcome
}

type hookMsg struct {
	key    string
	result model.HookResult
	err    error
}

func fetchPageCmd(req gallery.Request) tea.Cmd {
	return func() tea.Msg {
		return pageMsg{res: req.Fetch()}
	}
}

func probeCmd(ctx context.Context, p Prober, key, url string) tea.Cmd {
	if p == nil {
		return nil
	}
	return func() tea.Msg {
		info, err := p.ProbeMedia(ctx, url)
		return probeMsg{key: key, info: info, err: err}
	}
}

func clipboardCmd(cb card.Clipboard, field, text string) tea.Cmd {
	return func() tea.Msg {
		return clipboardMsg{field: field, err: cb.WriteText(text)}
	}
}

func copyExpireCmd(key string, token uint64) tea.Cmd {
	return tea.Tick(card.CopyFeedback, func(time.Time) tea.Msg {
		return copyExpiredMsg{key: key, token: token}
	})
}

func downloadCmd(ctx context.Context, svc *download.Service, key string, clip model.Clip) tea.Cmd {
	return func() tea.Msg {
		return downloadMsg{key: key, outcome: svc.Download(ctx, clip, nil)}
	}
}

func hookCmd(ctx context.Context, h HookSubmitter, key string, req model.HookRequest) tea.Cmd {
	return func() tea.Msg {
		res, err := h.SubmitHook(ctx, req)
		return hookMsg{key: key, result: res, err: err}
	}
}
