package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/insert"
	"github.com/rbright/murmur/internal/transcribe"
	"github.com/rbright/murmur/internal/transcript"
)

func engineOptions(cfg config.Config) transcribe.Options {
	return transcribe.Options{
		Binary:          cfg.Engine.Binary,
		ModelPath:       cfg.Engine.ModelPath(),
		ExtraArgs:       cfg.Engine.ExtraArgs,
		SidecarAttempts: cfg.Engine.SidecarAttempts,
		SidecarInterval: cfg.Engine.SidecarInterval(),
		FFmpeg:          cfg.Engine.FFmpeg,
		Transcript:      transcript.Options{TrailingSpace: cfg.Transcript.TrailingSpace},
	}
}

func newClipboard(cfg config.InsertConfig) (insert.Clipboard, error) {
	switch cfg.Clipboard {
	case "command":
		return insert.CommandClipboard{
			SetArgv:   cfg.ClipboardCmd.Argv,
			ReadArgv:  cfg.ClipboardReadCmd.Argv,
			ClearArgv: cfg.ClipboardClearCmd.Argv,
		}, nil
	case "system":
		return insert.SystemClipboard{}, nil
	default:
		return nil, fmt.Errorf("unsupported clipboard backend %q", cfg.Clipboard)
	}
}

func newInjector(cfg config.InsertConfig) (insert.Injector, error) {
	switch cfg.Injector {
	case "hypr":
		return insert.HyprInjector{Shortcut: cfg.PasteShortcut}, nil
	case "uinput":
		return insert.NewUinputInjector(), nil
	case "command":
		return insert.CommandInjector{Argv: cfg.PasteCmd.Argv}, nil
	case "native":
		return insert.NewNativeInjector(), nil
	default:
		return nil, fmt.Errorf("unsupported injector %q", cfg.Injector)
	}
}

// newInserter assembles the insertion engine. The returned func releases the
// accessibility connection and cancels pending clipboard restores.
func newInserter(_ context.Context, cfg config.InsertConfig, logger *slog.Logger) (*insert.Engine, func(), error) {
	clipboard, err := newClipboard(cfg)
	if err != nil {
		return nil, nil, err
	}
	injector, err := newInjector(cfg)
	if err != nil {
		return nil, nil, err
	}
	structured, err := insert.NewStructured(cfg.Structured, logger)
	if err != nil {
		return nil, nil, err
	}

	engine := insert.New(structured, clipboard, injector, insert.Options{RestoreDelay: cfg.RestoreDelay()}, logger)
	closeFn := func() {
		engine.Close()
		if c, ok := structured.(io.Closer); ok {
			if err := c.Close(); err != nil {
				logger.Warn("close structured inserter failed", "error", err.Error())
			}
		}
	}
	return engine, closeFn, nil
}
