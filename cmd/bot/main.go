package main

import (
	"log"
	"log/slog"
	"os"

	"gopkg.in/telebot.v3"

	"ytfetch-bot/internal/bot"
	"ytfetch-bot/internal/config"
	"ytfetch-bot/internal/extract"
	"ytfetch-bot/internal/pipeline"
	"ytfetch-bot/internal/platform"
	"ytfetch-bot/internal/session"
	"ytfetch-bot/internal/transcode"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	if err := platform.CreateDirectoryIfNotExists(cfg.Download.OutputDir); err != nil {
		log.Fatalf("Error creating downloads dir: %v", err)
	}

	ffmpeg := transcode.Detect()
	if !ffmpeg.Available() {
		logger.Warn("ffmpeg not found, merge and mp3 conversion disabled")
	}

	b, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &telebot.LongPoller{Timeout: cfg.PollTimeout()},
		OnError: func(err error, c telebot.Context) {
			logger.Error("handler error", "error", err)
		},
	})
	if err != nil {
		log.Fatalf("Error creating bot: %v", err)
	}

	sessions := session.NewStore(logger)
	pipe := pipeline.New(cfg.Download.OutputDir, cfg.MaxSizeBytes(), ffmpeg, logger)

	handlers := bot.New(b, sessions, extract.NewClient(), pipe, logger)
	handlers.Register()

	logger.Info("bot started",
		"scratch_dir", cfg.Download.OutputDir,
		"max_size_mb", cfg.Download.MaxSizeMB,
		"ffmpeg", ffmpeg.Available())
	b.Start()
}
