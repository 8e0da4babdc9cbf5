package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/tanq16/tgrelay/internal/bot"
	"github.com/tanq16/tgrelay/internal/config"
	"github.com/tanq16/tgrelay/internal/cookies"
	"github.com/tanq16/tgrelay/internal/downloaders"
	"github.com/tanq16/tgrelay/internal/downloaders/aria2"
	"github.com/tanq16/tgrelay/internal/downloaders/s3"
	"github.com/tanq16/tgrelay/internal/downloaders/ytdlp"
	"github.com/tanq16/tgrelay/internal/janitor"
	"github.com/tanq16/tgrelay/internal/media"
	"github.com/tanq16/tgrelay/internal/output"
	"github.com/tanq16/tgrelay/internal/splitter"
	"github.com/tanq16/tgrelay/internal/stats"
	"github.com/tanq16/tgrelay/internal/tasks"
	"github.com/tanq16/tgrelay/internal/telegram"
	"github.com/tanq16/tgrelay/internal/tools"
	"github.com/tanq16/tgrelay/internal/uploader"
	"github.com/tanq16/tgrelay/internal/utils"
	"golang.org/x/sync/errgroup"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot and user sessions and serve commands until interrupted",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			if err := cfg.Validate(); err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			closer, err := utils.InitLogger(debug, cfg.Paths.LogFile)
			if err != nil {
				log.Warn().Str("op", "cmd/run").Msgf("logging to console only: %v", err)
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := serve(ctx, cfg); err != nil {
				log.Error().Str("op", "cmd/run").Err(err).Msg("bot stopped")
				os.Exit(1)
			}
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	started := time.Now()
	for _, dir := range []string{cfg.Paths.DownloadDir, cfg.Paths.ThumbDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating %s: %v", dir, err)
		}
	}
	binaries := cfg.Tools.Binaries()
	if err := tools.EnsureAll(ctx, binaries, cfg.Paths.ToolDir); err != nil {
		return err
	}
	runner := tools.NewExec(binaries)
	fs := afero.NewOsFs()
	jar := cookies.NewJar(fs, cfg.Paths.CookiesFile)
	kit := media.NewToolkit(runner, cfg.Paths.ThumbDir)

	userSession, botSession, err := connect(cfg)
	if err != nil {
		return err
	}
	defer userSession.Stop()
	defer botSession.Stop()

	sweeper := janitor.New(fs, cfg.Janitor.MaxAge,
		janitor.Target{Dir: cfg.Paths.DownloadDir},
		janitor.Target{Dir: cfg.Paths.ThumbDir, Pattern: "*.jpg"},
	)
	schedule, err := sweeper.Schedule(cfg.Janitor.Cron)
	if err != nil {
		return err
	}
	defer schedule.Stop()

	manager := tasks.NewManager()
	relay := bot.New(bot.Deps{
		Sender:   botSession,
		Source:   userSession,
		Uploader: uploader.New(botSession, kit),
		Splitter: splitter.New(runner, fs, kit, cfg.Limits.VolumeSizeMB),
		Cookies:  jar,
		Links: downloaders.Registry{
			HTTP:  aria2.New(runner, jar),
			Video: ytdlp.New(runner, fs, jar, true),
			S3:    s3.New(cfg.S3.Profile),
		},
		Tasks: manager,
		Stats: stats.NewHost(started, cfg.Paths.DownloadDir),
		Settings: bot.Settings{
			DownloadDir: cfg.Paths.DownloadDir,
			LogFile:     cfg.Paths.LogFile,
			SizeCeiling: cfg.Limits.SizeCeiling,
			BatchDelay:  cfg.Limits.BatchDelay,
			URLWorkers:  cfg.Limits.URLWorkers,
		},
	})
	botSession.OnCommand(ctx, relay.Handle)
	log.Info().Str("op", "cmd/run").Msgf("bot running, premium user session: %v", userSession.IsPremium())

	<-ctx.Done()
	n := manager.CancelAll()
	log.Info().Str("op", "cmd/run").Msgf("shutting down, cancelled %d task(s)", n)
	return nil
}

// connect logs both identities in at once. If either fails the other is
// stopped before returning.
func connect(cfg *config.Config) (*telegram.UserClient, *telegram.BotClient, error) {
	clientCfg := telegram.ClientConfig{
		AppID:         cfg.Telegram.APIID,
		AppHash:       cfg.Telegram.APIHash,
		BotToken:      cfg.Telegram.BotToken,
		SessionString: cfg.Telegram.SessionString,
		Debug:         debug,
	}
	var userSession *telegram.UserClient
	var botSession *telegram.BotClient
	var g errgroup.Group
	g.Go(func() error {
		var err error
		userSession, err = telegram.NewUserClient(clientCfg)
		return err
	})
	g.Go(func() error {
		var err error
		botSession, err = telegram.NewBotClient(clientCfg)
		return err
	})
	if err := g.Wait(); err != nil {
		if userSession != nil {
			userSession.Stop()
		}
		if botSession != nil {
			botSession.Stop()
		}
		return nil, nil, err
	}
	return userSession, botSession, nil
}
