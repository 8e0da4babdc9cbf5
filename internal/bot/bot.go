// Package bot turns private chat commands into transfers between the user
// identity that reads source chats and the bot identity that posts results.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgrelay/internal/downloaders"
	"github.com/tanq16/tgrelay/internal/stats"
	"github.com/tanq16/tgrelay/internal/tasks"
	"github.com/tanq16/tgrelay/internal/telegram"
	"github.com/tanq16/tgrelay/internal/uploader"
	"github.com/tanq16/tgrelay/internal/utils"
)

// Splitter cuts an oversized artifact into uploadable parts.
type Splitter interface {
	Split(ctx context.Context, artifact utils.LocalArtifact, ceiling int64) (utils.SplitPlan, error)
	SplitVideo(ctx context.Context, artifact utils.LocalArtifact, ceiling int64) (utils.SplitPlan, error)
}

type CookieStore interface {
	Save(text string) error
}

type StatsSource interface {
	Collect(ctx context.Context) stats.Snapshot
}

type Settings struct {
	DownloadDir string
	LogFile     string
	// SizeCeiling is the largest single upload; bigger files get split.
	SizeCeiling int64
	BatchDelay  time.Duration
	URLWorkers  int
}

type Deps struct {
	Sender   telegram.Sender
	Source   telegram.Source
	Uploader *uploader.Coordinator
	Splitter Splitter
	Cookies  CookieStore
	Links    downloaders.Registry
	Tasks    *tasks.Manager
	Stats    StatsSource
	Settings Settings
	Now      func() time.Time
}

type Bot struct {
	sender   telegram.Sender
	source   telegram.Source
	uploader *uploader.Coordinator
	splitter Splitter
	cookies  CookieStore
	links    downloaders.Registry
	tasks    *tasks.Manager
	stats    StatsSource
	settings Settings
	now      func() time.Time
}

func New(d Deps) *Bot {
	if d.Settings.SizeCeiling <= 0 {
		d.Settings.SizeCeiling = utils.DefaultSizeCeiling
	}
	if d.Settings.URLWorkers <= 0 {
		d.Settings.URLWorkers = 1
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Tasks == nil {
		d.Tasks = tasks.NewManager()
	}
	return &Bot{
		sender:   d.Sender,
		source:   d.Source,
		uploader: d.Uploader,
		splitter: d.Splitter,
		cookies:  d.Cookies,
		links:    d.Links,
		tasks:    d.Tasks,
		stats:    d.Stats,
		settings: d.Settings,
		now:      d.Now,
	}
}

// Handle dispatches one incoming message. Only private chats are served.
// Long-running commands are registered as tasks so /killall can reach them;
// Handle returns once the command has finished.
func (b *Bot) Handle(ctx context.Context, in telegram.Incoming) {
	if !in.Private {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("op", "bot/bot").Msgf("handler panicked on %q: %v", in.Text, r)
			b.reply(context.WithoutCancel(ctx), in.ChatID, "**❌ Internal error while handling the command.**")
		}
	}()

	cmd, args := parseCommand(in.Text)
	log.Debug().Str("op", "bot/bot").Msgf("command %q from %d", cmd, in.SenderID)
	switch cmd {
	case "start":
		b.reply(ctx, in.ChatID, startText)
	case "help":
		b.reply(ctx, in.ChatID, helpText)
	case "ck":
		b.saveCookies(ctx, in, args)
	case "dl":
		if args == "" {
			b.reply(ctx, in.ChatID, "**Provide a post URL after the /dl command.**")
			return
		}
		b.runTask(ctx, "dl", func(tctx context.Context) error { return b.downloadPost(tctx, in, args) })
	case "bdl":
		b.batchDownload(ctx, in, args)
	case "l":
		b.runTask(ctx, "l", func(tctx context.Context) error { return b.fetchLinks(tctx, in, args, false) })
	case "yl":
		b.runTask(ctx, "yl", func(tctx context.Context) error { return b.fetchLinks(tctx, in, args, true) })
	case "killall":
		n := b.tasks.CancelAll()
		b.reply(ctx, in.ChatID, fmt.Sprintf("**Cancelled %d running task(s).**", n))
	case "stats":
		b.sendStats(ctx, in)
	case "logs":
		b.sendLogs(ctx, in)
	case "":
		if telegram.IsPostLink(args) {
			b.runTask(ctx, "dl", func(tctx context.Context) error { return b.downloadPost(tctx, in, args) })
		}
	default:
		log.Debug().Str("op", "bot/bot").Msgf("ignoring unknown command /%s", cmd)
	}
}

func (b *Bot) runTask(ctx context.Context, name string, fn func(ctx context.Context) error) {
	if err := b.tasks.Run(ctx, name, fn); err != nil && !isCancelled(err) {
		log.Error().Str("op", "bot/bot").Msgf("/%s failed: %v", name, err)
	}
}

// parseCommand splits "/cmd@bot rest" into "cmd" and the trimmed rest. Text
// that is not a command comes back whole as args with an empty command.
func parseCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	idx := strings.IndexFunc(text, unicode.IsSpace)
	head, rest := text, ""
	if idx >= 0 {
		head, rest = text[:idx], text[idx:]
	}
	cmd := strings.TrimPrefix(head, "/")
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), strings.TrimSpace(rest)
}

func (b *Bot) reply(ctx context.Context, chat int64, text string) {
	if _, err := b.sender.SendText(ctx, chat, text); err != nil {
		log.Error().Str("op", "bot/bot").Msgf("error sending reply: %v", err)
	}
}

const startText = "👋 **Welcome to the Media Relay Bot!**\n\n" +
	"Send me a public or private post link and I will copy its media here.\n" +
	"Private chats need the user session to be a member.\n\n" +
	"Use /help to see everything I can do."

const helpText = "💡 **Media Relay Bot Help**\n\n" +
	"➤ **Download one post**\n" +
	"   – Send `/dl post_URL` or just paste a t.me link.\n\n" +
	"➤ **Batch download**\n" +
	"   – Send `/bdl start_post_URL end_post_URL` for every post in the range.\n" +
	"     💡 Example: `/bdl https://t.me/mychannel/100 https://t.me/mychannel/120`\n\n" +
	"➤ **Direct links**\n" +
	"   – `/l url1 url2 ...` downloads with aria2c (S3 URLs use the S3 API).\n" +
	"   – `/yl url1 url2 ...` downloads videos with yt-dlp.\n\n" +
	"➤ **Cookies**\n" +
	"   – `/ck <cookies.txt contents>` saves cookies for yt-dlp and aria2c.\n\n" +
	"➤ **Requirements**\n" +
	"   – The user session must be a member of private chats.\n\n" +
	"➤ **Other commands**\n" +
	"   – /killall cancels pending downloads.\n" +
	"   – /logs sends the bot log file.\n" +
	"   – /stats shows host statistics."
