package telegram

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgrelay/internal/utils"
)

// MaxFloodRetries bounds how often a user-session call is repeated after a
// flood wait.
const MaxFloodRetries = 1

var peerErrors = []string{
	"PEER_ID_INVALID",
	"CHANNEL_INVALID",
	"CHANNEL_PRIVATE",
	"CHAT_ID_INVALID",
	"USERNAME_INVALID",
	"USERNAME_NOT_OCCUPIED",
	"MSG_ID_INVALID",
}

// IsPeerError reports errors meaning the user identity cannot see the chat.
func IsPeerError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, code := range peerErrors {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}

// FloodWait extracts the mandated wait from FLOOD_WAIT_<n> and
// FLOOD_PREMIUM_WAIT_<n> errors.
func FloodWait(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	msg := err.Error()
	for _, prefix := range []string{"FLOOD_PREMIUM_WAIT_", "FLOOD_WAIT_"} {
		idx := strings.Index(msg, prefix)
		if idx < 0 {
			continue
		}
		rest := msg[idx+len(prefix):]
		end := 0
		for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
			end++
		}
		secs, convErr := strconv.Atoi(rest[:end])
		if convErr != nil || secs <= 0 {
			log.Warn().Str("op", "telegram/errors").Msgf("could not parse flood wait from: %s", msg)
			return 15 * time.Second, true
		}
		return time.Duration(secs) * time.Second, true
	}
	return 0, false
}

type sleepFunc func(ctx context.Context, d time.Duration) error

var sleepCtx sleepFunc = utils.SleepContext

// withFloodRetry runs fn, sleeping out flood waits up to MaxFloodRetries
// times before giving up with the last error.
func withFloodRetry(ctx context.Context, sleep sleepFunc, op string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		wait, flood := FloodWait(err)
		if !flood || attempt >= MaxFloodRetries {
			return err
		}
		log.Warn().Str("op", "telegram/"+op).Msgf("rate limit hit, waiting %s", wait)
		if sleepErr := sleep(ctx, wait); sleepErr != nil {
			return sleepErr
		}
	}
}
