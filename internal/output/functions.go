package output

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tanq16/tgrelay/internal/utils"
)

const chatBarWidth = 10

// PrintProgressBar renders a terminal bar for the CLI subcommands.
func PrintProgressBar(current, total int64, width int) string {
	if width <= 0 {
		width = 30
	}
	percent := fraction(current, total)
	filled := max(0, min(int(percent*float64(width)), width))
	bar := StyleSymbols["bullet"]
	bar += strings.Repeat(StyleSymbols["hline"], filled)
	bar += strings.Repeat(" ", width-filled)
	bar += StyleSymbols["bullet"]
	return debugStyle.Render(fmt.Sprintf("%s %.1f%% %s ", bar, percent*100, StyleSymbols["bullet"]))
}

// ChatBar renders a plain-text bar for chat messages, e.g. [▓▓▓░░░░░░░].
func ChatBar(percent float64) string {
	filled := max(0, min(int(math.Floor(percent/100*chatBarWidth)), chatBarWidth))
	return "[" + strings.Repeat(StyleSymbols["filled"], filled) +
		strings.Repeat(StyleSymbols["empty"], chatBarWidth-filled) + "]"
}

// ProgressText is the body of a byte-counted transfer status message.
func ProgressText(label string, current, total int64, elapsed time.Duration) string {
	percent := fraction(current, total) * 100
	secs := elapsed.Seconds()
	eta := "0"
	if secs > 0 && current > 0 && total > current {
		rate := float64(current) / secs
		eta = fmt.Sprint(int((float64(total-current) / rate) + 0.5))
	}
	return fmt.Sprintf("**%s**\n%s\nPercentage: %.2f%% | %s/%s\nSpeed: %s\nEstimated Time Left: %s seconds",
		label, ChatBar(percent), percent,
		utils.FormatBytes(uint64(max(current, 0))), utils.FormatBytes(uint64(max(total, 0))),
		utils.FormatSpeed(current, secs), eta)
}

// PercentText is the body for tools that only report a percentage.
func PercentText(label string, percent float64) string {
	percent = math.Max(0, math.Min(percent, 100))
	return fmt.Sprintf("**%s**\n%s %.0f%%", label, ChatBar(percent), percent)
}

func fraction(current, total int64) float64 {
	if total <= 0 {
		return 0
	}
	current = max(0, min(current, total))
	return float64(current) / float64(total)
}
