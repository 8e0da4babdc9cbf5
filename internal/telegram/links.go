package telegram

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// PostLink identifies one post. Chat is "-100<id>" for private links and
// the public username otherwise. Topic is zero outside forum threads.
type PostLink struct {
	Chat      string
	Topic     int
	MessageID int
}

// postURL parses a t.me or telegram.me link, with or without a scheme.
func postURL(text string) (*url.URL, bool) {
	link := strings.TrimSpace(text)
	if i := strings.Index(link, "?"); i >= 0 {
		link = link[:i]
	}
	if !strings.Contains(link, "://") {
		link = "https://" + link
	}
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return nil, false
	}
	switch strings.ToLower(strings.TrimPrefix(u.Host, "www.")) {
	case "t.me", "telegram.me":
		return u, true
	}
	return nil, false
}

// IsPostLink reports whether text points at a host ParsePostLink accepts.
func IsPostLink(text string) bool {
	_, ok := postURL(text)
	return ok
}

// ParsePostLink accepts t.me/c/<id>/[<topic>/]<msg> and
// t.me/<username>/[<topic>/]<msg> on t.me or telegram.me, with or without
// a scheme. Query strings are ignored.
func ParsePostLink(link string) (PostLink, error) {
	link = strings.TrimSpace(link)
	u, ok := postURL(link)
	if !ok {
		return PostLink{}, fmt.Errorf("invalid post URL: %s", link)
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	private := len(segs) > 0 && segs[0] == "c"
	if private {
		segs = segs[1:]
	}
	if len(segs) < 2 || len(segs) > 3 {
		return PostLink{}, fmt.Errorf("invalid post URL: %s", link)
	}
	var out PostLink
	nums := make([]int, 0, 2)
	for _, s := range segs[1:] {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return PostLink{}, fmt.Errorf("invalid message ID in URL: %s", s)
		}
		nums = append(nums, n)
	}
	out.MessageID = nums[len(nums)-1]
	if len(nums) == 2 {
		out.Topic = nums[0]
	}
	if private {
		if _, err := strconv.ParseInt(segs[0], 10, 64); err != nil {
			return PostLink{}, fmt.Errorf("invalid chat ID in URL: %s", segs[0])
		}
		out.Chat = "-100" + segs[0]
	} else {
		if segs[0] == "" {
			return PostLink{}, fmt.Errorf("invalid post URL: %s", link)
		}
		out.Chat = segs[0]
	}
	return out, nil
}

// Prefix rebuilds the link without its message ID.
func (p PostLink) Prefix() string {
	chat := p.Chat
	if strings.HasPrefix(chat, "-100") {
		chat = "c/" + strings.TrimPrefix(chat, "-100")
	}
	if p.Topic != 0 {
		return fmt.Sprintf("https://t.me/%s/%d", chat, p.Topic)
	}
	return "https://t.me/" + chat
}

func (p PostLink) String() string {
	return fmt.Sprintf("%s/%d", p.Prefix(), p.MessageID)
}
