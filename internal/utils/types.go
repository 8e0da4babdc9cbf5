package utils

import "context"

type MediaKind int

const (
	KindUnknown MediaKind = iota
	KindPhoto
	KindVideo
	KindAudio
	KindDocument
)

func (k MediaKind) String() string {
	switch k {
	case KindPhoto:
		return "photo"
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	case KindDocument:
		return "document"
	default:
		return "unknown"
	}
}

// ProgressFunc receives byte counts for transfers with a known size, or a
// percentage with total set to 100 for tools that only report percent.
type ProgressFunc func(current, total int64)

type Downloader interface {
	Download(ctx context.Context, url, dest string, progress ProgressFunc) DownloadResult
}

// CookieSource exposes the shared cookie jar to the download tools.
type CookieSource interface {
	Exists() bool
	Path() string
}

type DownloadResult struct {
	OK    bool
	Path  string
	Err   string
	Title string
}

// TransferJob is one request to move a source (URL or post link) into a chat.
type TransferJob struct {
	ID          string
	Source      string
	Destination int64
	Caption     string
}

type LocalArtifact struct {
	Path string
	Size int64
	Kind MediaKind
}

func (a LocalArtifact) Remove() {
	RemoveQuietly(a.Path)
}

type SplitStrategy int

const (
	StrategyNone SplitStrategy = iota
	StrategyStreamCopy
	StrategyArchive
)

func (s SplitStrategy) String() string {
	switch s {
	case StrategyStreamCopy:
		return "stream-copy"
	case StrategyArchive:
		return "archive"
	default:
		return "none"
	}
}

type TimeRange struct {
	Start int
	End   int
}

type SplitPlan struct {
	Strategy SplitStrategy
	Parts    []LocalArtifact
	Ranges   []TimeRange
}

func (p SplitPlan) Empty() bool {
	return len(p.Parts) == 0
}

func (p SplitPlan) Cleanup() {
	for _, part := range p.Parts {
		part.Remove()
	}
}

type UploadDescriptor struct {
	Kind      MediaKind
	Path      string
	Caption   string
	ThumbPath string
	Duration  int
	Width     int
	Height    int
	Performer string
	Title     string
	FileName  string
}

type BatchRange struct {
	ChatRef string
	TopicID int
	StartID int
	EndID   int
	Total   int

	Downloaded int
	Skipped    int
	Failed     int
	Cancelled  bool

	Deleted         []int
	NotInTopic      []int
	DuplicateGroup  []int
	Empty           []int
	FailedIDs       []int
	ProcessedGroups map[int64]struct{}
}
