package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending      Status = "pending"
	StatusDownloading  Status = "downloading"
	StatusDownloaded   Status = "downloaded"
	StatusTranscribing Status = "transcribing"
	StatusTranscribed  Status = "transcribed"
	StatusTranslating  Status = "translating"
	StatusTranslated   Status = "translated"
	StatusSynthesizing Status = "synthesizing"
	StatusSynthesized  Status = "synthesized"
	StatusMuxing       Status = "muxing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusReview       Status = "review"
)

var allStatuses = []Status{
	StatusPending,
	StatusDownloading,
	StatusDownloaded,
	StatusTranscribing,
	StatusTranscribed,
	StatusTranslating,
	StatusTranslated,
	StatusSynthesizing,
	StatusSynthesized,
	StatusMuxing,
	StatusCompleted,
	StatusFailed,
	StatusReview,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusDownloading:  {},
	StatusTranscribing: {},
	StatusTranslating:  {},
	StatusSynthesizing: {},
	StatusMuxing:       {},
}

type statusTransition struct {
	from Status
	to   Status
}

// stageRollbackTransitions map in-flight processing statuses back to the last
// durable status, used to recover items left mid-stage by a crashed run.
var stageRollbackTransitions = []statusTransition{
	{from: StatusDownloading, to: StatusPending},
	{from: StatusTranscribing, to: StatusDownloaded},
	{from: StatusTranslating, to: StatusTranscribed},
	{from: StatusSynthesizing, to: StatusTranslated},
	{from: StatusMuxing, to: StatusSynthesized},
}

// IsValid reports whether the status belongs to the known lifecycle set.
func (s Status) IsValid() bool {
	_, ok := statusSet[s]
	return ok
}

// IsProcessing reports whether the status marks an in-flight stage.
func (s Status) IsProcessing() bool {
	_, ok := processingStatuses[s]
	return ok
}

// IsTerminal reports whether no further stage will pick the item up.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusReview
}

// Item represents a dubbing job persisted in SQLite.
type Item struct {
	ID              int64
	Title           string
	SourceURL       string
	Status          Status
	VideoFile       string
	AudioFile       string
	TotalDuration   float64
	Transcript      string
	TranslatedText  string
	SilenceJSON     string
	DubbedAudio     string
	FinalFile       string
	ErrorMessage    string
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// InitProgress resets progress tracking fields at the start of a stage.
func (i *Item) InitProgress(stage, message string) {
	if i == nil {
		return
	}
	i.ProgressStage = stage
	i.ProgressPercent = 0
	i.ProgressMessage = message
}

// SetProgress updates the progress fields in place.
func (i *Item) SetProgress(percent float64, message string) {
	if i == nil {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	i.ProgressPercent = percent
	i.ProgressMessage = message
}

// DisplayTitle returns the best human-readable label for the item.
func (i *Item) DisplayTitle() string {
	if i == nil {
		return ""
	}
	if title := strings.TrimSpace(i.Title); title != "" {
		return title
	}
	if url := strings.TrimSpace(i.SourceURL); url != "" {
		return url
	}
	return strings.TrimSpace(i.VideoFile)
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Review     int
	Completed  int
}
