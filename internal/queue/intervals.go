package queue

import (
	"encoding/json"
	"fmt"
	"strings"

	"aivideodub/internal/timeline"
)

// SetSilenceIntervals stores the structured silence intervals on the item.
func (i *Item) SetSilenceIntervals(intervals []timeline.Interval) error {
	if i == nil {
		return fmt.Errorf("set silence intervals: nil item")
	}
	data, err := json.Marshal(intervals)
	if err != nil {
		return fmt.Errorf("marshal silence intervals: %w", err)
	}
	i.SilenceJSON = string(data)
	return nil
}

// SilenceIntervals decodes the silence intervals recorded by the
// transcription stage. A missing payload decodes to an empty slice.
func (i *Item) SilenceIntervals() ([]timeline.Interval, error) {
	if i == nil || strings.TrimSpace(i.SilenceJSON) == "" {
		return nil, nil
	}
	var intervals []timeline.Interval
	if err := json.Unmarshal([]byte(i.SilenceJSON), &intervals); err != nil {
		return nil, fmt.Errorf("decode silence intervals: %w", err)
	}
	return intervals, nil
}
