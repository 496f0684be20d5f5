// Package media defines the metadata model for media resources: the
// canonical description of a video, podcast episode, or audio track as
// reported by its hosting service, plus the slice and heatmap types used
// when downloading portions of a longer recording.
package media

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// URLType classifies what a media URL points at.
type URLType string

const (
	// URLTypeVideo is a single video page.
	URLTypeVideo URLType = "video"
	// URLTypeEpisode is a single podcast episode.
	URLTypeEpisode URLType = "episode"
	// URLTypePodcast is a podcast show page.
	URLTypePodcast URLType = "podcast"
	// URLTypeChannel is a channel or creator page.
	URLTypeChannel URLType = "channel"
	// URLTypePlaylist is an ordered collection of videos or episodes.
	URLTypePlaylist URLType = "playlist"
)

// IsSingle reports whether the URL type names one downloadable item
// rather than a collection.
func (t URLType) IsSingle() bool {
	return t == URLTypeVideo || t == URLTypeEpisode
}

// Type is a downloadable media modality.
type Type string

const (
	TypeAudio Type = "audio"
	TypeVideo Type = "video"
)

// Metadata is service-reported metadata for a single media item. Fields
// that a service does not report are left at their zero values.
type Metadata struct {
	URL          string         `json:"url" yaml:"url"`
	MediaID      string         `json:"media_id" yaml:"media_id"`
	MediaService string         `json:"media_service" yaml:"media_service"`
	Title        string         `json:"title,omitempty" yaml:"title,omitempty"`
	Description  string         `json:"description,omitempty" yaml:"description,omitempty"`
	ThumbnailURL string         `json:"thumbnail_url,omitempty" yaml:"thumbnail_url,omitempty"`
	ChannelURL   string         `json:"channel_url,omitempty" yaml:"channel_url,omitempty"`
	Uploader     string         `json:"uploader,omitempty" yaml:"uploader,omitempty"`
	UploadDate   string         `json:"upload_date,omitempty" yaml:"upload_date,omitempty"`
	Duration     time.Duration  `json:"duration,omitempty" yaml:"duration,omitempty"`
	ViewCount    int64          `json:"view_count,omitempty" yaml:"view_count,omitempty"`
	Heatmap      []HeatmapEntry `json:"heatmap,omitempty" yaml:"heatmap,omitempty"`
}

// HeatmapEntry is one window of a service-reported replay heatmap, a
// normalized measure of how often viewers rewatch that window.
type HeatmapEntry struct {
	StartTime float64 `json:"start_time" yaml:"start_time"`
	EndTime   float64 `json:"end_time" yaml:"end_time"`
	Value     float64 `json:"value" yaml:"value"`
}

// Slice is a time range within a recording, used to download or caption a
// portion of it.
type Slice struct {
	Start time.Duration `json:"start" yaml:"start"`
	End   time.Duration `json:"end" yaml:"end"`
}

// Duration returns the length of the slice.
func (s Slice) Duration() time.Duration {
	return s.End - s.Start
}

// IsZero reports whether the slice is unset.
func (s Slice) IsZero() bool {
	return s.Start == 0 && s.End == 0
}

// String formats the slice as "MM:SS-MM:SS" (or with hours when needed),
// the form accepted on command lines and shown in logs.
func (s Slice) String() string {
	return FormatTimestamp(s.Start) + "-" + FormatTimestamp(s.End)
}

// Validate checks that the slice is a well-formed forward range.
func (s Slice) Validate() error {
	if s.Start < 0 {
		return errors.Errorf("slice start %s is negative", FormatTimestamp(s.Start))
	}
	if s.End <= s.Start {
		return errors.Errorf("slice end %s is not after start %s",
			FormatTimestamp(s.End), FormatTimestamp(s.Start))
	}
	return nil
}

// FormatTimestamp renders a duration as H:MM:SS or M:SS.
func FormatTimestamp(d time.Duration) string {
	total := int(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	sec := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}
