package media

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jlevy/kash-media/pkg/logger"
	mediatypes "github.com/jlevy/kash-media/pkg/types/media"
)

// parseMetadata converts a yt-dlp info dict into Metadata. Missing id,
// title, or URL mean the service result is unusable and yield ErrAPIResult.
func parseMetadata(ctx context.Context, info map[string]any, serviceName string) (*mediatypes.Metadata, error) {
	mediaID := infoString(info, "id")
	if mediaID == "" {
		return nil, missingKey(ctx, info, serviceName, "id")
	}
	title := infoString(info, "title")
	if title == "" {
		return nil, missingKey(ctx, info, serviceName, "title")
	}
	url := infoString(info, "webpage_url")
	if url == "" {
		url = infoString(info, "url")
	}
	if url == "" {
		return nil, missingKey(ctx, info, serviceName, "webpage_url")
	}

	meta := &mediatypes.Metadata{
		URL:          url,
		MediaID:      mediaID,
		MediaService: serviceName,
		Title:        title,
		Description:  infoString(info, "description"),
		ThumbnailURL: infoString(info, "thumbnail"),
		ChannelURL:   infoString(info, "channel_url"),
		Uploader:     infoString(info, "uploader"),
		UploadDate:   normalizeUploadDate(infoString(info, "upload_date")),
		Duration:     time.Duration(infoFloat(info, "duration") * float64(time.Second)),
		ViewCount:    int64(infoFloat(info, "view_count")),
		Heatmap:      parseHeatmap(info),
	}
	return meta, nil
}

func missingKey(ctx context.Context, info map[string]any, serviceName, key string) error {
	logger.G(ctx).WithField("service", serviceName).WithField("info", info).
		Debug("media service result missing required key")
	return errors.Wrapf(ErrAPIResult, "%s metadata missing %q", serviceName, key)
}

// parseHeatmap reads the replay heatmap some services report. Entries with
// non-numeric fields are skipped.
func parseHeatmap(info map[string]any) []mediatypes.HeatmapEntry {
	raw, ok := info["heatmap"].([]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	entries := make([]mediatypes.HeatmapEntry, 0, len(raw))
	for _, e := range raw {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		entries = append(entries, mediatypes.HeatmapEntry{
			StartTime: infoFloat(m, "start_time"),
			EndTime:   infoFloat(m, "end_time"),
			Value:     infoFloat(m, "value"),
		})
	}
	if len(entries) == 0 {
		return nil
	}
	return entries
}

// normalizeUploadDate converts yt-dlp's YYYYMMDD dates to ISO form.
func normalizeUploadDate(s string) string {
	if s == "" {
		return ""
	}
	if t, err := time.Parse("20060102", s); err == nil {
		return t.Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return s
	}
	return s
}

func infoString(info map[string]any, key string) string {
	if v, ok := info[key].(string); ok {
		return v
	}
	return ""
}

func infoFloat(info map[string]any, key string) float64 {
	switch v := info[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// entriesOf returns the "entries" list of a channel or playlist info dict.
func entriesOf(info map[string]any) []map[string]any {
	raw, ok := info["entries"].([]any)
	if !ok {
		return nil
	}
	var entries []map[string]any
	for _, e := range raw {
		if m, ok := e.(map[string]any); ok {
			entries = append(entries, m)
		}
	}
	return entries
}
