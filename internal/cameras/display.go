package cameras

import (
	"context"

	"github.com/jerichox/jerichox-security/internal/data"
)

type StreamInfo struct {
	Type          string  `json:"type"`
	PrimaryURL    string  `json:"primary_url"`
	SnapshotURL   *string `json:"snapshot_url"`
	HLSURL        *string `json:"hls_url"`
	SupportsPTZ   bool    `json:"supports_ptz"`
	SupportsAudio bool    `json:"supports_audio"`
}

type DisplayCamera struct {
	*data.DisplayCamera
	StreamInfo StreamInfo `json:"stream_info"`
}

// ListDisplay returns the cameras shown to userID, highest priority first.
// Cameras the user never configured are shown by default.
func (s *Service) ListDisplay(ctx context.Context, userID string) ([]DisplayCamera, error) {
	rows, err := data.DisplaySelectionModel{DB: s.db}.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]DisplayCamera, 0, len(rows))
	for _, r := range rows {
		out = append(out, DisplayCamera{DisplayCamera: r, StreamInfo: streamInfo(r)})
	}
	return out, nil
}

func streamInfo(c *data.DisplayCamera) StreamInfo {
	info := StreamInfo{
		Type:          "rtsp",
		PrimaryURL:    c.URL,
		SupportsPTZ:   c.HasPTZ,
		SupportsAudio: c.HasAudio,
	}
	if c.Type == CameraTypeHikConnect {
		info.Type = "progressive_jpeg"
	}
	if c.StreamURLs != nil {
		if c.StreamURLs.Snapshot != "" {
			info.SnapshotURL = &c.StreamURLs.Snapshot
		}
		if c.StreamURLs.HLS != "" {
			info.HLSURL = &c.StreamURLs.HLS
		}
	}
	return info
}
