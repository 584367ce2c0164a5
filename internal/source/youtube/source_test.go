package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video_notifier/internal/config"
	"video_notifier/internal/domain"
)

const searchResponse = `{
  "kind": "youtube#searchListResponse",
  "items": [
    {
      "id": {"kind": "youtube#video", "videoId": "42"},
      "snippet": {"channelId": "UCchannel", "title": "Newest", "publishedAt": "2024-01-15T14:00:00Z"}
    },
    {
      "id": {"kind": "youtube#video", "videoId": "41"},
      "snippet": {"channelId": "UCchannel", "title": "Older", "publishedAt": "2024-01-10T14:00:00Z"}
    },
    {
      "id": {"kind": "youtube#playlist", "playlistId": "PL1"},
      "snippet": {"channelId": "UCchannel", "title": "Playlist"}
    }
  ]
}`

func newTestSource(t *testing.T, handler http.HandlerFunc) *Source {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	src, err := New(context.Background(), config.SourceConfig{
		APIKey:  "test-key",
		BaseURL: server.URL + "/",
		Timeout: 5 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     time.Millisecond,
		},
	}, logger)
	require.NoError(t, err)

	return src
}

func TestLatestVideos(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/youtube/v3/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "UCchannel", q.Get("channelId"))
		assert.Equal(t, "date", q.Get("order"))
		assert.Equal(t, "video", q.Get("type"))
		assert.Equal(t, "5", q.Get("maxResults"))
		assert.Equal(t, "test-key", q.Get("key"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, searchResponse)
	})

	videos, err := src.LatestVideos(context.Background(), "UCchannel", 5)

	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "42", videos[0].ID)
	assert.Equal(t, "Newest", videos[0].Title)
	assert.Equal(t, "https://www.youtube.com/watch?v=42", videos[0].URL)
	assert.Equal(t, time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC), videos[0].PublishedAt.UTC())
	assert.Equal(t, "41", videos[1].ID)
}

func TestLatestVideos_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, searchResponse)
	})

	videos, err := src.LatestVideos(context.Background(), "UCchannel", 5)

	require.NoError(t, err)
	assert.Len(t, videos, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestLatestVideos_QuotaExceededIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"quota","errors":[{"reason":"quotaExceeded","message":"quota"}]}}`)
	})

	_, err := src.LatestVideos(context.Background(), "UCchannel", 5)

	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLatestVideos_EmptyChannel(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[]}`)
	})

	videos, err := src.LatestVideos(context.Background(), "UCempty", 5)

	require.NoError(t, err)
	assert.Empty(t, videos)
}

func TestChannelInfo(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/youtube/v3/channels", r.URL.Path)
		assert.Equal(t, "UCchannel", r.URL.Query().Get("id"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[{
			"id": "UCchannel",
			"snippet": {
				"title": "Cooking With Go",
				"description": "Weekly uploads",
				"thumbnails": {"high": {"url": "https://img.example/high.jpg"}}
			},
			"statistics": {"subscriberCount": "1200", "hiddenSubscriberCount": false}
		}]}`)
	})

	info, err := src.ChannelInfo(context.Background(), "UCchannel")

	require.NoError(t, err)
	assert.Equal(t, "Cooking With Go", info.Title)
	assert.Equal(t, "Weekly uploads", info.Description)
	require.NotNil(t, info.Subscribers)
	assert.Equal(t, uint64(1200), *info.Subscribers)
	assert.Equal(t, "https://img.example/high.jpg", info.ThumbnailURL)
}

func TestChannelInfo_NotFound(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[]}`)
	})

	_, err := src.ChannelInfo(context.Background(), "UCmissing")

	assert.ErrorIs(t, err, domain.ErrChannelNotFound)
}
