package signal

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"rankwise.app/analyst/internal/niche"
)

// YouTubeSource reads search results and statistics from the YouTube Data API.
type YouTubeSource struct {
	svc *youtube.Service
}

var _ VideoSource = (*YouTubeSource)(nil)

func NewYouTubeSource(ctx context.Context, apiKey string, opts ...option.ClientOption) (*YouTubeSource, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating youtube service: %w", err)
	}
	return &YouTubeSource{svc: svc}, nil
}

func (y *YouTubeSource) TopVideos(ctx context.Context, query string, limit int) ([]niche.Video, error) {
	search, err := y.svc.Search.List([]string{"id"}).
		Q(query).
		Type("video").
		Order("viewCount").
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifyGoogleErr("youtube search", err)
	}

	ids := make([]string, 0, len(search.Items))
	for _, item := range search.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			ids = append(ids, item.Id.VideoId)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	list, err := y.svc.Videos.List([]string{"snippet", "statistics", "contentDetails"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifyGoogleErr("youtube videos", err)
	}

	videos := make([]niche.Video, 0, len(list.Items))
	for _, item := range list.Items {
		v := niche.Video{ID: item.Id}
		if item.Snippet != nil {
			v.Title = item.Snippet.Title
			v.Channel = item.Snippet.ChannelTitle
			v.PublishedAt, _ = time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		}
		if item.Statistics != nil {
			v.Views = item.Statistics.ViewCount
			v.Likes = item.Statistics.LikeCount
			v.Comments = item.Statistics.CommentCount
		}
		if item.ContentDetails != nil {
			v.Duration = ParseISODuration(item.ContentDetails.Duration)
		}
		videos = append(videos, v)
	}
	return videos, nil
}

func classifyGoogleErr(op string, err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		if gErr.Code == 429 || gErr.Code >= 500 {
			return fmt.Errorf("%s: %w", op, err)
		}
		return Permanent(fmt.Errorf("%s: %w", op, err))
	}
	return fmt.Errorf("%s: %w", op, err)
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISODuration reads the PnDTnHnMnS subset YouTube uses. Invalid input
// yields 0.
func ParseISODuration(s string) time.Duration {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0
		}
		d += time.Duration(n) * unit
	}
	return d
}
