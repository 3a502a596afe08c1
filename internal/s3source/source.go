// Package s3source lists clips straight from the bucket the processing
// backend uploads to, for when the gallery API is not running.
//
// Every job folder holds a "<base>_metadata.json" object describing the
// shorts cut from one video; short i is stored next to it as
// "<base>_clip_<i+1>.mp4".
package s3source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"clipdeck/internal/model"
)

const (
	metadataSuffix   = "_metadata.json"
	defaultTitle     = "Untitled Clip"
	DefaultCacheTTL  = 5 * time.Minute
	DefaultURLExpiry = 2 * time.Hour
)

// Client is the part of the S3 API the source needs.
type Client interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type Config struct {
	Bucket string
	Region string
	// Prefix limits listing to keys under it, e.g. "prod/".
	Prefix       string
	Profile      string
	UsePathStyle bool
	CacheTTL     time.Duration
	URLExpiry    time.Duration
}

// Source serves gallery pages from an S3 bucket. The expanded clip list is
// cached and shared by all pages until it expires.
type Source struct {
	client  Client
	presign Presigner
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	cache    []model.Clip
	cachedAt time.Time
}

// New builds a source on the default AWS credential chain.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Source, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 source: bucket is required")
	}
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewWithClient(client, s3.NewPresignClient(client), cfg, logger), nil
}

func NewWithClient(client Client, presign Presigner, cfg Config, logger *slog.Logger) *Source {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = DefaultURLExpiry
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Prefix = strings.TrimLeft(strings.TrimSpace(cfg.Prefix), "/")
	if cfg.Prefix != "" && !strings.HasSuffix(cfg.Prefix, "/") {
		cfg.Prefix += "/"
	}
	return &Source{client: client, presign: presign, cfg: cfg, logger: logger, now: time.Now}
}

// ListClips returns clips [offset, offset+limit) of the newest-first list.
func (s *Source) ListClips(ctx context.Context, limit, offset int) (model.ClipPage, error) {
	if limit <= 0 {
		return model.ClipPage{}, fmt.Errorf("list clips: limit must be > 0")
	}
	if offset < 0 {
		offset = 0
	}
	all, err := s.clips(ctx, false)
	if err != nil {
		return model.ClipPage{}, err
	}
	end := offset + limit
	if offset > len(all) {
		offset = len(all)
	}
	if end > len(all) {
		end = len(all)
	}
	page := make([]model.Clip, end-offset)
	copy(page, all[offset:end])
	more := end < len(all)
	return model.ClipPage{Clips: page, HasMore: &more}, nil
}

// Refresh drops the cache and lists the bucket again.
func (s *Source) Refresh(ctx context.Context) error {
	_, err := s.clips(ctx, true)
	return err
}

// Ping checks that the bucket can be listed.
func (s *Source) Ping(ctx context.Context) error {
	_, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.cfg.Bucket),
		Prefix:  s.prefix(),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return fmt.Errorf("list bucket %s: %w", s.cfg.Bucket, err)
	}
	return nil
}

func (s *Source) clips(ctx context.Context, force bool) ([]model.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !force && s.cache != nil && s.now().Sub(s.cachedAt) < s.cfg.CacheTTL {
		return s.cache, nil
	}
	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.cache = all
	s.cachedAt = s.now()
	return all, nil
}

func (s *Source) load(ctx context.Context) ([]model.Clip, error) {
	var metas []s3types.Object
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.cfg.Bucket),
		Prefix: s.prefix(),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list bucket %s: %w", s.cfg.Bucket, err)
		}
		for _, obj := range page.Contents {
			if strings.HasSuffix(aws.ToString(obj.Key), metadataSuffix) {
				metas = append(metas, obj)
			}
		}
	}
	sort.SliceStable(metas, func(i, j int) bool {
		return aws.ToTime(metas[i].LastModified).After(aws.ToTime(metas[j].LastModified))
	})

	all := []model.Clip{}
	for _, obj := range metas {
		clips, err := s.expand(ctx, obj)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Error("skipping clip metadata", "key", aws.ToString(obj.Key), "error", err)
			continue
		}
		all = append(all, clips...)
	}
	s.logger.Info("bucket listed", "bucket", s.cfg.Bucket, "metadata_objects", len(metas), "clips", len(all))
	return all, nil
}

type metadataFile struct {
	Shorts []metadataShort `json:"shorts"`
}

type metadataShort struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Title     string  `json:"video_title_for_youtube_short"`
	Tiktok    string  `json:"video_description_for_tiktok"`
	Instagram string  `json:"video_description_for_instagram"`
}

func (s *Source) expand(ctx context.Context, obj s3types.Object) ([]model.Clip, error) {
	key := aws.ToString(obj.Key)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	var meta metadataFile
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	jobID, base := splitMetadataKey(strings.TrimPrefix(key, s.cfg.Prefix))
	createdAt := ""
	if obj.LastModified != nil {
		createdAt = obj.LastModified.UTC().Format(time.RFC3339)
	}

	clips := make([]model.Clip, 0, len(meta.Shorts))
	for i, short := range meta.Shorts {
		clipKey := s.cfg.Prefix + jobID + "/" + fmt.Sprintf("%s_clip_%d.mp4", base, i+1)
		signed, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.cfg.Bucket),
			Key:    aws.String(clipKey),
		}, s3.WithPresignExpires(s.cfg.URLExpiry))
		if err != nil {
			return nil, fmt.Errorf("presign %s: %w", clipKey, err)
		}
		title := short.Title
		if strings.TrimSpace(title) == "" {
			title = defaultTitle
		}
		clips = append(clips, model.Clip{
			JobID:      jobID,
			Index:      i,
			URL:        signed.URL,
			Title:      title,
			TiktokDesc: short.Tiktok,
			InstaDesc:  short.Instagram,
			Duration:   short.End - short.Start,
			CreatedAt:  createdAt,
		})
	}
	return clips, nil
}

// splitMetadataKey maps "job/<base>_metadata.json" to ("job", "<base>").
// Keys at the bucket root belong to job "unknown".
func splitMetadataKey(key string) (jobID, base string) {
	parts := strings.Split(key, "/")
	jobID = "unknown"
	if len(parts) > 1 && parts[0] != "" {
		jobID = parts[0]
	}
	base = strings.TrimSuffix(path.Base(key), metadataSuffix)
	return jobID, base
}

func (s *Source) prefix() *string {
	if s.cfg.Prefix == "" {
		return nil
	}
	return aws.String(s.cfg.Prefix)
}
