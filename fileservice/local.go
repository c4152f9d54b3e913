package fileservice

import (
	"context"
	"crypto/md5" //nolint:gosec // reference backend only; real backends use provider ETags
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bkio/crosscloudkit/internal/logging"
	"github.com/bkio/crosscloudkit/primitive"
)

// objectExtra holds the metadata a bare filesystem cannot represent
// natively (tags, properties, content type, ACL). Keyed by "bucket/key".
type objectExtra struct {
	contentType string
	properties  map[string]string
	tags        map[string]string
	acl         Accessibility
	createdAt   time.Time
}

// LocalService is the reference FileService backend: buckets are
// directories under baseDir, objects are files, and anything a plain
// filesystem can't represent (tags, ACL, content-type) lives in an
// in-process side table. It has no native event hooks, which is exactly
// the backend shape MonitorBasedPubSub exists to serve.
type LocalService struct {
	baseDir    string
	logger     logging.Logger
	registrar  NotificationRegistrar

	mu    sync.Mutex
	extra map[string]*objectExtra
}

func New(baseDir string, logger logging.Logger) *LocalService {
	return &LocalService{
		baseDir: baseDir,
		logger:  logging.OrNop(logger),
		extra:   make(map[string]*objectExtra),
	}
}

var _ Service = (*LocalService)(nil)

// SetNotificationRegistrar wires the MonitorBasedPubSub instance that will
// back CreateNotification/DeleteNotifications/CleanupBucket.
func (s *LocalService) SetNotificationRegistrar(r NotificationRegistrar) { s.registrar = r }

func extraKey(bucket, key string) string { return bucket + "/" + key }

func (s *LocalService) path(bucket, key string) string {
	return filepath.Join(s.baseDir, bucket, filepath.FromSlash(key))
}

func (s *LocalService) Upload(_ context.Context, bucket, key string, source io.Reader, metadata Metadata) primitive.OperationResult[bool] {
	if bucket == "" {
		return primitive.Fail[bool](primitive.StatusBadRequest, "%v", ErrEmptyBucket)
	}
	if key == "" {
		return primitive.Fail[bool](primitive.StatusBadRequest, "%v", ErrEmptyKey)
	}

	full := s.path(bucket, key)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return primitive.Fail[bool](primitive.StatusInternalServerError, "mkdir: %v", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return primitive.Fail[bool](primitive.StatusForbidden, "create: %v", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, source); err != nil {
		return primitive.Fail[bool](primitive.StatusInternalServerError, "write: %v", err)
	}

	s.mu.Lock()
	s.extra[extraKey(bucket, key)] = &objectExtra{
		contentType: metadata.ContentType,
		properties:  metadata.Properties,
		tags:        metadata.Tags,
		createdAt:   time.Now().UTC(),
	}
	s.mu.Unlock()

	return primitive.Ok(true)
}

func (s *LocalService) UploadFile(ctx context.Context, bucket, key, localPath string, metadata Metadata) primitive.OperationResult[bool] {
	f, err := os.Open(localPath)
	if err != nil {
		return primitive.Fail[bool](primitive.StatusNotFound, "open local file: %v", err)
	}
	defer f.Close()
	return s.Upload(ctx, bucket, key, f, metadata)
}

func (s *LocalService) Download(_ context.Context, bucket, key string, dest io.Writer, byteRange *ByteRange) primitive.OperationResult[bool] {
	full := s.path(bucket, key)
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return primitive.Fail[bool](primitive.StatusNotFound, "object %s/%s not found", bucket, key)
		}
		return primitive.Fail[bool](primitive.StatusForbidden, "open: %v", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if byteRange != nil {
		if _, err := f.Seek(byteRange.StartIndex, io.SeekStart); err != nil {
			return primitive.Fail[bool](primitive.StatusBadRequest, "seek: %v", err)
		}
		reader = io.LimitReader(f, byteRange.Size)
	}

	if _, err := io.Copy(dest, reader); err != nil {
		return primitive.Fail[bool](primitive.StatusInternalServerError, "read: %v", err)
	}
	return primitive.Ok(true)
}

func (s *LocalService) DownloadToFile(ctx context.Context, bucket, key, localPath string) primitive.OperationResult[bool] {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return primitive.Fail[bool](primitive.StatusInternalServerError, "mkdir: %v", err)
	}
	f, err := os.Create(localPath)
	if err != nil {
		return primitive.Fail[bool](primitive.StatusForbidden, "create local file: %v", err)
	}
	defer f.Close()
	return s.Download(ctx, bucket, key, f, nil)
}

func (s *LocalService) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) primitive.OperationResult[bool] {
	src, err := os.Open(s.path(srcBucket, srcKey))
	if err != nil {
		return primitive.Fail[bool](primitive.StatusNotFound, "open source: %v", err)
	}
	defer src.Close()

	meta := s.GetMetadata(ctx, srcBucket, srcKey)
	var m Metadata
	if meta.IsSuccessful() {
		m = meta.Value()
	}
	return s.Upload(ctx, dstBucket, dstKey, src, m)
}

func (s *LocalService) Delete(_ context.Context, bucket, key string) primitive.OperationResult[bool] {
	full := s.path(bucket, key)
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return primitive.Fail[bool](primitive.StatusForbidden, "delete: %v", err)
	}
	s.mu.Lock()
	delete(s.extra, extraKey(bucket, key))
	s.mu.Unlock()
	return primitive.Ok(true)
}

func (s *LocalService) DeleteFolder(_ context.Context, bucket, prefix string) primitive.OperationResult[bool] {
	root := s.path(bucket, prefix)
	if err := os.RemoveAll(root); err != nil {
		return primitive.Fail[bool](primitive.StatusForbidden, "delete folder: %v", err)
	}

	s.mu.Lock()
	bucketPrefix := extraKey(bucket, prefix)
	for k := range s.extra {
		if strings.HasPrefix(k, bucketPrefix) {
			delete(s.extra, k)
		}
	}
	s.mu.Unlock()
	return primitive.Ok(true)
}

func (s *LocalService) Exists(_ context.Context, bucket, key string) primitive.OperationResult[bool] {
	_, err := os.Stat(s.path(bucket, key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return primitive.Ok(false)
		}
		return primitive.Fail[bool](primitive.StatusForbidden, "stat: %v", err)
	}
	return primitive.Ok(true)
}

func (s *LocalService) Size(_ context.Context, bucket, key string) primitive.OperationResult[int64] {
	info, err := os.Stat(s.path(bucket, key))
	if err != nil {
		return primitive.Fail[int64](primitive.StatusNotFound, "stat: %v", err)
	}
	return primitive.Ok(info.Size())
}

func (s *LocalService) Checksum(_ context.Context, bucket, key string) primitive.OperationResult[string] {
	f, err := os.Open(s.path(bucket, key))
	if err != nil {
		return primitive.Fail[string](primitive.StatusNotFound, "open: %v", err)
	}
	defer f.Close()

	h := md5.New() //nolint:gosec
	if _, err := io.Copy(h, f); err != nil {
		return primitive.Fail[string](primitive.StatusInternalServerError, "hash: %v", err)
	}
	return primitive.Ok(hex.EncodeToString(h.Sum(nil)))
}

func (s *LocalService) GetMetadata(_ context.Context, bucket, key string) primitive.OperationResult[Metadata] {
	info, err := os.Stat(s.path(bucket, key))
	if err != nil {
		return primitive.Fail[Metadata](primitive.StatusNotFound, "stat: %v", err)
	}

	s.mu.Lock()
	ex, ok := s.extra[extraKey(bucket, key)]
	s.mu.Unlock()

	m := Metadata{Size: info.Size()}
	lm := info.ModTime().UTC()
	m.LastModified = &lm
	if ok {
		m.ContentType = ex.contentType
		m.Properties = ex.properties
		m.Tags = ex.tags
		ca := ex.createdAt
		m.CreatedAt = &ca
	}
	return primitive.Ok(m)
}

func (s *LocalService) SetTags(_ context.Context, bucket, key string, tags map[string]string) primitive.OperationResult[bool] {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex, ok := s.extra[extraKey(bucket, key)]
	if !ok {
		ex = &objectExtra{}
		s.extra[extraKey(bucket, key)] = ex
	}
	ex.tags = tags
	return primitive.Ok(true)
}

func (s *LocalService) SetAccessibility(_ context.Context, bucket, key string, acc Accessibility) primitive.OperationResult[bool] {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex, ok := s.extra[extraKey(bucket, key)]
	if !ok {
		ex = &objectExtra{}
		s.extra[extraKey(bucket, key)] = ex
	}
	ex.acl = acc
	return primitive.Ok(true)
}

// CreateSignedUploadURL/CreateSignedDownloadURL return a synthetic
// file:// URL carrying an expiry query parameter — a stand-in for a
// provider's presigned URL, sufficient to exercise the contract shape.
func (s *LocalService) CreateSignedUploadURL(_ context.Context, bucket, key string, ttl time.Duration) primitive.OperationResult[string] {
	return primitive.Ok(fmt.Sprintf("file://%s?op=upload&expires=%d", s.path(bucket, key), time.Now().Add(ttl).Unix()))
}

func (s *LocalService) CreateSignedDownloadURL(_ context.Context, bucket, key string, ttl time.Duration) primitive.OperationResult[string] {
	return primitive.Ok(fmt.Sprintf("file://%s?op=download&expires=%d", s.path(bucket, key), time.Now().Add(ttl).Unix()))
}

func (s *LocalService) List(_ context.Context, bucket, prefix string, maxResults int, continuationToken string) primitive.OperationResult[ListResult] {
	root := filepath.Join(s.baseDir, bucket)
	var all []ListedFile

	_ = filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil //nolint:nilerr // best-effort walk; unreadable entries are skipped, not fatal
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil //nolint:nilerr
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		all = append(all, ListedFile{Key: key, Size: info.Size(), LastModified: info.ModTime().UTC()})
		return nil
	})

	sort.Slice(all, func(i, j int) bool { return all[i].Key < all[j].Key })

	offset := 0
	if continuationToken != "" {
		if n, err := strconv.Atoi(continuationToken); err == nil {
			offset = n
		}
	}
	if maxResults <= 0 {
		maxResults = len(all)
	}
	end := offset + maxResults
	if end > len(all) {
		end = len(all)
	}
	if offset > len(all) {
		offset = len(all)
	}

	result := ListResult{Files: all[offset:end]}
	if end < len(all) {
		result.NextContinuationToken = strconv.Itoa(end)
	}
	return primitive.Ok(result)
}

func (s *LocalService) CreateNotification(ctx context.Context, cfg EventNotificationConfig) primitive.OperationResult[bool] {
	if s.registrar == nil {
		return primitive.Fail[bool](primitive.StatusNotImplemented, "%v", ErrNoRegistrar)
	}
	return s.registrar.CreateNotification(ctx, cfg)
}

func (s *LocalService) DeleteNotifications(ctx context.Context, bucket string) primitive.OperationResult[bool] {
	if s.registrar == nil {
		return primitive.Fail[bool](primitive.StatusNotImplemented, "%v", ErrNoRegistrar)
	}
	return s.registrar.DeleteNotifications(ctx, bucket)
}

func (s *LocalService) CleanupBucket(ctx context.Context, bucket string) primitive.OperationResult[bool] {
	if s.registrar == nil {
		return primitive.Fail[bool](primitive.StatusNotImplemented, "%v", ErrNoRegistrar)
	}
	return s.registrar.CleanupBucket(ctx, bucket)
}
