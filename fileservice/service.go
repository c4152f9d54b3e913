package fileservice

import (
	"context"
	"io"
	"time"

	"github.com/bkio/crosscloudkit/primitive"
)

// Service is the FileService contract. Uploads/downloads accept
// either a local path (the File-suffixed methods) or a stream.
type Service interface {
	Upload(ctx context.Context, bucket, key string, source io.Reader, metadata Metadata) primitive.OperationResult[bool]
	UploadFile(ctx context.Context, bucket, key, localPath string, metadata Metadata) primitive.OperationResult[bool]

	Download(ctx context.Context, bucket, key string, dest io.Writer, byteRange *ByteRange) primitive.OperationResult[bool]
	DownloadToFile(ctx context.Context, bucket, key, localPath string) primitive.OperationResult[bool]

	Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) primitive.OperationResult[bool]
	Delete(ctx context.Context, bucket, key string) primitive.OperationResult[bool]
	DeleteFolder(ctx context.Context, bucket, prefix string) primitive.OperationResult[bool]

	Exists(ctx context.Context, bucket, key string) primitive.OperationResult[bool]
	Size(ctx context.Context, bucket, key string) primitive.OperationResult[int64]
	Checksum(ctx context.Context, bucket, key string) primitive.OperationResult[string]
	GetMetadata(ctx context.Context, bucket, key string) primitive.OperationResult[Metadata]
	SetTags(ctx context.Context, bucket, key string, tags map[string]string) primitive.OperationResult[bool]
	SetAccessibility(ctx context.Context, bucket, key string, acc Accessibility) primitive.OperationResult[bool]

	CreateSignedUploadURL(ctx context.Context, bucket, key string, ttl time.Duration) primitive.OperationResult[string]
	CreateSignedDownloadURL(ctx context.Context, bucket, key string, ttl time.Duration) primitive.OperationResult[string]

	List(ctx context.Context, bucket, prefix string, maxResults int, continuationToken string) primitive.OperationResult[ListResult]

	CreateNotification(ctx context.Context, cfg EventNotificationConfig) primitive.OperationResult[bool]
	DeleteNotifications(ctx context.Context, bucket string) primitive.OperationResult[bool]
	CleanupBucket(ctx context.Context, bucket string) primitive.OperationResult[bool]
}
