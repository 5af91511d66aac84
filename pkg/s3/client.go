// Package s3 stores encrypted profile snapshots on an S3-compatible
// endpoint (MinIO and friends).
package s3

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/hopsync/hopsync/pkg/backup"
)

const (
	BucketName     = "hopsync-backups"
	snapshotPrefix = "profiles-"
)

// Client handles snapshot storage on S3
type Client struct {
	s3Client      *s3.Client
	presignClient *s3.PresignClient
	httpClient    *http.Client
	bucket        string
}

// NewClient creates a new S3 client against a custom endpoint
func NewClient(host, accessKey, secretKey string) (*Client, error) {
	if host == "" || accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("missing S3 configuration")
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		config.WithRegion("us-east-1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(host)
		o.UsePathStyle = true // path-style for MinIO and other S3-compat stores
	})

	return &Client{
		s3Client:      client,
		presignClient: s3.NewPresignClient(client),
		httpClient:    http.DefaultClient,
		bucket:        BucketName,
	}, nil
}

// EnsureBucket checks if the bucket exists, creates it if not
func (c *Client) EnsureBucket(ctx context.Context) error {
	_, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = c.s3Client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err != nil {
		// 409 means the bucket already exists, which is fine
		if strings.Contains(err.Error(), "StatusCode: 409") ||
			strings.Contains(err.Error(), "BucketAlreadyOwnedByYou") {
			return nil
		}
		return fmt.Errorf("failed to create bucket %s: %w", c.bucket, err)
	}

	return nil
}

// Snapshot seals the given profile data with the passphrase and uploads
// it as a new timestamped object
func (c *Client) Snapshot(ctx context.Context, profileJSON []byte, passphrase string) error {
	if err := c.EnsureBucket(ctx); err != nil {
		return err
	}

	sealed, err := backup.Seal(string(profileJSON), passphrase)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%s%s.enc", snapshotPrefix, time.Now().Format("20060102-150405"))

	presignedReq, err := c.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return fmt.Errorf("failed to generate presigned PUT: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presignedReq.URL, strings.NewReader(sealed))
	if err != nil {
		return err
	}
	req.ContentLength = int64(len(sealed))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("upload failed with status: %s", resp.Status)
	}

	return nil
}

// RestoreLatest downloads the newest snapshot, opens it with the
// passphrase, and returns the profile JSON it contains
func (c *Client) RestoreLatest(ctx context.Context, passphrase string) ([]byte, error) {
	output, err := c.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(snapshotPrefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	if len(output.Contents) == 0 {
		return nil, fmt.Errorf("no snapshots found")
	}

	sort.Slice(output.Contents, func(i, j int) bool {
		return output.Contents[i].LastModified.After(*output.Contents[j].LastModified)
	})
	latestKey := *output.Contents[0].Key

	presignedReq, err := c.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(latestKey),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned GET: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, presignedReq.URL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status: %s", resp.Status)
	}

	sealed, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var profileJSON string
	if err := backup.Open(string(sealed), passphrase, &profileJSON); err != nil {
		return nil, err
	}

	return []byte(profileJSON), nil
}

// ListSnapshots returns the snapshot object keys, newest first
func (c *Client) ListSnapshots(ctx context.Context) ([]string, error) {
	output, err := c.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(snapshotPrefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	sort.Slice(output.Contents, func(i, j int) bool {
		return output.Contents[i].LastModified.After(*output.Contents[j].LastModified)
	})

	keys := make([]string, 0, len(output.Contents))
	for _, obj := range output.Contents {
		keys = append(keys, *obj.Key)
	}

	return keys, nil
}
