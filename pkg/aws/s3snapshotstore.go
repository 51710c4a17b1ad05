package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/storacha/hitcounter/pkg/store/counterstore"
)

// S3SnapshotStore writes hit count snapshots to an S3 bucket as JSON.
type S3SnapshotStore struct {
	bucket    string
	keyPrefix string
	s3Client  *s3.Client
}

func NewS3SnapshotStore(cfg aws.Config, bucket string, keyPrefix string, opts ...func(*s3.Options)) *S3SnapshotStore {
	return &S3SnapshotStore{
		s3Client:  s3.NewFromConfig(cfg, opts...),
		bucket:    bucket,
		keyPrefix: keyPrefix,
	}
}

// Put uploads the snapshot and returns the object key it was written to.
func (s *S3SnapshotStore) Put(ctx context.Context, snap counterstore.Snapshot) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("serializing snapshot: %w", err)
	}
	key := s.keyPrefix + snap.Taken.UTC().Format(time.RFC3339) + ".json"
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("uploading snapshot: %w", err)
	}
	return key, nil
}
