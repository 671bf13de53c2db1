package keyring

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/plukevdh/go-keydir/interfaces"
)

// S3Store keeps keyring artifacts in Amazon S3 or a compatible object
// store. Without credentials the store is read-only against public
// buckets; with credentials it can replicate the full keyring.
// Objects stay private and are stored with server-side encryption:
// unlike published configuration, keyring artifacts are per-user data.
type S3Store struct {
	client         *s3.S3
	writeClient    *s3.S3
	bucket         string
	prefix         string
	log            *slog.Logger
	locationURI    string
	hasWriteAccess bool
}

// NewS3Store creates an object-storage keyring store. If accessKey and
// secretKey are provided the store gains write access; otherwise reads
// rely on bucket policy.
func NewS3Store(bucket, prefix, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3Store, error) {
	uri := fmt.Sprintf("s3://%s/%s?region=%s", bucket, prefix, region)
	if endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", endpoint)
	}

	baseCfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		baseCfg.Endpoint = aws.String(endpoint)
		// Compatible stores (minio and friends) want path-style keys.
		baseCfg.S3ForcePathStyle = aws.Bool(true)
	}

	baseSess, err := session.NewSession(&baseCfg)
	if err != nil {
		return nil, fmt.Errorf("could not create AWS session: %w", err)
	}
	readClient := s3.New(baseSess)

	hasWriteAccess := accessKey != "" && secretKey != ""
	writeClient := readClient

	if hasWriteAccess {
		writeCfg := baseCfg.Copy()
		writeCfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")

		writeSess, err := session.NewSession(writeCfg)
		if err != nil {
			return nil, fmt.Errorf("could not create AWS write session: %w", err)
		}
		writeClient = s3.New(writeSess)
	} else {
		log.Warn("no S3 credentials provided, keyring writes will fail unless the bucket policy allows them")
	}

	return &S3Store{
		client:         readClient,
		writeClient:    writeClient,
		bucket:         bucket,
		prefix:         strings.TrimSuffix(prefix, "/"),
		log:            log,
		locationURI:    uri,
		hasWriteAccess: hasWriteAccess,
	}, nil
}

// Fetch retrieves an artifact object. Returns ErrArtifactNotFound when
// the object does not exist.
func (s *S3Store) Fetch(ctx context.Context, id interfaces.ArtifactID, kind interfaces.ArtifactKind) ([]byte, error) {
	start := time.Now()
	key := s.objectKey(id, kind)

	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "404") {
			s.log.Debug("artifact not in S3",
				slog.String("artifact", id.String()),
				slog.String("key", key),
				slog.Duration("duration", time.Since(start)))
			return nil, interfaces.ErrArtifactNotFound
		}
		s.log.Error("could not get artifact from S3",
			slog.String("artifact", id.String()),
			slog.String("key", key),
			"err", err)
		return nil, fmt.Errorf("could not get artifact from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read artifact body: %w", err)
	}

	s.log.Debug("fetched artifact from S3",
		slog.String("artifact", id.String()),
		slog.String("key", key),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Store uploads an artifact under its content hash.
func (s *S3Store) Store(ctx context.Context, data []byte, kind interfaces.ArtifactKind) (interfaces.ArtifactID, error) {
	id := interfaces.ComputeArtifactID(data)
	key := s.objectKey(id, kind)

	_, err := s.writeClient.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(data),
		ServerSideEncryption: aws.String("AES256"),
	})
	if err != nil {
		if !s.hasWriteAccess {
			return id, fmt.Errorf("could not upload artifact (no write credentials provided): %w", err)
		}
		return id, fmt.Errorf("could not upload artifact to S3: %w", err)
	}

	s.log.Debug("stored artifact in S3",
		slog.String("key", key),
		slog.String("artifact", id.String()))

	return id, nil
}

// Available checks the bucket is reachable.
func (s *S3Store) Available(ctx context.Context) bool {
	start := time.Now()

	_, err := s.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		s.log.Warn("S3 keyring store unavailable",
			slog.String("bucket", s.bucket),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return false
	}
	return true
}

// Name returns a unique identifier for this store.
func (s *S3Store) Name() string {
	return fmt.Sprintf("s3-%s", s.bucket)
}

// LocationURI returns the URI that identifies this store.
func (s *S3Store) LocationURI() string {
	return s.locationURI
}

func (s *S3Store) objectKey(id interfaces.ArtifactID, kind interfaces.ArtifactKind) string {
	if s.prefix == "" {
		return path.Join(kind.String(), id.String())
	}
	return path.Join(s.prefix, kind.String(), id.String())
}
