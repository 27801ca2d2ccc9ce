package sealed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/kindlight/protection-core/internal/auth"
	"github.com/kindlight/protection-core/internal/config"
	"github.com/kindlight/protection-core/internal/domain"
	"github.com/kindlight/protection-core/internal/pkg/logger"
)

// Archiver exports audit shards to S3 for legal retention. Objects are
// written under legal hold into a bucket with object lock enabled, so an
// export cannot be shortened or replaced after the fact.
type Archiver struct {
	log    *Log
	client *s3.Client
	bucket string
	prefix string
	now    func() time.Time
}

// NewArchiver creates an S3-backed archiver. Static credentials from the
// config take precedence; otherwise the default chain applies.
func NewArchiver(ctx context.Context, log *Log, cfg config.ArchiveConfig) (*Archiver, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &Archiver{
		log:    log,
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.S3Bucket,
		prefix: cfg.S3Prefix,
		now:    time.Now,
	}, nil
}

// Export verifies a shard's chain and uploads its entries as JSON lines.
// The chain is verified first so a tampered shard is never archived as if
// it were intact. Returns the object key.
func (a *Archiver) Export(ctx context.Context, p auth.CompliancePrincipal, shard string) (string, error) {
	count, err := a.log.VerifyChain(ctx, p, shard)
	if err != nil {
		return "", fmt.Errorf("verifying shard before export: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	nextSeq := int64(1)
	for {
		page, err := a.log.repo.ListShard(ctx, shard, nextSeq, 500)
		if err != nil {
			return "", fmt.Errorf("listing shard: %w", err)
		}
		if len(page) == 0 {
			break
		}
		for i := range page {
			if err := enc.Encode(page[i]); err != nil {
				return "", fmt.Errorf("encoding entry: %w", err)
			}
		}
		nextSeq = page[len(page)-1].Seq + 1
		if len(page) < 500 {
			break
		}
	}

	key := fmt.Sprintf("%saudit/%s/%s/seq-1-%d.jsonl",
		a.prefix, shard, a.now().UTC().Format("2006/01/02"), count)

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:                    aws.String(a.bucket),
		Key:                       aws.String(key),
		Body:                      bytes.NewReader(buf.Bytes()),
		ContentType:               aws.String("application/x-ndjson"),
		ObjectLockLegalHoldStatus: s3types.ObjectLockLegalHoldStatusOn,
	})
	if err != nil {
		return "", fmt.Errorf("putting archive object: %w", err)
	}

	if err := a.log.Record(ctx, domain.AuditArchiveExported, p.ID(), "", map[string]string{
		"shard":   shard,
		"entries": strconv.FormatInt(count, 10),
		"key":     key,
	}); err != nil {
		return "", fmt.Errorf("recording archive export: %w", err)
	}

	logger.Info("audit shard archived", "entries", count)
	return key, nil
}
