package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/carehub-health/billing-core/internal/billing"
	"github.com/carehub-health/billing-core/pkg/logging"
)

// Pipeline stage failures. Each stage is independently retryable.
var (
	ErrRender  = errors.New("artifact: render failed")
	ErrUpload  = errors.New("artifact: upload failed")
	ErrPersist = errors.New("artifact: handle write-back failed")
)

// S3API is the subset of the S3 client used by the generator.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Linker merge-writes the artifact handle onto a billing record.
type Linker interface {
	SetBillingArtifactURL(ctx context.Context, billingID, url string) error
}

// Generator renders billing records into PDF bills, uploads them, and links
// the retrieval handle back onto the record.
type Generator struct {
	store   S3API
	linker  Linker
	bucket  string
	region  string
	baseURL string
	logger  *logging.Logger
	now     func() time.Time
}

// NewGenerator builds a generator. baseURL overrides the default
// virtual-hosted S3 URL scheme; useful behind a CDN or LocalStack.
func NewGenerator(store S3API, linker Linker, bucket, region, baseURL string, logger *logging.Logger) *Generator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Generator{
		store:   store,
		linker:  linker,
		bucket:  bucket,
		region:  region,
		baseURL: baseURL,
		logger:  logger,
		now:     time.Now,
	}
}

// EnsureArtifact returns the billing record's artifact handle, generating
// and persisting the artifact first if the record has none. A record that
// already carries a handle is returned as-is with no second upload.
//
// When the handle was obtained but the write-back failed, the handle is
// returned together with an error wrapping ErrPersist: the artifact exists
// but is unlinked, and LinkArtifact can retry the link step alone.
func (g *Generator) EnsureArtifact(ctx context.Context, b *billing.Billing) (string, error) {
	if b.ArtifactURL != "" {
		return b.ArtifactURL, nil
	}

	data, err := renderBill(b)
	if err != nil {
		return "", fmt.Errorf("%w: bill %s: %w", ErrRender, b.BillingID, err)
	}

	key := fmt.Sprintf("bills/bill_%s_%d.pdf", b.BillingID, g.now().Unix())
	_, err = g.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return "", fmt.Errorf("%w: bill %s: %w", ErrUpload, b.BillingID, err)
	}

	handle := g.objectURL(key)
	if err := g.linker.SetBillingArtifactURL(ctx, b.BillingID, handle); err != nil {
		// Generated but unlinked: hand the caller the handle so only the
		// link step needs retrying.
		return handle, fmt.Errorf("%w: bill %s: %w", ErrPersist, b.BillingID, err)
	}

	b.ArtifactURL = handle
	g.logger.Info("bill artifact generated",
		"billing_id", b.BillingID,
		"s3_key", key,
		"bytes", len(data),
	)
	return handle, nil
}

// LinkArtifact retries only the write-back of an already-uploaded handle.
func (g *Generator) LinkArtifact(ctx context.Context, billingID, handle string) error {
	if err := g.linker.SetBillingArtifactURL(ctx, billingID, handle); err != nil {
		return fmt.Errorf("%w: bill %s: %w", ErrPersist, billingID, err)
	}
	return nil
}

func (g *Generator) objectURL(key string) string {
	if g.baseURL != "" {
		return fmt.Sprintf("%s/%s", g.baseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", g.bucket, g.region, key)
}
