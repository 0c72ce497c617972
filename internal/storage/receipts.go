package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"tradorr/api/internal/config"
)

// Receipt is the archived record of a completed checkout.
type Receipt struct {
	CheckoutID  string    `json:"checkoutId"`
	UserID      string    `json:"userId"`
	PlanID      string    `json:"planId"`
	PlanName    string    `json:"planName"`
	AmountMinor int64     `json:"amountMinor"`
	Currency    string    `json:"currency"`
	Method      string    `json:"method"`
	Provider    string    `json:"provider"`
	Reference   string    `json:"reference"`
	Trial       bool      `json:"trial"`
	TokensAdded int64     `json:"tokensAdded"`
	IssuedAt    time.Time `json:"issuedAt"`
}

type ReceiptStore struct {
	client *minio.Client
	cfg    config.ReceiptsConfig
}

func NewReceiptStore(cfg config.ReceiptsConfig) (*ReceiptStore, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &ReceiptStore{
		client: client,
		cfg:    cfg,
	}, nil
}

func (s *ReceiptStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", s.cfg.Bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.cfg.Bucket, err)
		}
	}
	return nil
}

// Archive writes the receipt as JSON under receipts/<year>/<month>/.
func (s *ReceiptStore) Archive(ctx context.Context, receipt Receipt) error {
	if receipt.IssuedAt.IsZero() {
		receipt.IssuedAt = time.Now().UTC()
	}

	payload, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}

	key := fmt.Sprintf("receipts/%04d/%02d/%s.json",
		receipt.IssuedAt.Year(), receipt.IssuedAt.Month(), receipt.CheckoutID)

	_, err = s.client.PutObject(ctx, s.cfg.Bucket, key,
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("put receipt %s: %w", key, err)
	}
	return nil
}
