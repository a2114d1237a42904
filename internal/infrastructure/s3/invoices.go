package s3infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-email-relay/internal/domain"
)

// PutObjectAPI is the subset of the S3 client used by InvoiceArchive.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// InvoiceArchive stores a JSON copy of every invoice email that was sent.
type InvoiceArchive struct {
	client PutObjectAPI
	bucket string
}

type archivedInvoice struct {
	DeliveryID string         `json:"delivery_id"`
	Recipient  string         `json:"recipient"`
	SentAt     time.Time      `json:"sent_at"`
	Invoice    domain.Invoice `json:"invoice"`
}

func NewInvoiceArchive(client PutObjectAPI, bucket string) *InvoiceArchive {
	return &InvoiceArchive{client: client, bucket: bucket}
}

// ObjectKey is invoices/YYYY/MM/DD/<deliveryID>.json.
func ObjectKey(deliveryID string, sentAt time.Time) string {
	return fmt.Sprintf("invoices/%s/%s.json", sentAt.UTC().Format("2006/01/02"), deliveryID)
}

// Archive writes the invoice and returns its s3:// location.
func (a *InvoiceArchive) Archive(ctx context.Context, deliveryID, recipient string, inv domain.Invoice, sentAt time.Time) (string, error) {
	body, err := json.Marshal(archivedInvoice{
		DeliveryID: deliveryID,
		Recipient:  recipient,
		SentAt:     sentAt.UTC(),
		Invoice:    inv,
	})
	if err != nil {
		return "", fmt.Errorf("marshal invoice: %w", err)
	}
	key := ObjectKey(deliveryID, sentAt)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}
