package domain

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

const (
	ImportStatusCreated    = "created"
	ImportStatusQueued     = "queued"
	ImportStatusProcessing = "processing"
	ImportStatusSucceeded  = "succeeded"
	ImportStatusFailed     = "failed"
)

type CreateImportRequest struct {
	ObjectKey  string `json:"object_key" validate:"required,max=1024"`
	KeyPrefix  string `json:"key_prefix,omitempty" validate:"omitempty,max=128"`
	WebhookURL string `json:"webhook_url,omitempty" validate:"omitempty,url"`
}

// AssetDocument is an image document stored under a caller-chosen key.
type AssetDocument struct {
	Key       string      `json:"key"`
	Source    ImageSource `json:"image"`
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type Import struct {
	ID         string        `json:"id"`
	Status     string        `json:"status"`
	ObjectKey  string        `json:"object_key"`
	KeyPrefix  string        `json:"key_prefix,omitempty"`
	WebhookURL string        `json:"webhook_url,omitempty"`
	Summary    ImportSummary `json:"summary"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

type ImportSummary struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

func (r CreateImportRequest) Validate() error {
	objectKey := strings.TrimSpace(r.ObjectKey)
	if objectKey == "" {
		return errors.New("object_key is required")
	}
	if ext := strings.ToLower(path.Ext(objectKey)); ext != ".ndjson" && ext != ".jsonl" {
		return fmt.Errorf("unsupported export format: %q", ext)
	}
	if strings.Contains(r.KeyPrefix, "/") {
		return errors.New("key_prefix must not contain '/'")
	}
	return nil
}
