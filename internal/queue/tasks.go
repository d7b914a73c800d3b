package queue

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const TypeImportAssets = "assets:import"

type ImportAssetsPayload struct {
	ImportID    string    `json:"import_id"`
	ObjectKey   string    `json:"object_key"`
	KeyPrefix   string    `json:"key_prefix,omitempty"`
	WebhookURL  string    `json:"webhook_url,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewImportAssetsTask(payload ImportAssetsPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal import payload: %w", err)
	}
	return asynq.NewTask(TypeImportAssets, body), nil
}

func ParseImportAssetsPayload(task *asynq.Task) (ImportAssetsPayload, error) {
	var payload ImportAssetsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ImportAssetsPayload{}, fmt.Errorf("unmarshal import payload: %w", err)
	}
	if payload.ImportID == "" || payload.ObjectKey == "" {
		return ImportAssetsPayload{}, fmt.Errorf("import payload requires import_id and object_key")
	}
	return payload, nil
}
