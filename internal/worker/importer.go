package worker

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/dunamismax/pixelprops/internal/domain"
	"github.com/dunamismax/pixelprops/internal/imageprops"
	"github.com/dunamismax/pixelprops/internal/queue"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	imageAssetType = "sanity.imageAsset"
	maxLineBytes   = 4 << 20
)

// exportDocument is one line of a dataset export. Image asset documents are
// imported under their own ID; any other document is imported when it
// carries an image field.
type exportDocument struct {
	Key   string              `json:"key"`
	ID    string              `json:"_id"`
	Type  string              `json:"_type"`
	Image *domain.ImageSource `json:"image"`
}

type rejection struct {
	Line   int    `json:"line"`
	Key    string `json:"key,omitempty"`
	Reason string `json:"reason"`
}

type importResult struct {
	Summary  domain.ImportSummary
	Rejected []rejection
}

func (s *Server) importExport(ctx context.Context, payload queue.ImportAssetsPayload) (importResult, error) {
	var result importResult

	rc, err := s.exports.OpenExport(ctx, payload.ObjectKey)
	if err != nil {
		return result, err
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return result, err
		}
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		outcome, rej := s.importLine(ctx, payload.KeyPrefix, line, raw)
		switch outcome {
		case "imported":
			result.Summary.Imported++
		case "skipped":
			result.Summary.Skipped++
		default:
			result.Summary.Failed++
			result.Rejected = append(result.Rejected, rej)
		}
		s.metrics.documentsTotal.WithLabelValues(outcome).Inc()
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("read export line %d: %w", line+1, err)
	}
	return result, nil
}

// importLine returns "imported", "skipped" or "failed"; a failure comes with
// its rejection record.
func (s *Server) importLine(ctx context.Context, prefix string, line int, raw string) (string, rejection) {
	var doc exportDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return "failed", rejection{Line: line, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	source := doc.Image
	if doc.Type == imageAssetType {
		source = domain.SourceFromID(doc.ID)
	}
	if source == nil || source.Identifier() == "" {
		return "skipped", rejection{}
	}

	key := doc.Key
	if key == "" {
		key = doc.ID
	}
	if key == "" {
		return "failed", rejection{Line: line, Reason: "document has neither key nor _id"}
	}
	if strings.Contains(key, "/") {
		return "failed", rejection{Line: line, Key: key, Reason: "key must not contain '/'"}
	}
	if prefix != "" {
		key = prefix + "." + key
	}

	dims, err := imageprops.ParseDimensions(*source)
	if err != nil {
		return "failed", rejection{Line: line, Key: key, Reason: err.Error()}
	}

	asset := domain.AssetDocument{
		Key:       key,
		Source:    *source,
		Width:     int(dims.Width),
		Height:    int(dims.Height),
		UpdatedAt: s.now().UTC(),
	}
	if err := s.store.UpsertAsset(ctx, asset); err != nil {
		s.logger.Warn("asset upsert failed", zap.String("key", key), zap.Error(err))
		return "failed", rejection{Line: line, Key: key, Reason: "store unavailable"}
	}
	return "imported", rejection{}
}
