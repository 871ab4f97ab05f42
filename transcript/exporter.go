package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Reporter posts the finished transcript to the backend.
type Reporter interface {
	GenerateReport(ctx context.Context, sessionID string, transcript any) error
}

// Exporter fans one document out to its configured sinks.
type Exporter struct {
	dir      string
	store    *Store
	reporter Reporter
	logger   *zap.Logger
}

// NewExporter wires the configured sinks. dir empty disables file export;
// store and reporter may be nil.
func NewExporter(dir string, store *Store, reporter Reporter, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		dir:      dir,
		store:    store,
		reporter: reporter,
		logger:   logger.With(zap.String("component", "transcript")),
	}
}

// Export writes the document to every configured sink. Each sink failure is
// logged and the remaining sinks still run; session teardown never fails on
// transcript export.
func (e *Exporter) Export(ctx context.Context, doc *Document) {
	if doc == nil || len(doc.Specialists) == 0 {
		e.logger.Info("nothing to export", zap.String("session", sessionLabel(doc)))
		return
	}

	if e.dir != "" {
		if path, err := e.writeFile(doc); err != nil {
			e.logger.Error("transcript file export failed", zap.Error(err))
		} else {
			e.logger.Info("transcript written", zap.String("path", path))
		}
	}

	if e.store != nil {
		if err := e.store.Save(ctx, doc); err != nil {
			e.logger.Error("transcript store save failed", zap.Error(err))
		}
	}

	if e.reporter != nil {
		if err := e.reporter.GenerateReport(ctx, doc.SessionID, doc); err != nil {
			e.logger.Error("report generation failed", zap.Error(err))
		}
	}
}

func (e *Exporter) writeFile(doc *Document) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create transcript dir: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode transcript: %w", err)
	}

	name := fmt.Sprintf("transcript_%s_%s.json", doc.SessionID, doc.EndedAt.Format("20060102_150405"))
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	return path, nil
}

func sessionLabel(doc *Document) string {
	if doc == nil {
		return ""
	}
	return doc.SessionID
}
