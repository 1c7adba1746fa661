package reporting

import (
	"fmt"
	"io"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/goap-sim/internal/observability"
	"github.com/xkilldash9x/goap-sim/internal/simulation"
)

// ToolName identifies the producer in JSON reports.
const ToolName = "goapsim"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Document is the top-level JSON report.
type Document struct {
	Tool        string                `json:"tool"`
	Version     string                `json:"version"`
	GeneratedAt time.Time             `json:"generated_at"`
	Runs        []*simulation.Summary `json:"runs"`
	Aggregate   Aggregate             `json:"aggregate"`
}

// JSONReporter buffers summaries and writes a single Document on Close.
// It is thread safe.
type JSONReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
	// mu protects doc.
	mu  sync.Mutex
	doc *Document
}

// NewJSONReporter creates a reporter that writes an indented JSON document.
func NewJSONReporter(writer io.WriteCloser, toolVersion string) *JSONReporter {
	return &JSONReporter{
		writer: writer,
		logger: observability.GetLogger().Named("json_reporter"),
		doc: &Document{
			Tool:    ToolName,
			Version: toolVersion,
			// Empty, not nil, so an empty report still encodes "runs": [].
			Runs: []*simulation.Summary{},
		},
	}
}

// Write adds a run summary to the document.
func (r *JSONReporter) Write(summary *simulation.Summary) error {
	if summary == nil {
		return fmt.Errorf("summary cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc.Runs = append(r.doc.Runs, summary)
	return nil
}

// Close computes the aggregate, encodes the document and closes the writer.
func (r *JSONReporter) Close() error {
	startTime := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.doc.GeneratedAt = startTime.UTC()
	r.doc.Aggregate = Summarize(r.doc.Runs)

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")

	encodeErr := encoder.Encode(r.doc)
	// Always attempt to close the writer, regardless of encoding success.
	closeErr := r.writer.Close()

	if encodeErr != nil {
		r.logger.Error("Failed to encode JSON report", zap.Error(encodeErr))
		return fmt.Errorf("failed to encode JSON output: %w", encodeErr)
	}
	if closeErr != nil {
		r.logger.Error("Failed to close output writer", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}

	r.logger.Debug("Wrote JSON report",
		zap.Int("runs", len(r.doc.Runs)),
		zap.Duration("duration_ms", time.Since(startTime)),
	)
	return nil
}
