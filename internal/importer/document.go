package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ginjaninja78/lims-results-import/internal/diagnostics"
	"github.com/ginjaninja78/lims-results-import/internal/types"
)

// Document is the serialised form of a batch.
type Document struct {
	ID                 string              `json:"id"`
	Instrument         string              `json:"instrument"`
	Title              string              `json:"title"`
	AttachmentFileType string              `json:"attachment_file_type"`
	Source             string              `json:"source"`
	CreatedAt          time.Time           `json:"created_at"`
	Settings           Settings            `json:"settings"`
	Header             map[string]string   `json:"header,omitempty"`
	Results            types.Results       `json:"results"`
	Diagnostics        diagnostics.Payload `json:"diagnostics"`
}

// Document returns the serialisable view of the batch.
func (b *Batch) Document() Document {
	var header map[string]string
	if len(b.Outcome.Header) > 0 {
		header = make(map[string]string, len(b.Outcome.Header))
		for k, v := range b.Outcome.Header {
			header[k] = v.String()
		}
	}

	return Document{
		ID:                 b.ID,
		Instrument:         b.Instrument.Key,
		Title:              b.Instrument.Title,
		AttachmentFileType: b.Instrument.AttachmentFileType,
		Source:             filepath.Base(b.Source),
		CreatedAt:          b.CreatedAt,
		Settings:           b.Settings,
		Header:             header,
		Results:            b.Outcome.Results,
		Diagnostics:        b.Outcome.Report.Payload(),
	}
}

// JSONSink writes each batch as an indented JSON document.
type JSONSink struct {
	path PathFunc
}

// NewJSONSink returns a sink writing to the paths returned by path.
func NewJSONSink(path PathFunc) *JSONSink {
	return &JSONSink{path: path}
}

func (s *JSONSink) Name() string { return "json" }

func (s *JSONSink) Write(_ context.Context, batch *Batch) (string, error) {
	data, err := json.MarshalIndent(batch.Document(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode batch %s: %w", batch.ID, err)
	}

	out := s.path(batch, ".json")
	if err := os.WriteFile(out, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", out, err)
	}
	return out, nil
}
