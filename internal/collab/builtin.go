package collab

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/and161185/ecosort/internal/model"
)

// TableClassifier is the built-in classifier: it picks an outcome from a
// fixed table keyed by a hash of the image bytes. Deterministic, so the
// same image always classifies the same way.
type TableClassifier struct {
	outcomes []model.ClassificationOutcome
}

// NewTableClassifier returns a classifier over the default outcome table.
func NewTableClassifier() *TableClassifier {
	return &TableClassifier{outcomes: defaultOutcomes}
}

var defaultOutcomes = []model.ClassificationOutcome{
	{
		ItemName:           "Smartphone",
		Category:           "Mobile Phone",
		HazardousMaterials: []string{"Lithium"},
		Confidence:         92.5,
		SafetyLevel:        model.SafetyMedium,
		Recommendations:    []string{"Remove the battery before recycling", "Wipe personal data"},
	},
	{
		ItemName:           "Laptop Battery",
		Category:           "Battery",
		HazardousMaterials: []string{"Lithium", "Cobalt"},
		Confidence:         88.0,
		SafetyLevel:        model.SafetyHigh,
		Recommendations:    []string{"Never puncture or crush", "Drop off at a certified collection point"},
	},
	{
		ItemName:           "HDMI Cable",
		Category:           "Cable",
		HazardousMaterials: nil,
		Confidence:         97.1,
		SafetyLevel:        model.SafetyLow,
		Recommendations:    []string{"Donate if functional"},
	},
	{
		ItemName:           "CRT Monitor",
		Category:           "Display Device",
		HazardousMaterials: []string{"Lead", "Phosphor"},
		Confidence:         85.4,
		SafetyLevel:        model.SafetyHigh,
		Recommendations:    []string{"Do not break the tube", "Requires specialist disposal"},
	},
	{
		ItemName:           "Desktop Computer",
		Category:           "Computer",
		HazardousMaterials: []string{"Lead"},
		Confidence:         90.2,
		SafetyLevel:        model.SafetyMedium,
		Recommendations:    []string{"Salvage RAM and drives", "Recycle the case as scrap metal"},
	},
}

// Classify picks the table entry for the image hash.
func (c *TableClassifier) Classify(ctx context.Context, image []byte) (model.ClassificationOutcome, error) {
	if err := ctx.Err(); err != nil {
		return model.ClassificationOutcome{}, err
	}
	if len(image) == 0 {
		return model.ClassificationOutcome{}, fmt.Errorf("classify: empty image")
	}
	h := fnv.New32a()
	_, _ = h.Write(image)
	return c.outcomes[int(h.Sum32())%len(c.outcomes)], nil
}

// DocExporter is the built-in exporter. Output formats are intentionally
// plain (JSON for pdf/slides placeholders, RFC 4180 for csv); the dashboard
// treats the bytes as opaque downloads.
type DocExporter struct{}

// Export renders the report.
func (DocExporter) Export(ctx context.Context, rep model.Report, format model.ExportFormat) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch format {
	case model.FormatCSV:
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		_ = w.Write([]string{"id", "title", "type", "status", "tags", "public", "created_at"})
		_ = w.Write([]string{
			rep.ID.String(),
			rep.Title,
			string(rep.Type),
			string(rep.Status),
			strings.Join(rep.Tags, ";"),
			strconv.FormatBool(rep.IsPublic),
			rep.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
		w.Flush()
		return buf.Bytes(), w.Error()
	case model.FormatPDF, model.FormatSlides:
		return json.MarshalIndent(rep, "", "  ")
	default:
		return nil, fmt.Errorf("export: unsupported format %q", format)
	}
}

// FixedLocator always reports the configured point.
type FixedLocator struct {
	Point model.GeoPoint
}

// Locate returns the configured point.
func (l FixedLocator) Locate(ctx context.Context) (model.GeoPoint, error) {
	if err := ctx.Err(); err != nil {
		return model.GeoPoint{}, err
	}
	return l.Point, nil
}
