// Package collab declares the external collaborators the core consumes but
// does not implement: the image classifier, document exporter, and locator.
// All of them may block; failures surface as errs.ErrCollaboratorTimeout and
// never mutate store state.
package collab

import (
	"context"

	"github.com/and161185/ecosort/internal/model"
)

// Classifier turns an image into a classification outcome.
type Classifier interface {
	Classify(ctx context.Context, image []byte) (model.ClassificationOutcome, error)
}

// Exporter renders a report into the requested format.
type Exporter interface {
	Export(ctx context.Context, rep model.Report, format model.ExportFormat) ([]byte, error)
}

// Locator resolves the current position for optional record annotation.
type Locator interface {
	Locate(ctx context.Context) (model.GeoPoint, error)
}
