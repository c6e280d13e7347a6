package sheets

import (
	"context"
)

// Ports for outbound adapters.
type (
	// ReportExporter publishes a rendered report grid to an external sheet.
	ReportExporter interface {
		// WriteGrid replaces the contents of sheet with rows, creating the
		// sheet when it does not exist yet.
		WriteGrid(ctx context.Context, sheet string, rows [][]string) error
	}
)
