package services

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageCount determines the page count of a paginated document. Only
// PDF content types are inspected; everything else reports the count
// as unavailable. Parse failures are logged and also report
// unavailable — this enrichment must never fail the caller.
func PageCount(content []byte, contentType string) (int, bool) {
	if !strings.Contains(strings.ToLower(contentType), "pdf") {
		return 0, false
	}

	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed

	count, err := api.PageCount(bytes.NewReader(content), cfg)
	if err != nil {
		slog.Warn("Could not determine page count.", "contentType", contentType, "error", err)
		return 0, false
	}
	return count, true
}
