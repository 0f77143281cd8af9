package service

import (
	"fmt"
	"strconv"
	"time"

	"github.com/noah-isme/gift-approval-api/internal/models"
	"github.com/noah-isme/gift-approval-api/pkg/export"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// Content types of the supported report formats.
const (
	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"
)

// BatchReporter renders the requests of one batch for download.
type BatchReporter struct {
	csv  csvRenderer
	xlsx csvRenderer
	pdf  pdfRenderer
}

// NewBatchReporter constructs a reporter. Nil renderers select the defaults;
// spreadsheets always use the XLSX exporter.
func NewBatchReporter(csv csvRenderer, pdf pdfRenderer) *BatchReporter {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &BatchReporter{csv: csv, xlsx: export.NewXLSXExporter(), pdf: pdf}
}

var batchReportColumns = []export.Column{
	{Title: "Gift ID", Width: 0.8},
	{Title: "Member Login", Width: 1.4},
	{Title: "Merchant", Width: 1.4},
	{Title: "Currency", Width: 0.8},
	{Title: "Gift Item", Width: 2},
	{Title: "Category", Width: 1},
	{Title: "Cost (MYR)", Width: 1},
	{Title: "Status", Width: 1.4},
	{Title: "Dispatcher", Width: 1.2},
	{Title: "Tracking Code", Width: 1.2},
	{Title: "Tracking Status", Width: 1.1},
	{Title: "Last Modified", Width: 1.5},
}

// Render implements the batch export for format csv, xlsx or pdf and returns the content type.
func (r *BatchReporter) Render(batch models.GiftBatch, gifts []models.GiftRequest, format string) ([]byte, string, error) {
	data := export.Dataset{Columns: batchReportColumns, Rows: make([][]string, 0, len(gifts))}
	for _, g := range gifts {
		data.Rows = append(data.Rows, []string{
			strconv.FormatInt(g.ID, 10),
			g.MemberLogin,
			g.MerchantName,
			g.Currency,
			g.GiftItem,
			g.Category,
			strconv.FormatFloat(g.CostMYR, 'f', 2, 64),
			string(g.WorkflowStatus),
			deref(g.Dispatcher),
			deref(g.TrackingCode),
			deref(g.TrackingStatus),
			g.LastModifiedAt.UTC().Format(time.RFC3339),
		})
	}

	switch format {
	case "csv":
		body, err := r.csv.Render(data)
		return body, ContentTypeCSV, err
	case "xlsx":
		body, err := r.xlsx.Render(data)
		return body, ContentTypeXLSX, err
	case "pdf":
		body, err := r.pdf.Render(export.Document{
			Title:   fmt.Sprintf("Gift batch %d: %s", batch.ID, batch.Name),
			Summary: batchSummary(batch),
			Table:   data,
		})
		return body, ContentTypePDF, err
	}
	return nil, "", fmt.Errorf("unsupported export format %q", format)
}

func batchSummary(batch models.GiftBatch) [][2]string {
	summary := [][2]string{
		{"Transaction", batch.TransactionRef},
		{"Type / Tab", fmt.Sprintf("%s / %s", batch.Type, batch.Tab)},
		{"Status", string(batch.Status)},
		{"Rows", fmt.Sprintf("%d total, %d succeeded, %d failed", batch.TotalRows, batch.SuccessRows, batch.FailedRows)},
		{"Created", fmt.Sprintf("%s by %s", batch.CreatedAt.UTC().Format(time.RFC3339), batch.CreatedBy)},
	}
	if batch.RolledBackAt != nil {
		summary = append(summary, [2]string{"Rolled back", fmt.Sprintf("%s by %s: %s",
			batch.RolledBackAt.UTC().Format(time.RFC3339), deref(batch.RolledBackBy), deref(batch.RollbackReason))})
	}
	return summary
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
