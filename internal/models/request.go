package models

// Supported export file formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ExportRequest is one validated export form submission. Field names map to
// the input form via gorilla/schema tags; constraints mirror the original
// form rules (dates as YYYY-MM-DD, non-negative paging, csv or xlsx).
type ExportRequest struct {
	Endpoint string `schema:"endpoint" validate:"required"`
	From     string `schema:"from" validate:"omitempty,datetime=2006-01-02"`
	To       string `schema:"to" validate:"omitempty,datetime=2006-01-02"`
	QueueDN  string `schema:"queuedn" validate:"omitempty,numeric"`
	Top      int    `schema:"top" validate:"gte=0"`
	Skip     int    `schema:"skip" validate:"gte=0"`
	Format   string `schema:"format" validate:"required,oneof=csv xlsx"`
}

// Bindings converts the request into descriptor binding values.
func (r *ExportRequest) Bindings() Bindings {
	return Bindings{
		From:    r.From,
		To:      r.To,
		QueueDN: r.QueueDN,
		Top:     r.Top,
		Skip:    r.Skip,
	}
}

// ExportResult is the shaped outcome of one pipeline run, ready for a file
// writer: ordered headers plus rows normalized to exactly that header set.
type ExportResult struct {
	Endpoint string           `json:"endpoint"`
	Envelope ResponseEnvelope `json:"envelope"`
	Headers  []string         `json:"headers,omitempty"`
	Rows     []map[string]any `json:"-"`
}
