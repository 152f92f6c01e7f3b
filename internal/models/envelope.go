package models

// EnvelopeKind discriminates the classified shape of one XAPI response body.
type EnvelopeKind string

const (
	// EnvelopeCollection is an OData-style listing: {"value": [...], "@odata.count": n}.
	EnvelopeCollection EnvelopeKind = "collection"
	// EnvelopeObject is a flat single-object response with no "value" array.
	EnvelopeObject EnvelopeKind = "object"
	// EnvelopeBoolean is a bare {"value": true|false} response. Terminal:
	// there is nothing to expand or export.
	EnvelopeBoolean EnvelopeKind = "boolean"
)

// ResponseEnvelope is the classified result of one endpoint invocation.
type ResponseEnvelope struct {
	Kind EnvelopeKind `json:"kind"`

	// Rows holds the fetched collection rows (Kind == EnvelopeCollection),
	// already run through dataset expansion.
	Rows []map[string]any `json:"rows,omitempty"`

	// Object holds the flat response (Kind == EnvelopeObject).
	Object map[string]any `json:"object,omitempty"`

	// Bool holds the bare boolean result (Kind == EnvelopeBoolean).
	Bool bool `json:"bool,omitempty"`

	// TotalCount is the server-reported @odata.count, or -1 when absent.
	TotalCount int64 `json:"total_count"`

	// Notices carries non-fatal advisories, e.g. a partially fetched dataset.
	Notices []string `json:"notices,omitempty"`
}

// Partial reports whether the server claims more rows than were fetched.
func (e *ResponseEnvelope) Partial() bool {
	return e.Kind == EnvelopeCollection && e.TotalCount >= 0 && e.TotalCount != int64(len(e.Rows))
}
