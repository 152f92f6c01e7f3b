// Package models defines data structures for xapiport
package models

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

// FieldType is the semantic type of a response column.
type FieldType string

const (
	FieldString   FieldType = "string"
	FieldInteger  FieldType = "integer"
	FieldFloat    FieldType = "float"
	FieldBoolean  FieldType = "boolean"
	FieldDatetime FieldType = "datetime"
	FieldDuration FieldType = "duration"
)

// Column is one named, typed field of an endpoint's response rows.
type Column struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// ColumnSchema is the ordered column set of one compiled endpoint.
type ColumnSchema struct {
	Endpoint string   `json:"endpoint"`
	Columns  []Column `json:"columns"`
}

// TypeOf returns the semantic type of a column, or ("", false) when the
// column is not part of the schema.
func (s *ColumnSchema) TypeOf(name string) (FieldType, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c.Type, true
		}
	}
	return "", false
}

// Param is one query parameter of a compiled endpoint, in declaration order.
// Value may contain {placeholder} tokens resolved at bind time.
type Param struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// EndpointDescriptor is the compiled, reusable invocation template for one
// remote read operation.
type EndpointDescriptor struct {
	Name        string  `json:"name"`
	URLTemplate string  `json:"url"`
	Params      []Param `json:"params,omitempty"`
	Zulu        bool    `json:"zulu"`
}

// Bindings carries the request-time values substituted into a descriptor.
type Bindings struct {
	From    string // calendar date YYYY-MM-DD
	To      string // calendar date YYYY-MM-DD
	QueueDN string // optional queue/extension DN
	Top     int
	Skip    int
}

// placeholderRe matches any unresolved {token} left after substitution.
var placeholderRe = regexp.MustCompile(`\{[a-zA-Z][a-zA-Z0-9]*\}`)

// Bind substitutes the binding vocabulary into the URL template and every
// parameter value. When the descriptor is zulu-flagged the from/to dates are
// widened to full-day zulu timestamps. Any placeholder left unresolved is a
// compilation defect and returns an error rather than leaking into the
// request URL.
func (d *EndpointDescriptor) Bind(b Bindings) (string, []Param, error) {
	fromZulu := b.From
	toZulu := b.To
	if d.Zulu {
		fromZulu = b.From + "T00:00:00Z"
		toZulu = b.To + "T23:59:59Z"
	}

	replacer := strings.NewReplacer(
		"{from}", b.From,
		"{to}", b.To,
		"{fromZulu}", fromZulu,
		"{toZulu}", toZulu,
		"{top}", fmt.Sprintf("%d", b.Top),
		"{skip}", fmt.Sprintf("%d", b.Skip),
		"{queuedn}", b.QueueDN,
	)

	url := replacer.Replace(d.URLTemplate)
	if leftover := placeholderRe.FindString(url); leftover != "" {
		return "", nil, fmt.Errorf("endpoint %s: unresolved placeholder %s in URL template", d.Name, leftover)
	}

	params := make([]Param, len(d.Params))
	for i, p := range d.Params {
		value := replacer.Replace(p.Value)
		if leftover := placeholderRe.FindString(value); leftover != "" {
			return "", nil, fmt.Errorf("endpoint %s: unresolved placeholder %s in parameter %s", d.Name, leftover, p.Name)
		}
		params[i] = Param{Name: p.Name, Value: value}
	}

	return url, params, nil
}

// NeedsManualEdit reports whether the descriptor still carries the
// 'changethis' sentinel a human must replace before the endpoint is usable.
func (d *EndpointDescriptor) NeedsManualEdit() bool {
	if strings.Contains(d.URLTemplate, "changethis") {
		return true
	}
	for _, p := range d.Params {
		if strings.Contains(p.Value, "changethis") {
			return true
		}
	}
	return false
}

// DefinitionsStore is the persisted pair of compiled descriptors and column
// schemas, plus the audit trail of excluded operations.
type DefinitionsStore struct {
	GeneratedAt time.Time            `json:"generated_at"`
	Endpoints   []EndpointDescriptor `json:"endpoints"`
	Columns     []ColumnSchema       `json:"columns"`
	Disabled    map[string]string    `json:"disabled,omitempty"`

	indexOnce  sync.Once
	byName     map[string]*EndpointDescriptor
	colsByName map[string]*ColumnSchema
}

// index builds the lookup maps. Called lazily so a store unmarshalled from
// JSON indexes itself on first use. The storage layer hands the same store
// pointer to every request, so the build is synchronized.
func (s *DefinitionsStore) index() {
	s.indexOnce.Do(func() {
		s.byName = make(map[string]*EndpointDescriptor, len(s.Endpoints))
		for i := range s.Endpoints {
			s.byName[s.Endpoints[i].Name] = &s.Endpoints[i]
		}
		s.colsByName = make(map[string]*ColumnSchema, len(s.Columns))
		for i := range s.Columns {
			s.colsByName[s.Columns[i].Endpoint] = &s.Columns[i]
		}
	})
}

// Descriptor returns the descriptor for an endpoint name.
func (s *DefinitionsStore) Descriptor(name string) (*EndpointDescriptor, bool) {
	s.index()
	d, ok := s.byName[name]
	return d, ok
}

// Schema returns the column schema for an endpoint name.
func (s *DefinitionsStore) Schema(name string) (*ColumnSchema, bool) {
	s.index()
	c, ok := s.colsByName[name]
	return c, ok
}

// EndpointNames returns all compiled endpoint names in stored (sorted) order.
func (s *DefinitionsStore) EndpointNames() []string {
	names := make([]string, len(s.Endpoints))
	for i := range s.Endpoints {
		names[i] = s.Endpoints[i].Name
	}
	return names
}
