// Package export orchestrates the export pipeline: definitions refresh,
// endpoint invocation, dataset expansion, and shaping for the file writers.
package export

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/mhorvat/xapiport/internal/common"
	"github.com/mhorvat/xapiport/internal/compiler"
	"github.com/mhorvat/xapiport/internal/expand"
	"github.com/mhorvat/xapiport/internal/export"
	"github.com/mhorvat/xapiport/internal/interfaces"
	"github.com/mhorvat/xapiport/internal/models"
)

// UnknownEndpointError is a request for an endpoint the compiled
// definitions do not contain.
type UnknownEndpointError struct {
	Endpoint string
}

func (e *UnknownEndpointError) Error() string {
	return fmt.Sprintf("endpoint '%s' is not supported", e.Endpoint)
}

// Service implements interfaces.ExportService.
type Service struct {
	config   *common.Config
	logger   *common.Logger
	client   interfaces.XAPIClient
	store    interfaces.DefinitionsStorage
	compiler *compiler.Compiler
	validate *validator.Validate

	// refreshMu serializes recompilation; the definitions store is written
	// only while this is held.
	refreshMu sync.Mutex
}

// NewService creates the export service.
func NewService(config *common.Config, logger *common.Logger, client interfaces.XAPIClient, store interfaces.DefinitionsStorage) *Service {
	return &Service{
		config:   config,
		logger:   logger,
		client:   client,
		store:    store,
		compiler: compiler.NewCompiler(logger),
		validate: validator.New(),
	}
}

// EnsureFresh recompiles the definitions when they are older than the
// configured freshness window.
func (s *Service) EnsureFresh(ctx context.Context) error {
	if s.store.Fresh(s.config.DefinitionsMaxAge()) {
		return nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if s.store.Fresh(s.config.DefinitionsMaxAge()) {
		return nil
	}
	return s.refreshLocked(ctx)
}

// Refresh unconditionally fetches the PBX spec, compiles it, normalizes the
// placeholders and persists the result.
func (s *Service) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Service) refreshLocked(ctx context.Context) error {
	doc, err := s.client.FetchSpec(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch PBX specification: %w", err)
	}

	defs := s.compiler.Compile(doc)
	compiler.Normalize(defs)

	if err := s.store.Save(defs); err != nil {
		return fmt.Errorf("failed to persist definitions: %w", err)
	}

	s.logger.Info().Int("endpoints", len(defs.Endpoints)).Msg("Endpoint definitions refreshed")
	return nil
}

// Endpoints lists the compiled endpoint names.
func (s *Service) Endpoints() ([]string, error) {
	defs, err := s.store.Get()
	if err != nil {
		return nil, err
	}
	return defs.EndpointNames(), nil
}

// FieldVisibility reports, per endpoint, which of the request fields
// (queuedn, from, to) the descriptor actually binds. The input form uses
// this to show only the fields an endpoint needs.
func (s *Service) FieldVisibility() (map[string][]string, error) {
	defs, err := s.store.Get()
	if err != nil {
		return nil, err
	}

	visibility := make(map[string][]string, len(defs.Endpoints))
	for i := range defs.Endpoints {
		ep := &defs.Endpoints[i]
		var show []string
		if descriptorBinds(ep, "{queuedn}") {
			show = append(show, "queuedn")
		}
		if descriptorBinds(ep, "{from}", "{fromZulu}") {
			show = append(show, "from")
		}
		if descriptorBinds(ep, "{to}", "{toZulu}") {
			show = append(show, "to")
		}
		if len(show) > 0 {
			visibility[ep.Name] = show
		}
	}
	return visibility, nil
}

func descriptorBinds(ep *models.EndpointDescriptor, tokens ...string) bool {
	contains := func(s string) bool {
		for _, token := range tokens {
			if strings.Contains(s, token) {
				return true
			}
		}
		return false
	}
	if contains(ep.URLTemplate) {
		return true
	}
	for _, p := range ep.Params {
		if contains(p.Value) {
			return true
		}
	}
	return false
}

// Run executes one export request: validate, resolve the descriptor, bind,
// invoke, expand, and shape the result for a file writer.
func (s *Service) Run(ctx context.Context, req *models.ExportRequest) (*models.ExportResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid export request: %w", err)
	}
	if req.From != "" && req.To != "" && req.From > req.To {
		return nil, fmt.Errorf("invalid export request: 'from' date must not be after 'to' date")
	}

	defs, err := s.store.Get()
	if err != nil {
		return nil, err
	}

	descriptor, ok := defs.Descriptor(req.Endpoint)
	if !ok {
		return nil, &UnknownEndpointError{Endpoint: req.Endpoint}
	}
	schema, ok := defs.Schema(req.Endpoint)
	if !ok {
		return nil, &UnknownEndpointError{Endpoint: req.Endpoint}
	}
	if descriptor.NeedsManualEdit() {
		return nil, fmt.Errorf("endpoint '%s' carries a '%s' default that must be edited in the definitions before use",
			req.Endpoint, compiler.ManualEditSentinel)
	}

	// Binding empty dates into a date filter yields a query like
	// "date(F) ge  and date(F) le "; reject the request instead.
	if descriptorBinds(descriptor, "{from}", "{fromZulu}", "{to}", "{toZulu}") && (req.From == "" || req.To == "") {
		return nil, fmt.Errorf("invalid export request: endpoint '%s' requires 'from' and 'to' dates", req.Endpoint)
	}

	boundPath, params, err := descriptor.Bind(req.Bindings())
	if err != nil {
		return nil, err
	}

	envelope, err := s.client.Invoke(ctx, boundPath, params)
	if err != nil {
		return nil, err
	}

	result := &models.ExportResult{
		Endpoint: req.Endpoint,
		Envelope: *envelope,
	}

	switch envelope.Kind {
	case models.EnvelopeCollection:
		expand.Rows(envelope.Rows, schema)
		result.Headers = export.Headers(schema)
		result.Rows = export.Normalize(envelope.Rows, result.Headers)
		result.Envelope.Rows = envelope.Rows
	case models.EnvelopeObject:
		// Flat objects are previewed as a single row but carry no column
		// schema expansion; nothing to normalize.
	case models.EnvelopeBoolean:
		// Terminal: nothing further to process or export.
	}

	for _, notice := range envelope.Notices {
		s.logger.Warn().Str("endpoint", req.Endpoint).Msg(notice)
	}

	return result, nil
}
