package xapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mhorvat/xapiport/internal/models"
)

// buildQuery assembles the query string by hand so parameter order is
// preserved exactly as compiled ($filter first, then the OData paging
// parameters). url.Values would reorder them alphabetically.
func buildQuery(params []models.Param) string {
	var sb strings.Builder
	for i, p := range params {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.Name))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.Value))
	}
	return sb.String()
}

// Invoke executes one bound endpoint request and classifies the outcome.
// boundPath and params must already have every placeholder substituted.
func (c *Client) Invoke(ctx context.Context, boundPath string, params []models.Param) (*models.ResponseEnvelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Err: err}
	}

	reqURL := c.baseURL + boundPath
	if query := buildQuery(params); query != "" {
		reqURL += "?" + query
	}

	token, err := c.FetchToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("url", reqURL).Msg("XAPI request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		// A 204 is a valid outcome: the endpoint simply has nothing to
		// return right now.
		return nil, ErrEmptyResult
	case resp.StatusCode == http.StatusForbidden:
		return nil, &ForbiddenError{Endpoint: boundPath}
	case resp.StatusCode != http.StatusOK:
		return nil, &HTTPError{StatusCode: resp.StatusCode, Endpoint: boundPath}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if len(body) == 0 {
		return nil, ErrEmptyResult
	}

	return classifyBody(body)
}

// classifyBody resolves the JSON body into one of the closed envelope
// shapes: collection, flat object, or bare boolean.
func classifyBody(body []byte) (*models.ResponseEnvelope, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &MalformedResponseError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if len(payload) == 0 {
		return nil, ErrEmptyResult
	}

	raw, hasValue := payload["value"]
	if !hasValue {
		// Flat single-object response.
		return &models.ResponseEnvelope{
			Kind:       models.EnvelopeObject,
			Object:     payload,
			TotalCount: -1,
		}, nil
	}

	if b, ok := raw.(bool); ok {
		return &models.ResponseEnvelope{
			Kind:       models.EnvelopeBoolean,
			Bool:       b,
			TotalCount: -1,
		}, nil
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, &MalformedResponseError{Reason: fmt.Sprintf("'value' is %T, not an array", raw)}
	}
	if len(items) == 0 {
		return nil, ErrEmptyResult
	}

	rows := make([]map[string]any, 0, len(items))
	for _, item := range items {
		row, ok := item.(map[string]any)
		if !ok {
			return nil, &MalformedResponseError{Reason: fmt.Sprintf("collection row is %T, not an object", item)}
		}
		rows = append(rows, row)
	}

	envelope := &models.ResponseEnvelope{
		Kind:       models.EnvelopeCollection,
		Rows:       rows,
		TotalCount: -1,
	}

	if count, ok := payload["@odata.count"]; ok {
		if n, ok := count.(float64); ok {
			envelope.TotalCount = int64(n)
		}
	}

	if envelope.TotalCount >= 0 && envelope.TotalCount != int64(len(rows)) {
		envelope.Notices = append(envelope.Notices, fmt.Sprintf(
			"dataset partially fetched (%d / %d); increase 'top' or page with 'top'/'skip'",
			len(rows), envelope.TotalCount))
	}

	return envelope, nil
}
