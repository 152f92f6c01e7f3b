package xapi

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

// FetchSpec downloads and parses the PBX OpenAPI document. The document is
// served as YAML; the loader handles both YAML and JSON, so no external
// conversion step is needed.
func (c *Client) FetchSpec(ctx context.Context) (*openapi3.T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+swaggerPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Info().Str("url", c.baseURL+swaggerPath).Msg("Fetching PBX API specification")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Endpoint: swaggerPath}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse specification: %w", err)
	}

	return doc, nil
}
