// Package interfaces defines service contracts for xapiport
package interfaces

import (
	"context"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mhorvat/xapiport/internal/models"
)

// XAPIClient provides access to the PBX XAPI
type XAPIClient interface {
	// FetchToken obtains a bearer credential via the client-credentials grant
	FetchToken(ctx context.Context) (string, error)

	// FetchSpec downloads and parses the PBX OpenAPI document
	FetchSpec(ctx context.Context) (*openapi3.T, error)

	// Invoke executes one bound endpoint request and classifies the outcome
	Invoke(ctx context.Context, boundPath string, params []models.Param) (*models.ResponseEnvelope, error)
}
