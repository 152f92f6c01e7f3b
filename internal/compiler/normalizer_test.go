package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhorvat/xapiport/internal/models"
)

func TestNormalizeString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"zulu date binding",
			"/xapi/v1/ReportAbandonedQueueCalls(periodFrom={periodFrom},periodTo={periodTo})",
			"/xapi/v1/ReportAbandonedQueueCalls(periodFrom={fromZulu},periodTo={toZulu})",
		},
		{
			"chart date binding",
			"(chartDate={chartDate},chartBy={chartBy})",
			"(chartDate={fromZulu},chartBy='')",
		},
		{
			"pagination literals",
			"(top={top},skip={skip})",
			"(top=1000,skip=0)",
		},
		{
			"dn selectors unify",
			"(queueDns={queueDns},agentDnStr={agentDnStr})",
			"(queueDns='{queuedn}',agentDnStr='{queuedn}')",
		},
		{
			"bare dn placeholder",
			"({dnNumber})",
			"('{queuedn}')",
		},
		{
			"interval defaults",
			"(waitInterval={waitInterval},hidePcalls={hidePcalls})",
			"(waitInterval='0:00:0',hidePcalls=false)",
		},
		{
			"manual edit sentinel",
			"({guid},{mac})",
			"('changethis','changethis')",
		},
		{
			"untouched binding keys",
			"date(Timestamp) ge {from} and date(Timestamp) le {to}",
			"date(Timestamp) ge {from} and date(Timestamp) le {to}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeString(tt.in))
		})
	}
}

func TestNormalizeStringIdempotent(t *testing.T) {
	inputs := []string{
		"(periodFrom={periodFrom},periodTo={periodTo},top={top})",
		"({dnNumber},{guid})",
		"(queueDnStr={queueDnStr})",
	}
	for _, in := range inputs {
		once := NormalizeString(in)
		assert.Equal(t, once, NormalizeString(once), "second pass must not rewrite %q", in)
	}
}

func TestNormalizeStore(t *testing.T) {
	store := &models.DefinitionsStore{
		Endpoints: []models.EndpointDescriptor{
			{
				Name:        "ReportAgentsChart",
				URLTemplate: "/xapi/v1/ReportAgentsChart(chartDate={chartDate},chartBy={chartBy})",
				Params: []models.Param{
					{Name: "$top", Value: "{top}"},
				},
				Zulu: true,
			},
		},
	}

	Normalize(store)

	require.Len(t, store.Endpoints, 1)
	ep := store.Endpoints[0]
	assert.Equal(t, "/xapi/v1/ReportAgentsChart(chartDate={fromZulu},chartBy='')", ep.URLTemplate)
	assert.Equal(t, "{top}", ep.Params[0].Value)
	assert.Empty(t, store.Disabled)
}

func TestNormalizeStoreDisablesEscapedPlaceholder(t *testing.T) {
	store := &models.DefinitionsStore{
		Endpoints: []models.EndpointDescriptor{
			{
				Name:        "Broken",
				URLTemplate: "/xapi/v1/Broken(mystery={mystery})",
			},
			{
				Name:        "CallHistoryView",
				URLTemplate: "/xapi/v1/CallHistoryView",
				Params:      []models.Param{{Name: "$top", Value: "{top}"}},
			},
		},
		Columns: []models.ColumnSchema{
			{Endpoint: "Broken"},
			{Endpoint: "CallHistoryView"},
		},
	}

	// An unrecognized placeholder disables that endpoint only; the rest of
	// the compilation survives.
	Normalize(store)

	require.Len(t, store.Endpoints, 1)
	assert.Equal(t, "CallHistoryView", store.Endpoints[0].Name)
	require.Len(t, store.Columns, 1)
	assert.Equal(t, "CallHistoryView", store.Columns[0].Endpoint)

	reason, ok := store.Disabled["Broken"]
	require.True(t, ok)
	assert.Contains(t, reason, "disabled: ")
	assert.Contains(t, reason, "{mystery}")
}

func TestNormalizeStoreDisablesEscapedParamPlaceholder(t *testing.T) {
	store := &models.DefinitionsStore{
		Endpoints: []models.EndpointDescriptor{
			{
				Name:        "Broken",
				URLTemplate: "/xapi/v1/Broken",
				Params:      []models.Param{{Name: "$filter", Value: "x eq {mystery}"}},
			},
		},
	}

	Normalize(store)

	assert.Empty(t, store.Endpoints)
	assert.Contains(t, store.Disabled["Broken"], "$filter")
}
