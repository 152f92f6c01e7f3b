package compiler

import (
	"regexp"
	"sort"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"

	"github.com/mhorvat/xapiport/internal/common"
	"github.com/mhorvat/xapiport/internal/models"
)

// urlPrefix is prepended to every spec path to form the invocation URL.
const urlPrefix = "/xapi/v1"

// exclusionRule is one pattern→verdict entry of the endpoint exclusion
// policy. Rules run in order and the first match disables the endpoint with
// its reason recorded, keeping spec coverage auditable.
type exclusionRule struct {
	Pattern *regexp.Regexp
	Reason  string
}

var exclusionRules = []exclusionRule{
	{regexp.MustCompile(`/My[A-Z]`), "My-prefixed endpoint (e.g. MyUser, MyToken)"},
	{regexp.MustCompile(`/Pbx\.Download`), "download endpoint"},
	{regexp.MustCompile(`/Pbx\.[^(]+\(([^,]+)\)`), "single-param function call"},
	{regexp.MustCompile(`\(\{.*?}`), "single-resource endpoint using path({Id})"},
}

// exclusionReason returns the verdict of the first matching exclusion rule.
func exclusionReason(path string) (string, bool) {
	for _, rule := range exclusionRules {
		if rule.Pattern.MatchString(path) {
			return rule.Reason, true
		}
	}
	return "", false
}

// forceODataTags lists endpoints known to honor $count/$top/$skip even
// though the PBX spec does not declare them.
var forceODataTags = map[string]bool{
	"ActiveCalls":     true,
	"CallHistoryView": true,
}

// dateFilterFields are timestamp-like columns eligible for a synthesized
// date-range $filter. First match wins; at most one filter is installed.
var dateFilterFields = []string{
	"Timestamp", "StartTime", "SegmentStartTime", "TimeGenerated", "CallTime",
}

// zuluPathRe flags endpoints whose path takes zulu timestamps rather than
// plain calendar dates.
var zuluPathRe = regexp.MustCompile(`(?i)\b(startDate|endDate|periodFrom|periodTo|startDt|endDt|chartDate|Timestamp)\b`)

// allowedQueryParams is the admitted OData parameter vocabulary.
var allowedQueryParams = map[string]bool{
	"$filter": true,
	"$count":  true,
	"$top":    true,
	"$skip":   true,
}

// Compiler builds a definitions store from a PBX OpenAPI document.
type Compiler struct {
	logger *common.Logger
}

// NewCompiler creates a compiler. A nil logger is replaced with a silent one.
func NewCompiler(logger *common.Logger) *Compiler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Compiler{logger: logger}
}

// admittedParams collects the declared OData query parameters of an
// operation, force-admitting $count/$top/$skip for the known tags.
func admittedParams(op *openapi3.Operation, tag string) map[string]bool {
	admitted := make(map[string]bool)
	for _, pr := range op.Parameters {
		if pr == nil || pr.Value == nil {
			continue
		}
		if pr.Value.In == "query" && allowedQueryParams[pr.Value.Name] {
			admitted[pr.Value.Name] = true
		}
	}
	if forceODataTags[tag] {
		for _, name := range []string{"$count", "$top", "$skip"} {
			admitted[name] = true
		}
	}
	return admitted
}

// Compile walks every GET operation of the document and emits one
// descriptor + column schema per eligible endpoint. Excluded or unresolvable
// operations never abort the run: exclusions are recorded with their reason,
// resolution gaps are skipped.
func (c *Compiler) Compile(doc *openapi3.T) *models.DefinitionsStore {
	store := &models.DefinitionsStore{
		GeneratedAt: time.Now().UTC(),
		Disabled:    make(map[string]string),
	}

	seen := make(map[string]bool)

	// The document model stores paths in a map; iterate sorted so name
	// collision handling and output are reproducible.
	pathMap := doc.Paths.Map()
	paths := make([]string, 0, len(pathMap))
	for p := range pathMap {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, specPath := range paths {
		item := pathMap[specPath]
		if item == nil || item.Get == nil {
			continue
		}
		op := item.Get

		if len(op.Tags) == 0 || op.Tags[0] == "" {
			continue
		}
		tag := op.Tags[0]

		operationID := op.OperationID
		if operationID == "" {
			operationID = uuid.New().String()[:13]
		}

		name := tag
		if seen[name] {
			name = tag + "/" + operationID
		}

		if reason, excluded := exclusionReason(specPath); excluded {
			store.Disabled[name+"/"+operationID] = "disabled: " + reason
			c.logger.Debug().Str("path", specPath).Str("reason", reason).Msg("Endpoint excluded")
			continue
		}

		admitted := admittedParams(op, tag)

		resolved, ok := resolveResponseSchema(doc, op)
		if !ok {
			c.logger.Debug().Str("path", specPath).Msg("No resolvable response schema, endpoint skipped")
			continue
		}

		columns := make([]models.Column, len(resolved.Props))
		for i, prop := range resolved.Props {
			columns[i] = models.Column{Name: prop.Name, Type: convertType(prop.Type, prop.Format)}
		}

		var params []models.Param
		if resolved.Collection {
			// Date-range filter over the first timestamp-like column.
			if admitted["$filter"] || forceODataTags[tag] {
				for _, field := range dateFilterFields {
					if hasColumn(columns, field) {
						params = append(params, models.Param{
							Name:  "$filter",
							Value: "date(" + field + ") ge {from} and date(" + field + ") le {to}",
						})
						break
					}
				}
			}
		}
		if admitted["$count"] {
			params = append(params, models.Param{Name: "$count", Value: "true"})
		}
		if admitted["$skip"] {
			params = append(params, models.Param{Name: "$skip", Value: "{skip}"})
		}
		if admitted["$top"] {
			params = append(params, models.Param{Name: "$top", Value: "{top}"})
		}

		store.Endpoints = append(store.Endpoints, models.EndpointDescriptor{
			Name:        name,
			URLTemplate: urlPrefix + specPath,
			Params:      params,
			Zulu:        zuluPathRe.MatchString(specPath),
		})
		store.Columns = append(store.Columns, models.ColumnSchema{
			Endpoint: name,
			Columns:  columns,
		})
		seen[name] = true
	}

	sort.Slice(store.Endpoints, func(i, j int) bool {
		return store.Endpoints[i].Name < store.Endpoints[j].Name
	})
	sort.Slice(store.Columns, func(i, j int) bool {
		return store.Columns[i].Endpoint < store.Columns[j].Endpoint
	})

	c.logger.Info().
		Int("endpoints", len(store.Endpoints)).
		Int("disabled", len(store.Disabled)).
		Msg("Compiled endpoint definitions")

	return store
}

func hasColumn(columns []models.Column, name string) bool {
	for _, c := range columns {
		if c.Name == name {
			return true
		}
	}
	return false
}
