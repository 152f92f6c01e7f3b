// Package compiler turns a PBX OpenAPI document into compiled endpoint
// definitions: an invocation descriptor plus a column schema per eligible
// read operation.
package compiler

import (
	"path"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mhorvat/xapiport/internal/models"
)

// property is one resolved response field with its raw OpenAPI typing.
type property struct {
	Name   string
	Type   string
	Format string
}

// resolvedSchema is the outcome of resolving one operation's 200 response.
type resolvedSchema struct {
	Props []property
	// Collection is set when the schema resolved through the OData wrapper
	// pattern: an allOf branch whose properties.value.items references the
	// row schema.
	Collection bool
}

// schemaType extracts the primary type name from an OpenAPI schema.
func schemaType(s *openapi3.Schema) string {
	if s == nil || s.Type == nil || len(*s.Type) == 0 {
		return ""
	}
	return (*s.Type)[0]
}

// convertType maps OpenAPI type+format to the semantic column type.
func convertType(typ, format string) models.FieldType {
	switch {
	case format == "date-time":
		return models.FieldDatetime
	case typ == "boolean":
		return models.FieldBoolean
	case typ == "integer":
		return models.FieldInteger
	case typ == "number":
		return models.FieldFloat
	case typ == "string" && format == "duration":
		return models.FieldDuration
	default:
		return models.FieldString
	}
}

// lookupSchema resolves a component schema by reference basename.
func lookupSchema(doc *openapi3.T, ref string) *openapi3.Schema {
	if doc.Components == nil || doc.Components.Schemas == nil {
		return nil
	}
	sr, ok := doc.Components.Schemas[path.Base(ref)]
	if !ok || sr == nil {
		return nil
	}
	return sr.Value
}

// responseSchemaRef walks the operation's 200 response to its JSON schema,
// following at most one $ref into components/responses.
func responseSchemaRef(doc *openapi3.T, op *openapi3.Operation) *openapi3.SchemaRef {
	if op.Responses == nil {
		return nil
	}
	respRef := op.Responses.Value("200")
	if respRef == nil {
		return nil
	}

	resp := respRef.Value
	if respRef.Ref != "" && doc.Components != nil && doc.Components.Responses != nil {
		if named, ok := doc.Components.Responses[path.Base(respRef.Ref)]; ok && named != nil && named.Value != nil {
			resp = named.Value
		}
	}
	if resp == nil || resp.Content == nil {
		return nil
	}

	media := resp.Content.Get("application/json")
	if media == nil {
		return nil
	}
	return media.Schema
}

// resolveResponseSchema resolves the flat property set of an operation's 200
// response. Returns ok=false when no usable schema can be found; callers
// skip the endpoint rather than failing the compilation run.
func resolveResponseSchema(doc *openapi3.T, op *openapi3.Operation) (resolvedSchema, bool) {
	schemaRef := responseSchemaRef(doc, op)
	if schemaRef == nil {
		return resolvedSchema{}, false
	}

	schema := schemaRef.Value
	if schemaRef.Ref != "" {
		if named := lookupSchema(doc, schemaRef.Ref); named != nil {
			schema = named
		}
	}
	if schema == nil {
		return resolvedSchema{}, false
	}

	// OData collection wrapper: one allOf branch holds
	// properties.value.items -> $ref to the row schema.
	if len(schema.AllOf) > 0 {
		for _, part := range schema.AllOf {
			if part == nil || part.Value == nil {
				continue
			}
			valueProp, ok := part.Value.Properties["value"]
			if !ok || valueProp == nil || valueProp.Value == nil {
				continue
			}
			items := valueProp.Value.Items
			if items == nil || items.Ref == "" {
				continue
			}
			itemSchema := lookupSchema(doc, items.Ref)
			if itemSchema == nil {
				itemSchema = items.Value
			}
			if itemSchema == nil || len(itemSchema.Properties) == 0 {
				return resolvedSchema{}, false
			}
			return resolvedSchema{Props: orderedProperties(itemSchema), Collection: true}, true
		}
	}

	if len(schema.Properties) > 0 {
		return resolvedSchema{Props: orderedProperties(schema)}, true
	}

	return resolvedSchema{}, false
}

// orderedProperties flattens a schema's properties into a deterministic,
// lexicographically ordered list. The OpenAPI model exposes properties as a
// map, so sorting keeps recompilation output stable across runs.
func orderedProperties(schema *openapi3.Schema) []property {
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	props := make([]property, 0, len(names))
	for _, name := range names {
		ref := schema.Properties[name]
		var typ, format string
		if ref != nil && ref.Value != nil {
			typ = schemaType(ref.Value)
			format = ref.Value.Format
		}
		props = append(props, property{Name: name, Type: typ, Format: format})
	}
	return props
}
