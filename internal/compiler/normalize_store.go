package compiler

import (
	"fmt"
	"regexp"

	"github.com/mhorvat/xapiport/internal/models"
)

// bindingKeys is the fixed request-time binding vocabulary. Anything else
// remaining after normalization disables the endpoint until a human edits
// its definition.
var bindingKeys = map[string]bool{
	"{from}":     true,
	"{to}":       true,
	"{fromZulu}": true,
	"{toZulu}":   true,
	"{top}":      true,
	"{skip}":     true,
	"{queuedn}":  true,
}

var tokenRe = regexp.MustCompile(`\{[a-zA-Z][a-zA-Z0-9]*\}`)

// Normalize rewrites every descriptor's unresolved template placeholders in
// place using the fixed substitution table. Descriptors still carrying a
// placeholder outside the binding vocabulary afterwards are recorded as
// disabled and dropped; one unrecognized placeholder in a new PBX release
// must never take the rest of the compilation down with it. The pass is
// idempotent: every rewrite target is either a literal or a binding key the
// table never touches again.
func Normalize(store *models.DefinitionsStore) {
	if store.Disabled == nil {
		store.Disabled = make(map[string]string)
	}

	dropped := make(map[string]bool)
	kept := store.Endpoints[:0]
	for i := range store.Endpoints {
		ep := &store.Endpoints[i]
		ep.URLTemplate = NormalizeString(ep.URLTemplate)
		for j := range ep.Params {
			ep.Params[j].Value = NormalizeString(ep.Params[j].Value)
		}

		if reason, escaped := escapedPlaceholder(ep); escaped {
			store.Disabled[ep.Name] = "disabled: " + reason
			dropped[ep.Name] = true
			continue
		}
		kept = append(kept, *ep)
	}
	store.Endpoints = kept

	columns := store.Columns[:0]
	for _, c := range store.Columns {
		if !dropped[c.Endpoint] {
			columns = append(columns, c)
		}
	}
	store.Columns = columns
}

// escapedPlaceholder reports the first placeholder outside the binding
// vocabulary.
func escapedPlaceholder(ep *models.EndpointDescriptor) (string, bool) {
	check := func(s, where string) (string, bool) {
		for _, token := range tokenRe.FindAllString(s, -1) {
			if !bindingKeys[token] {
				return fmt.Sprintf("placeholder %s in %s escaped normalization", token, where), true
			}
		}
		return "", false
	}

	if reason, escaped := check(ep.URLTemplate, "URL template"); escaped {
		return reason, true
	}
	for _, p := range ep.Params {
		if reason, escaped := check(p.Value, "parameter "+p.Name); escaped {
			return reason, true
		}
	}
	return "", false
}
