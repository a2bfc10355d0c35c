package patient

import (
	"strings"
)

// NormalizeServices reconciles the legacy singular service field with the
// current services list and returns the canonical set:
//
//  1. a non-empty services list wins, with legacy aliases rewritten
//  2. otherwise a non-blank singular service becomes a one-element list
//  3. otherwise the payload has no usable service and is rejected
//
// Every resulting element must belong to the catalog. The same pass runs
// on create, update and bulk-update payloads.
func NormalizeServices(catalog *Catalog, services []string, service string) ([]string, []FieldViolation) {
	candidates := dedupeNonBlank(services)
	if len(candidates) == 0 {
		if s := CollapseWhitespace(service); s != "" {
			candidates = []string{s}
		}
	}
	if len(candidates) == 0 {
		return nil, []FieldViolation{{Field: "services", Message: "at least one service is required"}}
	}

	normalized := make([]string, 0, len(candidates))
	var invalid []string
	for _, raw := range candidates {
		name, ok := catalog.CanonicalService(raw)
		if !ok {
			invalid = append(invalid, raw)
			continue
		}
		normalized = append(normalized, name)
	}
	if len(invalid) > 0 {
		return nil, []FieldViolation{{
			Field: "services",
			Message: "services contains invalid values: " + strings.Join(invalid, ", ") +
				". Valid services are: " + strings.Join(catalog.Services, ", "),
		}}
	}

	// Alias rewriting can collapse two inputs onto the same canonical name.
	return dedupeNonBlank(normalized), nil
}

// dedupeNonBlank trims each element, drops blanks and duplicates, and
// preserves first-seen order.
func dedupeNonBlank(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = CollapseWhitespace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
