package patient

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Filter is the recognized set of listing predicates. It doubles as the
// JSON filter block of a bulk request, so the fields carry wire tags.
type Filter struct {
	Status         string `json:"status,omitempty"`
	Service        string `json:"service,omitempty"`
	FamilyGroup    string `json:"familyGroup,omitempty"`
	Search         string `json:"search,omitempty"`
	DateFrom       string `json:"dateFrom,omitempty"`
	DateTo         string `json:"dateTo,omitempty"`
	IncludeDeleted bool   `json:"includeDeleted,omitempty"`
	Sort           string `json:"sort,omitempty"`

	// OnlyDeleted restricts to the soft-deleted set. Internal listings
	// only; not accepted from the wire.
	OnlyDeleted bool `json:"-"`
}

// ParseFilter reads filter parameters from a query string. Unknown
// parameters are ignored; malformed dates are rejected so the caller can
// answer 400 instead of silently returning an unfiltered listing.
func ParseFilter(q url.Values) (Filter, error) {
	f := Filter{
		Status:         strings.TrimSpace(q.Get("status")),
		Service:        strings.TrimSpace(q.Get("service")),
		FamilyGroup:    strings.TrimSpace(q.Get("familyGroup")),
		Search:         strings.TrimSpace(q.Get("search")),
		DateFrom:       strings.TrimSpace(q.Get("dateFrom")),
		DateTo:         strings.TrimSpace(q.Get("dateTo")),
		IncludeDeleted: q.Get("includeDeleted") == "true",
		Sort:           strings.TrimSpace(q.Get("sort")),
	}
	if f.Service == "" {
		f.Service = strings.TrimSpace(q.Get("services"))
	}

	ve := &ValidationError{}
	if f.DateFrom != "" {
		if _, err := time.Parse(dateLayout, f.DateFrom); err != nil {
			ve.Add("dateFrom", "dateFrom must be a date in YYYY-MM-DD format")
		}
	}
	if f.DateTo != "" {
		if _, err := time.Parse(dateLayout, f.DateTo); err != nil {
			ve.Add("dateTo", "dateTo must be a date in YYYY-MM-DD format")
		}
	}
	if ve.HasViolations() {
		return f, ve
	}
	return f, nil
}

// withCanonicalService returns a copy of the filter with any legacy
// service alias rewritten, so filtering on "Eye con" still finds records
// stored under "Eye consultation".
func (f Filter) withCanonicalService(catalog *Catalog) Filter {
	if f.Service == "" || f.Service == "all" {
		return f
	}
	name, _ := catalog.CanonicalService(f.Service)
	f.Service = name
	return f
}

// predicate renders the filter as a SQL WHERE clause with positional
// arguments numbered from $1. An empty clause means no restriction.
func (f Filter) predicate() (string, []interface{}, error) {
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.OnlyDeleted {
		conds = append(conds, "is_deleted")
	} else if !f.IncludeDeleted {
		conds = append(conds, "NOT is_deleted")
	}
	if f.Status != "" && f.Status != "all" {
		conds = append(conds, "status = "+arg(f.Status))
	}
	if f.FamilyGroup != "" && f.FamilyGroup != "all" {
		conds = append(conds, "family_group = "+arg(f.FamilyGroup))
	}
	if f.Service != "" && f.Service != "all" {
		conds = append(conds, arg(f.Service)+" = ANY(services)")
	}
	if f.Search != "" {
		search := []string{"name ILIKE " + arg("%"+f.Search+"%")}
		if digits := TelDigits(f.Search); digits != "" {
			search = append(search, "tel_digits LIKE "+arg("%"+digits+"%"))
		}
		conds = append(conds, "("+strings.Join(search, " OR ")+")")
	}
	if f.DateFrom != "" {
		from, err := time.Parse(dateLayout, f.DateFrom)
		if err != nil {
			return "", nil, &ValidationError{Violations: []FieldViolation{
				{Field: "dateFrom", Message: "dateFrom must be a date in YYYY-MM-DD format"},
			}}
		}
		conds = append(conds, "created_at >= "+arg(from))
	}
	if f.DateTo != "" {
		to, err := time.Parse(dateLayout, f.DateTo)
		if err != nil {
			return "", nil, &ValidationError{Violations: []FieldViolation{
				{Field: "dateTo", Message: "dateTo must be a date in YYYY-MM-DD format"},
			}}
		}
		// Inclusive end of day.
		conds = append(conds, "created_at < "+arg(to.AddDate(0, 0, 1)))
	}

	if len(conds) == 0 {
		return "", args, nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args, nil
}

// sortColumns maps wire sort keys onto table columns. Only listed keys
// are accepted; anything else falls back to the default ordering.
var sortColumns = map[string]string{
	"createdAt":    "created_at",
	"lastModified": "last_modified",
	"name":         "name",
	"age":          "age",
	"status":       "status",
	"familyGroup":  "family_group",
}

// orderClause renders the sort parameter. "oldest" and "newest" order by
// registration time; for column keys a leading "-" selects descending
// order. The default is newest registration first.
func orderClause(sort string) string {
	switch sort {
	case "oldest":
		return "ORDER BY created_at ASC"
	case "newest":
		return "ORDER BY created_at DESC"
	}

	dir := "ASC"
	if strings.HasPrefix(sort, "-") {
		dir = "DESC"
		sort = sort[1:]
	}
	col, ok := sortColumns[sort]
	if !ok {
		return "ORDER BY created_at DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s", col, dir)
}
