package patient

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestParseFilter(t *testing.T) {
	q := url.Values{}
	q.Set("status", "completed")
	q.Set("familyGroup", "ESDA")
	q.Set("service", "Gynaecology")
	q.Set("search", " anna ")
	q.Set("dateFrom", "2025-11-01")
	q.Set("dateTo", "2025-11-30")
	q.Set("includeDeleted", "true")

	f, err := ParseFilter(q)
	if err != nil {
		t.Fatalf("ParseFilter failed: %v", err)
	}
	if f.Status != "completed" || f.FamilyGroup != "ESDA" || f.Service != "Gynaecology" {
		t.Errorf("Unexpected filter: %+v", f)
	}
	if f.Search != "anna" {
		t.Errorf("Expected trimmed search, got %q", f.Search)
	}
	if !f.IncludeDeleted {
		t.Error("Expected includeDeleted=true")
	}
}

func TestParseFilter_ServicesAliasParam(t *testing.T) {
	q := url.Values{}
	q.Set("services", "Dental consultation")

	f, err := ParseFilter(q)
	if err != nil {
		t.Fatalf("ParseFilter failed: %v", err)
	}
	if f.Service != "Dental consultation" {
		t.Errorf("Expected services param accepted, got %q", f.Service)
	}
}

func TestParseFilter_BadDates(t *testing.T) {
	q := url.Values{}
	q.Set("dateFrom", "01/11/2025")

	if _, err := ParseFilter(q); err == nil {
		t.Fatal("Expected error for malformed dateFrom")
	}
}

func TestPredicate_DefaultExcludesDeleted(t *testing.T) {
	where, args, err := Filter{}.predicate()
	if err != nil {
		t.Fatalf("predicate failed: %v", err)
	}
	if where != "WHERE NOT is_deleted" {
		t.Errorf("Expected deleted exclusion by default, got %q", where)
	}
	if len(args) != 0 {
		t.Errorf("Expected no args, got %v", args)
	}
}

func TestPredicate_IncludeDeletedDropsClause(t *testing.T) {
	where, _, err := Filter{IncludeDeleted: true}.predicate()
	if err != nil {
		t.Fatalf("predicate failed: %v", err)
	}
	if where != "" {
		t.Errorf("Expected empty clause, got %q", where)
	}
}

func TestPredicate_Composition(t *testing.T) {
	f := Filter{
		Status:      "completed",
		FamilyGroup: "ESDA",
		Service:     "Gynaecology",
	}

	where, args, err := f.predicate()
	if err != nil {
		t.Fatalf("predicate failed: %v", err)
	}

	for _, frag := range []string{"NOT is_deleted", "status = $1", "family_group = $2", "$3 = ANY(services)"} {
		if !strings.Contains(where, frag) {
			t.Errorf("Expected %q in clause %q", frag, where)
		}
	}
	if len(args) != 3 || args[0] != "completed" || args[1] != "ESDA" || args[2] != "Gynaecology" {
		t.Errorf("Unexpected args: %v", args)
	}
}

func TestPredicate_AllWildcards(t *testing.T) {
	f := Filter{Status: "all", FamilyGroup: "all", Service: "all"}

	where, args, err := f.predicate()
	if err != nil {
		t.Fatalf("predicate failed: %v", err)
	}
	if where != "WHERE NOT is_deleted" || len(args) != 0 {
		t.Errorf(`Expected "all" values to be wildcards, got %q args=%v`, where, args)
	}
}

func TestPredicate_SearchMatchesNameAndDigits(t *testing.T) {
	f := Filter{Search: "77-123"}

	where, args, err := f.predicate()
	if err != nil {
		t.Fatalf("predicate failed: %v", err)
	}
	if !strings.Contains(where, "name ILIKE") || !strings.Contains(where, "tel_digits LIKE") {
		t.Errorf("Expected name and tel predicates, got %q", where)
	}
	if args[0] != "%77-123%" || args[1] != "%77123%" {
		t.Errorf("Unexpected search args: %v", args)
	}
}

func TestPredicate_DateRangeInclusive(t *testing.T) {
	f := Filter{DateFrom: "2025-11-01", DateTo: "2025-11-30"}

	where, args, err := f.predicate()
	if err != nil {
		t.Fatalf("predicate failed: %v", err)
	}
	if !strings.Contains(where, "created_at >= $1") || !strings.Contains(where, "created_at < $2") {
		t.Errorf("Unexpected date clause: %q", where)
	}

	from := args[0].(time.Time)
	to := args[1].(time.Time)
	if from.Format("2006-01-02") != "2025-11-01" {
		t.Errorf("Bad from bound: %v", from)
	}
	// dateTo is inclusive end-of-day: the upper bound is the next day.
	if to.Format("2006-01-02") != "2025-12-01" {
		t.Errorf("Bad to bound: %v", to)
	}
}

func TestPredicate_OnlyDeleted(t *testing.T) {
	where, _, err := Filter{OnlyDeleted: true}.predicate()
	if err != nil {
		t.Fatalf("predicate failed: %v", err)
	}
	if where != "WHERE is_deleted" {
		t.Errorf("Expected deleted-only clause, got %q", where)
	}
}

func TestWithCanonicalService(t *testing.T) {
	cat := DefaultCatalog()

	f := Filter{Service: "Eye con"}.withCanonicalService(cat)
	if f.Service != "Eye consultation" {
		t.Errorf("Expected alias-mapped filter value, got %q", f.Service)
	}

	f = Filter{Service: "all"}.withCanonicalService(cat)
	if f.Service != "all" {
		t.Errorf("Wildcard should pass through, got %q", f.Service)
	}
}

func TestOrderClause(t *testing.T) {
	tests := []struct {
		sort string
		want string
	}{
		{"", "ORDER BY created_at DESC"},
		{"oldest", "ORDER BY created_at ASC"},
		{"newest", "ORDER BY created_at DESC"},
		{"name", "ORDER BY name ASC"},
		{"-name", "ORDER BY name DESC"},
		{"createdAt", "ORDER BY created_at ASC"},
		{"bogus; DROP TABLE patients", "ORDER BY created_at DESC"},
	}

	for _, tt := range tests {
		if got := orderClause(tt.sort); got != tt.want {
			t.Errorf("orderClause(%q) = %q, want %q", tt.sort, got, tt.want)
		}
	}
}
