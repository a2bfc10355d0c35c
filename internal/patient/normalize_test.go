package patient

import (
	"strings"
	"testing"
)

func TestNormalizeServices_ListWins(t *testing.T) {
	cat := DefaultCatalog()

	services, violations := NormalizeServices(cat, []string{"Gynaecology"}, "Dental consultation")
	if violations != nil {
		t.Fatalf("Expected no violations, got: %v", violations)
	}
	if len(services) != 1 || services[0] != "Gynaecology" {
		t.Errorf("Expected services list to win over singular, got %v", services)
	}
}

func TestNormalizeServices_LegacySingular(t *testing.T) {
	cat := DefaultCatalog()

	services, violations := NormalizeServices(cat, nil, "Dental consultation")
	if violations != nil {
		t.Fatalf("Expected no violations, got: %v", violations)
	}
	if len(services) != 1 || services[0] != "Dental consultation" {
		t.Errorf("Expected singular to be wrapped, got %v", services)
	}
}

func TestNormalizeServices_LegacyAlias(t *testing.T) {
	cat := DefaultCatalog()

	services, violations := NormalizeServices(cat, nil, "Eye con")
	if violations != nil {
		t.Fatalf("Expected no violations, got: %v", violations)
	}
	if len(services) != 1 || services[0] != "Eye consultation" {
		t.Errorf(`Expected "Eye con" to map to "Eye consultation", got %v`, services)
	}

	services, violations = NormalizeServices(cat, []string{"Eye con", "Gynaecology"}, "")
	if violations != nil {
		t.Fatalf("Expected no violations, got: %v", violations)
	}
	want := []string{"Eye consultation", "Gynaecology"}
	if len(services) != 2 || services[0] != want[0] || services[1] != want[1] {
		t.Errorf("Expected %v, got %v", want, services)
	}
}

func TestNormalizeServices_Missing(t *testing.T) {
	cat := DefaultCatalog()

	_, violations := NormalizeServices(cat, nil, "")
	if len(violations) != 1 || violations[0].Field != "services" {
		t.Fatalf("Expected services-required violation, got %v", violations)
	}

	// Blank entries count as absent.
	_, violations = NormalizeServices(cat, []string{" ", ""}, "   ")
	if len(violations) != 1 {
		t.Fatalf("Expected services-required violation for blanks, got %v", violations)
	}
}

func TestNormalizeServices_InvalidReportsValidList(t *testing.T) {
	cat := DefaultCatalog()

	_, violations := NormalizeServices(cat, []string{"Chiropractic", "Gynaecology"}, "")
	if len(violations) != 1 {
		t.Fatalf("Expected one violation, got %v", violations)
	}
	msg := violations[0].Message
	if !strings.Contains(msg, "Chiropractic") {
		t.Errorf("Expected invalid value in message, got %q", msg)
	}
	if !strings.Contains(msg, "Gynaecology") || !strings.Contains(msg, "Dental consultation") {
		t.Errorf("Expected full valid list in message, got %q", msg)
	}
}

func TestNormalizeServices_DedupePreservesOrder(t *testing.T) {
	cat := DefaultCatalog()

	services, violations := NormalizeServices(cat,
		[]string{"Gynaecology", "Eye con", "Eye consultation", "Gynaecology"}, "")
	if violations != nil {
		t.Fatalf("Expected no violations, got: %v", violations)
	}
	want := []string{"Gynaecology", "Eye consultation"}
	if len(services) != 2 || services[0] != want[0] || services[1] != want[1] {
		t.Errorf("Expected %v, got %v", want, services)
	}
}

func TestCatalog_Lookups(t *testing.T) {
	cat := DefaultCatalog()

	if name, ok := cat.CanonicalService("Eye con"); !ok || name != "Eye consultation" {
		t.Errorf("CanonicalService(Eye con) = %q, %v", name, ok)
	}
	if _, ok := cat.CanonicalService("Reiki"); ok {
		t.Error("Expected unknown service to be rejected")
	}
	if !cat.ValidLabTest("Urinalysis") || cat.ValidLabTest("Tea leaves") {
		t.Error("ValidLabTest gave wrong answers")
	}
	if !cat.ValidFamilyGroup("AKUCDA") || cat.ValidFamilyGroup("XYZ") {
		t.Error("ValidFamilyGroup gave wrong answers")
	}
}
