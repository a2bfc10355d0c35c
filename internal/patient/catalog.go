package patient

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog holds the campaign vocabularies: the services on offer, the
// aliases older clients still send for renamed services, the lab test
// panel, and the family group tags. All write-path validation and the
// legacy-field normalization read from here, so swapping the catalog
// file reconfigures the campaign without code changes.
type Catalog struct {
	Services       []string          `yaml:"services"`
	ServiceAliases map[string]string `yaml:"serviceAliases"`
	LabTests       []string          `yaml:"labTests"`
	FamilyGroups   []string          `yaml:"familyGroups"`
}

// DefaultCatalog returns the built-in campaign vocabularies.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Services: []string{
			"General consultations",
			"Eye consultation",
			"Gynaecology",
			"Cervical cancer screening",
			"Sexual and reproductive health",
			"Dental consultation",
		},
		ServiceAliases: map[string]string{
			"Eye con": "Eye consultation",
		},
		LabTests: []string{
			"Malaria",
			"HIV",
			"HBV",
			"HCV",
			"Blood grouping",
			"Blood glucose",
			"Syphilis",
			"Ultrasound",
			"X-ray",
			"ECG",
			"Urinalysis",
			"Lipid Profile",
		},
		FamilyGroups: []string{"ESDA", "MASUDA", "AKUCDA", "UBACDA", "OTHERS"},
	}
}

// LoadCatalog reads a catalog YAML file. Sections absent from the file
// keep the built-in defaults.
func LoadCatalog(path string) (*Catalog, error) {
	cat := DefaultCatalog()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var file Catalog
	if err := yaml.Unmarshal(b, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	if len(file.Services) > 0 {
		cat.Services = file.Services
	}
	if len(file.ServiceAliases) > 0 {
		cat.ServiceAliases = file.ServiceAliases
	}
	if len(file.LabTests) > 0 {
		cat.LabTests = file.LabTests
	}
	if len(file.FamilyGroups) > 0 {
		cat.FamilyGroups = file.FamilyGroups
	}

	return cat, nil
}

// CanonicalService maps a raw service name through the alias table and
// reports whether the result is a valid catalog service.
func (c *Catalog) CanonicalService(name string) (string, bool) {
	if mapped, ok := c.ServiceAliases[name]; ok {
		name = mapped
	}
	for _, s := range c.Services {
		if s == name {
			return name, true
		}
	}
	return name, false
}

// ValidLabTest reports whether name is part of the lab test panel.
func (c *Catalog) ValidLabTest(name string) bool {
	for _, t := range c.LabTests {
		if t == name {
			return true
		}
	}
	return false
}

// ValidFamilyGroup reports whether name is a recognized family group.
func (c *Catalog) ValidFamilyGroup(name string) bool {
	for _, g := range c.FamilyGroups {
		if g == name {
			return true
		}
	}
	return false
}
