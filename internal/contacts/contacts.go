// Package contacts resolves alert modules to escalation contact records.
package contacts

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Person is a single contact entry.
type Person struct {
	Name            string `yaml:"name" json:"name"`
	Email           string `yaml:"email" json:"email"`
	Phone           string `yaml:"phone" json:"phone"`
	EscalationLevel string `yaml:"escalation_level" json:"escalation_level"`
}

// Record holds the contact pair for one module.
type Record struct {
	Module     string `yaml:"module" json:"module"`
	Primary    Person `yaml:"primary_contact" json:"primary_contact"`
	Escalation Person `yaml:"escalation_contact" json:"escalation_contact"`
}

// defaultRecord is returned for modules without a directory entry, so
// escalation always has somewhere to go.
var defaultRecord = Record{
	Module: "General Support",
	Primary: Person{
		Name:            "General Support Team",
		Email:           "support@company.com",
		Phone:           "+1-555-SUPPORT",
		EscalationLevel: "L1",
	},
	Escalation: Person{
		Name:            "Support Manager",
		Email:           "support-manager@company.com",
		Phone:           "+1-555-SUPPORT-MGR",
		EscalationLevel: "L2",
	},
}

// Directory maps module names to contact records. Read-only after load.
type Directory struct {
	records map[string]Record
}

// NewDirectory creates a Directory from the given records.
func NewDirectory(records map[string]Record) *Directory {
	if records == nil {
		records = make(map[string]Record)
	}
	return &Directory{records: records}
}

// LoadYAML reads a directory file mapping module name to record.
func LoadYAML(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read contacts file: %w", err)
	}

	var records map[string]Record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse contacts file: %w", err)
	}
	return NewDirectory(records), nil
}

// Lookup returns the record for the module, or the generic support record
// when the module is unrecognized.
func (d *Directory) Lookup(module string) Record {
	if rec, ok := d.records[module]; ok {
		return rec
	}
	return defaultRecord
}

// Default returns the generic support record.
func Default() Record {
	return defaultRecord
}
