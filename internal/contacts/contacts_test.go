package contacts

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
CNTR:
  module: CNTR
  primary_contact:
    name: Container Ops
    email: cntr-ops@company.com
    phone: "+1-555-0101"
    escalation_level: L1
  escalation_contact:
    name: Container Lead
    email: cntr-lead@company.com
    phone: "+1-555-0102"
    escalation_level: L2
VSL:
  module: VSL
  primary_contact:
    name: Vessel Ops
    email: vsl-ops@company.com
`

func writeContacts(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contacts.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write contacts file: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	d, err := LoadYAML(writeContacts(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}

	rec := d.Lookup("CNTR")
	if rec.Primary.Email != "cntr-ops@company.com" {
		t.Errorf("Primary.Email = %q", rec.Primary.Email)
	}
	if rec.Escalation.Name != "Container Lead" {
		t.Errorf("Escalation.Name = %q", rec.Escalation.Name)
	}
}

func TestLoadYAML_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := LoadYAML(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadYAML_Malformed(t *testing.T) {
	t.Parallel()

	if _, err := LoadYAML(writeContacts(t, "CNTR: [not, a, record")); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestLookup_UnknownModuleGetsDefault(t *testing.T) {
	t.Parallel()

	d := NewDirectory(nil)
	rec := d.Lookup("NOPE")

	if rec.Module != "General Support" {
		t.Errorf("Module = %q, want General Support", rec.Module)
	}
	if rec.Primary.Email == "" || rec.Escalation.Email == "" {
		t.Error("default record missing contact emails")
	}
}

func TestDefault(t *testing.T) {
	t.Parallel()

	rec := Default()
	if rec.Primary.Name != "General Support Team" {
		t.Errorf("Primary.Name = %q", rec.Primary.Name)
	}
}
