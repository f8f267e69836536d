package histcase

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"
)

// writeWorkbook writes a single-sheet case log for tests.
func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "cases.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func TestLoadXLSX(t *testing.T) {
	t.Parallel()

	path := writeWorkbook(t, [][]any{
		{"Case ID", "Module", "Problem Statement", "Resolution", "Resolution Time"},
		{"HC-1", "CNTR", "Duplicate container records", "Ran dedup job", "2.5"},
		{"HC-2", "VSL", "Vessel advice mismatch", "Corrected advice", "4"},
	})

	c, err := LoadXLSX(path)
	if err != nil {
		t.Fatalf("LoadXLSX: %v", err)
	}

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	got := c.Filter([]string{"duplicate"})
	want := []Row{{
		CaseID:           "HC-1",
		Module:           "CNTR",
		ProblemStatement: "Duplicate container records",
		Resolution:       "Ran dedup job",
		ResolutionHours:  2.5,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadXLSX_SkipsBlankProblemRows(t *testing.T) {
	t.Parallel()

	path := writeWorkbook(t, [][]any{
		{"Case ID", "Module", "Problem Statement", "Resolution", "Resolution Time"},
		{"HC-1", "CNTR", "", "orphan resolution", "1"},
		{"HC-2", "CNTR", "Real problem", "Fixed", "not-a-number"},
	})

	c, err := LoadXLSX(path)
	if err != nil {
		t.Fatalf("LoadXLSX: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want blank-problem row skipped", c.Len())
	}
	got := c.Filter([]string{"real problem"})
	if len(got) != 1 || got[0].ResolutionHours != 0 {
		t.Errorf("got %v, want unparsable hours as zero", got)
	}
}

func TestLoadXLSX_MissingProblemColumn(t *testing.T) {
	t.Parallel()

	path := writeWorkbook(t, [][]any{
		{"Case ID", "Module"},
		{"HC-1", "CNTR"},
	})

	if _, err := LoadXLSX(path); err == nil {
		t.Fatal("expected error for missing problem statement column")
	}
}

func TestLoadXLSX_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := LoadXLSX(filepath.Join(t.TempDir(), "absent.xlsx")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
