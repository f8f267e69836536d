package histcase

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Column headers recognized in the case log workbook. Matching is
// case-insensitive on the trimmed header text.
const (
	colCaseID          = "case id"
	colModule          = "module"
	colProblem         = "problem statement"
	colResolution      = "resolution"
	colResolutionHours = "resolution time"
)

// LoadXLSX reads the first sheet of a case log workbook into a Corpus.
// The first row must be a header row; unrecognized columns are ignored.
func LoadXLSX(path string) (*Corpus, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open case log: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("case log has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return NewCorpus(nil), nil
	}

	cols := headerIndex(rows[0])
	if _, ok := cols[colProblem]; !ok {
		return nil, fmt.Errorf("case log missing %q column", colProblem)
	}

	out := make([]Row, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		row := Row{
			CaseID:           cell(cells, cols, colCaseID),
			Module:           cell(cells, cols, colModule),
			ProblemStatement: cell(cells, cols, colProblem),
			Resolution:       cell(cells, cols, colResolution),
		}
		if row.ProblemStatement == "" {
			continue
		}
		if v := cell(cells, cols, colResolutionHours); v != "" {
			if hours, err := strconv.ParseFloat(v, 64); err == nil {
				row.ResolutionHours = hours
			}
		}
		out = append(out, row)
	}
	return NewCorpus(out), nil
}

func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols
}

func cell(cells []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}
