package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Grid renders a pivot as header plus rows of formatted cells, the shape
// written to spreadsheets.
func (r MonthlyReport) Grid(p Pivot) [][]string {
	header := append([]string{"Grupo", "Linha", "Média"}, r.Columns...)
	grid := [][]string{header}
	for _, l := range p.Format().Lines {
		row := append([]string{l.Group, l.Label, l.Average}, l.Values...)
		grid = append(grid, row)
	}
	return grid
}

// Sheets returns the named grids of every non-empty pivot in display order.
func (r MonthlyReport) Sheets() []NamedGrid {
	var out []NamedGrid
	for _, p := range []Pivot{r.CashFlow, r.Balances, r.Cards} {
		if len(p.Lines) == 0 {
			continue
		}
		out = append(out, NamedGrid{Name: p.Title, Rows: r.Grid(p)})
	}
	return out
}

type NamedGrid struct {
	Name string
	Rows [][]string
}

// maxSheetName is the worksheet name limit of the xlsx format.
const maxSheetName = 31

// WriteXLSX writes one worksheet per grid. With no grids the workbook keeps
// its single empty default sheet.
func WriteXLSX(w io.Writer, sheets []NamedGrid) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, g := range sheets {
		name := g.Name
		if r := []rune(name); len(r) > maxSheetName {
			name = string(r[:maxSheetName])
		}
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return fmt.Errorf("rename sheet %q: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %q: %w", name, err)
		}
		for j, row := range g.Rows {
			cell, err := excelize.CoordinatesToCellName(1, j+1)
			if err != nil {
				return err
			}
			values := make([]interface{}, len(row))
			for k, v := range row {
				values[k] = v
			}
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				return fmt.Errorf("write sheet %q row %d: %w", name, j+1, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
