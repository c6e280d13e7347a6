// Package importer turns an uploaded spreadsheet into reviewable movement rows
// and commits the rows a user confirms.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// Canonical column names.
const (
	ColDate           = "date"
	ColDescription    = "description"
	ColCategory       = "category"
	ColAccount        = "account"
	ColCard           = "card"
	ColAmount         = "amount"
	ColStatus         = "status"
	ColSharing        = "sharing"
	ColSettlementDate = "settlement_date"
)

// RequiredColumns in the order they are reported when missing.
var RequiredColumns = []string{ColDate, ColDescription, ColCategory, ColAccount, ColAmount, ColStatus, ColSharing}

var columnSynonyms = map[string]string{
	"data":              ColDate,
	"data_movimento":    ColDate,
	"data_do_movimento": ColDate,
	"dt":                ColDate,

	"descrição": ColDescription,
	"descriçao": ColDescription,
	"descricão": ColDescription,
	"descricao": ColDescription,
	"histórico": ColDescription,
	"historico": ColDescription,

	"categoria": ColCategory,

	"instituição": ColAccount,
	"instituiçao": ColAccount,
	"instituicao": ColAccount,
	"conta":       ColAccount,
	"banco":       ColAccount,

	"cartão":            ColCard,
	"cartao":            ColCard,
	"cartão_de_crédito": ColCard,
	"cartao_de_credito": ColCard,

	"valor": ColAmount,
	"value": ColAmount,

	"situação": ColStatus,
	"situacao": ColStatus,

	"compartilhado":    ColSharing,
	"compartilhamento": ColSharing,
	"divisão":          ColSharing,
	"divisao":          ColSharing,

	"data_efetivação": ColSettlementDate,
	"data_efetivacao": ColSettlementDate,
	"efetivação":      ColSettlementDate,
	"efetivacao":      ColSettlementDate,
}

// Cell is one parsed value. Time is set when the source held a native date.
type Cell struct {
	Text string
	Time *time.Time
}

// Record maps canonical column names to cells.
type Record map[string]Cell

// RawTable is the file contents after column normalization.
type RawTable struct {
	Columns []string
	Rows    []Record
	// DecimalComma is true when amounts use "," as decimal separator.
	DecimalComma bool
}

// Len returns the number of data rows.
func (t *RawTable) Len() int { return len(t.Rows) }

type csvStrategy struct {
	sep          rune
	decimalComma bool
}

var csvStrategies = []csvStrategy{
	{sep: ';', decimalComma: true},
	{sep: ',', decimalComma: false},
}

// Parse reads a CSV or XLSX upload, normalizes its header and checks the
// required columns.
func Parse(name string, r io.Reader) (*RawTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &UnreadableFileError{Name: name, Err: err}
	}

	var (
		header []string
		rows   [][]Cell
		comma  bool
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		header, rows, comma, err = parseCSV(data)
	case ".xlsx", ".xlsm":
		header, rows, err = parseXLSX(data)
	default:
		err = fmt.Errorf("unsupported extension %q", filepath.Ext(name))
	}
	if err != nil {
		return nil, &UnreadableFileError{Name: name, Err: err}
	}

	table := &RawTable{DecimalComma: comma}
	index := make(map[string]int, len(header))
	for i, h := range header {
		col := NormalizeColumn(h)
		if _, dup := index[col]; dup || col == "" {
			continue
		}
		index[col] = i
		table.Columns = append(table.Columns, col)
	}

	var missing []string
	for _, req := range RequiredColumns {
		if _, ok := index[req]; !ok {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing}
	}

	for _, row := range rows {
		if blankRow(row) {
			continue
		}
		rec := make(Record, len(index))
		for col, i := range index {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		table.Rows = append(table.Rows, rec)
	}
	return table, nil
}

// NormalizeColumn lower-cases and trims a header, joins inner whitespace with
// "_" and maps known synonyms to canonical names.
func NormalizeColumn(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.Join(strings.Fields(h), "_")
	if canon, ok := columnSynonyms[h]; ok {
		return canon
	}
	return h
}

func parseCSV(data []byte) ([]string, [][]Cell, bool, error) {
	data = decodeText(data)
	var lastErr error
	for _, s := range csvStrategies {
		rd := csv.NewReader(bytes.NewReader(data))
		rd.Comma = s.sep
		rd.TrimLeadingSpace = true
		records, err := rd.ReadAll()
		if err != nil {
			lastErr = err
			continue
		}
		if len(records) == 0 || len(records[0]) <= 1 {
			lastErr = errors.New("header has a single column")
			continue
		}
		rows := make([][]Cell, 0, len(records)-1)
		for _, rec := range records[1:] {
			cells := make([]Cell, len(rec))
			for i, v := range rec {
				cells[i] = Cell{Text: strings.TrimSpace(v)}
			}
			rows = append(rows, cells)
		}
		return records[0], rows, s.decimalComma, nil
	}
	return nil, nil, false, fmt.Errorf("no csv strategy matched: %w", lastErr)
}

// decodeText strips a UTF-8 BOM and decodes non UTF-8 input as Windows-1252.
func decodeText(data []byte) []byte {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(data) {
		return data
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return data
	}
	return out
}

func parseXLSX(data []byte) ([]string, [][]Cell, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errors.New("workbook has no sheets")
	}
	grid, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, err
	}
	if len(grid) == 0 {
		return nil, nil, errors.New("sheet is empty")
	}

	header := grid[0]
	dateCols := make(map[int]bool)
	for i, h := range header {
		switch NormalizeColumn(h) {
		case ColDate, ColSettlementDate:
			dateCols[i] = true
		}
	}

	rows := make([][]Cell, 0, len(grid)-1)
	for _, raw := range grid[1:] {
		cells := make([]Cell, len(raw))
		for i, v := range raw {
			v = strings.TrimSpace(v)
			cells[i] = Cell{Text: v}
			if !dateCols[i] {
				continue
			}
			if serial, err := strconv.ParseFloat(v, 64); err == nil && serial > 0 {
				if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
					cells[i].Time = &t
				}
			}
		}
		rows = append(rows, cells)
	}
	return header, rows, nil
}

func blankRow(row []Cell) bool {
	for _, c := range row {
		if c.Text != "" || c.Time != nil {
			return false
		}
	}
	return true
}
