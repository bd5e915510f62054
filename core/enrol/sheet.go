package enrol

import (
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

var (
	// errors
	ErrUnsupportedFile = errors.New("unsupported file type: expected .xlsx or .csv")
	ErrNoHeader        = errors.New("the first row must name the columns")
)

// DecodeSheet reads the rows of an .xlsx (first sheet) or .csv dataset.
// The first row is the header; columns are matched by field name.
func DecodeSheet(r io.Reader, filename string) ([]ImportRow, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		records, err = readXLSX(r)
	case ".csv":
		records, err = readCSV(r)
	default:
		return nil, ErrUnsupportedFile
	}
	if err != nil {
		return nil, err
	}
	return rowsFromRecords(records)
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening spreadsheet")
	}
	defer func() { _ = f.Close() }()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, errors.New("spreadsheet does not contain any sheet")
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %s", sheetName)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading csv")
	}
	return records, nil
}

func rowsFromRecords(records [][]string) ([]ImportRow, error) {
	if len(records) == 0 {
		return nil, ErrNoHeader
	}

	header := records[0]
	known := 0
	for _, column := range header {
		if (&ImportRow{}).Set(column, "") {
			known++
		}
	}
	if known == 0 {
		return nil, ErrNoHeader
	}

	// trailing blank rows are not part of the dataset
	last := len(records)
	for last > 1 && isBlank(records[last-1]) {
		last--
	}

	rows := make([]ImportRow, 0, last-1)
	for _, record := range records[1:last] {
		var row ImportRow
		for i, value := range record {
			if i < len(header) {
				row.Set(header[i], value)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isBlank(record []string) bool {
	for _, value := range record {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}
