// Package roster reads teacher classlists (CSV or XLSX) into student entries.
package roster

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"iquizu/internal/common"

	"github.com/xuri/excelize/v2"
)

const (
	HeaderNo        = "No"
	HeaderStudentNo = "Student No."
	HeaderName      = "Name"
	HeaderGender    = "Gender"
	HeaderProgram   = "Program"
	HeaderYear      = "Year"
	HeaderEmail     = "Email Address"
	HeaderContactNo = "Contact No."
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var (
	ErrUnsupportedFormat = fmt.Errorf("%w: unsupported classlist format, upload a .csv or .xlsx file", common.ErrBadRequest)
	ErrLegacyWorkbook    = fmt.Errorf("%w: .xls workbooks cannot be read, re-save the file as .xlsx or .csv and upload it again", common.ErrBadRequest)
	ErrHeaderRowNotFound = fmt.Errorf("%w: could not find header row with 'Student No.' and 'Name' columns", common.ErrBadRequest)
	ErrNoStudents        = fmt.Errorf("%w: no valid student data found in file", common.ErrBadRequest)

	requiredHeaders = []string{HeaderStudentNo, HeaderName}

	headerAliases = map[string]string{
		"no":             HeaderNo,
		"no.":            HeaderNo,
		"student no.":    HeaderStudentNo,
		"student no":     HeaderStudentNo,
		"student number": HeaderStudentNo,
		"name":           HeaderName,
		"gender":         HeaderGender,
		"program":        HeaderProgram,
		"year":           HeaderYear,
		"email address":  HeaderEmail,
		"email":          HeaderEmail,
		"contact no.":    HeaderContactNo,
		"contact no":     HeaderContactNo,
		"contact number": HeaderContactNo,
	}
)

// Entry is one student row of a classlist.
type Entry struct {
	No        string
	StudentNo string
	Name      string
	Gender    string
	Program   string
	Year      string
	Email     string
	ContactNo string
}

// Clean trims every field and lowercases the email.
func (e Entry) Clean() Entry {
	return Entry{
		No:        common.CleanString(e.No),
		StudentNo: common.CleanString(e.StudentNo),
		Name:      common.CleanString(e.Name),
		Gender:    common.CleanString(e.Gender),
		Program:   common.CleanString(e.Program),
		Year:      common.CleanString(e.Year),
		Email:     common.CleanString(e.Email, true),
		ContactNo: common.CleanString(e.ContactNo),
	}
}

// Sheet is a header row plus records keyed by normalized header.
type Sheet struct {
	Headers []string
	Rows    []map[string]string
}

// NormalizeHeader maps the spellings teachers use onto canonical column names.
func NormalizeHeader(h string) string {
	trimmed := strings.Join(strings.Fields(h), " ")
	if canonical, ok := headerAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

// Parse picks a reader from the file extension and returns the valid entries.
func Parse(fileName string, r io.Reader) ([]Entry, error) {
	var (
		sheet *Sheet
		err   error
	)
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		sheet, err = ParseCSV(r)
	case ".xlsx":
		sheet, err = ParseXLSX(r)
	case ".xls":
		return nil, ErrLegacyWorkbook
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	return Validate(sheet)
}

// ParseCSV treats the first non-empty line as the header row. A leading UTF-8
// byte order mark, as written by Excel's "CSV UTF-8", is skipped.
func ParseCSV(r io.Reader) (*Sheet, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}
	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading csv: %v", common.ErrBadRequest, err)
		}
		if isBlank(rec) {
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, ErrNoStudents
	}
	return buildSheet(records[0], records[1:]), nil
}

// ParseXLSX reads the first worksheet and locates the header row, which may
// sit below a title block.
func ParseXLSX(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading xlsx: %v", common.ErrBadRequest, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("%w: reading xlsx rows: %v", common.ErrBadRequest, err)
	}

	headerIdx := FindHeaderRow(rows)
	if headerIdx < 0 {
		return nil, ErrHeaderRowNotFound
	}

	var body [][]string
	for _, row := range rows[headerIdx+1:] {
		if isBlank(row) {
			continue
		}
		body = append(body, row)
	}
	return buildSheet(rows[headerIdx], body), nil
}

// FindHeaderRow returns the index of the first row that looks like a header, or -1.
func FindHeaderRow(rows [][]string) int {
	for i, row := range rows {
		joined := strings.ToLower(strings.Join(row, "|"))
		if strings.Contains(joined, "student no") ||
			(strings.Contains(joined, "no") && strings.Contains(joined, "name")) {
			return i
		}
	}
	return -1
}

// Validate checks required columns and drops rows missing a student number or name.
func Validate(sheet *Sheet) ([]Entry, error) {
	if sheet == nil || len(sheet.Rows) == 0 {
		return nil, ErrNoStudents
	}

	var missing []string
	for _, h := range requiredHeaders {
		if !contains(sheet.Headers, h) {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns: %s; available columns: %s",
			common.ErrBadRequest, strings.Join(missing, ", "), strings.Join(sheet.Headers, ", "))
	}

	entries := make([]Entry, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		e := Entry{
			No:        row[HeaderNo],
			StudentNo: row[HeaderStudentNo],
			Name:      row[HeaderName],
			Gender:    row[HeaderGender],
			Program:   row[HeaderProgram],
			Year:      row[HeaderYear],
			Email:     row[HeaderEmail],
			ContactNo: row[HeaderContactNo],
		}.Clean()
		if e.StudentNo == "" || e.Name == "" {
			continue
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return nil, ErrNoStudents
	}
	return entries, nil
}

func buildSheet(header []string, body [][]string) *Sheet {
	sheet := &Sheet{Headers: make([]string, 0, len(header))}
	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = NormalizeHeader(h)
		if keys[i] != "" && !contains(sheet.Headers, keys[i]) {
			sheet.Headers = append(sheet.Headers, keys[i])
		}
	}
	for _, rec := range body {
		row := make(map[string]string, len(keys))
		for i, k := range keys {
			if k == "" {
				continue
			}
			if i < len(rec) {
				row[k] = rec[i]
			} else {
				row[k] = ""
			}
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
