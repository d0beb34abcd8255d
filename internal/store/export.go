// internal/store/export.go
//
// FormPlant – Storage subsystem: CSV export.
//
// Context
//   Administrators pull a per-form CSV of submissions.  Columns follow the
//   field definition order with human labels; display-only fields carry no
//   data and are skipped.  Cells are guarded against spreadsheet formula
//   injection, and the output starts with a UTF-8 BOM so Excel detects the
//   encoding.
//
//------------------------------------------------------------------------------

package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/yanizio/formplant/internal/form"
)

// utf8BOM makes spreadsheet tools decode the file as UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportCSV writes submissions for fm as CSV.
func ExportCSV(w io.Writer, fm *form.Form, subs []Submission) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("store: csv bom: %w", err)
	}
	cw := csv.NewWriter(w)

	var cols []*form.FieldDef
	header := []string{"ID", "Date"}
	for i := range fm.Fields {
		f := &fm.Fields[i]
		if f.Type.IsDisplayOnly() {
			continue
		}
		cols = append(cols, f)
		label := f.Label
		if label == "" {
			label = f.Name
		}
		header = append(header, guardCell(label))
	}
	header = append(header, "IP Address", "User Agent", "Referrer")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("store: csv header: %w", err)
	}

	for _, sub := range subs {
		row := []string{
			fmt.Sprintf("%d", sub.ID),
			sub.SentTime.Format("2006-01-02 15:04:05"),
		}
		for _, f := range cols {
			row = append(row, guardCell(cellValue(f, sub.Payload.FormData)))
		}
		row = append(row,
			guardCell(sub.Payload.IPAddress),
			guardCell(sub.Payload.UserAgent),
			guardCell(sub.Payload.Referrer))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("store: csv row %d: %w", sub.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// cellValue flattens one stored value for the spreadsheet: arrays join with
// the field delimiter, file descriptors reduce to their filename.
func cellValue(f *form.FieldDef, data form.Values) string {
	switch f.Type {
	case form.TypeCheckbox:
		delim := f.Delimiter
		if delim == "" {
			delim = form.DefaultDelimiter
		}
		return strings.Join(data.List(f.Name), delim)
	case form.TypeFile:
		if fv, ok := data.File(f.Name); ok {
			return fv.Filename
		}
		return ""
	default:
		return data.String(f.Name)
	}
}

// guardCell prefixes cells that a spreadsheet would interpret as a formula.
func guardCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@':
		return "'" + s
	}
	return s
}
