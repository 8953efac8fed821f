package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatBoth = "both"
)

var reEmptyMarker = regexp.MustCompile(`^None$|\[\s*\]`)

type RowWriter interface {
	WriteHeader(labels []string) error
	WriteRow(cells []string) error
	Close() error
}

func CleanCell(s string) string {
	return strings.ReplaceAll(reEmptyMarker.ReplaceAllString(s, ""), ",  [", " [")
}

// csvWriter quotes every cell, which encoding/csv cannot be told to do.
type csvWriter struct {
	f *os.File
	w *bufio.Writer
}

func newCSVWriter(path string) (*csvWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &csvWriter{f: f, w: bufio.NewWriter(f)}, nil
}

func (c *csvWriter) line(cells []string) error {
	quoted := make([]string, len(cells))
	for i, s := range cells {
		quoted[i] = `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	_, err := c.w.WriteString(strings.Join(quoted, ",") + "\n")
	return err
}

func (c *csvWriter) WriteHeader(labels []string) error {
	return c.line(labels)
}

func (c *csvWriter) WriteRow(cells []string) error {
	cleaned := make([]string, len(cells))
	for i, s := range cells {
		cleaned[i] = CleanCell(s)
	}
	return c.line(cleaned)
}

func (c *csvWriter) Close() error {
	if err := c.w.Flush(); err != nil {
		_ = c.f.Close()
		return err
	}
	return c.f.Close()
}

type xlsxWriter struct {
	path string
	f    *excelize.File
	sw   *excelize.StreamWriter
	row  int
}

func newXLSXWriter(path string) (*xlsxWriter, error) {
	f := excelize.NewFile()
	sw, err := f.NewStreamWriter(f.GetSheetName(0))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &xlsxWriter{path: path, f: f, sw: sw}, nil
}

func (x *xlsxWriter) set(cells []string) error {
	x.row++
	cell, err := excelize.CoordinatesToCellName(1, x.row)
	if err != nil {
		return err
	}
	values := make([]any, len(cells))
	for i, s := range cells {
		values[i] = s
	}
	return x.sw.SetRow(cell, values)
}

func (x *xlsxWriter) WriteHeader(labels []string) error {
	return x.set(labels)
}

func (x *xlsxWriter) WriteRow(cells []string) error {
	cleaned := make([]string, len(cells))
	for i, s := range cells {
		cleaned[i] = CleanCell(s)
	}
	return x.set(cleaned)
}

func (x *xlsxWriter) Close() error {
	defer x.f.Close()
	if err := x.sw.Flush(); err != nil {
		return err
	}
	return x.f.SaveAs(x.path)
}

type multiWriter []RowWriter

func (m multiWriter) WriteHeader(labels []string) error {
	for _, w := range m {
		if err := w.WriteHeader(labels); err != nil {
			return err
		}
	}
	return nil
}

func (m multiWriter) WriteRow(cells []string) error {
	for _, w := range m {
		if err := w.WriteRow(cells); err != nil {
			return err
		}
	}
	return nil
}

func (m multiWriter) Close() error {
	var first error
	for _, w := range m {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func OpenWriter(dir string, file OutputFile, format string) (RowWriter, []string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}
	base := filepath.Join(dir, file.FileName())

	var exts []string
	switch strings.ToLower(format) {
	case "", FormatCSV:
		exts = []string{".csv"}
	case FormatXLSX:
		exts = []string{".xlsx"}
	case FormatBoth:
		exts = []string{".csv", ".xlsx"}
	default:
		return nil, nil, fmt.Errorf("unsupported export format %q", format)
	}

	var out multiWriter
	var paths []string
	for _, ext := range exts {
		var (
			w   RowWriter
			err error
		)
		if ext == ".csv" {
			w, err = newCSVWriter(base + ext)
		} else {
			w, err = newXLSXWriter(base + ext)
		}
		if err != nil {
			_ = out.Close()
			return nil, nil, err
		}
		out = append(out, w)
		paths = append(paths, base+ext)
	}
	if len(out) == 1 {
		return out[0], paths, nil
	}
	return out, paths, nil
}
