package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"iams2rf/internal/catalog"
)

func RequestLines(path string) ([]string, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".msg":
		return splitLines(strings.ToValidUTF8(string(blob), "\uFFFD")), nil
	case ".eml":
		doc, err := ExtractRequestFromEmailRaw(blob)
		if err != nil {
			return nil, err
		}
		return doc.Lines, nil
	case ".html", ".htm":
		return htmlLines(string(blob)), nil
	case ".pdf":
		return pdfLines(blob)
	case ".xlsx":
		return xlsxLines(blob)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRequest, filepath.Base(path))
	}
}

func LoadRequest(cat *catalog.Catalogue, path string) (ExportSpec, error) {
	lines, err := RequestLines(path)
	if err != nil {
		return ExportSpec{}, fmt.Errorf("read request %s: %w", path, err)
	}
	block := DetectCodedParameters(lines)
	spec, err := ParseRequest(cat, block.Lines)
	if err != nil {
		return ExportSpec{}, fmt.Errorf("parse request %s: %w", path, err)
	}
	return spec, nil
}

var ErrBadExtension = errors.New("unexpected file extension")

func CheckExtension(path, ext string) error {
	if !strings.EqualFold(filepath.Ext(path), ext) {
		return fmt.Errorf("%w: %s is not a %s file", ErrBadExtension, filepath.Base(path), ext)
	}
	return nil
}

type ExportFlags struct {
	Preset    string
	Fields    string
	Files     string
	Languages string
	Terms     string
	From      string
	To        string
}

func (f ExportFlags) Spec(cat *catalog.Catalogue) (ExportSpec, error) {
	var lines []string
	for _, kv := range [][2]string{
		{"o", f.Fields}, {"v", f.Files}, {"l1", f.Languages},
		{"txt", f.Terms}, {"d1", f.From}, {"d2", f.To},
	} {
		if strings.TrimSpace(kv[1]) != "" {
			lines = append(lines, kv[0]+"="+kv[1])
		}
	}
	spec, err := ParseRequest(cat, lines)
	if err != nil {
		return ExportSpec{}, err
	}
	if strings.TrimSpace(f.Fields) == "" {
		if spec.Fields, err = cat.Preset(f.Preset); err != nil {
			return ExportSpec{}, err
		}
	}
	return spec, spec.Validate()
}
