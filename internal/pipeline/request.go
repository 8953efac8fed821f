package pipeline

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"iams2rf/internal/catalog"
	"iams2rf/internal/util"
)

var (
	ErrUnknownParameter   = errors.New("unknown request parameter")
	ErrUnsupportedRequest = errors.New("unsupported request format")
)

var (
	reFieldCodeChars = regexp.MustCompile(`[^a-zA-Z0-9|]`)
	reFileFlagChars  = regexp.MustCompile(`[^rtnscRTNSC|]`)
	reNonASCII       = regexp.MustCompile(`[^\x00-\x7F]|,`)
	reSubfieldCode   = regexp.MustCompile(`\$[a-z0-9]`)
	reParameterKey   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)
)

var underscoreCodes = map[string]string{"ID": "_ID", "IS": "_IS", "8F": "_8F"}

// ParseRequest reads key=value parameter lines. Lines whose key is not a
// bare identifier are prose and skipped. Without an o parameter the default
// columns are used; without v every file is produced.
func ParseRequest(cat *catalog.Catalogue, lines []string) (ExportSpec, error) {
	var (
		spec      ExportSpec
		codes     []string
		sawFields bool
		sawFiles  bool
	)

	for _, raw := range lines {
		line := cleanRequestLine(raw)
		key, values, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		values = strings.TrimSpace(values)
		if !reParameterKey.MatchString(key) || values == "" {
			continue
		}

		switch key {
		case "o":
			sawFields = true
			for _, code := range strings.Split(reFieldCodeChars.ReplaceAllString(values, ""), "|") {
				if mapped, ok := underscoreCodes[code]; ok {
					code = mapped
				}
				codes = append(codes, code)
			}
		case "v":
			if reFileFlagChars.ReplaceAllString(values, "") != values {
				return ExportSpec{}, fmt.Errorf("invalid file flags %q", values)
			}
			files, err := ParseFiles(values)
			if err != nil {
				return ExportSpec{}, err
			}
			sawFiles = true
			spec.Files = files
		case "l1":
			spec.Criteria.Languages = append(spec.Criteria.Languages, searchValues(values)...)
		case "txt":
			spec.Criteria.Terms = append(spec.Criteria.Terms, searchValues(values)...)
		case "d1":
			spec.Criteria.From = util.FirstDigits(values, 4)
		case "d2":
			spec.Criteria.To = util.FirstDigits(values, 4)
		default:
			return ExportSpec{}, fmt.Errorf("%w: %q", ErrUnknownParameter, key)
		}
	}

	if sawFields {
		spec.Fields = cat.Select(codes)
	} else {
		spec.Fields = cat.DefaultSelection()
	}
	if !sawFiles {
		spec.Files, _ = ParseFiles("")
	}
	return spec, spec.Validate()
}

// searchValues splits a pipe list. Non-ASCII characters and commas become
// the single-character LIKE wildcard.
func searchValues(values string) []string {
	values = reSubfieldCode.ReplaceAllString(reNonASCII.ReplaceAllString(values, "_"), " ")
	var out []string
	for _, v := range strings.Split(values, "|") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
