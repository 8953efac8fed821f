package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iams2rf/internal/catalog"
)

func TestParseRequest(t *testing.T) {
	lines := []string{
		"o=AA|TT|ID|XX",
		"v=rn",
		"l1=eng|fre",
		"txt=botany|Café",
		"d1=c. 1900",
		"d2=1950-01-01",
	}
	spec, err := ParseRequest(catalog.Fields(), lines)
	require.NoError(t, err)

	assert.Equal(t, []string{"_ID", "AA", "TT"}, spec.Fields)
	assert.Equal(t, []OutputFile{FileRecords, FileNames}, spec.Files)
	assert.Equal(t, []string{"eng", "fre"}, spec.Criteria.Languages)
	assert.Equal(t, []string{"botany", "Caf_"}, spec.Criteria.Terms)
	assert.Equal(t, "1900", spec.Criteria.From)
	assert.Equal(t, "1950", spec.Criteria.To)
}

func TestParseRequestDefaults(t *testing.T) {
	spec, err := ParseRequest(catalog.Fields(), []string{"Dear team,", "please see below: thanks = yes please"})
	require.NoError(t, err)
	assert.Equal(t, catalog.Fields().DefaultSelection(), spec.Fields)
	assert.Equal(t, []OutputFile{FileRecords, FileTitles, FileNames, FileTopics}, spec.Files)
	assert.True(t, spec.Criteria.IsZero())
}

func TestParseRequestUnknownParameter(t *testing.T) {
	_, err := ParseRequest(catalog.Fields(), []string{"l1=eng", "l2=fre"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownParameter))
}

func TestParseRequestBadFileFlags(t *testing.T) {
	_, err := ParseRequest(catalog.Fields(), []string{"v=rx"})
	assert.Error(t, err)
}

func TestParseRequestNoKnownFields(t *testing.T) {
	_, err := ParseRequest(catalog.Fields(), []string{"o=ZZ"})
	assert.Error(t, err)
}

func TestSearchValues(t *testing.T) {
	assert.Equal(t, []string{"a", "b c", "x_y"}, searchValues(" a | b$dc |x,y| "))
}

func TestDetectCodedParameters(t *testing.T) {
	lines := []string{
		"Hello,",
		"Coded parameters for your transformation",
		"v=r",
		"l1=eng",
		"End of coded parameters",
		"Regards, a = b",
	}
	res := DetectCodedParameters(lines)
	assert.True(t, res.Found)
	assert.Equal(t, "markers", res.Reason)
	assert.Equal(t, []string{"v=r", "l1=eng"}, res.Lines)

	res = DetectCodedParameters(lines[:4])
	assert.True(t, res.Found)
	assert.Equal(t, "unterminated", res.Reason)
	assert.Equal(t, []string{"v=r", "l1=eng"}, res.Lines)

	res = DetectCodedParameters([]string{"v=r"})
	assert.False(t, res.Found)
	assert.Equal(t, "no_markers", res.Reason)
	assert.Equal(t, []string{"v=r"}, res.Lines)
}

func TestLoadRequestText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "request.txt")
	body := "Coded parameters for your transformation\r\no=TT\r\nv=t\r\nd1=1800\r\nEnd of coded parameters\r\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	spec, err := LoadRequest(catalog.Fields(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"TT"}, spec.Fields)
	assert.Equal(t, []OutputFile{FileTitles}, spec.Files)
	assert.Equal(t, "1800", spec.Criteria.From)
}

func TestLoadRequestUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "request.doc")
	require.NoError(t, os.WriteFile(path, []byte("o=TT"), 0o644))

	_, err := LoadRequest(catalog.Fields(), path)
	assert.True(t, errors.Is(err, ErrUnsupportedRequest))
}

func TestCheckExtension(t *testing.T) {
	assert.NoError(t, CheckExtension("/data/IAMS.CSV", ".csv"))
	assert.True(t, errors.Is(CheckExtension("/data/IAMS.txt", ".csv"), ErrBadExtension))
}

func TestExportFlagsSpec(t *testing.T) {
	spec, err := ExportFlags{Preset: "all", Languages: "eng", From: "1900"}.Spec(catalog.Fields())
	require.NoError(t, err)
	assert.Equal(t, catalog.Fields().AllSelection(), spec.Fields)
	assert.Equal(t, []string{"eng"}, spec.Criteria.Languages)

	spec, err = ExportFlags{Preset: "all", Fields: "AA|TT", Files: "r"}.Spec(catalog.Fields())
	require.NoError(t, err)
	assert.Equal(t, []string{"AA", "TT"}, spec.Fields)
	assert.Equal(t, []OutputFile{FileRecords}, spec.Files)

	_, err = ExportFlags{Preset: "bogus"}.Spec(catalog.Fields())
	assert.Error(t, err)
}
