package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iams2rf/internal/catalog"
)

func TestBuildPredicateLanguages(t *testing.T) {
	p := BuildPredicate(Criteria{Languages: []string{"fre", "eng", "eng"}})
	assert.Equal(t, `( S_LANGUAGES LIKE "%eng%" OR S_LANGUAGES LIKE "%fre%" )`, p.String())

	where, args := p.SQL()
	assert.Equal(t, `( S_LANGUAGES LIKE ? OR S_LANGUAGES LIKE ? )`, where)
	assert.Equal(t, []any{"%eng%", "%fre%"}, args)
}

func TestBuildPredicateDates(t *testing.T) {
	p := BuildPredicate(Criteria{Languages: []string{"eng"}, From: "1900"})
	assert.Equal(t, `( S_LANGUAGES LIKE "%eng%" ) AND S_DATE2 >= 1900`, p.String())

	p = BuildPredicate(Criteria{From: "1900", To: "1950"})
	where, args := p.SQL()
	assert.Equal(t, `S_DATE2 >= ? AND S_DATE1 <= ?`, where)
	assert.Equal(t, []any{1900, 1950}, args)
}

func TestBuildPredicateTermsSearchEveryTextField(t *testing.T) {
	p := BuildPredicate(Criteria{Terms: []string{"botany"}})
	where, args := p.SQL()
	assert.Len(t, args, len(textFields))
	for _, f := range textFields {
		assert.Contains(t, where, f+" LIKE ?")
	}
	assert.Contains(t, p.String(), `SU LIKE "%botany%"`)
}

func TestBuildPredicateEmpty(t *testing.T) {
	p := BuildPredicate(Criteria{From: "19x"})
	assert.True(t, p.Empty())
	assert.True(t, Criteria{}.IsZero())
}

func TestParseFiles(t *testing.T) {
	cases := []struct {
		in   string
		want []OutputFile
	}{
		{"", []OutputFile{FileRecords, FileTitles, FileNames, FileTopics}},
		{"sn", []OutputFile{FileNames, FileTopics}},
		{"r|c", []OutputFile{FileRecords}},
		{"TT", []OutputFile{FileTitles}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseFiles(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ParseFiles("rx")
	assert.Error(t, err)
}

func TestBuildProjections(t *testing.T) {
	cat := catalog.Fields()
	spec := ExportSpec{
		Fields: []string{"TT", "AA", "SU", "S_DATE1"},
		Files:  []OutputFile{FileRecords, FileTitles, FileNames, FileTopics},
	}
	ps := BuildProjections(cat, spec)
	require.Len(t, ps, 4)

	records := ps[0]
	assert.Equal(t, FileRecords, records.File)
	assert.Equal(t, []string{"Name", "Title", "Topics"}, records.Header)
	assert.Contains(t, records.Query, "SELECT records.AA, records.TT, records.SU FROM records")
	assert.Contains(t, records.Query, "records.RecordId IN (SELECT RecordId FROM selected_ids)")

	titles := ps[1]
	assert.Equal(t, []string{"Title", "Other titles", "Name", "Topics"}, titles.Header)
	assert.NotContains(t, titles.Query, "records.TT")
	assert.Contains(t, titles.Query, "GROUP_CONCAT(t2.Title, ' ; ' ORDER BY t2.Title ASC)")

	names := ps[2]
	assert.Equal(t, []string{"Name", "Dates associated with name", "Type of name", "Role", "ISNI", "VIAF", "Other names", "Title", "Topics"}, names.Header)
	assert.NotContains(t, names.Query, "records.AA")

	topics := ps[3]
	assert.Equal(t, []string{"Topic", "Type of topic", "Other topics", "Name", "Title"}, topics.Header)
	assert.NotContains(t, topics.Query, "records.SU")
}

func TestExportSpecValidate(t *testing.T) {
	assert.Error(t, ExportSpec{Files: []OutputFile{FileRecords}}.Validate())
	assert.Error(t, ExportSpec{Fields: []string{"TT"}}.Validate())
	assert.NoError(t, ExportSpec{Fields: []string{"TT"}, Files: []OutputFile{FileRecords}}.Validate())
}
