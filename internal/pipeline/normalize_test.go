package pipeline

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iams2rf/internal"
	"iams2rf/internal/catalog"
	"iams2rf/internal/metrics"
	"iams2rf/internal/snapshot"
)

const testAuthorities = `{90,047-000000001,4,<PersonName><Surname>Doe</Surname><FirstName>Jane</FirstName>` +
	`<DateRange>1900-1980</DateRange><NameType>Authorised</NameType></PersonName>` +
	`<ExternalIdentifier><Value>0000000121</Value><Type ID="1">ISNI</Type></ExternalIdentifier>
{91,047-000000002,4,<PersonName><Surname>Smith</Surname><FirstName>-</FirstName>` +
	`<DateRange>1900-1950</DateRange><NameType>Authorised</NameType></PersonName>
{92,048-000000001,4,<Name>Paris</Name><Country>France</Country>
{93,048-000000002,4,<Name>London</Name>
{94,049-000000001,4,<Entry>Botany</Entry><Type>Topical Term</Type>
`

func testNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	idx, err := catalog.BuildIndex(snapshot.StringSource(testAuthorities), zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, 5, idx.Len())
	return NewNormalizer(catalog.Fields(), idx, zerolog.Nop(), metrics.New())
}

func record(id, body string) snapshot.Record {
	return snapshot.Record{
		ID:     id,
		Header: []string{"{1", id, "4", body},
		Text:   "{1," + id + ",4," + body,
	}
}

func nameRef(target, role string) string {
	return `<RelatedArchiveDescriptionNamedAuthority TargetNumber="` + target + `">` +
		`<RelationshipType>` + role + `</RelationshipType></RelatedArchiveDescriptionNamedAuthority>`
}

func TestNormalizeFirstAuthor(t *testing.T) {
	n := testNormalizer(t)
	desc := n.Normalize(record("040-000000001", `<Title>Letters</Title>`+nameRef("047-000000001", "Author")))

	assert.Equal(t, []string{"Doe, Jane"}, desc.Set("AA").Sorted())
	assert.Equal(t, []string{"1900-1980"}, desc.Set("AD").Sorted())
	assert.Equal(t, []string{"person"}, desc.Set("AT").Sorted())
	assert.Equal(t, []string{"author"}, desc.Set("AR").Sorted())
	assert.Equal(t, []string{"http://isni.org/isni/0000000121"}, desc.Set("II").Sorted())
	assert.Empty(t, desc.Set("VF"))
	assert.Equal(t, []string{"Letters"}, desc.Set("TT").Sorted())
	assert.Equal(t, []string{"Published"}, desc.Set("SX").Sorted())
	assert.Equal(t, []string{"040-000000001"}, desc.Set("_ID").Sorted())
	assert.Empty(t, n.Problems)
}

func TestNormalizeFirstAuthorOnlyOnce(t *testing.T) {
	n := testNormalizer(t)
	desc := n.Normalize(record("040-000000002",
		nameRef("047-000000001", "Author")+nameRef("047-000000002", "Creator")+nameRef("047-000000002", "Editor")))

	assert.Equal(t, []string{"Doe, Jane"}, desc.Set("AA").Sorted())
	assert.Equal(t, []string{"author"}, desc.Set("AR").Sorted())
	assert.Equal(t, []string{
		"Doe, Jane, 1900-1980, http://isni.org/isni/0000000121 [author]",
		"Smith, 1900-1950 [creator]",
		"Smith, 1900-1950 [editor]",
	}, desc.Set("AN").Sorted())
	assert.Len(t, desc.Names, 3)
}

func TestNormalizeDirectFieldsAccumulate(t *testing.T) {
	n := testNormalizer(t)
	desc := n.Normalize(record("040-000000003",
		`<Extent>120pp</Extent><PhysicalCharacteristics>illus</PhysicalCharacteristics><DigitalFormatName>TIFF</DigitalFormatName>`))

	assert.Equal(t, []string{"120pp", "Digital file format: TIFF.", "illus"}, desc.Set("DS").Sorted())
}

func TestNormalizeUnresolvedReference(t *testing.T) {
	n := testNormalizer(t)
	desc := n.Normalize(record("040-000000004",
		nameRef("047-000000099", "Author")+`<RelatedArchiveDescriptionSubject TargetNumber="049-000000099">`))

	assert.Empty(t, desc.Set("AN"))
	assert.Empty(t, desc.Set("AA"))
	assert.Empty(t, desc.Set("SU"))
	assert.Empty(t, desc.Names)
	assert.Empty(t, desc.Subjects)
	assert.Equal(t, 2, n.Problems[internal.CodeReference])
}

func TestNormalizeSubjectsAndPlaces(t *testing.T) {
	n := testNormalizer(t)
	desc := n.Normalize(record("040-000000005",
		`<RelatedArchiveDescriptionPlace TargetNumber="048-000000001">`+
			`<RelatedArchiveDescriptionPlace TargetNumber="048-000000001">`+
			`<RelatedArchiveDescriptionPlace TargetNumber="048-000000002">`+
			`<RelatedArchiveDescriptionSubject TargetNumber="049-000000001">`+
			nameRef("047-000000002", "Subject")))

	assert.Equal(t, []string{"Paris, France"}, desc.Set("G1").Sorted())
	assert.Equal(t, []string{"London"}, desc.Set("G2").Sorted())
	assert.Equal(t, []string{"Botany", "London", "Paris, France", "Smith, 1900-1950"}, desc.Set("SU").Sorted())
	assert.Len(t, desc.Subjects, 4)
	assert.Empty(t, desc.Set("AN"))
}

func TestNormalizeLanguages(t *testing.T) {
	n := testNormalizer(t)
	desc := n.Normalize(record("040-000000006",
		`<MaterialLanguage LanguageIsoCode="eng">English</MaterialLanguage>`+
			`<MaterialLanguage LanguageIsoCode="fre">French</MaterialLanguage>`+
			`<MaterialLanguage LanguageIsoCode="und">Unknown</MaterialLanguage>`+
			`<MaterialLanguage LanguageIsoCode="zxx">-</MaterialLanguage>`))

	assert.Equal(t, []string{"English", "French"}, desc.Set("LA").Sorted())
	assert.Equal(t, []string{"eng", "fre"}, desc.Set("S_LANGUAGES").Sorted())
}

func TestNormalizeTitlesAndDates(t *testing.T) {
	n := testNormalizer(t)
	desc := n.Normalize(record("040-000000007",
		`<AdditionalTitle><Title>Old letters</Title><TitleType>Variant</TitleType></AdditionalTitle>`+
			`<Title>Letters</Title><TitleType>Formal</TitleType>`+
			`<StartDate>18500101</StartDate><EndDate>1860-12-31</EndDate>`))

	assert.Equal(t, []string{"Letters"}, desc.Set("TT").Sorted())
	assert.Equal(t, []string{"Old letters"}, desc.Set("TV").Sorted())
	assert.Equal(t, []string{"Letters", "Old letters"}, desc.Titles.Sorted())
	assert.Equal(t, []string{"1850"}, desc.Set("S_DATE1").Sorted())
	assert.Equal(t, []string{"1860"}, desc.Set("S_DATE2").Sorted())
}

func TestNormalizeExternalIdentifiers(t *testing.T) {
	n := testNormalizer(t)
	desc := n.Normalize(record("040-000000008",
		`<ExternalIdentifier><Value>n79021164</Value><Type>LCCN</Type></ExternalIdentifier>`+
			`<ExternalIdentifier><Value>42</Value><Type>VIAF</Type></ExternalIdentifier>`+
			`<ExternalIdentifier><Value>X1</Value><Type>Local</Type></ExternalIdentifier>`))

	assert.Equal(t, []string{"n79021164"}, desc.Set("LC").Sorted())
	assert.Equal(t, []string{"http://viaf.org/viaf/42"}, desc.Set("VF").Sorted())
	assert.Equal(t, []string{"X1 [Local]"}, desc.Set("OI").Sorted())
}

func TestNormalizeShortHeaderIsRecovered(t *testing.T) {
	n := testNormalizer(t)
	rec := record("040-000000009", `<Title>Alone</Title>`)
	rec.Header = rec.Header[:2]

	desc := n.Normalize(rec)
	assert.Empty(t, desc.Set("SX"))
	assert.Equal(t, []string{"Alone"}, desc.Set("TT").Sorted())
	assert.Equal(t, 1, n.Problems[internal.CodeDerivation])
}
