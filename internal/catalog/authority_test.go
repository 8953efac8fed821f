package catalog

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iams2rf/internal"
	"iams2rf/internal/snapshot"
)

func TestParsePersonUsesAuthorisedBlock(t *testing.T) {
	text := `{9,047-000000001,4,` +
		`<PersonName><Surname>Dough</Surname><NameType>Variant</NameType></PersonName>` +
		`<PersonName><Surname>Doe</Surname><FirstName>Jane</FirstName><Title>unknown</Title>` +
		`<DateRange>1900-1980</DateRange><NameType>Authorised</NameType></PersonName>` +
		`<ExternalIdentifier><Value>0000000121</Value><Type ID='1'>ISNI</Type></ExternalIdentifier>` +
		`<ExternalIdentifier><Value>12345</Value><Type ID='2'>VIAF</Type></ExternalIdentifier>`

	a, warnings := ParseAuthority("047-000000001", text)
	require.Empty(t, warnings)
	require.NotNil(t, a)
	assert.Equal(t, internal.TypePerson, a.Kind)
	assert.Equal(t, "person", a.Type)
	assert.Equal(t, "Doe, Jane", a.Name)
	assert.Equal(t, "1900-1980", a.Dates)
	assert.Equal(t, "http://isni.org/isni/0000000121", a.ISNI)
	assert.Equal(t, "http://viaf.org/viaf/12345", a.VIAF)
	assert.Equal(t, "Doe, Jane, 1900-1980, http://isni.org/isni/0000000121, http://viaf.org/viaf/12345", a.String())
}

func TestParsePersonOmitsEmptyParts(t *testing.T) {
	text := `<PersonName><Surname>Smith</Surname><FirstName>-</FirstName><DateRange>1900-1950</DateRange>` +
		`<NameType>Authorised</NameType></PersonName>`
	a, _ := ParseAuthority("047-000000002", text)
	assert.Equal(t, "Smith, 1900-1950", a.String())
	assert.Equal(t, "Smith", a.Name)
}

func TestParseAuthorityIgnoresAdditionalTitles(t *testing.T) {
	text := `<AdditionalTitles><PersonName><Surname>Wrong</Surname><NameType>Authorised</NameType></PersonName></AdditionalTitles>` +
		`<PersonName><Surname>Right</Surname><NameType>Authorised</NameType></PersonName>`
	a, _ := ParseAuthority("047-000000003", text)
	assert.Equal(t, "Right", a.Name)
}

func TestParseAuthorityNoAuthorisedName(t *testing.T) {
	a, warnings := ParseAuthority("045-000000001", `<CorporationName><CorporateName>X</CorporateName></CorporationName>`)
	require.NotNil(t, a)
	require.Len(t, warnings, 1)
	assert.True(t, errors.Is(warnings[0], ErrNoAuthorisedName))
	assert.Equal(t, "", a.String())
}

func TestParseCorporationFamilyPlaceSubject(t *testing.T) {
	corp, _ := ParseAuthority("045-000000001", `<CorporationName><CorporateName>British Museum</CorporateName>`+
		`<Jurisdiction>London</Jurisdiction><NameType>Authorised</NameType></CorporationName>`)
	assert.Equal(t, "British Museum, London", corp.String())
	assert.Equal(t, "corporation", corp.Type)

	fam, _ := ParseAuthority("046-000000001", `<FamilyName><FamilySurname>Jones</FamilySurname><FamilyEpithet>Family</FamilyEpithet>`+
		`<NameType>Authorised</NameType></FamilyName>`)
	assert.Equal(t, "Jones family", fam.String())

	place, _ := ParseAuthority("048-000000001", `<Name>Paris</Name><Country>France</Country>`)
	assert.Equal(t, "Paris, France", place.String())
	assert.Equal(t, "place", place.Type)

	subj, _ := ParseAuthority("049-000000001", `<Entry>Botany</Entry><Type>Topical Term</Type>`)
	assert.Equal(t, "Botany", subj.String())
	assert.Equal(t, "topical term", subj.Type)

	plain, _ := ParseAuthority("049-000000002", `<Entry>Zoology</Entry>`+
		`<ExternalIdentifier><Value>1</Value><Type ID='1'>Other</Type></ExternalIdentifier>`)
	assert.Equal(t, "general term", plain.Type)
}

func TestParseAuthorityRejectsDescriptive(t *testing.T) {
	a, warnings := ParseAuthority("040-000000001", `<Title>x</Title>`)
	assert.Nil(t, a)
	require.Len(t, warnings, 1)
	assert.True(t, errors.Is(warnings[0], ErrNotAuthority))
}

func TestBuildIndex(t *testing.T) {
	src := snapshot.StringSource(
		"{1,040-000000001,4,<Title>T</Title><RelatedArchiveDescriptionNamedAuthority TargetNumber='047-000000001'>\n" +
			"{2,047-000000001,4,<PersonName><Surname>Doe</Surname><FirstName>Jane</FirstName>\n" +
			"<DateRange>1900-1980</DateRange><NameType>Authorised</NameType></PersonName>\n" +
			"{3,049-000000001,4,<Entry>Botany</Entry>\n" +
			"{4,099-000000001,4,<Entry>Skipped</Entry>\n")

	idx, err := BuildIndex(src, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, 1, idx.CountByKind(internal.TypePerson))

	a, ok := idx.Lookup("047-000000001")
	require.True(t, ok)
	assert.Equal(t, "Doe, Jane, 1900-1980", a.String())

	_, ok = idx.Lookup("040-000000001")
	assert.False(t, ok)
	_, ok = idx.Lookup("099-000000001")
	assert.False(t, ok)
}
