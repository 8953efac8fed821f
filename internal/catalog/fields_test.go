package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogueCodesUniqueAndOrdered(t *testing.T) {
	c := Fields()
	codes := c.Codes()
	require.Len(t, codes, 89)
	assert.Equal(t, "S_LANGUAGES", codes[0])
	assert.Equal(t, "_ID", codes[3])
	assert.Equal(t, "SX", codes[len(codes)-1])

	seen := map[string]bool{}
	for _, code := range codes {
		assert.False(t, seen[code], "duplicate %s", code)
		seen[code] = true
	}
}

func TestCatalogueRules(t *testing.T) {
	c := Fields()
	assert.True(t, c.IsDirect("DS"))
	assert.Equal(t, []string{"Extent", "PhysicalCharacteristics"}, c.DirectTags("DS"))
	assert.Equal(t, []string{"ImmSourceAcquisition", "CustodialHistory", "AdministrativeContext"}, c.DirectTags("PV"))
	assert.False(t, c.IsDirect("SM"))
	assert.Nil(t, c.DirectTags("SM"))
	assert.False(t, c.IsDirect("nope"))

	f, ok := c.Lookup("SM")
	require.True(t, ok)
	assert.Equal(t, RuleDerived, f.Kind)
	assert.NotNil(t, f.Derive)
	assert.Equal(t, "BL shelfmark", c.Label("SM"))

	f, _ = c.Lookup("AN")
	assert.Equal(t, RuleResolved, f.Kind)
	f, _ = c.Lookup("BN")
	assert.Equal(t, RuleUnsourced, f.Kind)
}

func TestSelectKeepsCatalogueOrder(t *testing.T) {
	c := Fields()
	got := c.Select([]string{"TT", "_ID", "XX", "TT", "S_LANGUAGES", "AA"})
	assert.Equal(t, []string{"_ID", "AA", "TT"}, got)
}

func TestPresets(t *testing.T) {
	c := Fields()
	def := c.DefaultSelection()
	assert.Len(t, def, 28)
	assert.Equal(t, "_ID", def[0])
	assert.Equal(t, "RF", def[len(def)-1])

	all := c.AllSelection()
	assert.NotContains(t, all, "SX")
	assert.NotContains(t, all, "G1")
	assert.NotContains(t, all, "S_DATE1")
	assert.Contains(t, all, "CA")
	assert.Len(t, all, 89-3-21)

	p, err := c.Preset("ALL")
	require.NoError(t, err)
	assert.Equal(t, all, p)
	_, err = c.Preset("some")
	assert.Error(t, err)
}

func TestExtractTag(t *testing.T) {
	text := `<Title lang="en">The title</Title><Extent>120pp</Extent><Open>x`
	assert.Equal(t, Value("The title"), ExtractTag(text, "Title"))
	assert.Equal(t, "120pp", ExtractTag(text, "Extent").Value)
	assert.Equal(t, OutcomeEmpty, ExtractTag(text, "Missing").Outcome)
	assert.Equal(t, OutcomeEmpty, ExtractTag(text, "Open").Outcome)
	assert.Equal(t, OutcomeEmpty, ExtractTag("<Empty></Empty>", "Empty").Outcome)
}

func TestDerivations(t *testing.T) {
	src := Source{
		ID:     "040-000000001",
		Header: []string{"{1", "040-000000001", "4"},
		Text:   `<MaterialType>Manuscript</MaterialType><Reference>Add MS 1</Reference><CollectionArea>Western Manuscripts</CollectionArea>`,
	}
	assert.Equal(t, "File. Manuscript", deriveResourceType(src).Value)
	assert.Equal(t, "Western Manuscripts. Add MS 1", deriveShelfmark(src).Value)
	assert.Equal(t, "Published", deriveStatus(src).Value)
	assert.Equal(t, "040-000000001", deriveID(src).Value)

	bare := Source{ID: "040-000000001", Header: []string{"{1", "040-000000001", "2"}, Text: `<Reference>Add MS 1</Reference>`}
	assert.False(t, deriveResourceType(bare).OK())
	assert.Equal(t, "Add MS 1", deriveShelfmark(bare).Value)
	assert.Equal(t, OutcomeEmpty, deriveStatus(bare).Outcome)

	short := deriveStatus(Source{Header: []string{"{1"}})
	assert.True(t, short.Failed())
	assert.True(t, errors.Is(short.Err, ErrShortHeader))
}
