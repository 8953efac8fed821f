package catalog

import (
	"errors"
	"fmt"
	"strings"

	"iams2rf/internal"
	"iams2rf/internal/util"
)

type RuleKind uint8

const (
	RuleDirect RuleKind = iota
	RuleDerived
	RuleResolved
	RuleUnsourced
)

func (k RuleKind) String() string {
	switch k {
	case RuleDirect:
		return "direct"
	case RuleDerived:
		return "derived"
	case RuleResolved:
		return "resolved"
	default:
		return "unsourced"
	}
}

type Source struct {
	ID     string
	Header []string
	Text   string
}

type DeriveFunc func(Source) Result

type Field struct {
	Code       string
	Label      string
	Kind       RuleKind
	Tags       []string
	Derive     DeriveFunc
	SearchOnly bool
}

type Catalogue struct {
	fields []Field
	byCode map[string]int
}

var ErrShortHeader = errors.New("record header has no status token")

func direct(code, label string, tags ...string) Field {
	return Field{Code: code, Label: label, Kind: RuleDirect, Tags: tags}
}

func derived(code, label string, fn DeriveFunc) Field {
	return Field{Code: code, Label: label, Kind: RuleDerived, Derive: fn}
}

func resolved(code, label string) Field {
	return Field{Code: code, Label: label, Kind: RuleResolved}
}

func unsourced(code, label string) Field {
	return Field{Code: code, Label: label, Kind: RuleUnsourced}
}

func catalogueFields() []Field {
	langs := resolved("S_LANGUAGES", "")
	langs.SearchOnly = true
	date1 := direct("S_DATE1", "", "StartDate")
	date1.SearchOnly = true
	date2 := direct("S_DATE2", "", "EndDate")
	date2.SearchOnly = true

	return []Field{
		langs,
		date1,
		date2,
		derived("_ID", "BL record ID", deriveID),
		derived("RT", "Type of resource", deriveResourceType),
		unsourced("CT", "Content type"),
		unsourced("MT", "Material type"),
		unsourced("BN", "BNB number"),
		resolved("LC", "LC number"),
		unsourced("OC", "OCLC number"),
		unsourced("ES", "ESTC citation number"),
		direct("AK", "Archival Resource Key", "MDARK"),
		unsourced("IB", "ISBN"),
		unsourced("_IS", "ISSN"),
		unsourced("IL", "ISSN-L"),
		unsourced("IM", "International Standard Music Number (ISMN)"),
		unsourced("IR", "International Standard Recording Code (ISRC)"),
		unsourced("IA", "International Article Number (EAN)"),
		unsourced("PN", "Publisher number"),
		resolved("OI", "Other identifier"),
		resolved("AA", "Name"),
		resolved("AD", "Dates associated with name"),
		resolved("AT", "Type of name"),
		resolved("AR", "Role"),
		resolved("II", "ISNI"),
		resolved("VF", "VIAF"),
		resolved("AN", "All names"),
		direct("TT", "Title", "Title"),
		unsourced("TU", "Uniform title"),
		unsourced("TK", "Key title"),
		resolved("TV", "Variant titles"),
		unsourced("S1", "Preceding titles"),
		unsourced("S2", "Succeeding titles"),
		unsourced("SE", "Series title"),
		unsourced("SN", "Number within series"),
		unsourced("PC", "Country of publication"),
		direct("PP", "Place of creation/publication", "PlaceOfOrigin"),
		unsourced("PB", "Publisher"),
		direct("PD", "Date of creation/publication", "DateRange"),
		direct("PU", "Date of creation/publication (not standardised)", "DateRange"),
		unsourced("PJ", "Projected date of publication"),
		direct("PG", "Publication date range", "DateRange"),
		unsourced("P1", "Publication date one"),
		unsourced("P2", "Publication date two"),
		unsourced("FA", "Free text information about dates of publication"),
		unsourced("HF", "First date held"),
		unsourced("HL", "Last date held"),
		unsourced("HA", "Free text information about holdings"),
		unsourced("FC", "Current publication frequency"),
		unsourced("FF", "Former publication frequency"),
		unsourced("ED", "Edition"),
		direct("DS", "Physical description", "Extent", "PhysicalCharacteristics"),
		direct("SC", "Scale", "Scale", "ScaleDesignator"),
		direct("JK", "Projection", "Projection"),
		direct("CD", "Coordinates", "DecimalCoordinates", "DegreeCoordinates"),
		unsourced("MF", "Musical form"),
		unsourced("MG", "Musical format"),
		unsourced("PR", "Price"),
		unsourced("DW", "Dewey classification"),
		unsourced("LN", "Library of Congress classification"),
		derived("SM", "BL shelfmark", deriveShelfmark),
		unsourced("SD", "DSC shelfmark"),
		unsourced("SO", "Other shelfmark"),
		unsourced("BU", "Burney?"),
		unsourced("IO", "India Office?"),
		unsourced("CL", "Formerly held at Colindale?"),
		resolved("SU", "Topics"),
		resolved("G1", "First geographical subject heading"),
		resolved("G2", "Subsequent geographical subject headings"),
		unsourced("CG", "General area of coverage"),
		unsourced("CC", "Coverage: Country"),
		unsourced("CF", "Coverage: Region"),
		unsourced("CY", "Coverage: City"),
		unsourced("GE", "Genre"),
		unsourced("TA", "Target audience"),
		unsourced("LF", "Literary form"),
		resolved("LA", "Languages"),
		unsourced("CO", "Contents"),
		unsourced("AB", "Abstract"),
		direct("NN", "Notes", "ScopeContent"),
		direct("CA", "Additional notes for cartographic materials", "DecimalLatitude", "DecimalLongitude", "Latitude", "Longitude", "Orientation"),
		unsourced("MA", "Additional notes for music"),
		direct("PV", "Provenance", "ImmSourceAcquisition", "CustodialHistory", "AdministrativeContext"),
		direct("RF", "Referenced in", "PublicationNote"),
		unsourced("NL", "Link to digitised resource"),
		unsourced("_8F", "852 holdings flag"),
		unsourced("ND", "NID"),
		unsourced("EL", "Encoding level"),
		derived("SX", "Status", deriveStatus),
	}
}

func NewCatalogue() *Catalogue {
	fields := catalogueFields()
	c := &Catalogue{fields: fields, byCode: make(map[string]int, len(fields))}
	for i, f := range fields {
		if _, dup := c.byCode[f.Code]; dup {
			panic(fmt.Sprintf("catalog: duplicate field code %q", f.Code))
		}
		c.byCode[f.Code] = i
	}
	return c
}

var defaultCatalogue = NewCatalogue()

// Fields returns the shared catalogue. Callers must not modify it.
func Fields() *Catalogue {
	return defaultCatalogue
}

func (c *Catalogue) All() []Field {
	return c.fields
}

func (c *Catalogue) Codes() []string {
	out := make([]string, len(c.fields))
	for i, f := range c.fields {
		out[i] = f.Code
	}
	return out
}

func (c *Catalogue) Lookup(code string) (Field, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return Field{}, false
	}
	return c.fields[i], true
}

func (c *Catalogue) Label(code string) string {
	f, _ := c.Lookup(code)
	return f.Label
}

func (c *Catalogue) IsDirect(code string) bool {
	f, ok := c.Lookup(code)
	return ok && f.Kind == RuleDirect
}

func (c *Catalogue) DirectTags(code string) []string {
	f, ok := c.Lookup(code)
	if !ok || f.Kind != RuleDirect {
		return nil
	}
	return f.Tags
}

func (c *Catalogue) Select(codes []string) []string {
	want := make(map[string]bool, len(codes))
	for _, code := range codes {
		want[code] = true
	}
	out := make([]string, 0, len(want))
	for _, f := range c.fields {
		if want[f.Code] && !f.SearchOnly {
			out = append(out, f.Code)
		}
	}
	return out
}

func Without(codes []string, exclude ...string) []string {
	drop := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		drop[e] = true
	}
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		if !drop[code] {
			out = append(out, code)
		}
	}
	return out
}

var defaultSelection = []string{
	"_ID", "RT", "BN", "IB", "AA", "AD", "AT", "AR", "AN", "TT", "TV", "SE", "SN", "PC",
	"PP", "PB", "PD", "ED", "DS", "DW", "SM", "SU", "GE", "LA", "NN", "AK", "PV", "RF",
}

var contextualCodes = []string{
	"ES", "_8F", "BU", "CG", "CL", "EL", "FA", "G1", "G2", "HA", "HF", "HL",
	"IO", "ND", "NL", "P1", "P2", "PJ", "SD", "SO", "SX",
}

func (c *Catalogue) DefaultSelection() []string {
	return c.Select(defaultSelection)
}

func (c *Catalogue) AllSelection() []string {
	return c.Select(Without(c.Codes(), contextualCodes...))
}

func (c *Catalogue) Preset(name string) ([]string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return c.DefaultSelection(), nil
	case "all":
		return c.AllSelection(), nil
	default:
		return nil, fmt.Errorf("unknown column preset %q", name)
	}
}

func deriveID(src Source) Result {
	return Value(src.ID)
}

func deriveResourceType(src Source) Result {
	rt := internal.RecordTypeOf(src.ID)
	if rt == internal.TypeNone {
		return Empty()
	}
	mt := ExtractTag(src.Text, "MaterialType")
	if !mt.OK() {
		return Empty()
	}
	return Value(util.QuickClean(string(rt) + ". " + mt.Value))
}

func deriveShelfmark(src Source) Result {
	ref := ExtractTag(src.Text, "Reference").Map(util.QuickClean)
	area := ExtractTag(src.Text, "CollectionArea").Map(util.QuickClean)
	return Value(util.QuickClean(area.Value + ". " + ref.Value))
}

func deriveStatus(src Source) Result {
	if len(src.Header) < 3 {
		return Failed(ErrShortHeader)
	}
	label, ok := internal.StatusLabel(src.Header[2])
	if !ok {
		return Empty()
	}
	return Value(label)
}
