package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"iams2rf/internal"
	"iams2rf/internal/util"
)

var (
	ErrNotAuthority     = errors.New("not an authority record")
	ErrNoAuthorisedName = errors.New("no authorised name block")
)

var (
	reAdditionalTitles = regexp.MustCompile(`<AdditionalTitles>.*?</AdditionalTitles>`)
	reAuthorisedType   = regexp.MustCompile(`<NameType>\s*Authorised\s*</NameType>`)
	reExternalID       = regexp.MustCompile(`<ExternalIdentifier>(.*?)</ExternalIdentifier>`)
	reExternalValue    = regexp.MustCompile(`<Value>(.*?)</Value>`)
	reExternalType     = regexp.MustCompile(`<Type\b[^>]*>(.*?)</Type>`)
	reSubjectType      = regexp.MustCompile(`<Type\s*[^>]*>(.*?)</Type>`)
)

var nullMarkers = map[string]bool{
	"-":              true,
	"not applicable": true,
	"undetermined":   true,
	"unknown":        true,
	"unspecified":    true,
}

const (
	isniPrefix = "http://isni.org/isni/"
	viafPrefix = "http://viaf.org/viaf/"
)

type subField struct {
	key  string
	tag  string
	role internal.PartRole
	re   *regexp.Regexp
}

func sub(key, tag string, role internal.PartRole) subField {
	return subField{key: key, tag: tag, role: role, re: tagPattern(tag)}
}

func tagPattern(tag string) *regexp.Regexp {
	return regexp.MustCompile(`<` + tag + `\s*[^>]*>(.*?)</` + tag + `>`)
}

type authoritySchema struct {
	block  string
	blockR *regexp.Regexp
	fields []subField
	atype  string
}

func nameSchema(block, atype string, fields ...subField) authoritySchema {
	return authoritySchema{
		block:  block,
		blockR: regexp.MustCompile(`<` + block + `>(.*?)</` + block + `>`),
		fields: fields,
		atype:  atype,
	}
}

var schemas = map[internal.RecordType]authoritySchema{
	internal.TypePerson: nameSchema("PersonName", "person",
		sub("surname", "Surname", internal.PartName),
		sub("forename", "FirstName", internal.PartName),
		sub("title", "Title", internal.PartName),
		sub("epithet", "Epithet", internal.PartName),
		sub("dates", "DateRange", internal.PartDates),
	),
	internal.TypeFamily: nameSchema("FamilyName", "family",
		sub("surname", "FamilySurname", internal.PartName),
		sub("epithet", "FamilyEpithet", internal.PartName),
		sub("dates", "DateRange", internal.PartDates),
	),
	internal.TypeCorporation: nameSchema("CorporationName", "corporation",
		sub("name", "CorporateName", internal.PartName),
		sub("qualifiers", "AdditionalQualifiers", internal.PartName),
		sub("jurisdiction", "Jurisdiction", internal.PartName),
		sub("dates", "DateRange", internal.PartDates),
	),
	internal.TypePlace: {
		atype: "place",
		fields: []subField{
			{key: "name", tag: "Name", role: internal.PartName, re: regexp.MustCompile(`<Name>(.*?)</Name>`)},
			sub("local", "LocalAdminUnit", internal.PartName),
			sub("wider", "WiderAdminUnit", internal.PartName),
			sub("country", "Country", internal.PartName),
		},
	},
	internal.TypeSubject: {
		atype: "general term",
		fields: []subField{
			sub("entry", "Entry", internal.PartName),
		},
	},
}

func isNull(v string) bool {
	return nullMarkers[strings.ToLower(strings.TrimSpace(v))]
}

// ParseAuthority reads an authority record from cleaned snapshot text. Name
// sub-fields of people, families and corporations come only from the block
// whose NameType is Authorised. The returned warnings do not prevent the
// authority from being built.
func ParseAuthority(id, text string) (*internal.Authority, []error) {
	kind := internal.RecordTypeOf(id)
	schema, ok := schemas[kind]
	if !ok {
		return nil, []error{fmt.Errorf("%s: %w", id, ErrNotAuthority)}
	}

	var warnings []error
	text = reAdditionalTitles.ReplaceAllString(text, "")
	identifiers := reExternalID.FindAllStringSubmatch(text, -1)
	body := reExternalID.ReplaceAllString(text, "")

	scope := body
	if schema.blockR != nil {
		scope = ""
		for _, m := range schema.blockR.FindAllStringSubmatch(body, -1) {
			if reAuthorisedType.MatchString(m[1]) {
				scope = m[1]
				break
			}
		}
		if scope == "" {
			warnings = append(warnings, fmt.Errorf("%s: %s: %w", id, schema.block, ErrNoAuthorisedName))
		}
	}

	parts := make([]internal.AuthorityPart, 0, len(schema.fields)+2)
	for _, f := range schema.fields {
		m := f.re.FindStringSubmatch(scope)
		if m == nil || isNull(m[1]) {
			continue
		}
		parts = append(parts, internal.AuthorityPart{Key: f.key, Role: f.role, Value: strings.TrimSpace(m[1])})
	}

	isni, viaf := externalAuthorityIDs(identifiers)
	if isni != "" {
		parts = append(parts, internal.AuthorityPart{Key: "isni", Role: internal.PartISNI, Value: ISNIURI(isni)})
	}
	if viaf != "" {
		parts = append(parts, internal.AuthorityPart{Key: "viaf", Role: internal.PartVIAF, Value: VIAFURI(viaf)})
	}

	atype := schema.atype
	if kind == internal.TypeSubject {
		if m := reSubjectType.FindStringSubmatch(body); m != nil && strings.TrimSpace(m[1]) != "" {
			atype = strings.ToLower(strings.TrimSpace(m[1]))
		}
	}

	return internal.NewAuthority(id, kind, atype, parts, util.CleanAuthorities), warnings
}

type ExternalIdentifier struct {
	Value string
	Type  string
}

func ExternalIdentifiers(text string) []ExternalIdentifier {
	return externalIdentifiers(reExternalID.FindAllStringSubmatch(text, -1))
}

func externalIdentifiers(blocks [][]string) []ExternalIdentifier {
	var out []ExternalIdentifier
	for _, b := range blocks {
		v := reExternalValue.FindStringSubmatch(b[1])
		t := reExternalType.FindStringSubmatch(b[1])
		if v == nil || t == nil {
			continue
		}
		out = append(out, ExternalIdentifier{Value: strings.TrimSpace(v[1]), Type: strings.TrimSpace(t[1])})
	}
	return out
}

func ISNIURI(v string) string { return isniPrefix + v }

func VIAFURI(v string) string { return viafPrefix + v }

func externalAuthorityIDs(blocks [][]string) (isni, viaf string) {
	for _, id := range externalIdentifiers(blocks) {
		if id.Value == "" || isNull(id.Value) {
			continue
		}
		switch {
		case isni == "" && strings.Contains(id.Type, "ISNI"):
			isni = id.Value
		case viaf == "" && strings.Contains(id.Type, "VIAF"):
			viaf = id.Value
		}
	}
	return isni, viaf
}
