package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"iams2rf/internal"
	"iams2rf/internal/catalog"
	"iams2rf/internal/metrics"
	"iams2rf/internal/snapshot"
	"iams2rf/internal/util"
)

var (
	reAdditionalTitleName = regexp.MustCompile(`<AdditionalTitle>([^<>]*?)<Title>([^<>]*?)</Title>`)
	reAdditionalTitleType = regexp.MustCompile(`<TitleType>([^<>]*?)</TitleType>([^<>]*?)</AdditionalTitle>`)

	reVariantTitle = regexp.MustCompile(`<AdditionalTitle>[^<>]*?<A?Title>(.*?)</A?Title>.*?</AdditionalTitle>`)
	reTitle        = regexp.MustCompile(`<Title\s*[^>]*>(.*?)</Title>`)
	reLanguage     = regexp.MustCompile(`<MaterialLanguage\s+[^>]*>(.*?)</MaterialLanguage>`)
	reLanguageCode = regexp.MustCompile(`<MaterialLanguage [^>]*?LanguageIsoCode=['"]([a-z]+)['"]>`)

	reSubjectRef = regexp.MustCompile(`<RelatedArchiveDescription(?:Place|Subject) TargetNumber=['"]([0-9]{3}-[0-9]{9})['"]>`)
	reNameRef    = regexp.MustCompile(`<RelatedArchiveDescriptionNamedAuthority TargetNumber=['"]([0-9]{3}-[0-9]{9})['"]>\s*<RelationshipType>(.*?)</RelationshipType>`)
)

var languageNulls = map[string]bool{
	"-":                  true,
	"multiple languages": true,
	"not applicable":     true,
	"undetermined":       true,
	"unknown":            true,
	"unspecified":        true,
}

var languageCodeNulls = map[string]bool{"mul": true, "und": true, "zxx": true}

type Normalizer struct {
	cat     *catalog.Catalogue
	idx     *catalog.Index
	codes   []string
	log     zerolog.Logger
	metrics *metrics.Metrics

	Problems map[internal.ErrorCode]int
}

func NewNormalizer(cat *catalog.Catalogue, idx *catalog.Index, log zerolog.Logger, m *metrics.Metrics) *Normalizer {
	if idx == nil {
		idx = catalog.NewIndex()
	}
	return &Normalizer{
		cat:      cat,
		idx:      idx,
		codes:    cat.Codes(),
		log:      log,
		metrics:  m,
		Problems: map[internal.ErrorCode]int{},
	}
}

func (n *Normalizer) problem(code internal.ErrorCode) {
	n.Problems[code]++
	if n.metrics != nil {
		n.metrics.ErrorsTotal.WithLabelValues(string(code)).Inc()
	}
}

// Normalize never fails as a whole: a field that cannot be read is logged
// and left empty.
func (n *Normalizer) Normalize(rec snapshot.Record) *internal.Description {
	text := renameTitleElements(util.Clean(rec.Text))
	desc := internal.NewDescription(rec.ID, n.codes)
	src := catalog.Source{ID: rec.ID, Header: rec.Header, Text: text}

	for _, f := range n.cat.All() {
		switch f.Kind {
		case catalog.RuleDirect:
			for _, tag := range f.Tags {
				r := catalog.ExtractTag(text, tag).Map(util.QuickClean)
				if r.OK() {
					desc.Set(f.Code).Add(r.Value)
				}
			}
		case catalog.RuleDerived:
			r := f.Derive(src)
			if r.Failed() {
				n.problem(internal.CodeDerivation)
				n.log.Warn().
					Str("code", string(internal.CodeDerivation)).
					Str("record", rec.ID).
					Str("field", f.Code).
					Err(r.Err).
					Msg("derivation failed")
				continue
			}
			if r.OK() {
				desc.Set(f.Code).Add(r.Value)
			}
		}
	}

	for _, code := range []string{"S_DATE1", "S_DATE2"} {
		years := internal.ValueSet{}
		for v := range desc.Set(code) {
			years.Add(util.FirstDigits(v, 4))
		}
		desc.Values[code] = years
	}

	n.externalIdentifiers(desc, text)
	n.digitalFormat(desc, text)
	n.titles(desc, text)
	n.languages(desc, text)
	n.subjects(desc, text)
	n.names(desc, text)
	return desc
}

func renameTitleElements(text string) string {
	text = reAdditionalTitleName.ReplaceAllString(text, "<AdditionalTitle>${1}<ATitle>${2}</ATitle>")
	text = reAdditionalTitleType.ReplaceAllString(text, "<ATTitleType>${1}</ATTitleType>${2}</AdditionalTitle>")
	text = strings.ReplaceAll(text, "<TitleType", "<TTitleType")
	return strings.ReplaceAll(text, "</TitleType", "</TTitleType")
}

func (n *Normalizer) externalIdentifiers(desc *internal.Description, text string) {
	for _, id := range catalog.ExternalIdentifiers(text) {
		if id.Value == "" {
			continue
		}
		switch {
		case strings.Contains(id.Type, "VIAF"):
			desc.Set("VF").Add(catalog.VIAFURI(id.Value))
		case strings.Contains(id.Type, "ISNI"):
			desc.Set("II").Add(catalog.ISNIURI(id.Value))
		case strings.Contains(id.Type, "LCCN"):
			desc.Set("LC").Add(id.Value)
		case id.Type != "":
			desc.Set("OI").Add(fmt.Sprintf("%s [%s]", id.Value, id.Type))
		default:
			desc.Set("OI").Add(id.Value)
		}
	}
}

func (n *Normalizer) digitalFormat(desc *internal.Description, text string) {
	r := catalog.ExtractTag(text, "DigitalFormatName").Map(util.QuickClean)
	if r.OK() {
		desc.Set("DS").Add("Digital file format: " + r.Value + ".")
	}
}

func (n *Normalizer) titles(desc *internal.Description, text string) {
	for _, m := range reVariantTitle.FindAllStringSubmatch(text, -1) {
		v := util.QuickClean(m[1])
		desc.Set("TV").Add(v)
		desc.Titles.Add(v)
	}
	for _, m := range reTitle.FindAllStringSubmatch(text, -1) {
		desc.Titles.Add(util.QuickClean(m[1]))
	}
}

func (n *Normalizer) languages(desc *internal.Description, text string) {
	for _, m := range reLanguage.FindAllStringSubmatch(text, -1) {
		v := util.QuickClean(m[1])
		if languageNulls[strings.ToLower(v)] {
			continue
		}
		desc.Set("LA").Add(v)
	}
	for _, m := range reLanguageCode.FindAllStringSubmatch(text, -1) {
		v := m[1]
		if languageCodeNulls[v] {
			continue
		}
		desc.Set("S_LANGUAGES").Add(v)
	}
}

func (n *Normalizer) resolve(desc *internal.Description, id string) (*internal.Authority, bool) {
	a, ok := n.idx.Lookup(id)
	if !ok {
		n.problem(internal.CodeReference)
		n.log.Debug().
			Str("code", string(internal.CodeReference)).
			Str("record", desc.ID).
			Str("target", id).
			Msg("unresolved authority reference")
		return nil, false
	}
	return a, a.String() != ""
}

func (n *Normalizer) addSubject(desc *internal.Description, a *internal.Authority) {
	desc.AddSubject(a)
	desc.Set("SU").Add(a.String())
	if a.Kind != internal.TypePlace {
		return
	}
	g1, g2 := desc.Set("G1"), desc.Set("G2")
	switch {
	case len(g1) == 0:
		g1.Add(a.String())
	case len(g2) == 0 && !g1.Has(a.String()):
		g2.Add(a.String())
	}
}

func (n *Normalizer) subjects(desc *internal.Description, text string) {
	for _, m := range reSubjectRef.FindAllStringSubmatch(text, -1) {
		if a, ok := n.resolve(desc, m[1]); ok {
			n.addSubject(desc, a)
		}
	}
}

func (n *Normalizer) names(desc *internal.Description, text string) {
	authorSet := false
	for _, m := range reNameRef.FindAllStringSubmatch(text, -1) {
		role := strings.ToLower(util.QuickClean(m[2]))
		a, ok := n.resolve(desc, m[1])
		if !ok {
			continue
		}
		if role == "subject" {
			n.addSubject(desc, a)
			continue
		}
		if role == "" {
			continue
		}
		desc.AddName(a, role)
		desc.Set("AN").Add(fmt.Sprintf("%s [%s]", a.String(), role))

		if authorSet || a.Name == "" || (role != "author" && role != "creator") {
			continue
		}
		authorSet = true
		desc.Set("AA").Add(a.Name)
		desc.Set("AD").Add(a.Dates)
		desc.Set("AT").Add(a.Type)
		desc.Set("AR").Add(role)
		desc.Set("II").Add(a.ISNI)
		desc.Set("VF").Add(a.VIAF)
	}
}
