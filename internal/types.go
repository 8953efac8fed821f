package internal

import (
	"regexp"
	"sort"
	"strings"
)

type RecordType string

const (
	TypeNone            RecordType = ""
	TypeFonds           RecordType = "Fonds"
	TypeSubFonds        RecordType = "SubFonds"
	TypeSubSubFonds     RecordType = "SubSubFonds"
	TypeSubSubSubFonds  RecordType = "SubSubSubFonds"
	TypeSeries          RecordType = "Series"
	TypeSubSeries       RecordType = "SubSeries"
	TypeSubSubSeries    RecordType = "SubSubSeries"
	TypeSubSubSubSeries RecordType = "SubSubSubSeries"
	TypeFile            RecordType = "File"
	TypeItem            RecordType = "Item"
	TypeSubItem         RecordType = "SubItem"
	TypeSubSubItem      RecordType = "SubSubItem"
	TypeSubSubSubItem   RecordType = "SubSubSubItem"
	TypeCorporation     RecordType = "Corporation"
	TypeFamily          RecordType = "Family"
	TypePerson          RecordType = "Person"
	TypePlace           RecordType = "Place"
	TypeSubject         RecordType = "Subject"
)

var recordTypes = map[string]RecordType{
	"032": TypeFonds,
	"033": TypeSubFonds,
	"034": TypeSubSubFonds,
	"035": TypeSubSubSubFonds,
	"036": TypeSeries,
	"037": TypeSubSeries,
	"038": TypeSubSubSeries,
	"039": TypeSubSubSubSeries,
	"040": TypeFile,
	"041": TypeItem,
	"042": TypeSubItem,
	"043": TypeSubSubItem,
	"044": TypeSubSubSubItem,
	"045": TypeCorporation,
	"046": TypeFamily,
	"047": TypePerson,
	"048": TypePlace,
	"049": TypeSubject,
}

var reRecordID = regexp.MustCompile(`^0[34][0-9]-[0-9]{9}$`)

func IsRecordID(id string) bool {
	if !reRecordID.MatchString(id) {
		return false
	}
	_, ok := recordTypes[id[:3]]
	return ok
}

func RecordTypeOf(id string) RecordType {
	if !IsRecordID(id) {
		return TypeNone
	}
	return recordTypes[id[:3]]
}

func (t RecordType) IsAuthority() bool {
	switch t {
	case TypeCorporation, TypeFamily, TypePerson, TypePlace, TypeSubject:
		return true
	default:
		return false
	}
}

var recordStatuses = map[string]string{
	"1": "Draft",
	"3": "Pending Deletion",
	"4": "Published",
	"5": "Deleted",
	"6": "Loaded",
	"7": "Approved",
	"8": "Ready for Review",
	"9": "Rejected",
}

func StatusLabel(code string) (string, bool) {
	label, ok := recordStatuses[strings.TrimSpace(code)]
	return label, ok
}

type ErrorCode string

const (
	CodeAuthorityField ErrorCode = "c001"
	CodeDerivation     ErrorCode = "cad001"
	CodeReference      ErrorCode = "cad002"
	CodeInsertRecord   ErrorCode = "at002"
	CodeInsertName     ErrorCode = "at003"
	CodeInsertSubject  ErrorCode = "at004"
	CodeInsertTitle    ErrorCode = "at005"
)

type PartRole uint8

const (
	PartName PartRole = iota
	PartDates
	PartISNI
	PartVIAF
)

type AuthorityPart struct {
	Key   string
	Role  PartRole
	Value string
}

// Authority is a resolved person, family, corporation, place or subject.
// Values are fixed at construction; callers share the pointer read-only.
type Authority struct {
	ID    string
	Kind  RecordType
	Type  string
	Parts []AuthorityPart
	Name  string
	Dates string
	ISNI  string
	VIAF  string

	display string
}

func NewAuthority(id string, kind RecordType, atype string, parts []AuthorityPart, clean func(string) string) *Authority {
	a := &Authority{ID: id, Kind: kind, Type: atype, Parts: parts}

	var names, dates, isni, viaf, all []string
	for _, p := range parts {
		if p.Value == "" {
			continue
		}
		all = append(all, p.Value)
		switch p.Role {
		case PartName:
			names = append(names, p.Value)
		case PartDates:
			dates = append(dates, p.Value)
		case PartISNI:
			isni = append(isni, p.Value)
		case PartVIAF:
			viaf = append(viaf, p.Value)
		}
	}

	a.Name = clean(strings.Join(names, ", "))
	a.Dates = clean(strings.Join(dates, ", "))
	a.ISNI = strings.Join(isni, ", ")
	a.VIAF = strings.Join(viaf, ", ")
	a.display = clean(strings.Join(all, ", "))
	return a
}

func (a *Authority) String() string {
	if a == nil {
		return ""
	}
	return a.display
}

type NameRef struct {
	Authority *Authority
	Role      string
}

type ValueSet map[string]struct{}

func (s ValueSet) Add(v string) {
	if v == "" {
		return
	}
	s[v] = struct{}{}
}

func (s ValueSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

func (s ValueSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

const ValueSeparator = "; "

func (s ValueSet) Join() string {
	return strings.Join(s.Sorted(), ValueSeparator)
}

type Description struct {
	ID       string
	Type     RecordType
	Values   map[string]ValueSet
	Names    map[string]NameRef
	Subjects map[string]*Authority
	Titles   ValueSet
}

func NewDescription(id string, codes []string) *Description {
	d := &Description{
		ID:       id,
		Type:     RecordTypeOf(id),
		Values:   make(map[string]ValueSet, len(codes)),
		Names:    map[string]NameRef{},
		Subjects: map[string]*Authority{},
		Titles:   ValueSet{},
	}
	for _, code := range codes {
		d.Values[code] = ValueSet{}
	}
	return d
}

func (d *Description) Set(code string) ValueSet {
	s, ok := d.Values[code]
	if !ok {
		s = ValueSet{}
		d.Values[code] = s
	}
	return s
}

func (d *Description) AddName(a *Authority, role string) {
	d.Names[a.ID+"|"+role] = NameRef{Authority: a, Role: role}
}

func (d *Description) AddSubject(a *Authority) {
	d.Subjects[a.ID] = a
}

func (d *Description) SortedNames() []NameRef {
	out := make([]NameRef, 0, len(d.Names))
	for _, n := range d.Names {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Authority.String() != out[j].Authority.String() {
			return out[i].Authority.String() < out[j].Authority.String()
		}
		return out[i].Role < out[j].Role
	})
	return out
}

func (d *Description) SortedSubjects() []*Authority {
	out := make([]*Authority, 0, len(d.Subjects))
	for _, s := range d.Subjects {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// A request message carries its parameters between these two lines.
const (
	CodedParametersStart = "Coded parameters for your transformation"
	CodedParametersEnd   = "End of coded parameters"
)

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type RequestStatus string

const (
	RequestFetched  RequestStatus = "fetched"
	RequestExported RequestStatus = "exported"
	RequestSkipped  RequestStatus = "skipped"
	RequestFailed   RequestStatus = "failed"
)

type RequestRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     RequestStatus
	Note       string
	RawRef     string
}
