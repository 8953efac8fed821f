package pipeline

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"iams2rf/internal/catalog"
	"iams2rf/internal/storage"
)

var textFields = []string{"AA", "AN", "TT", "DS", "SM", "SU", "NN", "PV", "RF"}

type Criteria struct {
	Languages []string
	Terms     []string
	From      string
	To        string
}

func (c Criteria) IsZero() bool {
	return len(c.Languages) == 0 && len(c.Terms) == 0 && c.From == "" && c.To == ""
}

type OutputFile string

const (
	FileRecords OutputFile = "records"
	FileTitles  OutputFile = "titles"
	FileNames   OutputFile = "names"
	FileTopics  OutputFile = "topics"
)

var fileFlags = map[rune]OutputFile{'r': FileRecords, 't': FileTitles, 'n': FileNames, 's': FileTopics}

var fileOrder = []OutputFile{FileRecords, FileTitles, FileNames, FileTopics}

func (f OutputFile) FileName() string {
	return string(f) + "_IAMS"
}

// ParseFiles reads the single-letter file flags (r, t, n, s). The legacy
// c flag is accepted and ignored. A blank value selects every file.
func ParseFiles(flags string) ([]OutputFile, error) {
	flags = strings.ToLower(strings.ReplaceAll(flags, "|", ""))
	if flags == "" {
		return append([]OutputFile(nil), fileOrder...), nil
	}
	want := map[OutputFile]bool{}
	for _, r := range flags {
		if r == 'c' {
			continue
		}
		f, ok := fileFlags[r]
		if !ok {
			return nil, fmt.Errorf("unknown output file flag %q", r)
		}
		want[f] = true
	}
	var out []OutputFile
	for _, f := range fileOrder {
		if want[f] {
			out = append(out, f)
		}
	}
	return out, nil
}

type ExportSpec struct {
	Fields   []string
	Files    []OutputFile
	Criteria Criteria
}

func (s ExportSpec) Validate() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("no output fields selected")
	}
	if len(s.Files) == 0 {
		return fmt.Errorf("no output files selected")
	}
	return nil
}

type clause struct {
	sql     string
	literal string
	args    []any
}

type Predicate struct {
	clauses []clause
}

func (p Predicate) Empty() bool {
	return len(p.clauses) == 0
}

func (p Predicate) SQL() (string, []any) {
	parts := make([]string, 0, len(p.clauses))
	var args []any
	for _, c := range p.clauses {
		parts = append(parts, c.sql)
		args = append(args, c.args...)
	}
	return strings.Join(parts, " AND "), args
}

func (p Predicate) String() string {
	parts := make([]string, 0, len(p.clauses))
	for _, c := range p.clauses {
		parts = append(parts, c.literal)
	}
	return strings.Join(parts, " AND ")
}

func sortedUnique(values []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func quoteLiteral(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func likeClause(fields, values []string) clause {
	var sqlParts, litParts []string
	var args []any
	for _, f := range fields {
		for _, v := range values {
			sqlParts = append(sqlParts, f+" LIKE ?")
			litParts = append(litParts, f+" LIKE "+quoteLiteral("%"+v+"%"))
			args = append(args, "%"+v+"%")
		}
	}
	return clause{
		sql:     "( " + strings.Join(sqlParts, " OR ") + " )",
		literal: "( " + strings.Join(litParts, " OR ") + " )",
		args:    args,
	}
}

func yearClause(column, op, year string) (clause, bool) {
	n, err := strconv.Atoi(year)
	if err != nil {
		return clause{}, false
	}
	return clause{
		sql:     fmt.Sprintf("%s %s ?", column, op),
		literal: fmt.Sprintf("%s %s %d", column, op, n),
		args:    []any{n},
	}, true
}

// BuildPredicate combines the language, free-text and date criteria with
// AND. A record matches a date range when its span overlaps it.
func BuildPredicate(c Criteria) Predicate {
	var p Predicate
	if langs := sortedUnique(c.Languages); len(langs) > 0 {
		p.clauses = append(p.clauses, likeClause([]string{"S_LANGUAGES"}, langs))
	}
	if terms := sortedUnique(c.Terms); len(terms) > 0 {
		p.clauses = append(p.clauses, likeClause(textFields, terms))
	}
	if cl, ok := yearClause("S_DATE2", ">=", c.From); ok {
		p.clauses = append(p.clauses, cl)
	}
	if cl, ok := yearClause("S_DATE1", "<=", c.To); ok {
		p.clauses = append(p.clauses, cl)
	}
	return p
}

type Projection struct {
	File   OutputFile
	Header []string
	Query  string
}

var nameFields = []string{"AN", "AA", "AD", "AT", "AR", "II", "VF"}

var titleFields = []string{"TK", "TT", "TU", "TV"}

func selectedFilter(column string) string {
	return fmt.Sprintf("%s IN (SELECT RecordId FROM %s)", column, storage.SelectedIDsTable)
}

func recordColumns(codes []string) string {
	cols := make([]string, len(codes))
	for i, c := range codes {
		cols[i] = storage.TableRecords + "." + c
	}
	return strings.Join(cols, ", ")
}

func joinColumns(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

func labels(cat *catalog.Catalogue, codes []string) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = cat.Label(c)
	}
	return out
}

func BuildProjections(cat *catalog.Catalogue, spec ExportSpec) []Projection {
	fields := cat.Select(spec.Fields)
	out := make([]Projection, 0, len(spec.Files))
	for _, f := range spec.Files {
		switch f {
		case FileRecords:
			out = append(out, recordsProjection(cat, fields))
		case FileTitles:
			out = append(out, titlesProjection(cat, catalog.Without(fields, titleFields...)))
		case FileNames:
			out = append(out, namesProjection(cat, catalog.Without(fields, nameFields...)))
		case FileTopics:
			out = append(out, topicsProjection(cat, catalog.Without(fields, "SU")))
		}
	}
	return out
}

func recordsProjection(cat *catalog.Catalogue, codes []string) Projection {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY %s.RecordId ASC`,
		recordColumns(codes), storage.TableRecords, selectedFilter(storage.TableRecords+".RecordId"), storage.TableRecords)
	return Projection{File: FileRecords, Header: labels(cat, codes), Query: q}
}

func titlesProjection(cat *catalog.Catalogue, codes []string) Projection {
	other := `(SELECT GROUP_CONCAT(t2.Title, ' ; ' ORDER BY t2.Title ASC) FROM titles t2` +
		` WHERE t2.RecordId = t1.RecordId AND t2.Title <> t1.Title) AS otherTitles`
	q := fmt.Sprintf(`SELECT %s FROM titles t1 INNER JOIN records ON records.RecordId = t1.RecordId`+
		` WHERE %s ORDER BY t1.Title ASC, t1.RecordId ASC, t1.id ASC`,
		joinColumns("t1.Title", other, recordColumns(codes)), selectedFilter("t1.RecordId"))
	header := append([]string{"Title", "Other titles"}, labels(cat, codes)...)
	return Projection{File: FileTitles, Header: header, Query: q}
}

func namesProjection(cat *catalog.Catalogue, codes []string) Projection {
	display := `n2.Name || ', ' || n2.NameDates || ' [' || n2.NameRole || ']'`
	other := `(SELECT GROUP_CONCAT(` + display + `, ' ; ' ORDER BY ` + display + ` ASC) FROM names n2` +
		` WHERE n2.RecordId = n1.RecordId AND NOT (n2.Name IS n1.Name AND n2.NameDates IS n1.NameDates)) AS otherNames`
	q := fmt.Sprintf(`SELECT %s FROM names n1 INNER JOIN records ON records.RecordId = n1.RecordId`+
		` WHERE %s ORDER BY n1.Name ASC, n1.RecordId ASC, n1.id ASC`,
		joinColumns("n1.Name, n1.NameDates, n1.NameType, n1.NameRole, n1.NameISNI, n1.NameVIAF", other, recordColumns(codes)),
		selectedFilter("n1.RecordId"))
	header := append([]string{"Name", "Dates associated with name", "Type of name", "Role", "ISNI", "VIAF", "Other names"},
		labels(cat, codes)...)
	return Projection{File: FileNames, Header: header, Query: q}
}

func topicsProjection(cat *catalog.Catalogue, codes []string) Projection {
	other := `(SELECT GROUP_CONCAT(s2.Topic, ' ; ' ORDER BY s2.Topic ASC) FROM subjects s2` +
		` WHERE s2.RecordId = s1.RecordId AND s2.Topic <> s1.Topic) AS otherTopics`
	q := fmt.Sprintf(`SELECT %s FROM subjects s1 INNER JOIN records ON records.RecordId = s1.RecordId`+
		` WHERE %s ORDER BY s1.Topic ASC, s1.RecordId ASC, s1.id ASC`,
		joinColumns("s1.Topic, s1.TopicType", other, recordColumns(codes)), selectedFilter("s1.RecordId"))
	header := append([]string{"Topic", "Type of topic", "Other topics"}, labels(cat, codes)...)
	return Projection{File: FileTopics, Header: header, Query: q}
}
