package sgml

import (
	"fmt"
	"sort"
	"strings"

	"edgarfeed/internal/edgar"
	"edgarfeed/internal/tags"
)

// BodyFunc supplies the <TEXT> content for the document at index. Returning
// ok=false omits the TEXT block for that document.
type BodyFunc func(index int, doc *Record) (body string, ok bool, err error)

// EncodeOption adjusts encoding.
type EncodeOption func(*encoder)

// WithBodies renders a <TEXT> block inside each DOCUMENT using fn.
func WithBodies(fn BodyFunc) EncodeOption {
	return func(e *encoder) {
		e.body = fn
	}
}

// Header orders. Each record level is rendered in the order of its
// template; keys the template does not know follow the known key that
// preceded them in the record.
var (
	submissionOrder = append(append([]string{
		"ACCESSION-NUMBER",
		"TYPE",
		"PUBLIC-DOCUMENT-COUNT",
		"PERIOD",
		"ITEMS",
		"FILING-DATE",
		"DATE-OF-FILING-DATE-CHANGE",
		"EFFECTIVENESS-DATE",
		"GROUP-MEMBERS",
		"CORRECTION",
		"DELETION",
		"PRIVATE-TO-PUBLIC",
	}, tags.Roles...),
		"SERIES-AND-CLASSES-CONTRACTS-DATA",
		"MERGER-SERIES-AND-CLASSES-CONTRACTS-DATA",
		"DOCUMENT",
	)

	ownerEntityOrder   = []string{"OWNER-DATA", "FILING-VALUES", "BUSINESS-ADDRESS", "MAIL-ADDRESS", "FORMER-NAME", "FORMER-COMPANY"}
	companyEntityOrder = []string{"COMPANY-DATA", "FILING-VALUES", "BUSINESS-ADDRESS", "MAIL-ADDRESS", "FORMER-NAME", "FORMER-COMPANY"}

	templates = map[string][]string{
		"COMPANY-DATA":     {"CONFORMED-NAME", "CIK", "ASSIGNED-SIC", "ORGANIZATION-NAME", "IRS-NUMBER", "STATE-OF-INCORPORATION", "FISCAL-YEAR-END"},
		"OWNER-DATA":       {"CONFORMED-NAME", "CIK", "ASSIGNED-SIC", "ORGANIZATION-NAME", "IRS-NUMBER", "STATE-OF-INCORPORATION", "FISCAL-YEAR-END"},
		"FILING-VALUES":    {"FORM-TYPE", "ACT", "FILE-NUMBER", "FILM-NUMBER"},
		"BUSINESS-ADDRESS": {"STREET1", "STREET2", "CITY", "STATE", "ZIP", "PHONE"},
		"MAIL-ADDRESS":     {"STREET1", "STREET2", "CITY", "STATE", "ZIP", "PHONE"},
		"FORMER-NAME":      {"FORMER-CONFORMED-NAME", "DATE-CHANGED"},
		"FORMER-COMPANY":   {"FORMER-CONFORMED-NAME", "DATE-CHANGED"},

		"SERIES-AND-CLASSES-CONTRACTS-DATA":     {"EXISTING-SERIES-AND-CLASSES-CONTRACTS", "NEW-SERIES-AND-CLASSES-CONTRACTS", "NEW-CLASSES-CONTRACTS"},
		"EXISTING-SERIES-AND-CLASSES-CONTRACTS": {"SERIES"},
		"NEW-SERIES-AND-CLASSES-CONTRACTS":      {"OWNER-CIK", "NEW-SERIES"},
		"NEW-CLASSES-CONTRACTS":                 {"SERIES"},
		"SERIES":                                {"OWNER-CIK", "SERIES-ID", "SERIES-NAME", "CLASS-CONTRACT"},
		"NEW-SERIES":                            {"OWNER-CIK", "SERIES-ID", "SERIES-NAME", "CLASS-CONTRACT"},
		"CLASS-CONTRACT":                        {"CLASS-CONTRACT-ID", "CLASS-CONTRACT-NAME", "CLASS-CONTRACT-TICKER-SYMBOL"},

		"MERGER-SERIES-AND-CLASSES-CONTRACTS-DATA": {"MERGER"},
		"MERGER":                                   {"ACQUIRING-DATA", "TARGET-DATA"},
		"ACQUIRING-DATA":                           {"CIK", "SERIES"},
		"TARGET-DATA":                              {"CIK", "SERIES"},

		"DOCUMENT": {"TYPE", "SEQUENCE", "FILENAME", "DESCRIPTION"},
	}

	investmentCompanyBlocks = map[string]bool{
		"series_and_classes_contracts_data":        true,
		"merger_series_and_classes_contracts_data": true,
	}
)

// submissionRank gives every entity role the same rank so several roles in
// one submission keep the order they were decoded in.
var submissionRank = func() map[string]int {
	rank := rankOf(submissionOrder)
	shared := rank[tags.KeyFor(tags.Roles[0])]
	for _, role := range tags.Roles {
		rank[tags.KeyFor(role)] = shared
	}
	return rank
}()

type encoder struct {
	lines    []string
	body     BodyFunc
	docIndex int
}

// Encode renders a submission record as an SGML header wrapped in
// <SUBMISSION>. The series and merger blocks are only rendered for
// investment-company form types.
func Encode(rec *Record, opts ...EncodeOption) (string, error) {
	e := &encoder{}
	for _, opt := range opts {
		opt(e)
	}
	e.lines = append(e.lines, "<SUBMISSION>")
	if err := e.submission(rec); err != nil {
		return "", err
	}
	e.lines = append(e.lines, "</SUBMISSION>")
	return strings.Join(e.lines, "\n") + "\n", nil
}

func (e *encoder) submission(rec *Record) error {
	investment := edgar.IsInvestmentCompanyForm(rec.String("type"))
	for _, f := range sortByRank(rec, submissionRank) {
		if investmentCompanyBlocks[f.Key] && !investment {
			continue
		}
		name := tags.NameFor(f.Key)
		if tags.IsRoleTag(name) {
			if err := e.entities(name, f.Value, rec); err != nil {
				return err
			}
			continue
		}
		if name == "DOCUMENT" {
			if err := e.documents(f.Value); err != nil {
				return err
			}
			continue
		}
		if err := e.field(name, f.Value); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) entities(name string, v Value, parent *Record) error {
	var entities []*Record
	switch v.Kind {
	case ValueRecord:
		entities = []*Record{v.Record}
	case ValueRecords:
		entities = v.Records
	default:
		return e.templateError(name, parent, "entity role is not a block")
	}
	for _, entity := range entities {
		order, err := entityOrder(entity)
		if err != nil {
			return e.templateError(name, parent, err.Error())
		}
		e.lines = append(e.lines, "<"+name+">")
		if err := e.fields(entity, order); err != nil {
			return err
		}
		e.lines = append(e.lines, "</"+name+">")
	}
	return nil
}

func entityOrder(entity *Record) ([]string, error) {
	owner := entity.Has("owner_data")
	company := entity.Has("company_data")
	if owner && company {
		return nil, fmt.Errorf("entity carries both OWNER-DATA and COMPANY-DATA")
	}
	if owner {
		return ownerEntityOrder, nil
	}
	return companyEntityOrder, nil
}

func (e *encoder) documents(v Value) error {
	var docs []*Record
	switch v.Kind {
	case ValueRecord:
		docs = []*Record{v.Record}
	case ValueRecords:
		docs = v.Records
	default:
		return &FormatError{Err: ErrTemplate, Tag: "DOCUMENT"}
	}
	for _, doc := range docs {
		e.lines = append(e.lines, "<DOCUMENT>")
		if err := e.fields(doc, templates["DOCUMENT"]); err != nil {
			return err
		}
		if e.body != nil {
			body, ok, err := e.body(e.docIndex, doc)
			if err != nil {
				return err
			}
			if ok {
				e.lines = append(e.lines, "<TEXT>", strings.TrimSuffix(body, "\n"), "</TEXT>")
			}
		}
		e.docIndex++
		e.lines = append(e.lines, "</DOCUMENT>")
	}
	return nil
}

func (e *encoder) fields(rec *Record, order []string) error {
	for _, f := range ordered(rec, order) {
		if err := e.field(tags.NameFor(f.Key), f.Value); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) field(name string, v Value) error {
	switch v.Kind {
	case ValueText:
		e.lines = append(e.lines, "<"+name+">"+v.Text)
	case ValueFlag:
		if v.Flag {
			e.lines = append(e.lines, "<"+name+">")
		}
	case ValueList:
		for _, item := range v.List {
			e.lines = append(e.lines, "<"+name+">"+item)
		}
	case ValueRecord:
		return e.block(name, v.Record)
	case ValueRecords:
		for _, child := range v.Records {
			if err := e.block(name, child); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *encoder) block(name string, rec *Record) error {
	e.lines = append(e.lines, "<"+name+">"+rec.Inline)
	if err := e.fields(rec, templates[name]); err != nil {
		return err
	}
	e.lines = append(e.lines, "</"+name+">")
	return nil
}

func (e *encoder) templateError(name string, parent *Record, msg string) error {
	return &FormatError{
		Err:       fmt.Errorf("%w: %s", ErrTemplate, msg),
		Tag:       name,
		Accession: parent.String("accession_number"),
	}
}

// ordered returns rec's fields sorted by template rank. A key missing from
// order takes the rank of the nearest known key before it and sorts after
// that key.
func ordered(rec *Record, order []string) []Field {
	return sortByRank(rec, rankOf(order))
}

func rankOf(order []string) map[string]int {
	rank := make(map[string]int, len(order))
	for i, name := range order {
		rank[tags.KeyFor(name)] = i
	}
	return rank
}

// sortByRank orders fields by rank, then by the position of the known key
// they follow. Keys sharing a rank keep their record order.
func sortByRank(rec *Record, rank map[string]int) []Field {
	type sortable struct {
		field   Field
		rank    int
		anchor  int
		unknown int
		index   int
	}
	fields := rec.Fields()
	items := make([]sortable, len(fields))
	last, anchor := -1, -1
	for i, f := range fields {
		r, known := rank[f.Key]
		if known {
			last, anchor = r, i
			items[i] = sortable{field: f, rank: r, anchor: i, index: i}
			continue
		}
		items[i] = sortable{field: f, rank: last, anchor: anchor, unknown: 1, index: i}
	}
	sort.SliceStable(items, func(a, b int) bool {
		x, y := items[a], items[b]
		if x.rank != y.rank {
			return x.rank < y.rank
		}
		if x.anchor != y.anchor {
			return x.anchor < y.anchor
		}
		if x.unknown != y.unknown {
			return x.unknown < y.unknown
		}
		return x.index < y.index
	})
	out := make([]Field, len(items))
	for i, it := range items {
		out[i] = it.field
	}
	return out
}
