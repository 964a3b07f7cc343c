package filing

import (
	"fmt"
	"strconv"

	"edgarfeed/internal/edgar"
	"edgarfeed/internal/services"
	"edgarfeed/internal/sgml"
	"edgarfeed/internal/tags"
)

var submissionScalars = map[string]func(*Filing) *string{
	"type":                       func(f *Filing) *string { return &f.Type },
	"public_document_count":      func(f *Filing) *string { return &f.PublicDocumentCount },
	"period":                     func(f *Filing) *string { return &f.Period },
	"filing_date":                func(f *Filing) *string { return &f.FilingDate },
	"date_of_filing_date_change": func(f *Filing) *string { return &f.DateOfFilingDateChange },
	"effectiveness_date":         func(f *Filing) *string { return &f.EffectivenessDate },
}

var dataBagScalars = map[string]func(*Entity) *string{
	"conformed_name":         func(e *Entity) *string { return &e.ConformedName },
	"cik":                    func(e *Entity) *string { return &e.CIK },
	"assigned_sic":           func(e *Entity) *string { return &e.AssignedSIC },
	"irs_number":             func(e *Entity) *string { return &e.IRSNumber },
	"state_of_incorporation": func(e *Entity) *string { return &e.StateOfIncorporation },
	"fiscal_year_end":        func(e *Entity) *string { return &e.FiscalYearEnd },
}

var seriesBuckets = []struct {
	bucket string
	key    string
	child  string
}{
	{BucketExisting, "existing_series_and_classes_contracts", "series"},
	{BucketNew, "new_series_and_classes_contracts", "new_series"},
	{BucketNewClasses, "new_classes_contracts", "series"},
}

// Keys the submission parser adds to document records.
var derivedDocumentKeys = map[string]bool{"raw_size": true, "size": true}

// FromRecord converts a decoded submission record into a Filing.
func FromRecord(rec *sgml.Record) (*Filing, error) {
	accession, err := edgar.ParseAccession(rec.String("accession_number"))
	if err != nil {
		return nil, services.Wrap(services.ErrFormat, "filing", "convert", "accession number", err)
	}
	f := &Filing{Accession: accession.String(), Extra: sgml.NewRecord()}
	roleCount := make(map[string]int)

	for _, field := range rec.Fields() {
		key, v := field.Key, field.Value
		if target, ok := submissionScalars[key]; ok {
			*target(f) = rec.String(key)
			continue
		}
		switch key {
		case "accession_number":
			continue
		case "items":
			f.Items = rec.Strings(key)
		case "group_members":
			f.GroupMembers = rec.Strings(key)
		case "correction":
			f.Correction = rec.Bool(key)
		case "deletion":
			f.Deletion = rec.Bool(key)
		case "private_to_public":
			f.PrivateToPublic = rec.Bool(key)
		case "document":
			for i, doc := range rec.Children(key) {
				f.Documents = append(f.Documents, f.documentFrom(i+1, doc))
			}
		case "series_and_classes_contracts_data":
			f.seriesFrom(rec.Child(key))
		case "merger_series_and_classes_contracts_data":
			for i, merger := range rec.Child(key).Children("merger") {
				f.Mergers = append(f.Mergers, Merger{Sequence: i + 1, Data: merger.Clone()})
			}
		default:
			if tags.IsRoleTag(tags.NameFor(key)) {
				for _, child := range rec.Children(key) {
					roleCount[key]++
					f.Entities = append(f.Entities, f.entityFrom(key, roleCount[key], child))
				}
				continue
			}
			f.Extra.Set(key, v)
		}
	}
	return f, nil
}

func (f *Filing) entityFrom(role string, seq int, rec *sgml.Record) Entity {
	e := Entity{Role: role, Sequence: seq, Shape: ShapeCompany, Extra: sgml.NewRecord()}
	path := fmt.Sprintf("%s[%d]", role, seq)
	formerSeq := 0
	for _, field := range rec.Fields() {
		switch field.Key {
		case "company_data", "owner_data":
			if field.Key == "owner_data" {
				e.Shape = ShapeOwner
			}
			bag := rec.Child(field.Key)
			for _, bf := range bag.Fields() {
				if target, ok := dataBagScalars[bf.Key]; ok {
					*target(&e) = bag.String(bf.Key)
					continue
				}
				if bf.Key == "organization_name" {
					name := bag.String(bf.Key)
					e.OrganizationName = &name
					continue
				}
				f.unmapped(path, field.Key, bf.Key)
			}
		case "filing_values":
			bag := rec.Child(field.Key)
			e.FilingValues = &FilingValues{
				FormType:   bag.String("form_type"),
				Act:        bag.String("act"),
				FileNumber: bag.String("file_number"),
				FilmNumber: bag.String("film_number"),
			}
			f.unmappedExcept(path+".filing_values", bag, "form_type", "act", "file_number", "film_number")
		case "business_address", "mail_address":
			bag := rec.Child(field.Key)
			addr := &Address{
				Street1: bag.String("street1"),
				Street2: bag.String("street2"),
				City:    bag.String("city"),
				State:   bag.String("state"),
				Zip:     bag.String("zip"),
				Phone:   bag.String("phone"),
			}
			f.unmappedExcept(path+"."+field.Key, bag, "street1", "street2", "city", "state", "zip", "phone")
			if field.Key == "business_address" {
				e.BusinessAddress = addr
			} else {
				e.MailAddress = addr
			}
		case "former_name", "former_company":
			for _, former := range rec.Children(field.Key) {
				formerSeq++
				e.FormerNames = append(e.FormerNames, FormerName{
					Sequence:    formerSeq,
					Company:     field.Key == "former_company",
					Name:        former.String("former_conformed_name"),
					DateChanged: former.String("date_changed"),
				})
			}
		default:
			e.Extra.Set(field.Key, field.Value)
		}
	}
	return e
}

func (f *Filing) documentFrom(seq int, rec *sgml.Record) Document {
	doc := Document{
		Sequence:     seq,
		Type:         rec.String("type"),
		SequenceText: rec.String("sequence"),
		Filename:     rec.String("filename"),
		Description:  rec.String("description"),
	}
	for _, key := range rec.Keys() {
		switch key {
		case "type", "sequence", "filename", "description":
		default:
			if !derivedDocumentKeys[key] {
				f.unmapped(fmt.Sprintf("document[%d]", seq), key)
			}
		}
	}
	return doc
}

func (f *Filing) seriesFrom(rec *sgml.Record) {
	if rec == nil {
		return
	}
	for _, b := range seriesBuckets {
		bucket := rec.Child(b.key)
		if bucket == nil {
			continue
		}
		if b.bucket == BucketNew {
			f.NewSeriesOwnerCIK = bucket.String("owner_cik")
		}
		for i, s := range bucket.Children(b.child) {
			series := Series{
				Bucket:     b.bucket,
				Sequence:   i + 1,
				OwnerCIK:   s.String("owner_cik"),
				SeriesID:   s.String("series_id"),
				SeriesName: s.String("series_name"),
			}
			for j, c := range s.Children("class_contract") {
				series.Classes = append(series.Classes, ClassContract{
					Sequence: j + 1,
					ID:       c.String("class_contract_id"),
					Name:     c.String("class_contract_name"),
					Ticker:   c.String("class_contract_ticker_symbol"),
				})
			}
			f.Series = append(f.Series, series)
		}
	}
}

func (f *Filing) unmapped(path string, keys ...string) {
	for _, key := range keys {
		f.Unmapped = append(f.Unmapped, path+"."+key)
	}
}

func (f *Filing) unmappedExcept(path string, rec *sgml.Record, known ...string) {
	allowed := make(map[string]bool, len(known))
	for _, k := range known {
		allowed[k] = true
	}
	for _, key := range rec.Keys() {
		if !allowed[key] {
			f.Unmapped = append(f.Unmapped, path+"."+key)
		}
	}
}

// Record renders the filing back into a submission record. Empty optional
// scalars are omitted, except an entity's organization name, which is kept
// whenever it was present in the source header.
func (f *Filing) Record() *sgml.Record {
	rec := sgml.NewRecord()
	rec.SetText("accession_number", f.Accession)
	setText(rec, "type", f.Type)
	setText(rec, "public_document_count", f.PublicDocumentCount)
	setText(rec, "period", f.Period)
	if len(f.Items) > 0 {
		rec.Set("items", sgml.List(f.Items...))
	}
	setText(rec, "filing_date", f.FilingDate)
	setText(rec, "date_of_filing_date_change", f.DateOfFilingDateChange)
	setText(rec, "effectiveness_date", f.EffectivenessDate)
	if len(f.GroupMembers) > 0 {
		rec.Set("group_members", sgml.List(f.GroupMembers...))
	}
	setFlag(rec, "correction", f.Correction)
	setFlag(rec, "deletion", f.Deletion)
	setFlag(rec, "private_to_public", f.PrivateToPublic)
	if f.Extra != nil {
		for _, field := range f.Extra.Fields() {
			rec.Set(field.Key, field.Value)
		}
	}

	for _, role := range tags.Roles {
		key := tags.KeyFor(role)
		var entities []*sgml.Record
		for _, e := range f.Entities {
			if e.Role == key {
				entities = append(entities, e.record())
			}
		}
		if len(entities) > 0 {
			rec.Set(key, sgml.NestedList(entities...))
		}
	}

	if series := f.seriesRecord(); series != nil {
		rec.Set("series_and_classes_contracts_data", sgml.Nested(series))
	}
	if len(f.Mergers) > 0 {
		mergers := make([]*sgml.Record, 0, len(f.Mergers))
		for _, m := range f.Mergers {
			mergers = append(mergers, m.Data.Clone())
		}
		block := sgml.NewRecord()
		block.Set("merger", sgml.NestedList(mergers...))
		rec.Set("merger_series_and_classes_contracts_data", sgml.Nested(block))
	}

	if len(f.Documents) > 0 {
		docs := make([]*sgml.Record, 0, len(f.Documents))
		for _, d := range f.Documents {
			doc := sgml.NewRecord()
			setText(doc, "type", d.Type)
			setText(doc, "sequence", d.SequenceText)
			setText(doc, "filename", d.Filename)
			setText(doc, "description", d.Description)
			docs = append(docs, doc)
		}
		rec.Set("document", sgml.NestedList(docs...))
	}
	return rec
}

func (e Entity) record() *sgml.Record {
	rec := sgml.NewRecord()
	bag := sgml.NewRecord()
	setText(bag, "conformed_name", e.ConformedName)
	setText(bag, "cik", e.CIK)
	setText(bag, "assigned_sic", e.AssignedSIC)
	if e.OrganizationName != nil {
		bag.SetText("organization_name", *e.OrganizationName)
	}
	setText(bag, "irs_number", e.IRSNumber)
	setText(bag, "state_of_incorporation", e.StateOfIncorporation)
	setText(bag, "fiscal_year_end", e.FiscalYearEnd)
	if e.Shape == ShapeOwner {
		rec.Set("owner_data", sgml.Nested(bag))
	} else {
		rec.Set("company_data", sgml.Nested(bag))
	}

	if fv := e.FilingValues; fv != nil {
		block := sgml.NewRecord()
		setText(block, "form_type", fv.FormType)
		setText(block, "act", fv.Act)
		setText(block, "file_number", fv.FileNumber)
		setText(block, "film_number", fv.FilmNumber)
		rec.Set("filing_values", sgml.Nested(block))
	}
	if e.BusinessAddress != nil {
		rec.Set("business_address", sgml.Nested(e.BusinessAddress.record()))
	}
	if e.MailAddress != nil {
		rec.Set("mail_address", sgml.Nested(e.MailAddress.record()))
	}

	var names, companies []*sgml.Record
	for _, former := range e.FormerNames {
		block := sgml.NewRecord()
		setText(block, "former_conformed_name", former.Name)
		setText(block, "date_changed", former.DateChanged)
		if former.Company {
			companies = append(companies, block)
		} else {
			names = append(names, block)
		}
	}
	if len(names) > 0 {
		rec.Set("former_name", sgml.NestedList(names...))
	}
	if len(companies) > 0 {
		rec.Set("former_company", sgml.NestedList(companies...))
	}
	if e.Extra != nil {
		for _, field := range e.Extra.Fields() {
			rec.Set(field.Key, field.Value)
		}
	}
	return rec
}

func (a *Address) record() *sgml.Record {
	rec := sgml.NewRecord()
	setText(rec, "street1", a.Street1)
	setText(rec, "street2", a.Street2)
	setText(rec, "city", a.City)
	setText(rec, "state", a.State)
	setText(rec, "zip", a.Zip)
	setText(rec, "phone", a.Phone)
	return rec
}

func (f *Filing) seriesRecord() *sgml.Record {
	if len(f.Series) == 0 && f.NewSeriesOwnerCIK == "" {
		return nil
	}
	out := sgml.NewRecord()
	for _, b := range seriesBuckets {
		var children []*sgml.Record
		for _, s := range f.Series {
			if s.Bucket == b.bucket {
				children = append(children, s.record())
			}
		}
		if len(children) == 0 && !(b.bucket == BucketNew && f.NewSeriesOwnerCIK != "") {
			continue
		}
		bucket := sgml.NewRecord()
		if b.bucket == BucketNew {
			setText(bucket, "owner_cik", f.NewSeriesOwnerCIK)
		}
		if len(children) > 0 {
			bucket.Set(b.child, sgml.NestedList(children...))
		}
		out.Set(b.key, sgml.Nested(bucket))
	}
	return out
}

func (s Series) record() *sgml.Record {
	rec := sgml.NewRecord()
	setText(rec, "owner_cik", s.OwnerCIK)
	setText(rec, "series_id", s.SeriesID)
	setText(rec, "series_name", s.SeriesName)
	if len(s.Classes) > 0 {
		classes := make([]*sgml.Record, 0, len(s.Classes))
		for _, c := range s.Classes {
			class := sgml.NewRecord()
			setText(class, "class_contract_id", c.ID)
			setText(class, "class_contract_name", c.Name)
			setText(class, "class_contract_ticker_symbol", c.Ticker)
			classes = append(classes, class)
		}
		rec.Set("class_contract", sgml.NestedList(classes...))
	}
	return rec
}

// AccessionInt returns the packed integer form of the accession number.
func (f *Filing) AccessionInt() (int64, error) {
	return edgar.Accession(f.Accession).Int()
}

// DocumentCount parses PUBLIC-DOCUMENT-COUNT, falling back to the number of
// DOCUMENT blocks.
func (f *Filing) DocumentCount() int {
	if n, err := strconv.Atoi(f.PublicDocumentCount); err == nil {
		return n
	}
	return len(f.Documents)
}

func setText(rec *sgml.Record, key, value string) {
	if value != "" {
		rec.SetText(key, value)
	}
}

func setFlag(rec *sgml.Record, key string, value bool) {
	if value {
		rec.Set(key, sgml.Flag(true))
	}
}
