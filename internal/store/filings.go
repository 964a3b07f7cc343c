package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"edgarfeed/internal/filing"
	"edgarfeed/internal/logging"
	"edgarfeed/internal/services"
	"edgarfeed/internal/sgml"
	"edgarfeed/internal/tags"
)

// UpsertFiling writes a filing and its children. The submission row is
// written first; each child group then commits in its own transaction so a
// failure in one group does not stop the others. All failures are returned
// joined.
func (d *DB) UpsertFiling(ctx context.Context, f *filing.Filing) error {
	if f == nil {
		return errors.New("filing is nil")
	}
	id, err := f.AccessionInt()
	if err != nil {
		return services.Wrap(services.ErrFormat, "store", "upsert", f.Accession, err)
	}
	if err := d.b.InTx(ctx, func(q querier) error { return upsertSubmission(ctx, q, f, id) }); err != nil {
		return services.Wrap(services.ErrStore, "store", "upsert submission", f.Accession, err)
	}

	groups := []struct {
		name string
		fn   func(context.Context, querier, *filing.Filing) error
	}{
		{"entities", upsertEntities},
		{"series", upsertSeries},
		{"mergers", upsertMergers},
		{"documents", upsertDocuments},
	}
	var errs []error
	for _, g := range groups {
		if err := d.b.InTx(ctx, func(q querier) error { return g.fn(ctx, q, f) }); err != nil {
			wrapped := services.Wrap(services.ErrStore, "store", "upsert "+g.name, f.Accession, err)
			logging.ErrorWithContext(d.logger, "store write failed", "store_write_failed",
				logging.Accession(f.Accession),
				logging.String("group", g.name),
				logging.String(logging.FieldErrorHint, "check store connectivity and schema"),
				logging.Error(wrapped),
			)
			errs = append(errs, wrapped)
		}
	}
	return errors.Join(errs...)
}

// submissionColumns are the header columns compared on upsert; updated_at
// only moves when one of them changes.
var submissionColumns = []string{
	"accession_id", "form_type", "public_document_count", "period", "items_json",
	"filing_date", "date_of_filing_date_change", "effectiveness_date", "group_members_json",
	"correction", "deletion", "private_to_public", "new_series_owner_cik", "extra_json",
}

var submissionChanged = func() string {
	parts := make([]string, len(submissionColumns))
	for i, col := range submissionColumns {
		parts[i] = fmt.Sprintf("submissions.%s IS DISTINCT FROM excluded.%s", col, col)
	}
	return strings.Join(parts, "\n                OR ")
}()

func upsertSubmission(ctx context.Context, q querier, f *filing.Filing, id int64) error {
	extra, err := recordJSON(f.Extra)
	if err != nil {
		return err
	}
	return q.Exec(ctx, `INSERT INTO submissions (
            accession, accession_id, form_type, public_document_count, period, items_json,
            filing_date, date_of_filing_date_change, effectiveness_date, group_members_json,
            correction, deletion, private_to_public, new_series_owner_cik, extra_json, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (accession) DO UPDATE SET
            accession_id = excluded.accession_id,
            form_type = excluded.form_type,
            public_document_count = excluded.public_document_count,
            period = excluded.period,
            items_json = excluded.items_json,
            filing_date = excluded.filing_date,
            date_of_filing_date_change = excluded.date_of_filing_date_change,
            effectiveness_date = excluded.effectiveness_date,
            group_members_json = excluded.group_members_json,
            correction = excluded.correction,
            deletion = excluded.deletion,
            private_to_public = excluded.private_to_public,
            new_series_owner_cik = excluded.new_series_owner_cik,
            extra_json = excluded.extra_json,
            updated_at = CASE WHEN `+submissionChanged+`
                THEN excluded.updated_at ELSE submissions.updated_at END`,
		f.Accession,
		id,
		f.Type,
		nullableString(f.PublicDocumentCount),
		nullableString(f.Period),
		stringsJSON(f.Items),
		nullableString(f.FilingDate),
		nullableString(f.DateOfFilingDateChange),
		nullableString(f.EffectivenessDate),
		stringsJSON(f.GroupMembers),
		boolToInt(f.Correction),
		boolToInt(f.Deletion),
		boolToInt(f.PrivateToPublic),
		nullableString(f.NewSeriesOwnerCIK),
		extra,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
}

func upsertEntities(ctx context.Context, q querier, f *filing.Filing) error {
	perRole := make(map[string]int)
	formers := make(map[string]map[int]int)
	for _, e := range f.Entities {
		if e.Sequence > perRole[e.Role] {
			perRole[e.Role] = e.Sequence
		}
		extra, err := recordJSON(e.Extra)
		if err != nil {
			return err
		}
		var orgName any
		if e.OrganizationName != nil {
			orgName = *e.OrganizationName
		}
		if err := q.Exec(ctx, `INSERT INTO entities (
                accession, role, sequence, shape, conformed_name, cik, assigned_sic,
                organization_name, irs_number, state_of_incorporation, fiscal_year_end,
                filing_values_json, business_address_json, mail_address_json, extra_json
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT (accession, role, sequence) DO UPDATE SET
                shape = excluded.shape,
                conformed_name = excluded.conformed_name,
                cik = excluded.cik,
                assigned_sic = excluded.assigned_sic,
                organization_name = excluded.organization_name,
                irs_number = excluded.irs_number,
                state_of_incorporation = excluded.state_of_incorporation,
                fiscal_year_end = excluded.fiscal_year_end,
                filing_values_json = excluded.filing_values_json,
                business_address_json = excluded.business_address_json,
                mail_address_json = excluded.mail_address_json,
                extra_json = excluded.extra_json`,
			f.Accession, e.Role, e.Sequence, string(e.Shape),
			nullableString(e.ConformedName),
			nullableString(e.CIK),
			nullableString(e.AssignedSIC),
			orgName,
			nullableString(e.IRSNumber),
			nullableString(e.StateOfIncorporation),
			nullableString(e.FiscalYearEnd),
			valueJSON(e.FilingValues),
			valueJSON(e.BusinessAddress),
			valueJSON(e.MailAddress),
			extra,
		); err != nil {
			return fmt.Errorf("entity %s[%d]: %w", e.Role, e.Sequence, err)
		}

		for _, fn := range e.FormerNames {
			if err := q.Exec(ctx, `INSERT INTO former_names (
                    accession, role, entity_sequence, sequence, company, name, date_changed
                ) VALUES (?, ?, ?, ?, ?, ?, ?)
                ON CONFLICT (accession, role, entity_sequence, sequence) DO UPDATE SET
                    company = excluded.company,
                    name = excluded.name,
                    date_changed = excluded.date_changed`,
				f.Accession, e.Role, e.Sequence, fn.Sequence, boolToInt(fn.Company),
				nullableString(fn.Name), nullableString(fn.DateChanged),
			); err != nil {
				return fmt.Errorf("former name %s[%d].%d: %w", e.Role, e.Sequence, fn.Sequence, err)
			}
		}
		if formers[e.Role] == nil {
			formers[e.Role] = make(map[int]int)
		}
		formers[e.Role][e.Sequence] = len(e.FormerNames)
	}

	for _, role := range tags.Roles {
		key := tags.KeyFor(role)
		if err := q.Exec(ctx, `DELETE FROM entities WHERE accession = ? AND role = ? AND sequence > ?`,
			f.Accession, key, perRole[key]); err != nil {
			return fmt.Errorf("prune entities: %w", err)
		}
		if err := q.Exec(ctx, `DELETE FROM former_names WHERE accession = ? AND role = ? AND entity_sequence > ?`,
			f.Accession, key, perRole[key]); err != nil {
			return fmt.Errorf("prune former names: %w", err)
		}
		for seq, n := range formers[key] {
			if err := q.Exec(ctx, `DELETE FROM former_names WHERE accession = ? AND role = ? AND entity_sequence = ? AND sequence > ?`,
				f.Accession, key, seq, n); err != nil {
				return fmt.Errorf("prune former names: %w", err)
			}
		}
	}
	return nil
}

func upsertSeries(ctx context.Context, q querier, f *filing.Filing) error {
	perBucket := make(map[string]int)
	for _, s := range f.Series {
		if s.Sequence > perBucket[s.Bucket] {
			perBucket[s.Bucket] = s.Sequence
		}
		if err := q.Exec(ctx, `INSERT INTO series (
                accession, bucket, sequence, owner_cik, series_id, series_name
            ) VALUES (?, ?, ?, ?, ?, ?)
            ON CONFLICT (accession, bucket, sequence) DO UPDATE SET
                owner_cik = excluded.owner_cik,
                series_id = excluded.series_id,
                series_name = excluded.series_name`,
			f.Accession, s.Bucket, s.Sequence,
			nullableString(s.OwnerCIK), nullableString(s.SeriesID), nullableString(s.SeriesName),
		); err != nil {
			return fmt.Errorf("series %s[%d]: %w", s.Bucket, s.Sequence, err)
		}
		for _, c := range s.Classes {
			if err := q.Exec(ctx, `INSERT INTO class_contracts (
                    accession, bucket, series_sequence, sequence, class_id, name, ticker
                ) VALUES (?, ?, ?, ?, ?, ?, ?)
                ON CONFLICT (accession, bucket, series_sequence, sequence) DO UPDATE SET
                    class_id = excluded.class_id,
                    name = excluded.name,
                    ticker = excluded.ticker`,
				f.Accession, s.Bucket, s.Sequence, c.Sequence,
				nullableString(c.ID), nullableString(c.Name), nullableString(c.Ticker),
			); err != nil {
				return fmt.Errorf("class contract %s[%d].%d: %w", s.Bucket, s.Sequence, c.Sequence, err)
			}
		}
		if err := q.Exec(ctx, `DELETE FROM class_contracts WHERE accession = ? AND bucket = ? AND series_sequence = ? AND sequence > ?`,
			f.Accession, s.Bucket, s.Sequence, len(s.Classes)); err != nil {
			return fmt.Errorf("prune class contracts: %w", err)
		}
	}
	for _, bucket := range []string{filing.BucketExisting, filing.BucketNew, filing.BucketNewClasses} {
		if err := q.Exec(ctx, `DELETE FROM series WHERE accession = ? AND bucket = ? AND sequence > ?`,
			f.Accession, bucket, perBucket[bucket]); err != nil {
			return fmt.Errorf("prune series: %w", err)
		}
		if err := q.Exec(ctx, `DELETE FROM class_contracts WHERE accession = ? AND bucket = ? AND series_sequence > ?`,
			f.Accession, bucket, perBucket[bucket]); err != nil {
			return fmt.Errorf("prune class contracts: %w", err)
		}
	}
	return nil
}

func upsertMergers(ctx context.Context, q querier, f *filing.Filing) error {
	for _, m := range f.Mergers {
		data, err := recordJSON(m.Data)
		if err != nil {
			return err
		}
		if data == nil {
			data = "{}"
		}
		if err := q.Exec(ctx, `INSERT INTO mergers (accession, sequence, data_json) VALUES (?, ?, ?)
            ON CONFLICT (accession, sequence) DO UPDATE SET data_json = excluded.data_json`,
			f.Accession, m.Sequence, data,
		); err != nil {
			return fmt.Errorf("merger %d: %w", m.Sequence, err)
		}
	}
	if err := q.Exec(ctx, `DELETE FROM mergers WHERE accession = ? AND sequence > ?`, f.Accession, len(f.Mergers)); err != nil {
		return fmt.Errorf("prune mergers: %w", err)
	}
	return nil
}

func upsertDocuments(ctx context.Context, q querier, f *filing.Filing) error {
	for _, doc := range f.Documents {
		if err := q.Exec(ctx, `INSERT INTO documents (
                accession, sequence, type, sequence_text, filename, description, digest, blob_key
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT (accession, sequence) DO UPDATE SET
                type = excluded.type,
                sequence_text = excluded.sequence_text,
                filename = excluded.filename,
                description = excluded.description,
                digest = excluded.digest,
                blob_key = excluded.blob_key`,
			f.Accession, doc.Sequence,
			nullableString(doc.Type),
			nullableString(doc.SequenceText),
			nullableString(doc.Filename),
			nullableString(doc.Description),
			nullableString(doc.Digest),
			nullableString(doc.BlobKey),
		); err != nil {
			return fmt.Errorf("document %d: %w", doc.Sequence, err)
		}
	}
	if err := q.Exec(ctx, `DELETE FROM documents WHERE accession = ? AND sequence > ?`, f.Accession, len(f.Documents)); err != nil {
		return fmt.Errorf("prune documents: %w", err)
	}
	return nil
}

// LoadFiling reads a filing and its children. A missing accession returns an
// error marked services.ErrNotFound.
func (d *DB) LoadFiling(ctx context.Context, accession string) (*filing.Filing, error) {
	f, err := loadSubmission(ctx, d.b, accession)
	if err != nil {
		return nil, err
	}
	loaders := []struct {
		name string
		fn   func(context.Context, querier, *filing.Filing) error
	}{
		{"entities", loadEntities},
		{"series", loadSeries},
		{"mergers", loadMergers},
		{"documents", loadDocuments},
	}
	for _, l := range loaders {
		if err := l.fn(ctx, d.b, f); err != nil {
			return nil, services.Wrap(services.ErrStore, "store", "load "+l.name, accession, err)
		}
	}
	return f, nil
}

func loadSubmission(ctx context.Context, q querier, accession string) (*filing.Filing, error) {
	f := &filing.Filing{Accession: accession}
	var (
		docCount, period, items, filingDate          *string
		dateChange, effectiveness, members, ownerCIK *string
		extra                                        *string
		updatedAt                                    string
		correction, deletion, privateToPublic        int
	)
	err := q.QueryRow(ctx, `SELECT form_type, public_document_count, period, items_json, filing_date,
            date_of_filing_date_change, effectiveness_date, group_members_json,
            correction, deletion, private_to_public, new_series_owner_cik, extra_json, updated_at
        FROM submissions WHERE accession = ?`, accession).Scan(
		&f.Type, &docCount, &period, &items, &filingDate,
		&dateChange, &effectiveness, &members,
		&correction, &deletion, &privateToPublic, &ownerCIK, &extra, &updatedAt,
	)
	if errors.Is(err, errNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "load", accession, nil)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "store", "load submission", accession, err)
	}
	f.PublicDocumentCount = deref(docCount)
	f.Period = deref(period)
	f.FilingDate = deref(filingDate)
	f.DateOfFilingDateChange = deref(dateChange)
	f.EffectivenessDate = deref(effectiveness)
	f.NewSeriesOwnerCIK = deref(ownerCIK)
	f.Correction = correction != 0
	f.Deletion = deletion != 0
	f.PrivateToPublic = privateToPublic != 0
	if f.Items, err = parseStrings(items); err != nil {
		return nil, services.Wrap(services.ErrStore, "store", "decode items", accession, err)
	}
	if f.GroupMembers, err = parseStrings(members); err != nil {
		return nil, services.Wrap(services.ErrStore, "store", "decode group members", accession, err)
	}
	if f.Extra, err = parseRecord(extra); err != nil {
		return nil, services.Wrap(services.ErrStore, "store", "decode extra", accession, err)
	}
	if f.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, services.Wrap(services.ErrStore, "store", "decode updated_at", accession, err)
	}
	return f, nil
}

func loadEntities(ctx context.Context, q querier, f *filing.Filing) error {
	rs, err := q.Query(ctx, `SELECT role, sequence, shape, conformed_name, cik, assigned_sic,
            organization_name, irs_number, state_of_incorporation, fiscal_year_end,
            filing_values_json, business_address_json, mail_address_json, extra_json
        FROM entities WHERE accession = ? ORDER BY role, sequence`, f.Accession)
	if err != nil {
		return err
	}
	defer rs.Close()

	index := make(map[string]int)
	for rs.Next() {
		var (
			e                               filing.Entity
			shape                           string
			name, cik, sic, irs, state, fye *string
			values, business, mail, extra   *string
		)
		if err := rs.Scan(&e.Role, &e.Sequence, &shape, &name, &cik, &sic,
			&e.OrganizationName, &irs, &state, &fye,
			&values, &business, &mail, &extra); err != nil {
			return err
		}
		e.Shape = filing.Shape(shape)
		e.ConformedName = deref(name)
		e.CIK = deref(cik)
		e.AssignedSIC = deref(sic)
		e.IRSNumber = deref(irs)
		e.StateOfIncorporation = deref(state)
		e.FiscalYearEnd = deref(fye)
		if values != nil {
			e.FilingValues = &filing.FilingValues{}
			if err := json.Unmarshal([]byte(*values), e.FilingValues); err != nil {
				return err
			}
		}
		if e.BusinessAddress, err = parseAddress(business); err != nil {
			return err
		}
		if e.MailAddress, err = parseAddress(mail); err != nil {
			return err
		}
		if e.Extra, err = parseRecord(extra); err != nil {
			return err
		}
		index[entityKey(e.Role, e.Sequence)] = len(f.Entities)
		f.Entities = append(f.Entities, e)
	}
	if err := rs.Err(); err != nil {
		return err
	}

	frs, err := q.Query(ctx, `SELECT role, entity_sequence, sequence, company, name, date_changed
        FROM former_names WHERE accession = ? ORDER BY role, entity_sequence, sequence`, f.Accession)
	if err != nil {
		return err
	}
	defer frs.Close()
	for frs.Next() {
		var (
			role          string
			entitySeq     int
			fn            filing.FormerName
			company       int
			name, changed *string
		)
		if err := frs.Scan(&role, &entitySeq, &fn.Sequence, &company, &name, &changed); err != nil {
			return err
		}
		i, ok := index[entityKey(role, entitySeq)]
		if !ok {
			continue
		}
		fn.Company = company != 0
		fn.Name = deref(name)
		fn.DateChanged = deref(changed)
		f.Entities[i].FormerNames = append(f.Entities[i].FormerNames, fn)
	}
	return frs.Err()
}

func loadSeries(ctx context.Context, q querier, f *filing.Filing) error {
	rs, err := q.Query(ctx, `SELECT bucket, sequence, owner_cik, series_id, series_name
        FROM series WHERE accession = ? ORDER BY bucket, sequence`, f.Accession)
	if err != nil {
		return err
	}
	defer rs.Close()
	index := make(map[string]int)
	var loaded []filing.Series
	for rs.Next() {
		var (
			s               filing.Series
			owner, id, name *string
		)
		if err := rs.Scan(&s.Bucket, &s.Sequence, &owner, &id, &name); err != nil {
			return err
		}
		s.OwnerCIK = deref(owner)
		s.SeriesID = deref(id)
		s.SeriesName = deref(name)
		index[entityKey(s.Bucket, s.Sequence)] = len(loaded)
		loaded = append(loaded, s)
	}
	if err := rs.Err(); err != nil {
		return err
	}

	crs, err := q.Query(ctx, `SELECT bucket, series_sequence, sequence, class_id, name, ticker
        FROM class_contracts WHERE accession = ? ORDER BY bucket, series_sequence, sequence`, f.Accession)
	if err != nil {
		return err
	}
	defer crs.Close()
	for crs.Next() {
		var (
			bucket           string
			seriesSeq        int
			c                filing.ClassContract
			id, name, ticker *string
		)
		if err := crs.Scan(&bucket, &seriesSeq, &c.Sequence, &id, &name, &ticker); err != nil {
			return err
		}
		i, ok := index[entityKey(bucket, seriesSeq)]
		if !ok {
			continue
		}
		c.ID = deref(id)
		c.Name = deref(name)
		c.Ticker = deref(ticker)
		loaded[i].Classes = append(loaded[i].Classes, c)
	}
	if err := crs.Err(); err != nil {
		return err
	}
	f.Series = loaded
	return nil
}

func loadMergers(ctx context.Context, q querier, f *filing.Filing) error {
	rs, err := q.Query(ctx, `SELECT sequence, data_json FROM mergers WHERE accession = ? ORDER BY sequence`, f.Accession)
	if err != nil {
		return err
	}
	defer rs.Close()
	for rs.Next() {
		var (
			m    filing.Merger
			data string
		)
		if err := rs.Scan(&m.Sequence, &data); err != nil {
			return err
		}
		if m.Data, err = parseRecord(&data); err != nil {
			return err
		}
		f.Mergers = append(f.Mergers, m)
	}
	return rs.Err()
}

func loadDocuments(ctx context.Context, q querier, f *filing.Filing) error {
	rs, err := q.Query(ctx, `SELECT sequence, type, sequence_text, filename, description, digest, blob_key
        FROM documents WHERE accession = ? ORDER BY sequence`, f.Accession)
	if err != nil {
		return err
	}
	defer rs.Close()
	for rs.Next() {
		var (
			doc                                       filing.Document
			typ, seqText, name, desc, digest, blobKey *string
		)
		if err := rs.Scan(&doc.Sequence, &typ, &seqText, &name, &desc, &digest, &blobKey); err != nil {
			return err
		}
		doc.Type = deref(typ)
		doc.SequenceText = deref(seqText)
		doc.Filename = deref(name)
		doc.Description = deref(desc)
		doc.Digest = deref(digest)
		doc.BlobKey = deref(blobKey)
		f.Documents = append(f.Documents, doc)
	}
	return rs.Err()
}

func entityKey(role string, seq int) string {
	return fmt.Sprintf("%s/%d", role, seq)
}

func recordJSON(rec *sgml.Record) (any, error) {
	if rec == nil || rec.Len() == 0 {
		return nil, nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return string(data), nil
}

func parseRecord(value *string) (*sgml.Record, error) {
	rec := sgml.NewRecord()
	if value == nil || *value == "" {
		return rec, nil
	}
	if err := json.Unmarshal([]byte(*value), rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func parseAddress(value *string) (*filing.Address, error) {
	if value == nil {
		return nil, nil
	}
	addr := &filing.Address{}
	if err := json.Unmarshal([]byte(*value), addr); err != nil {
		return nil, err
	}
	return addr, nil
}

func stringsJSON(values []string) any {
	if len(values) == 0 {
		return nil
	}
	data, _ := json.Marshal(values)
	return string(data)
}

func parseStrings(value *string) ([]string, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(*value), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// valueJSON encodes a nested struct pointer; nil stays NULL.
func valueJSON[T any](v *T) any {
	if v == nil {
		return nil
	}
	data, _ := json.Marshal(v)
	return string(data)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
