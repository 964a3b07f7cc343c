package sgml_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"edgarfeed/internal/services"
	"edgarfeed/internal/sgml"
	"edgarfeed/internal/tags"
	"edgarfeed/internal/testsupport"
)

func TestDecodeMinimalSubmission(t *testing.T) {
	lines := []string{"<SUBMISSION>", "<ACCESSION-NUMBER>0000000000-24-000001", "<TYPE>4", "</SUBMISSION>"}
	rec, err := sgml.Decode(lines)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := rec.Keys(); !reflect.DeepEqual(got, []string{"accession_number", "type"}) {
		t.Fatalf("unexpected keys %v", got)
	}
	if rec.String("accession_number") != "0000000000-24-000001" || rec.String("type") != "4" {
		t.Fatalf("unexpected values: %v %v", rec.String("accession_number"), rec.String("type"))
	}

	text, err := sgml.Encode(rec)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if want := strings.Join(lines, "\n") + "\n"; text != want {
		t.Fatalf("encode mismatch:\n%s\nwant:\n%s", text, want)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	headers := map[string]string{
		"form4": testsupport.Form4Header,
		"ncsr":  testsupport.NCSRHeader,
		"sc13g": testsupport.SC13GHeader,
	}
	for name, header := range headers {
		t.Run(name, func(t *testing.T) {
			lines := testsupport.HeaderLines(header)
			rec, err := sgml.Decode(lines)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			for _, doc := range rec.Children("document") {
				doc.SetText("raw_size", "1024")
				doc.SetText("size", "768")
			}

			text, err := sgml.Encode(sgml.Cleanup(rec))
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			want := sgml.Normalize(strings.Join(lines, "\r\n"))
			if got := sgml.Normalize(text); got != want {
				t.Fatalf("round trip mismatch:\n%s\nwant:\n%s", got, want)
			}
			if !rec.Children("document")[0].Has("raw_size") {
				t.Fatalf("cleanup must not modify its input")
			}
		})
	}
}

func TestEncodeKeepsDecodedRoleOrder(t *testing.T) {
	lines := []string{
		"<SUBMISSION>",
		"<TYPE>SC 13D",
		"<FILED-BY>",
		"<COMPANY-DATA>",
		"<CONFORMED-NAME>FUND LP",
		"</COMPANY-DATA>",
		"</FILED-BY>",
		"<SUBJECT-COMPANY>",
		"<COMPANY-DATA>",
		"<CONFORMED-NAME>TARGET CO",
		"</COMPANY-DATA>",
		"</SUBJECT-COMPANY>",
		"</SUBMISSION>",
	}
	rec, err := sgml.Decode(lines)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	text, err := sgml.Encode(rec)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := sgml.Normalize(strings.Join(lines, "\n"))
	if got := sgml.Normalize(text); got != want {
		t.Fatalf("role order changed:\n%s\nwant:\n%s", got, want)
	}
}

func TestDecodeArrayTagsAreAlwaysLists(t *testing.T) {
	rec, err := sgml.Decode(testsupport.HeaderLines(testsupport.Form4Header))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for _, key := range []string{"reporting_owner", "issuer", "document"} {
		v, ok := rec.Get(key)
		if !ok || v.Kind != sgml.ValueRecords || len(v.Records) != 1 {
			t.Fatalf("%s: expected one-element record list, got %+v", key, v)
		}
	}
	issuer := rec.Children("issuer")[0]
	if got := len(issuer.Children("former_company")); got != 2 {
		t.Fatalf("expected 2 former companies, got %d", got)
	}
	if v, _ := issuer.Get("company_data"); v.Kind != sgml.ValueRecord {
		t.Fatalf("company_data should be a single record, got kind %d", v.Kind)
	}

	rec, err = sgml.Decode([]string{"<SUBMISSION>", "<TYPE>8-K", "<ITEMS>2.02", "</SUBMISSION>"})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := rec.Strings("items"); !reflect.DeepEqual(got, []string{"2.02"}) {
		t.Fatalf("items: %v", got)
	}
}

func TestDecodeFlags(t *testing.T) {
	rec, err := sgml.Decode([]string{"<SUBMISSION>", "<TYPE>10-K", "<DELETION>", "<CORRECTION>", "</SUBMISSION>"})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !rec.Bool("deletion") || !rec.Bool("correction") {
		t.Fatalf("flags not decoded: %v", rec.Keys())
	}
	if rec.Bool("private_to_public") {
		t.Fatalf("absent flag reported as set")
	}
	text, err := sgml.Encode(rec)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(text, "<CORRECTION>\n<DELETION>\n") {
		t.Fatalf("flags not rendered in header order:\n%s", text)
	}
}

func TestDecodeRepeatedBlockWithoutArrayClassification(t *testing.T) {
	lines := []string{
		"<SUBMISSION>",
		"<ACCESSION-NUMBER>0000950170-24-000042",
		"<FILER>",
		"<COMPANY-DATA>",
		"<CIK>0000000001",
		"</COMPANY-DATA>",
		"</FILER>",
		"<FILER>",
		"<COMPANY-DATA>",
		"<CIK>0000000002",
		"</COMPANY-DATA>",
		"</FILER>",
		"</SUBMISSION>",
	}
	classify := func(name string) tags.Class {
		class := tags.Classify(name)
		if class.Name == "FILER" {
			class.Kind = tags.KindScalar
		}
		return class
	}

	_, err := sgml.Decode(lines, sgml.WithClassifier(classify))
	if !errors.Is(err, sgml.ErrClassification) {
		t.Fatalf("expected classification error, got %v", err)
	}
	if !errors.Is(err, services.ErrFormat) {
		t.Fatalf("expected format marker on %v", err)
	}
	var ferr *sgml.FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected FormatError, got %T", err)
	}
	if !reflect.DeepEqual(ferr.Lines, []int{3, 8}) {
		t.Fatalf("expected lines [3 8], got %v", ferr.Lines)
	}
	if ferr.Accession != "0000950170-24-000042" {
		t.Fatalf("unexpected accession %q", ferr.Accession)
	}
	if !strings.Contains(err.Error(), "3, 8") {
		t.Fatalf("message missing line numbers: %v", err)
	}

	if _, err := sgml.Decode(lines); err != nil {
		t.Fatalf("FILER is an array tag by default: %v", err)
	}
}

func TestDecodeFormatErrors(t *testing.T) {
	tests := []struct {
		name      string
		lines     []string
		want      error
		wantLines []int
	}{
		{
			name:      "duplicate data tag",
			lines:     []string{"<SUBMISSION>", "<TYPE>4", "<TYPE>4/A", "</SUBMISSION>"},
			want:      sgml.ErrDuplicateTag,
			wantLines: []int{2, 3},
		},
		{
			name: "repeated hierarchical tag",
			lines: []string{
				"<SUBMISSION>",
				"<SERIES-AND-CLASSES-CONTRACTS-DATA>",
				"</SERIES-AND-CLASSES-CONTRACTS-DATA>",
				"<SERIES-AND-CLASSES-CONTRACTS-DATA>",
				"</SERIES-AND-CLASSES-CONTRACTS-DATA>",
				"</SUBMISSION>",
			},
			want:      sgml.ErrClassification,
			wantLines: []int{2, 4},
		},
		{
			name:      "inline data on block",
			lines:     []string{"<SUBMISSION>", "<FILER>oops", "<CIK>1", "</FILER>", "</SUBMISSION>"},
			want:      sgml.ErrInlineData,
			wantLines: []int{2},
		},
		{
			name:      "stray text",
			lines:     []string{"<SUBMISSION>", "not a tag", "</SUBMISSION>"},
			want:      sgml.ErrUnexpectedLine,
			wantLines: []int{2},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := sgml.Decode(tc.lines)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			var ferr *sgml.FormatError
			if !errors.As(err, &ferr) || !reflect.DeepEqual(ferr.Lines, tc.wantLines) {
				t.Fatalf("expected lines %v, got %v", tc.wantLines, err)
			}
		})
	}
}

func TestDecodeRootTagKeepsInlineData(t *testing.T) {
	lines := []string{
		"<SEC-HEADER>0000950170-24-000042.hdr.sgml : 20240102",
		"<ACCEPTANCE-DATETIME>20240102163011",
		"</SEC-HEADER>",
	}
	rec, err := sgml.Decode(lines)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	header := rec.Child("sec_header")
	if header == nil {
		t.Fatalf("missing sec_header")
	}
	if header.Inline != "0000950170-24-000042.hdr.sgml : 20240102" {
		t.Fatalf("inline data lost: %q", header.Inline)
	}
	if header.String("acceptance_datetime") != "20240102163011" {
		t.Fatalf("nested field lost")
	}
}

func TestDecodeUsesSuppliedLineNumbers(t *testing.T) {
	lines := []string{"<SUBMISSION>", "<TYPE>4", "<TYPE>5", "</SUBMISSION>"}
	_, err := sgml.Decode(lines, sgml.WithLineNumbers([]int{10, 11, 14, 15}))
	var ferr *sgml.FormatError
	if !errors.As(err, &ferr) || !reflect.DeepEqual(ferr.Lines, []int{11, 14}) {
		t.Fatalf("expected lines [11 14], got %v", err)
	}
}

func TestEncodeSkipsInvestmentBlocksForOtherForms(t *testing.T) {
	rec, err := sgml.Decode(testsupport.HeaderLines(testsupport.NCSRHeader))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	text, err := sgml.Encode(rec)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(text, "<SERIES-AND-CLASSES-CONTRACTS-DATA>") {
		t.Fatalf("series block missing for N-CSR")
	}

	rec.SetText("type", "10-K")
	text, err = sgml.Encode(rec)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(text, "SERIES-AND-CLASSES-CONTRACTS-DATA") {
		t.Fatalf("series block rendered for 10-K:\n%s", text)
	}
}

func TestEncodeRendersEmptyOrganizationName(t *testing.T) {
	data := sgml.NewRecord()
	data.SetText("conformed_name", "EXAMPLE FUNDS TRUST")
	data.SetText("organization_name", "")
	filer := sgml.NewRecord()
	filer.Set("company_data", sgml.Nested(data))
	rec := sgml.NewRecord()
	rec.SetText("type", "N-CSR")
	rec.Set("filer", sgml.NestedList(filer))

	text, err := sgml.Encode(rec)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(text, "<CONFORMED-NAME>EXAMPLE FUNDS TRUST\n<ORGANIZATION-NAME>\n") {
		t.Fatalf("organization name not rendered:\n%s", text)
	}
}

func TestEncodeRejectsEntityWithBothDataBags(t *testing.T) {
	entity := sgml.NewRecord()
	entity.Set("owner_data", sgml.Nested(sgml.NewRecord()))
	entity.Set("company_data", sgml.Nested(sgml.NewRecord()))
	rec := sgml.NewRecord()
	rec.SetText("accession_number", "0000000000-24-000009")
	rec.Set("reporting_owner", sgml.NestedList(entity))

	_, err := sgml.Encode(rec)
	if !errors.Is(err, sgml.ErrTemplate) {
		t.Fatalf("expected template error, got %v", err)
	}
}

func TestEncodeKeepsUnknownFieldsNextToPredecessor(t *testing.T) {
	rec := sgml.NewRecord()
	rec.SetText("filing_date", "20240102")
	rec.SetText("accession_number", "0000000000-24-000003")
	rec.SetText("x_custom", "kept")
	rec.SetText("type", "8-K")

	text, err := sgml.Encode(rec)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := "<SUBMISSION>\n<ACCESSION-NUMBER>0000000000-24-000003\n<X-CUSTOM>kept\n<TYPE>8-K\n<FILING-DATE>20240102\n</SUBMISSION>\n"
	if text != want {
		t.Fatalf("unexpected order:\n%s", text)
	}
}

func TestEncodeWithBodies(t *testing.T) {
	rec, err := sgml.Decode(testsupport.HeaderLines(testsupport.NCSRHeader))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	text, err := sgml.Encode(rec, sgml.WithBodies(func(index int, doc *sgml.Record) (string, bool, error) {
		if index == 1 {
			return "", false, nil
		}
		return "<html>" + doc.String("filename") + "</html>\n", true, nil
	}))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := "<DESCRIPTION>EXAMPLE FUNDS TRUST\n<TEXT>\n<html>d123456dncsr.htm</html>\n</TEXT>\n</DOCUMENT>\n<DOCUMENT>\n<TYPE>GRAPHIC\n<SEQUENCE>2\n<FILENAME>g123456g01.jpg\n</DOCUMENT>\n"
	if !strings.Contains(text, want) {
		t.Fatalf("bodies not rendered as expected:\n%s", text)
	}
}

func TestRecordJSONPreservesOrder(t *testing.T) {
	rec, err := sgml.Decode(testsupport.HeaderLines(testsupport.Form4Header))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.HasPrefix(string(data), `{"accession_number":"0001127602-24-012345","type":"4",`) {
		t.Fatalf("unexpected JSON prefix: %.80s", data)
	}

	back := sgml.NewRecord()
	if err := json.Unmarshal(data, back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back.Keys(), rec.Keys()) {
		t.Fatalf("key order lost: %v vs %v", back.Keys(), rec.Keys())
	}
}

func TestNormalize(t *testing.T) {
	in := "\r\n<A>1\r\n\r\n\r\n<B>2\r<C>3\n\n"
	if got, want := sgml.Normalize(in), "<A>1\n\n<B>2\n<C>3"; got != want {
		t.Fatalf("Normalize = %q, want %q", got, want)
	}
}
