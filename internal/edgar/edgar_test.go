package edgar_test

import (
	"path/filepath"
	"testing"
	"time"

	"edgarfeed/internal/edgar"
)

func TestAccessionIntRoundTrip(t *testing.T) {
	cases := []string{"0000000000-24-000001", "0001209191-24-123456", "9999999999-99-999999"}
	for _, value := range cases {
		acc, err := edgar.ParseAccession(value)
		if err != nil {
			t.Fatalf("parse %s: %v", value, err)
		}
		n, err := acc.Int()
		if err != nil {
			t.Fatalf("int %s: %v", value, err)
		}
		back, err := edgar.AccessionFromInt(n)
		if err != nil {
			t.Fatalf("from int %d: %v", n, err)
		}
		if back != acc {
			t.Fatalf("round trip %s -> %d -> %s", value, n, back)
		}
	}
}

func TestAccessionIntLayout(t *testing.T) {
	acc := edgar.Accession("0001209191-24-000007")
	n, err := acc.Int()
	if err != nil {
		t.Fatalf("int: %v", err)
	}
	if n != 1209191*100_000_000+24*1_000_000+7 {
		t.Fatalf("unexpected packing %d", n)
	}
}

func TestParseAccessionRejectsBadInput(t *testing.T) {
	for _, value := range []string{"", "123-24-000001", "0001209191-2-000001", "0001209191-24-00000a"} {
		if _, err := edgar.ParseAccession(value); err == nil {
			t.Fatalf("expected error for %q", value)
		}
	}
}

func TestPadCIK(t *testing.T) {
	if got := edgar.PadCIK("320193"); got != "0000320193" {
		t.Fatalf("unexpected padding %q", got)
	}
	if got := edgar.PadCIK("n/a"); got != "n/a" {
		t.Fatalf("non-numeric input changed: %q", got)
	}
}

func TestArchiveURL(t *testing.T) {
	day := time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC)
	got := edgar.ArchiveURL("https://www.sec.gov/Archives/edgar/Feed/", day)
	want := "https://www.sec.gov/Archives/edgar/Feed/2024/QTR2/20240503.nc.tar.gz"
	if got != want {
		t.Fatalf("want %s, got %s", want, got)
	}
}

func TestNextBusinessDaySkipsWeekend(t *testing.T) {
	friday := time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC)
	next := edgar.NextBusinessDay(friday)
	if next.Weekday() != time.Monday || next.Day() != 6 {
		t.Fatalf("expected Monday 6th, got %s", next)
	}
}

func TestFilingOutputPaths(t *testing.T) {
	day := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	sgmlPath, jsonPath := edgar.FilingOutputPaths("/data/filings", "0000000000-24-000001", day, "0000000000-24-000001.nc")
	if sgmlPath != filepath.Join("/data/filings", "0000000000-24-000001", "20240102_0000000000-24-000001.sgml") {
		t.Fatalf("unexpected sgml path %s", sgmlPath)
	}
	if filepath.Ext(jsonPath) != ".json" {
		t.Fatalf("unexpected json path %s", jsonPath)
	}
}

func TestDocumentClassification(t *testing.T) {
	for _, name := range []string{"a.pdf", "B.JPG", "c.xlsx", "d.zip"} {
		if !edgar.IsBinaryFilename(name) {
			t.Fatalf("%s should be binary", name)
		}
	}
	for _, name := range []string{"a.htm", "b.txt", "c.xml"} {
		if edgar.IsBinaryFilename(name) {
			t.Fatalf("%s should be text", name)
		}
	}
	if !edgar.IsPDFFilename("report.PDF") {
		t.Fatal("expected pdf detection")
	}
}

func TestInvestmentCompanyForms(t *testing.T) {
	for _, form := range []string{"N-2", "N-14", "486BPOS", "485BPOS/A"} {
		if !edgar.IsInvestmentCompanyForm(form) {
			t.Fatalf("%s should be an investment-company form", form)
		}
	}
	for _, form := range []string{"4", "10-K", "8-K"} {
		if edgar.IsInvestmentCompanyForm(form) {
			t.Fatalf("%s should not be an investment-company form", form)
		}
	}
}
