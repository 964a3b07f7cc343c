package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"edgarfeed/internal/testsupport"
)

const form4Accession = "0001127602-24-012345"

func TestCLIRunThenDisseminate(t *testing.T) {
	archive := feedArchive(t, map[string]string{
		form4Accession + ".nc": testsupport.FeedFile(testsupport.Form4Header, "<XML>form 4</XML>"),
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if filepath.Base(r.URL.Path) != "20240301.nc.tar.gz" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t,
		testsupport.WithArchiveBaseURL(srv.URL),
		testsupport.WithDownloads(1, 0),
	)
	configPath := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, []string{"run", "--from", "20240301", "--to", "20240304", "--in-process"}, configPath)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	requireContains(t, out, "20240301")
	requireContains(t, out, "Indexed")
	requireContains(t, out, "Indexed 1, missing 1, abandoned 0")

	out, _, err = runCLI(t, []string{"disseminate", form4Accession}, configPath)
	if err != nil {
		t.Fatalf("disseminate: %v", err)
	}
	requireContains(t, out, "<ACCESSION-NUMBER>"+form4Accession)
	requireContains(t, out, "<XML>form 4</XML>")

	target := filepath.Join(testsupport.BaseDir(cfg), "out", form4Accession+".txt")
	out, _, err = runCLI(t, []string{"disseminate", form4Accession, "--output", target, "--upload"}, configPath)
	if err != nil {
		t.Fatalf("disseminate --output: %v", err)
	}
	requireContains(t, out, "Wrote "+target)
	requireContains(t, out, "Uploaded ")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected rebuilt file: %v", err)
	}
}

func TestCLIRunReportsAbandonedDays(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t,
		testsupport.WithArchiveBaseURL(srv.URL),
		testsupport.WithDownloads(1, 1),
		testsupport.WithoutBlobs(),
	)
	configPath := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, []string{"run", "--from", "20240301", "--in-process"}, configPath)
	if err == nil {
		t.Fatalf("expected abandoned day error, output:\n%s", out)
	}
	requireContains(t, err.Error(), "20240301")
	requireContains(t, out, "Abandoned")
	requireContains(t, out, "Indexed 0, missing 0, abandoned 1")
}

func TestCLIRunRejectsPlaceholderUserAgent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Archive.UserAgent = "edgarfeed/dev admin@example.com"
	configPath := writeTestConfig(t, cfg)

	_, _, err := runCLI(t, []string{"run", "--from", "20240301"}, configPath)
	if err == nil {
		t.Fatal("expected preflight failure")
	}
	requireContains(t, err.Error(), "preflight failed")
}

func TestCLIParseListsDocuments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)
	file := testsupport.WriteFile(t, filepath.Join(testsupport.BaseDir(cfg), "form4.nc"),
		testsupport.FeedFile(testsupport.Form4Header, "<XML>form 4</XML>"))

	out, _, err := runCLI(t, []string{"parse", file}, configPath)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	requireContains(t, out, "Accession: "+form4Accession)
	requireContains(t, out, "Form type: 4")
	requireContains(t, out, "Filename")

	out, _, err = runCLI(t, []string{"parse", "--json", file}, configPath)
	if err != nil {
		t.Fatalf("parse --json: %v", err)
	}
	requireContains(t, out, `"accession_number"`)
}

func TestCLIUUEncodeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	payload := testsupport.Payload(200)
	src := filepath.Join(dir, "logo.jpg")
	if err := os.WriteFile(src, payload, 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}

	encoded, _, err := runCLI(t, []string{"uuencode", src}, "")
	if err != nil {
		t.Fatalf("uuencode: %v", err)
	}
	requireContains(t, encoded, "begin 644 logo.jpg\n")

	encodedPath := testsupport.WriteFile(t, filepath.Join(dir, "logo.uu"), encoded)
	decodedPath := filepath.Join(dir, "decoded.jpg")
	if _, _, err := runCLI(t, []string{"uudecode", encodedPath, "-o", decodedPath}, ""); err != nil {
		t.Fatalf("uudecode: %v", err)
	}
	got, err := os.ReadFile(decodedPath)
	if err != nil {
		t.Fatalf("read decoded: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch: %d bytes vs %d", len(got), len(payload))
	}
}

func TestCLIConfigInitAndValidate(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	target := filepath.Join(home, "conf", "edgarfeed.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration to "+target)

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+target)
	requireContains(t, out, "Configuration valid")

	out, _, err = runCLI(t, []string{"config", "show"}, target)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[archive]")
	requireContains(t, out, "User-Agent")
	requireContains(t, out, "Failed")

	out, _, err = runCLI(t, []string{"config", "init", "--print"}, "")
	if err != nil {
		t.Fatalf("config init --print: %v", err)
	}
	requireContains(t, out, "[archive]")
}

func TestCLIConfigShowProbesArchiveHost(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithArchiveBaseURL(srv.URL))
	configPath := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, []string{"config", "show", "--probe"}, configPath)
	if err != nil {
		t.Fatalf("config show --probe: %v", err)
	}
	if gotMethod != http.MethodHead {
		t.Fatalf("expected HEAD probe, got %q", gotMethod)
	}
	requireContains(t, out, "Archive host")
}

func TestParseDayRange(t *testing.T) {
	now := time.Date(2024, 3, 5, 15, 4, 0, 0, time.UTC)
	tests := []struct {
		name     string
		from, to string
		wantFrom string
		wantTo   string
		wantErr  bool
	}{
		{name: "defaults to today", wantFrom: "20240305", wantTo: "20240305"},
		{name: "single day", from: "20240301", wantFrom: "20240301", wantTo: "20240301"},
		{name: "range", from: "20240301", to: "20240308", wantFrom: "20240301", wantTo: "20240308"},
		{name: "reversed", from: "20240308", to: "20240301", wantErr: true},
		{name: "bad layout", from: "2024-03-01", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := parseDayRange(tt.from, tt.to, now)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDayRange: %v", err)
			}
			if got := from.Format("20060102"); got != tt.wantFrom {
				t.Fatalf("from = %s, want %s", got, tt.wantFrom)
			}
			if got := to.Format("20060102"); got != tt.wantTo {
				t.Fatalf("to = %s, want %s", got, tt.wantTo)
			}
		})
	}
}
