package ingest_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"edgarfeed/internal/blobstore"
	"edgarfeed/internal/ingest"
	"edgarfeed/internal/logging"
	"edgarfeed/internal/services"
	"edgarfeed/internal/testsupport"
	"edgarfeed/internal/uuencode"
)

var feedDay = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

func writeNCSR(t *testing.T, dir string) (string, []byte) {
	t.Helper()
	jpg := testsupport.Payload(120)
	encoded := strings.TrimSuffix(uuencode.Encode(jpg, "g123456g01.jpg"), "\n")
	path := filepath.Join(dir, "0001193125-24-000777.nc")
	testsupport.WriteFile(t, path, testsupport.FeedFile(testsupport.NCSRHeader, "<html>report</html>", encoded))
	return path, jpg
}

func TestProcessPersistsFilingAndDocuments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenStore(t, cfg)
	blobs, err := blobstore.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("blobstore.Open: %v", err)
	}
	path, jpg := writeNCSR(t, t.TempDir())

	ing := ingest.New(cfg, db, blobs, logging.NewNop())
	out, err := ing.Process(context.Background(), ingest.Job{Path: path, Day: feedDay})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Accession != "0001193125-24-000777" || out.FormType != "N-CSR" || out.Documents != 2 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out.Bytes == 0 {
		t.Fatal("expected byte count")
	}

	f, err := db.LoadFiling(context.Background(), out.Accession)
	if err != nil {
		t.Fatalf("LoadFiling: %v", err)
	}
	graphic := f.Documents[1]
	if graphic.Digest != ingest.Digest(jpg) {
		t.Fatalf("digest mismatch: %s", graphic.Digest)
	}
	if graphic.BlobKey != blobstore.DocumentKey(out.Accession, "g123456g01.jpg") {
		t.Fatalf("unexpected blob key %q", graphic.BlobKey)
	}
	stored, err := blobs.ReadText(context.Background(), graphic.BlobKey)
	if err != nil || stored != string(jpg) {
		t.Fatalf("blob payload mismatch: %v", err)
	}
}

func TestProcessWritesOptionalOutputs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithOutput(true, true), testsupport.WithoutBlobs())
	cfg.Output.Persist = false
	path, jpg := writeNCSR(t, t.TempDir())

	if _, err := ingest.New(cfg, nil, nil, nil).Process(context.Background(), ingest.Job{Path: path, Day: feedDay}); err != nil {
		t.Fatalf("Process: %v", err)
	}

	dir := filepath.Join(cfg.Paths.FilingsDir, "0001193125-24-000777")
	data, err := os.ReadFile(filepath.Join(dir, "20240301_0001193125-24-000777.json"))
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var rec map[string]any
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("json output invalid: %v", err)
	}
	if rec["accession_number"] != "0001193125-24-000777" {
		t.Fatalf("unexpected json record %v", rec["accession_number"])
	}

	header, err := os.ReadFile(filepath.Join(dir, "20240301_0001193125-24-000777.sgml"))
	if err != nil {
		t.Fatalf("read sgml: %v", err)
	}
	if strings.Contains(string(header), "<TEXT>") {
		t.Fatal("sgml header must not carry document bodies")
	}
	extracted, err := os.ReadFile(filepath.Join(dir, "g123456g01.jpg"))
	if err != nil || string(extracted) != string(jpg) {
		t.Fatalf("extracted document mismatch: %v", err)
	}
}

func TestProcessRepadWritesFullWidthUUENCODE(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithOutput(false, true), testsupport.WithoutBlobs())
	cfg.Output.Persist = false
	// Zero bytes encode to spaces, which the encoder strips from the line end.
	jpg := make([]byte, uuencode.LineBytes)
	encoded := strings.TrimSuffix(uuencode.Encode(jpg, "g123456g01.jpg"), "\n")
	path := testsupport.WriteFile(t, filepath.Join(t.TempDir(), "0001193125-24-000777.nc"),
		testsupport.FeedFile(testsupport.NCSRHeader, "<html>report</html>", encoded))
	dir := filepath.Join(cfg.Paths.FilingsDir, "0001193125-24-000777")

	ing := ingest.New(cfg, nil, nil, nil)
	if _, err := ing.Process(context.Background(), ingest.Job{Path: path, Day: feedDay}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "g123456g01.jpg.uu")); !os.IsNotExist(err) {
		t.Fatalf("expected no UUENCODE sidecar without repad, got %v", err)
	}

	if _, err := ing.Process(context.Background(), ingest.Job{Path: path, Day: feedDay, Repad: true}); err != nil {
		t.Fatalf("Process with repad: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "g123456g01.jpg.uu"))
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) != 4 || !strings.HasPrefix(lines[0], "begin ") || lines[3] != "end" {
		t.Fatalf("unexpected sidecar framing: %q", lines)
	}
	if len(lines[1]) != uuencode.LineWidth {
		t.Fatalf("expected %d-character data line, got %d", uuencode.LineWidth, len(lines[1]))
	}
	if strings.TrimRight(lines[1], " ") != strings.Split(encoded, "\n")[1] {
		t.Fatalf("repadded line differs beyond trailing spaces: %q", lines[1])
	}
	decoded, err := uuencode.Decode(string(data))
	if err != nil || string(decoded) != string(jpg) {
		t.Fatalf("sidecar does not decode to the payload: %v", err)
	}
}

func TestProcessMalformedSubmissionPersistsNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenStore(t, cfg)
	header := strings.Replace(testsupport.Form4Header, "<TYPE>4", "<TYPE>4\n<TYPE>5", 1)
	path := testsupport.WriteFile(t, filepath.Join(t.TempDir(), "bad.nc"), testsupport.FeedFile(header, "<XML/>"))

	_, err := ingest.New(cfg, db, nil, nil).Process(context.Background(), ingest.Job{Path: path, Day: feedDay})
	if !errors.Is(err, services.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
	counts, err := db.RowCounts(context.Background(), "0001127602-24-012345")
	if err != nil {
		t.Fatalf("RowCounts: %v", err)
	}
	if counts["submissions"] != 0 {
		t.Fatalf("malformed submission was persisted: %v", counts)
	}
}

func TestDigest(t *testing.T) {
	const empty = "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"
	if got := ingest.Digest(nil); got != empty {
		t.Fatalf("Digest(nil) = %s", got)
	}
}
