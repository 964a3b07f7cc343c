package ingest

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"edgarfeed/internal/blobstore"
	"edgarfeed/internal/config"
	"edgarfeed/internal/edgar"
	"edgarfeed/internal/fileutil"
	"edgarfeed/internal/filing"
	"edgarfeed/internal/logging"
	"edgarfeed/internal/services"
	"edgarfeed/internal/store"
	"edgarfeed/internal/submission"
	"edgarfeed/internal/textutil"
)

// Job describes one submission file to index.
type Job struct {
	Path string
	Day  time.Time
	// Repad writes each binary document's UUENCODE text, at full line
	// width, beside the extracted file as <name>.uu.
	Repad bool
}

// Outcome summarizes an indexed submission.
type Outcome struct {
	Accession string
	FormType  string
	Bytes     int64
	Documents int
	Elapsed   time.Duration
}

// Ingestor runs jobs against a store and blob store; either may be nil when
// the corresponding output is disabled.
type Ingestor struct {
	cfg    *config.Config
	store  store.Store
	blobs  blobstore.Store
	logger *slog.Logger
}

// New builds an Ingestor.
func New(cfg *config.Config, st store.Store, blobs blobstore.Store, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		cfg:    cfg,
		store:  st,
		blobs:  blobs,
		logger: logging.ForComponent(logger, cfg, "ingest"),
	}
}

// Process parses and indexes one submission file.
func (i *Ingestor) Process(ctx context.Context, job Job) (Outcome, error) {
	start := time.Now()
	var out Outcome
	ctx = services.WithDay(ctx, job.Day.Format(edgar.DayLayout))

	res, err := submission.ParseFile(ctx, job.Path, submission.Options{
		Repad:  job.Repad,
		Logger: i.logger,
		OnComplete: func(ctx context.Context, res *submission.Result) error {
			return i.index(ctx, job, res)
		},
	})
	out.Elapsed = time.Since(start)
	if err != nil {
		logging.ErrorWithContext(logging.WithContext(services.WithFile(ctx, job.Path), i.logger),
			"submission failed", "submission_failed",
			append(logging.ErrorAttrs(err),
				logging.String(logging.FieldErrorHint, hintFor(err)),
			)...,
		)
		return out, err
	}
	out.Accession = res.Accession
	out.FormType = res.FormType
	out.Bytes = res.Bytes
	out.Documents = len(res.Documents)
	return out, nil
}

func hintFor(err error) string {
	switch services.Category(err) {
	case "format":
		return "inspect the submission header at the reported lines"
	case "store":
		return "check store connectivity and schema"
	case "not_found":
		return "the feed directory changed while indexing"
	default:
		return "rerun the day with --from/--to to retry"
	}
}

// index is the READ_COMPLETE hand-off.
func (i *Ingestor) index(ctx context.Context, job Job, res *submission.Result) error {
	f, err := filing.FromRecord(res.Record)
	if err != nil {
		return err
	}
	logger := logging.WithContext(ctx, i.logger)
	if len(f.Unmapped) > 0 {
		logging.WarnWithContext(logger, "header fields not persisted", "unmapped_fields",
			logging.String("fields", strings.Join(f.Unmapped, ",")),
			logging.String(logging.FieldImpact, "fields will be missing from rebuilt dissemination files"),
			logging.String(logging.FieldErrorHint, "extend the filing model for these tags"),
		)
	}

	for idx, doc := range res.Documents {
		if idx >= len(f.Documents) {
			break
		}
		f.Documents[idx].Digest = Digest(doc.Data)
	}

	var errs []error
	if err := i.writeOutputs(job, res); err != nil {
		errs = append(errs, err)
	}
	if i.cfg.Output.UploadDocuments && i.blobs != nil {
		errs = append(errs, i.upload(ctx, f, res)...)
	}
	if i.cfg.Output.Persist && i.store != nil {
		if err := i.store.UpsertFiling(ctx, f); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	logger.Debug("submission indexed",
		logging.String("form_type", f.Type),
		logging.Int("documents", len(res.Documents)),
		logging.Int64("submission_bytes", res.Bytes),
	)
	return nil
}

func (i *Ingestor) upload(ctx context.Context, f *filing.Filing, res *submission.Result) []error {
	var errs []error
	for idx, doc := range res.Documents {
		if idx >= len(f.Documents) {
			break
		}
		key := blobstore.DocumentKey(f.Accession, textutil.FallbackFileName(doc.Filename, doc.Index))
		if err := i.blobs.Write(ctx, key, doc.Data, edgar.ContentType(doc.Filename)); err != nil {
			logging.ErrorWithContext(logging.WithContext(ctx, i.logger), "document upload failed", "blob_write_failed",
				logging.String("key", key),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check blob store credentials and bucket"),
			)
			errs = append(errs, err)
			continue
		}
		f.Documents[idx].BlobKey = key
	}
	return errs
}

func (i *Ingestor) writeOutputs(job Job, res *submission.Result) error {
	if !i.cfg.Output.WriteJSON && !i.cfg.Output.ExtractFiles {
		return nil
	}
	sgmlPath, jsonPath := edgar.FilingOutputPaths(i.cfg.Paths.FilingsDir, edgar.Accession(res.Accession), job.Day, job.Path)
	if err := os.MkdirAll(filepath.Dir(sgmlPath), 0o755); err != nil {
		return services.Wrap(services.ErrTransport, "ingest", "outputs", sgmlPath, err)
	}
	if i.cfg.Output.WriteJSON {
		data, err := json.MarshalIndent(res.Record, "", "  ")
		if err != nil {
			return services.Wrap(services.ErrFormat, "ingest", "encode json", res.Accession, err)
		}
		if err := fileutil.WriteFileAtomic(jsonPath, append(data, '\n'), 0o644); err != nil {
			return services.Wrap(services.ErrTransport, "ingest", "write json", jsonPath, err)
		}
	}
	if i.cfg.Output.ExtractFiles {
		header := strings.Join(res.HeaderLines, "\n") + "\n"
		if err := fileutil.WriteFileAtomic(sgmlPath, []byte(header), 0o644); err != nil {
			return services.Wrap(services.ErrTransport, "ingest", "write sgml", sgmlPath, err)
		}
		dir := filepath.Dir(sgmlPath)
		for _, doc := range res.Documents {
			name := textutil.SanitizeFileName(doc.Filename)
			if name == "" {
				continue
			}
			target := filepath.Join(dir, name)
			if err := fileutil.WriteFileAtomic(target, doc.Data, 0o644); err != nil {
				return services.Wrap(services.ErrTransport, "ingest", "extract", target, err)
			}
			if job.Repad && doc.Binary {
				uu := target + ".uu"
				if err := fileutil.WriteFileAtomic(uu, []byte(doc.Text()), 0o644); err != nil {
					return services.Wrap(services.ErrTransport, "ingest", "extract", uu, err)
				}
			}
		}
	}
	return nil
}

// Digest returns the hex BLAKE3-256 digest of a document payload.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
