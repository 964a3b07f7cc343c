package disseminate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"edgarfeed/internal/blobstore"
	"edgarfeed/internal/edgar"
	"edgarfeed/internal/fileutil"
	"edgarfeed/internal/filing"
	"edgarfeed/internal/logging"
	"edgarfeed/internal/services"
	"edgarfeed/internal/sgml"
	"edgarfeed/internal/uuencode"
)

// Loader reads stored filings.
type Loader interface {
	LoadFiling(ctx context.Context, accession string) (*filing.Filing, error)
}

// Result is a rebuilt dissemination file.
type Result struct {
	Accession string
	Text      string
	Documents int
	// MissingBodies lists the 1-based sequences of documents rendered
	// without a TEXT block because no blob was stored for them.
	MissingBodies []int
}

// Builder reconstructs dissemination files.
type Builder struct {
	loader      Loader
	blobs       blobstore.Store
	logger      *slog.Logger
	concurrency int
}

// New returns a Builder. blobs may be nil, in which case every document is
// rendered without its body.
func New(loader Loader, blobs blobstore.Store, logger *slog.Logger) *Builder {
	return &Builder{
		loader:      loader,
		blobs:       blobs,
		logger:      logging.NewComponentLogger(logger, "disseminate"),
		concurrency: 4,
	}
}

// Build renders the dissemination file for accession.
func (b *Builder) Build(ctx context.Context, accession string) (*Result, error) {
	ctx = services.WithAccession(ctx, accession)
	f, err := b.loader.LoadFiling(ctx, accession)
	if err != nil {
		return nil, err
	}

	bodies, err := b.fetchBodies(ctx, f)
	if err != nil {
		return nil, err
	}
	res := &Result{Accession: f.Accession, Documents: len(f.Documents)}
	for i, body := range bodies {
		if body == nil {
			res.MissingBodies = append(res.MissingBodies, f.Documents[i].Sequence)
		}
	}
	if len(res.MissingBodies) > 0 {
		logging.WarnWithContext(logging.WithContext(ctx, b.logger), "documents rebuilt without bodies", "document_body_missing",
			logging.Int("missing", len(res.MissingBodies)),
			logging.String(logging.FieldImpact, "output is not byte-identical to the published file"),
			logging.String(logging.FieldErrorHint, "re-ingest the day with output.upload_documents enabled"),
		)
	}

	text, err := sgml.Encode(f.Record(), sgml.WithBodies(func(index int, _ *sgml.Record) (string, bool, error) {
		if index >= len(bodies) || bodies[index] == nil {
			return "", false, nil
		}
		return *bodies[index], true, nil
	}))
	if err != nil {
		return nil, err
	}
	res.Text = text
	return res, nil
}

// fetchBodies returns the rendered TEXT content per document, nil where no
// blob is stored.
func (b *Builder) fetchBodies(ctx context.Context, f *filing.Filing) ([]*string, error) {
	bodies := make([]*string, len(f.Documents))
	if b.blobs == nil {
		return bodies, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, doc := range f.Documents {
		if doc.BlobKey == "" {
			continue
		}
		g.Go(func() error {
			body, err := b.body(gctx, doc)
			if err != nil {
				if errors.Is(err, services.ErrNotFound) {
					return nil
				}
				return err
			}
			bodies[i] = &body
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bodies, nil
}

func (b *Builder) body(ctx context.Context, doc filing.Document) (string, error) {
	if !edgar.IsBinaryFilename(doc.Filename) {
		return b.blobs.ReadText(ctx, doc.BlobKey)
	}
	r, err := b.blobs.Open(ctx, doc.BlobKey)
	if err != nil {
		return "", err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "disseminate", "read", doc.BlobKey, err)
	}
	encoded := strings.TrimSuffix(uuencode.Encode(data, filepath.Base(doc.Filename)), "\n")
	if edgar.IsPDFFilename(doc.Filename) {
		encoded = "<PDF>\n" + encoded + "\n</PDF>"
	}
	return encoded, nil
}

// Publish stores res under its dissemination key when blobs is set and
// writes it to localPath when that is non-empty.
func (b *Builder) Publish(ctx context.Context, res *Result, localPath string, upload bool) (string, error) {
	var key string
	if upload {
		if b.blobs == nil {
			return "", services.Wrap(services.ErrConfiguration, "disseminate", "publish", "no blob store configured", nil)
		}
		key = blobstore.DisseminationKey(res.Accession)
		if err := b.blobs.Write(ctx, key, []byte(res.Text), "text/plain"); err != nil {
			return "", err
		}
	}
	if localPath != "" {
		if err := fileutil.WriteFileAtomic(localPath, []byte(res.Text), 0o644); err != nil {
			return key, services.Wrap(services.ErrTransport, "disseminate", "write", localPath, err)
		}
	}
	b.logger.Info("dissemination file published",
		logging.Accession(res.Accession),
		logging.String("key", key),
		logging.String("path", localPath),
		logging.Int("documents", res.Documents),
	)
	return key, nil
}
