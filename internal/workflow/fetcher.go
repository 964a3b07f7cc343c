package workflow

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"

	"edgarfeed/internal/config"
	"edgarfeed/internal/edgar"
	"edgarfeed/internal/fileutil"
	"edgarfeed/internal/logging"
	"edgarfeed/internal/services"
)

// ErrMissing marks a day for which the host publishes no archive
// (weekday holidays).
var ErrMissing = errors.New("feed archive not published")

// FetchResult describes an unpacked archive.
type FetchResult struct {
	Bytes int64
	Files int
}

// Fetcher downloads and unpacks one day's archive into dest.
type Fetcher interface {
	Fetch(ctx context.Context, day time.Time, dest string) (FetchResult, error)
}

// HTTPFetcher downloads archives from the feed host.
type HTTPFetcher struct {
	client    *http.Client
	baseURL   string
	host      string
	userAgent string
	logger    *slog.Logger
}

// NewHTTPFetcher builds a fetcher from cfg.Archive. Timeouts come from the
// caller's context.
func NewHTTPFetcher(cfg *config.Config, logger *slog.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		client:    &http.Client{},
		baseURL:   cfg.Archive.BaseURL,
		host:      cfg.Archive.Host,
		userAgent: cfg.Archive.UserAgent,
		logger:    logging.ForComponent(logger, cfg, "fetch"),
	}
}

// Fetch streams the archive through gunzip and tar into dest. Files land in
// a sibling ".partial" directory that replaces dest only once the archive
// is fully read.
func (f *HTTPFetcher) Fetch(ctx context.Context, day time.Time, dest string) (FetchResult, error) {
	var result FetchResult
	url := edgar.ArchiveURL(f.baseURL, day)
	logger := logging.WithContext(ctx, f.logger).With(logging.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return result, services.Wrap(services.ErrConfiguration, "fetch", "request", url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	if f.host != "" {
		req.Host = f.host
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return result, classifyTransport("download", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return result, services.Wrap(services.ErrNotFound, "fetch", "download", url, ErrMissing)
	case resp.StatusCode != http.StatusOK:
		return result, services.Wrap(services.ErrTransport, "fetch", "download", fmt.Sprintf("%s: status %d", url, resp.StatusCode), nil)
	}

	body := &progressReader{
		r:       resp.Body,
		total:   resp.ContentLength,
		key:     day.Format(edgar.DayLayout),
		sampler: logging.NewProgressSampler(25),
		logger:  logger,
	}
	partial := dest + ".partial"
	if err := os.RemoveAll(partial); err != nil {
		return result, services.Wrap(services.ErrTransport, "fetch", "prepare", partial, err)
	}
	files, err := unpack(body, partial)
	result.Bytes = body.read
	result.Files = files
	if err != nil {
		_ = os.RemoveAll(partial)
		if errors.Is(err, services.ErrFormat) {
			return result, err
		}
		return result, classifyTransport("unpack", url, err)
	}
	if err := fileutil.ReplaceDir(partial, dest); err != nil {
		return result, services.Wrap(services.ErrTransport, "fetch", "replace", dest, err)
	}
	logger.Info("archive unpacked",
		logging.Int("files", files),
		logging.Int64("archive_bytes", body.read),
		logging.String("dir", dest),
	)
	return result, nil
}

func classifyTransport(op, url string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "fetch", op, url, err)
	}
	return services.Wrap(services.ErrTransport, "fetch", op, url, err)
}

// unpack writes the regular files of a gzip-compressed tar stream into dir,
// flattened to their base names.
func unpack(r io.Reader, dir string) (int, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return 0, services.Wrap(services.ErrFormat, "fetch", "gunzip", dir, err)
	}
	defer gz.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	tr := tar.NewReader(gz)
	files := 0
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return files, nil
		}
		if err != nil {
			return files, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := filepath.Base(filepath.Clean("/" + hdr.Name))
		if name == "/" || name == "." {
			continue
		}
		if _, err := fileutil.WriteStream(filepath.Join(dir, name), tr, 0o644); err != nil {
			return files, err
		}
		files++
	}
}

type progressReader struct {
	r       io.Reader
	read    int64
	total   int64
	key     string
	sampler *logging.ProgressSampler
	logger  *slog.Logger
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 {
		percent := float64(p.read) * 100 / float64(p.total)
		if p.sampler.ShouldLog(percent, p.key) {
			p.logger.Debug("archive download progress",
				logging.Float64("percent", percent),
				logging.String("downloaded", humanize.Bytes(uint64(p.read))),
				logging.String("total", humanize.Bytes(uint64(p.total))),
			)
		}
	}
	return n, err
}
