package submission

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"edgarfeed/internal/edgar"
	"edgarfeed/internal/logging"
	"edgarfeed/internal/services"
	"edgarfeed/internal/sgml"
	"edgarfeed/internal/uuencode"
)

// Options controls parsing.
type Options struct {
	// Repad restores stripped trailing spaces on UUENCODE body lines so
	// Document.Text re-materializes them at the full 61-character width.
	Repad bool
	// OnComplete runs once the whole submission has been read and decoded.
	// It is never called for truncated or malformed input.
	OnComplete func(ctx context.Context, res *Result) error
	Logger     *slog.Logger
}

// Document is one embedded document. Index is 1-based.
type Document struct {
	Index    int
	Sequence string
	Filename string
	Binary   bool
	// Body holds the raw lines between <TEXT> and </TEXT>.
	Body []string
	// RawSize is the byte length of Body including line terminators.
	RawSize int
	// Data is the decoded payload: UUENCODE-decoded bytes for binary
	// documents, the body text otherwise.
	Data []byte
}

// Text returns the body as it sits between <TEXT> and </TEXT>, with
// UUENCODE lines repadded when the parse asked for it.
func (d *Document) Text() string {
	if len(d.Body) == 0 {
		return ""
	}
	return strings.Join(d.Body, "\n") + "\n"
}

// Result is the outcome of parsing one submission file.
type Result struct {
	HeaderLines       []string
	HeaderLineNumbers []int
	Record            *sgml.Record
	Documents         []*Document
	Accession         string
	FormType          string
	Bytes             int64
	State             State
}

type parser struct {
	opts   Options
	logger *slog.Logger
	state  State
	res    *Result
	doc    *Document
}

// ParseFile parses the submission file at path.
func ParseFile(ctx context.Context, path string, opts Options) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "submission", "open", path, err)
	}
	defer f.Close()
	return Parse(services.WithFile(ctx, path), f, opts)
}

// Parse reads one submission from r.
func Parse(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &parser{
		opts:   opts,
		logger: logging.WithContext(ctx, logging.NewComponentLogger(logger, "parser")),
		res:    &Result{},
	}

	reader := bufio.NewReaderSize(r, 64*1024)
	lineNo := 0
	for p.state < StateReadComplete {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			lineNo++
			p.res.Bytes += int64(len(line))
			if lineNo%4096 == 0 {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
			}
			if stepErr := p.step(strings.TrimRight(line, "\r\n"), lineNo); stepErr != nil {
				return nil, stepErr
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrTransport, "submission", "read", fmt.Sprintf("line %d", lineNo+1), err)
		}
	}

	if p.state != StateReadComplete {
		return nil, services.Wrap(services.ErrFormat, "submission", "read",
			fmt.Sprintf("truncated submission: ended in state %s after %d lines", p.state, lineNo), nil)
	}
	if err := p.complete(ctx); err != nil {
		return nil, err
	}
	return p.res, nil
}

func (p *parser) step(raw string, lineNo int) error {
	trimmed := strings.TrimSpace(raw)

	switch p.state {
	case StateInit:
		if trimmed == tagDocument {
			p.startDocument()
		}
		p.header(trimmed, lineNo)
		if trimmed == tagSubmissionClose {
			p.state = StateReadComplete
		}

	case StateDocHeader:
		switch {
		case trimmed == tagText:
			p.state = StateDocBody
			return nil
		case trimmed == tagDocumentClose:
			p.state = StateDocFooter
		case strings.HasPrefix(trimmed, tagFilename):
			p.doc.Filename = strings.TrimSpace(trimmed[len(tagFilename):])
			p.doc.Binary = edgar.IsBinaryFilename(p.doc.Filename)
		case strings.HasPrefix(trimmed, tagSequence):
			p.doc.Sequence = strings.TrimSpace(trimmed[len(tagSequence):])
		}
		p.header(trimmed, lineNo)

	case StateDocBody:
		if trimmed == tagTextClose {
			if err := p.finishDocument(); err != nil {
				return err
			}
			p.state = StateDocFooter
			return nil
		}
		p.doc.Body = append(p.doc.Body, raw)
		p.doc.RawSize += len(raw) + 1

	case StateDocFooter:
		switch trimmed {
		case tagDocument:
			p.startDocument()
		case tagSubmissionClose:
			p.state = StateReadComplete
		}
		p.header(trimmed, lineNo)
	}
	return nil
}

// header records a markup line for the codec. Blank lines are dropped.
func (p *parser) header(trimmed string, lineNo int) {
	if trimmed == "" {
		return
	}
	p.res.HeaderLines = append(p.res.HeaderLines, trimmed)
	p.res.HeaderLineNumbers = append(p.res.HeaderLineNumbers, lineNo)
}

func (p *parser) startDocument() {
	p.doc = &Document{Index: len(p.res.Documents) + 1}
	p.res.Documents = append(p.res.Documents, p.doc)
	p.state = StateDocHeader
}

func (p *parser) finishDocument() error {
	doc := p.doc
	if !doc.Binary {
		doc.Data = []byte(strings.Join(doc.Body, "\n"))
		return nil
	}

	if p.opts.Repad {
		for i, line := range doc.Body {
			if !uuencode.IsFramingLine(line) && !isPDFMarker(line) {
				doc.Body[i] = uuencode.RepadLine(line)
			}
		}
	}
	body := doc.Body
	if edgar.IsPDFFilename(doc.Filename) {
		body = stripPDFWrapper(body)
	}
	data, err := uuencode.Decode(strings.Join(body, "\n"))
	if err != nil {
		return services.Wrap(services.ErrFormat, "submission", "uudecode",
			fmt.Sprintf("document %d (%s)", doc.Index, doc.Filename), err)
	}
	doc.Data = data
	return nil
}

func isPDFMarker(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == tagPDF || trimmed == tagPDFClose
}

func stripPDFWrapper(body []string) []string {
	start, end := 0, len(body)
	for start < end && strings.TrimSpace(body[start]) == "" {
		start++
	}
	if start < end && strings.TrimSpace(body[start]) == tagPDF {
		start++
	}
	for end > start && strings.TrimSpace(body[end-1]) == "" {
		end--
	}
	if end > start && strings.TrimSpace(body[end-1]) == tagPDFClose {
		end--
	}
	return body[start:end]
}

// complete runs the READ_COMPLETE step: decode the header, cross-check the
// documents, then hand off.
func (p *parser) complete(ctx context.Context) error {
	rec, err := sgml.Decode(p.res.HeaderLines, sgml.WithLineNumbers(p.res.HeaderLineNumbers))
	if err != nil {
		return err
	}
	p.res.Record = rec
	p.res.Accession = rec.String("accession_number")
	p.res.FormType = rec.String("type")
	p.crossCheck(ctx)

	if p.opts.OnComplete != nil {
		if err := p.opts.OnComplete(services.WithAccession(ctx, p.res.Accession), p.res); err != nil {
			return err
		}
	}
	p.state = StateDone
	p.res.State = StateDone
	return nil
}

// crossCheck compares stream-derived document metadata with the decoded
// header. Matching documents get raw_size and size on their record; a
// mismatch is logged and the sizes are left out.
func (p *parser) crossCheck(ctx context.Context) {
	records := p.res.Record.Children("document")
	logger := logging.WithContext(services.WithAccession(ctx, p.res.Accession), p.logger)
	for i, doc := range p.res.Documents {
		var rec *sgml.Record
		if i < len(records) {
			rec = records[i]
		}
		if rec == nil || rec.String("sequence") != doc.Sequence || rec.String("filename") != doc.Filename {
			want := "missing"
			if rec != nil {
				want = rec.String("sequence") + "/" + rec.String("filename")
			}
			logging.WarnWithContext(logger, "document metadata mismatch", "document_cross_check",
				logging.Int("document", doc.Index),
				logging.String("stream", doc.Sequence+"/"+doc.Filename),
				logging.String("header", want),
				logging.String(logging.FieldErrorCategory, services.Category(services.ErrCrossCheck)),
				logging.String(logging.FieldErrorHint, "compare the DOCUMENT header with its TEXT block"),
				logging.String(logging.FieldImpact, "document sizes omitted"),
			)
			continue
		}
		rec.SetText("raw_size", strconv.Itoa(doc.RawSize))
		rec.SetText("size", strconv.Itoa(len(doc.Data)))
	}
}
