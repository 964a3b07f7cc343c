package worker

import (
	"context"
	"time"

	"edgarfeed/internal/edgar"
	"edgarfeed/internal/ingest"
	"edgarfeed/internal/services"
)

// IngestHandler adapts an Ingestor to the worker protocol.
func IngestHandler(ing *ingest.Ingestor) Handler {
	return func(ctx context.Context, job Job) Result {
		day, err := time.Parse(edgar.DayLayout, job.Day)
		if err != nil {
			return Result{
				Status:   StatusError,
				Error:    "invalid day " + job.Day,
				Category: services.Category(services.ErrConfiguration),
			}
		}
		if job.ID != "" {
			ctx = services.WithRequestID(ctx, job.ID)
		}
		out, err := ing.Process(ctx, ingest.Job{Path: job.Path, Day: day, Repad: job.Repad})
		res := Result{
			Accession: out.Accession,
			FormType:  out.FormType,
			Bytes:     out.Bytes,
			Documents: out.Documents,
			ElapsedMS: out.Elapsed.Milliseconds(),
		}
		if err != nil {
			res.Status = StatusError
			res.Error = err.Error()
			res.Category = services.Category(err)
			return res
		}
		res.Status = StatusOK
		return res
	}
}
