package worker

import (
	"io"
	"reflect"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Message kinds.
const (
	KindReady     = "ready"
	KindJob       = "job"
	KindResult    = "result"
	KindHeartbeat = "heartbeat"
)

// Result statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Job is the parent-to-worker job descriptor.
type Job struct {
	ID    string `cbor:"id"`
	Path  string `cbor:"path"`
	File  string `cbor:"file"`
	Day   string `cbor:"day"`
	Repad bool   `cbor:"repad,omitempty"`
}

// Result is the worker-to-parent result descriptor. Error results carry the
// same correlation fields as successful ones.
type Result struct {
	JobID     string `cbor:"job_id"`
	Status    string `cbor:"status"`
	File      string `cbor:"file"`
	Day       string `cbor:"day"`
	Accession string `cbor:"accession,omitempty"`
	FormType  string `cbor:"form_type,omitempty"`
	Bytes     int64  `cbor:"bytes"`
	Documents int    `cbor:"documents"`
	ElapsedMS int64  `cbor:"elapsed_ms"`
	Error     string `cbor:"error,omitempty"`
	Category  string `cbor:"category,omitempty"`
}

// Elapsed returns the reported processing time.
func (r Result) Elapsed() time.Duration {
	return time.Duration(r.ElapsedMS) * time.Millisecond
}

// Message is the envelope for every frame on the wire. Heartbeats carry the
// id of the job in progress in JobID.
type Message struct {
	Kind   string  `cbor:"kind"`
	PID    int     `cbor:"pid,omitempty"`
	JobID  string  `cbor:"job_id,omitempty"`
	Job    *Job    `cbor:"job,omitempty"`
	Result *Result `cbor:"result,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("worker: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("worker: CBOR decoder initialization failed: " + err.Error())
	}
}

// NewEncoder returns a stream encoder for protocol messages.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a stream decoder for protocol messages.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}
