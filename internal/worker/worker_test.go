package worker_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"edgarfeed/internal/ingest"
	"edgarfeed/internal/logging"
	"edgarfeed/internal/testsupport"
	"edgarfeed/internal/worker"
)

func TestServeAnswersJobsInOrder(t *testing.T) {
	var in bytes.Buffer
	enc := worker.NewEncoder(&in)
	for _, id := range []string{"a", "b"} {
		job := worker.Job{ID: id, Path: "/feeds/" + id, File: id, Day: "20240301"}
		if err := enc.Encode(worker.Message{Kind: worker.KindJob, Job: &job}); err != nil {
			t.Fatalf("encode job: %v", err)
		}
	}

	var out bytes.Buffer
	handler := func(_ context.Context, job worker.Job) worker.Result {
		return worker.Result{Status: worker.StatusOK, Bytes: int64(len(job.Path)), Documents: 1}
	}
	if err := worker.Serve(context.Background(), &in, &out, handler); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	dec := worker.NewDecoder(&out)
	var ready worker.Message
	if err := dec.Decode(&ready); err != nil || ready.Kind != worker.KindReady {
		t.Fatalf("expected ready message, got %+v (%v)", ready, err)
	}
	for _, want := range []string{"a", "b"} {
		var msg worker.Message
		if err := dec.Decode(&msg); err != nil {
			t.Fatalf("decode result: %v", err)
		}
		if msg.Kind != worker.KindResult || msg.Result == nil {
			t.Fatalf("expected result message, got %+v", msg)
		}
		res := msg.Result
		if res.JobID != want || res.File != want || res.Day != "20240301" {
			t.Fatalf("result lost correlation fields: %+v", res)
		}
		if res.Status != worker.StatusOK || res.Bytes != int64(len("/feeds/"+want)) {
			t.Fatalf("unexpected result %+v", res)
		}
	}
	var extra worker.Message
	if err := dec.Decode(&extra); err != io.EOF {
		t.Fatalf("expected end of stream, got %+v (%v)", extra, err)
	}
}

func TestServeReportsPanicsAsErrors(t *testing.T) {
	var in bytes.Buffer
	job := worker.Job{ID: "p", File: "bad.nc", Day: "20240301"}
	if err := worker.NewEncoder(&in).Encode(worker.Message{Kind: worker.KindJob, Job: &job}); err != nil {
		t.Fatalf("encode job: %v", err)
	}
	var out bytes.Buffer
	err := worker.Serve(context.Background(), &in, &out, func(context.Context, worker.Job) worker.Result {
		panic("boom")
	})
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	dec := worker.NewDecoder(&out)
	var msg worker.Message
	_ = dec.Decode(&msg)
	if err := dec.Decode(&msg); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if msg.Result.Status != worker.StatusError || msg.Result.File != "bad.nc" {
		t.Fatalf("expected correlated error result, got %+v", msg.Result)
	}
}

func TestLocalWorkerKillDropsResult(t *testing.T) {
	release := make(chan struct{})
	spawner := worker.LocalSpawner{Handler: func(ctx context.Context, job worker.Job) worker.Result {
		if job.File == "hang" {
			<-release
		}
		return worker.Result{Status: worker.StatusOK}
	}}

	w, err := spawner.Spawn(context.Background())
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := w.Send(worker.Job{ID: "1", File: "fast"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case res := <-w.Results():
		if res.JobID != "1" || res.Status != worker.StatusOK {
			t.Fatalf("unexpected result %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
	}

	if err := w.Send(worker.Job{ID: "2", File: "hang"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := w.Kill(); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	close(release)
	for res := range w.Results() {
		t.Fatalf("killed worker delivered %+v", res)
	}
	if err := w.Send(worker.Job{ID: "3"}); err == nil {
		t.Fatal("expected Send after Kill to fail")
	}
}

func TestIngestHandlerReportsOutcome(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutBlobs())
	st := testsupport.MustOpenStore(t, cfg)
	ing := ingest.New(cfg, st, nil, logging.NewNop())
	handle := worker.IngestHandler(ing)

	dir := t.TempDir()
	good := testsupport.WriteFile(t, filepath.Join(dir, "good.nc"), testsupport.FeedFile(testsupport.Form4Header, "<XML/>"))
	res := handle(context.Background(), worker.Job{ID: "g", Path: good, File: "good.nc", Day: "20240301"})
	if res.Status != worker.StatusOK {
		t.Fatalf("expected ok, got %+v", res)
	}
	if res.Accession == "" || res.Documents == 0 || res.Bytes == 0 {
		t.Fatalf("missing counters: %+v", res)
	}

	bad := testsupport.WriteFile(t, filepath.Join(dir, "bad.nc"), "<SUBMISSION>\n<TYPE>4\n")
	res = handle(context.Background(), worker.Job{ID: "b", Path: bad, File: "bad.nc", Day: "20240301"})
	if res.Status != worker.StatusError || res.Category != "format" {
		t.Fatalf("expected format error, got %+v", res)
	}

	res = handle(context.Background(), worker.Job{Path: good, Day: "yesterday"})
	if res.Status != worker.StatusError || res.Category != "configuration" {
		t.Fatalf("expected configuration error, got %+v", res)
	}
}

func silentChild(t *testing.T) string {
	t.Helper()
	exe, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}
	return exe
}

func TestProcessSpawnerGivesUpOnSilentChild(t *testing.T) {
	spawner := worker.ProcessSpawner{
		Executable:       silentChild(t),
		Args:             []string{"30"},
		HandshakeTimeout: 100 * time.Millisecond,
	}

	start := time.Now()
	w, err := spawner.Spawn(context.Background())
	if err == nil {
		_ = w.Kill()
		t.Fatal("expected handshake error from a child that never reports ready")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("handshake wait was not bounded: %s", elapsed)
	}
}

func TestProcessSpawnerHonorsCancelDuringHandshake(t *testing.T) {
	spawner := worker.ProcessSpawner{Executable: silentChild(t), Args: []string{"30"}}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		w, err := spawner.Spawn(ctx)
		if err == nil {
			_ = w.Kill()
		}
		done <- err
	}()
	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Spawn ignored context cancellation")
	}
}

func TestServeSendsHeartbeatsWhileBusy(t *testing.T) {
	var in bytes.Buffer
	job := worker.Job{ID: "slow", File: "slow.nc", Day: "20240301"}
	if err := worker.NewEncoder(&in).Encode(worker.Message{Kind: worker.KindJob, Job: &job}); err != nil {
		t.Fatalf("encode job: %v", err)
	}

	var out bytes.Buffer
	handler := func(context.Context, worker.Job) worker.Result {
		time.Sleep(100 * time.Millisecond)
		return worker.Result{Status: worker.StatusOK}
	}
	if err := worker.Serve(context.Background(), &in, &out, handler, worker.WithHeartbeat(10*time.Millisecond)); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	dec := worker.NewDecoder(&out)
	var kinds []string
	for {
		var msg worker.Message
		if err := dec.Decode(&msg); err != nil {
			break
		}
		if msg.Kind == worker.KindHeartbeat && msg.JobID != "slow" {
			t.Fatalf("heartbeat lost its job id: %+v", msg)
		}
		kinds = append(kinds, msg.Kind)
	}
	if len(kinds) < 3 || kinds[0] != worker.KindReady || kinds[len(kinds)-1] != worker.KindResult {
		t.Fatalf("unexpected frame sequence %v", kinds)
	}
	for _, kind := range kinds[1 : len(kinds)-1] {
		if kind != worker.KindHeartbeat {
			t.Fatalf("expected only heartbeats between ready and result, got %v", kinds)
		}
	}
}
