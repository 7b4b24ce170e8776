package publish

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"acceptance/config"
	"acceptance/reporter"
	"acceptance/toolkit"
)

type recordingSink struct {
	name   string
	err    error
	got    []Artifact
	closed bool
}

func (r *recordingSink) Name() string { return r.name }
func (r *recordingSink) Publish(_ context.Context, a Artifact) error {
	r.got = append(r.got, a)
	return r.err
}
func (r *recordingSink) Close() error {
	r.closed = true
	return nil
}

func sampleRun() *reporter.TestRun {
	run := reporter.NewRun("login", "Login")
	run.Record("open", reporter.StatusSuccess, "")
	run.Record("submit", reporter.StatusFailed, "boom")
	run.Finalize(reporter.StatusFailed)
	return run
}

func TestFanoutDeliversPastFailures(t *testing.T) {
	t.Parallel()

	bad := &recordingSink{name: "bad", err: errors.New("down")}
	good := &recordingSink{name: "good"}
	f := NewFanout(nil, bad, good)

	a := FromRun(sampleRun(), "reports/login.pdf")
	err := f.Publish(context.Background(), a)
	require.ErrorContains(t, err, "down")
	require.Len(t, good.got, 1)
	require.Equal(t, "FAILED", good.got[0].Status)
	require.Equal(t, 2, good.got[0].Summary.Total)

	require.NoError(t, f.Close())
	require.True(t, bad.closed)
	require.True(t, good.closed)

	var none *Fanout
	require.NoError(t, none.Publish(context.Background(), a))
	require.Zero(t, none.Len())
}

func TestFromChecks(t *testing.T) {
	t.Parallel()

	start := time.Now()
	a := FromChecks("api_auth", []toolkit.CheckResult{{Status: toolkit.CheckPassed}, {Status: toolkit.CheckFailed}}, start, start.Add(time.Second), "r.pdf")
	require.Equal(t, KindAPI, a.Kind)
	require.Equal(t, "FAILED", a.Status)
	require.NotEmpty(t, a.RunID)
	require.Equal(t, "50.0%", a.Summary.RateText())
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}
func (f *fakeWriter) Close() error { return nil }

func TestKafkaSinkKeysByRun(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	sink := &KafkaSink{writer: w}
	a := FromRun(sampleRun(), "reports/login.pdf")
	require.NoError(t, sink.Publish(context.Background(), a))

	require.Len(t, w.msgs, 1)
	require.Equal(t, a.RunID, string(w.msgs[0].Key))
	var decoded Artifact
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	require.Equal(t, "login", decoded.Suite)
	require.Equal(t, 1, decoded.Summary.Failed)
}

type fakeExec struct {
	sql  []string
	args [][]any
}

func (f *fakeExec) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	f.args = append(f.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestPostgresSinkInsertsRow(t *testing.T) {
	t.Parallel()

	db := &fakeExec{}
	sink := &PostgresSink{db: db}
	require.NoError(t, sink.EnsureSchema(context.Background()))

	a := FromChecks("api_auth", nil, time.Now(), time.Now(), "")
	require.NoError(t, sink.Publish(context.Background(), a))

	require.Len(t, db.sql, 2)
	require.Contains(t, db.sql[0], "CREATE TABLE IF NOT EXISTS acceptance_runs")
	require.Contains(t, db.sql[1], "INSERT INTO acceptance_runs")
	args := db.args[1]
	require.Equal(t, a.RunID, args[0])
	require.Nil(t, args[9].(*float64))
	require.Nil(t, args[10])
	require.NoError(t, sink.Close())
}

type fakeUploader struct {
	keys   []string
	bodies []string
}

func (f *fakeUploader) Upload(_ context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	b, _ := io.ReadAll(in.Body)
	f.keys = append(f.keys, *in.Key)
	f.bodies = append(f.bodies, string(b))
	return &manager.UploadOutput{}, nil
}

func TestS3SinkUploadsReportAndSidecar(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pdf := filepath.Join(dir, "login_20240501_093000.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.3"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "login_20240501_093000.json"), []byte("{}"), 0o644))

	up := &fakeUploader{}
	sink := &S3Sink{bucket: "qa", prefix: "/runs/", uploader: up}
	require.NoError(t, sink.Publish(context.Background(), Artifact{Suite: "login", ReportPath: pdf}))

	require.Equal(t, []string{"runs/login/login_20240501_093000.pdf", "runs/login/login_20240501_093000.json"}, up.keys)
	require.Equal(t, "%PDF-1.3", up.bodies[0])

	require.NoError(t, sink.Publish(context.Background(), Artifact{Suite: "login"}))
	require.Len(t, up.keys, 2)
}

func TestResolveKey(t *testing.T) {
	t.Parallel()

	require.Equal(t, "a/b.pdf", ResolveKey("", "/a/b.pdf"))
	require.Equal(t, "p/a/b.pdf", ResolveKey("p/", "a/b.pdf"))
}

func TestFromConfigWithoutSinks(t *testing.T) {
	t.Parallel()

	f, err := FromConfig(context.Background(), config.PublishConfig{}, nil)
	require.NoError(t, err)
	require.Zero(t, f.Len())
	require.NoError(t, f.Publish(context.Background(), Artifact{}))
}
