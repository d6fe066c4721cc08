package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvatanabe/shipcode/internal/render"
	"github.com/vvatanabe/shipcode/internal/test"
)

func svg(data string) *render.Artifact {
	return &render.Artifact{Kind: render.KindLinear, ContentType: render.ContentTypeSVG, Data: []byte(data)}
}

func TestDirSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "codes")
	sink := DirSink{Dir: dir}
	location, err := sink.Put(context.Background(), "SHP-1.svg", svg("<svg/>"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "SHP-1.svg"), location)
	got, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", string(got))
}

func TestDirSinkStripsDirectories(t *testing.T) {
	dir := t.TempDir()
	location, err := DirSink{Dir: dir}.Put(context.Background(), "../escape.svg", svg("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.svg"), location)
}

type fakeS3 struct {
	mu     sync.Mutex
	inputs []*s3.PutObjectInput
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Sink(t *testing.T) {
	tests := []struct {
		name    string
		cfg     S3Config
		wantKey string
		wantURL string
	}{
		{
			name:    "s3 domain",
			cfg:     S3Config{Bucket: "codes", Region: "ap-northeast-1"},
			wantKey: "a.png",
			wantURL: "https://codes.s3.ap-northeast-1.amazonaws.com/a.png",
		},
		{
			name:    "prefix and public domain",
			cfg:     S3Config{Bucket: "codes", Region: "us-east-1", Prefix: "/labels/", PublicDomain: "cdn.example.com"},
			wantKey: "labels/a.png",
			wantURL: "https://cdn.example.com/labels/a.png",
		},
		{
			name:    "custom endpoint",
			cfg:     S3Config{Bucket: "codes", Endpoint: "http://localhost:9000/"},
			wantKey: "a.png",
			wantURL: "http://localhost:9000/codes/a.png",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeS3{}
			sink := NewS3SinkFromClient(api, tt.cfg)
			a := &render.Artifact{Kind: render.KindQR, ContentType: render.ContentTypePNG, Data: []byte{1, 2}}
			location, err := sink.Put(context.Background(), "a.png", a)
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, location)
			require.Len(t, api.inputs, 1)
			in := api.inputs[0]
			assert.Equal(t, tt.cfg.Bucket, aws.ToString(in.Bucket))
			assert.Equal(t, tt.wantKey, aws.ToString(in.Key))
			assert.Equal(t, render.ContentTypePNG, aws.ToString(in.ContentType))
		})
	}
}

func TestS3SinkError(t *testing.T) {
	api := &fakeS3{err: test.ErrorTest}
	_, err := NewS3SinkFromClient(api, S3Config{Bucket: "codes"}).Put(context.Background(), "a.svg", svg("x"))
	assert.ErrorIs(t, err, test.ErrorTest)
}

func TestExport(t *testing.T) {
	var active, peak int32
	sink := SinkFunc(func(ctx context.Context, name string, a *render.Artifact) (string, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return "mem://" + name, nil
	})
	e := New(sink, WithConcurrency(2))
	jobs := []Job{
		{Name: "c.svg", Artifact: svg("c")},
		{Name: "a.svg", Artifact: svg("a")},
		{Name: "b.svg", Artifact: svg("b")},
		{Name: "d.svg", Artifact: svg("d")},
	}
	uploads, err := e.Export(context.Background(), jobs)
	require.NoError(t, err)
	assert.Equal(t, []Upload{
		{Name: "a.svg", Location: "mem://a.svg"},
		{Name: "b.svg", Location: "mem://b.svg"},
		{Name: "c.svg", Location: "mem://c.svg"},
		{Name: "d.svg", Location: "mem://d.svg"},
	}, uploads)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestExportPartialFailure(t *testing.T) {
	sink := SinkFunc(func(ctx context.Context, name string, a *render.Artifact) (string, error) {
		if name == "bad.svg" {
			return "", test.ErrorTest
		}
		return name, nil
	})
	uploads, err := New(sink).Export(context.Background(), []Job{
		{Name: "good.svg", Artifact: svg("g")},
		{Name: "bad.svg", Artifact: svg("b")},
		{Name: "empty.svg"},
	})
	assert.Equal(t, []Upload{{Name: "good.svg", Location: "good.svg"}}, uploads)
	var exportErr ExportError
	require.True(t, errors.As(err, &exportErr))
	require.Len(t, exportErr.Failures, 2)
	assert.Equal(t, "bad.svg", exportErr.Failures[0].Name)
	assert.ErrorIs(t, exportErr.Failures[0].Err, test.ErrorTest)
	assert.Equal(t, "empty.svg", exportErr.Failures[1].Name)
}

func TestExportRetries(t *testing.T) {
	var calls int32
	sink := SinkFunc(func(ctx context.Context, name string, a *render.Artifact) (string, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return "", test.ErrorTest
		}
		return name, nil
	})
	e := New(sink, WithMaximumAttempts(3), WithRetryInterval(time.Millisecond))
	uploads, err := e.Export(context.Background(), []Job{{Name: "a.svg", Artifact: svg("a")}})
	require.NoError(t, err)
	assert.Len(t, uploads, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestShutdown(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	sink := SinkFunc(func(ctx context.Context, name string, a *render.Artifact) (string, error) {
		close(started)
		<-release
		return name, nil
	})
	e := New(sink, WithConcurrency(1))
	done := make(chan error, 1)
	go func() {
		_, err := e.Export(context.Background(), []Job{{Name: "a.svg", Artifact: svg("a")}})
		done <- err
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, e.Shutdown(ctx), context.DeadlineExceeded)

	_, err := e.Export(context.Background(), nil)
	assert.ErrorIs(t, err, ErrExporterClosed)

	close(release)
	require.NoError(t, <-done)
	assert.NoError(t, e.Shutdown(context.Background()))
}

func TestFileName(t *testing.T) {
	tests := []struct {
		label string
		a     *render.Artifact
		want  string
	}{
		{label: "SHP-001", a: svg("x"), want: "SHP-001.svg"},
		{label: "deliveries/DL 1", a: &render.Artifact{ContentType: render.ContentTypePNG}, want: "deliveries_DL_1.png"},
		{label: "...", a: nil, want: "code"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.label, tt.a))
		})
	}
}
