// Package export writes rendered codes to a directory or an S3 bucket with
// a bounded pool of workers.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vvatanabe/shipcode/internal/constant"
	"github.com/vvatanabe/shipcode/internal/render"
)

const (
	defaultMaximumAttempts = 1
	defaultRetryInterval   = 200 * time.Millisecond
)

// ErrExporterClosed is returned by Export after Shutdown.
var ErrExporterClosed = errors.New("exporter closed")

// Job is one artifact to store under Name.
type Job struct {
	Name     string
	Artifact *render.Artifact
}

type Upload struct {
	Name     string
	Location string
}

type Failure struct {
	Name string
	Err  error
}

// ExportError lists every job that could not be stored.
type ExportError struct {
	Failures []Failure
}

func (e ExportError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Name, f.Err))
	}
	return fmt.Sprintf("failed to export %d file(s): %s.", len(e.Failures), strings.Join(parts, "; "))
}

type Options struct {
	// Concurrency is the number of jobs stored at the same time.
	Concurrency int
	// MaximumAttempts is how many times a failing job is tried.
	MaximumAttempts int
	// RetryInterval is the pause between two attempts of a job.
	RetryInterval time.Duration
	Logger        *slog.Logger
}

func WithConcurrency(concurrency int) func(o *Options) {
	return func(o *Options) {
		o.Concurrency = concurrency
	}
}

func WithMaximumAttempts(attempts int) func(o *Options) {
	return func(o *Options) {
		o.MaximumAttempts = attempts
	}
}

func WithRetryInterval(d time.Duration) func(o *Options) {
	return func(o *Options) {
		o.RetryInterval = d
	}
}

func WithLogger(logger *slog.Logger) func(o *Options) {
	return func(o *Options) {
		o.Logger = logger
	}
}

// Exporter stores batches of artifacts into a Sink.
// Note: To create a new instance of Exporter, use the New function.
type Exporter struct {
	sink            Sink
	concurrency     int
	maximumAttempts int
	retryInterval   time.Duration
	logger          *slog.Logger

	inShutdown int32
	activeWG   sync.WaitGroup
}

func New(sink Sink, opts ...func(o *Options)) *Exporter {
	o := &Options{
		Concurrency:     constant.DefaultExportConcurrency,
		MaximumAttempts: defaultMaximumAttempts,
		RetryInterval:   defaultRetryInterval,
		Logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	if o.MaximumAttempts < 1 {
		o.MaximumAttempts = 1
	}
	return &Exporter{
		sink:            sink,
		concurrency:     o.Concurrency,
		maximumAttempts: o.MaximumAttempts,
		retryInterval:   o.RetryInterval,
		logger:          o.Logger,
	}
}

// Export stores every job and returns the successful uploads sorted by
// name. When some jobs fail, the uploads that succeeded are returned
// together with an ExportError.
func (e *Exporter) Export(ctx context.Context, jobs []Job) ([]Upload, error) {
	if e.shuttingDown() {
		return nil, ErrExporterClosed
	}
	e.activeWG.Add(1)
	defer e.activeWG.Done()

	jobChan := make(chan Job, e.concurrency)
	var (
		mu       sync.Mutex
		uploads  []Upload
		failures []Failure
		wg       sync.WaitGroup
	)
	for i := 0; i < e.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobChan {
				location, err := e.process(ctx, job)
				mu.Lock()
				if err != nil {
					failures = append(failures, Failure{Name: job.Name, Err: err})
				} else {
					uploads = append(uploads, Upload{Name: job.Name, Location: location})
				}
				mu.Unlock()
			}
		}()
	}
	for _, job := range jobs {
		jobChan <- job
	}
	close(jobChan)
	wg.Wait()

	sort.Slice(uploads, func(i, j int) bool { return uploads[i].Name < uploads[j].Name })
	if len(failures) > 0 {
		sort.Slice(failures, func(i, j int) bool { return failures[i].Name < failures[j].Name })
		return uploads, ExportError{Failures: failures}
	}
	return uploads, nil
}

func (e *Exporter) process(ctx context.Context, job Job) (string, error) {
	if job.Artifact == nil {
		return "", fmt.Errorf("nothing rendered")
	}
	var err error
	for attempt := 1; attempt <= e.maximumAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		var location string
		location, err = e.sink.Put(ctx, job.Name, job.Artifact)
		if err == nil {
			e.logger.Debug("exported code", "name", job.Name, "location", location)
			return location, nil
		}
		e.logger.Warn("failed to export code", "name", job.Name, "attempt", attempt, "error", err)
		if attempt < e.maximumAttempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(e.retryInterval):
			}
		}
	}
	return "", err
}

func (e *Exporter) shuttingDown() bool {
	return atomic.LoadInt32(&e.inShutdown) != 0
}

// Shutdown rejects new exports and waits for running ones to finish.
func (e *Exporter) Shutdown(ctx context.Context) error {
	atomic.StoreInt32(&e.inShutdown, 1)
	finished := make(chan struct{}, 1)
	go func() {
		e.activeWG.Wait()
		finished <- struct{}{}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-finished:
		return nil
	}
}

// FileName builds a file name for a code from a label and the artifact type.
func FileName(label string, a *render.Artifact) string {
	var b strings.Builder
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := strings.Trim(b.String(), "._")
	if name == "" {
		name = "code"
	}
	if a != nil {
		name += a.Ext()
	}
	return name
}
