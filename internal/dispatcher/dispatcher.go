// Package dispatcher executes conversion tasks from a bounded queue with a
// fixed pool of workers. Admission control is structural: a full queue
// rejects submission, and the pool size caps concurrent external processes
// regardless of how many fallback attempts a single task needs.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"converteasy/internal/config"
	"converteasy/internal/fileutil"
	"converteasy/internal/logging"
	"converteasy/internal/registry"
	"converteasy/internal/store"
	"converteasy/internal/task"
)

// ErrQueueFull is returned by Submit when the work queue is at capacity.
var ErrQueueFull = errors.New("conversion queue is full")

// ErrNotRunning is returned by Submit before Start or after Stop.
var ErrNotRunning = errors.New("dispatcher is not running")

// Backends bundles the conversion clients the dispatcher routes to.
type Backends struct {
	Transcoder AudioConverter
	Suite      SuiteConverter
	Bundled    BundledConverter
	ImageTool  ImageConverter
	PDFWord    PDFWordConverter
}

// AudioConverter transcodes audio into a target format.
type AudioConverter interface {
	Convert(ctx context.Context, inputPath, outputPath, targetFormat string) error
}

// SuiteConverter converts documents through the document suite, returning
// the path the suite chose for its output.
type SuiteConverter interface {
	Convert(ctx context.Context, inputPath, outDir, targetFormat string) (string, error)
}

// BundledConverter runs one bundled program against an input/output pair.
type BundledConverter interface {
	Convert(ctx context.Context, program, inputPath, outputPath string, extraArgs ...string) error
}

// ImageConverter converts images, returning the produced path, which may
// carry a zip extension for multi-page PDF sources.
type ImageConverter interface {
	Convert(ctx context.Context, inputPath, outputPath, targetFormat string) (string, error)
}

// PDFWordConverter runs the PDF-to-Word extractor chain.
type PDFWordConverter interface {
	Convert(ctx context.Context, inputPath, outputPath string) error
}

// Dispatcher owns the work queue and worker pool.
type Dispatcher struct {
	cfg      *config.Config
	store    store.Store
	registry *registry.Registry
	backends Backends
	logger   *slog.Logger

	mu      sync.Mutex
	queue   chan *task.Task
	group   *errgroup.Group
	cancel  context.CancelFunc
	running bool

	now func() time.Time
}

// New builds a dispatcher. Start must be called before Submit.
func New(cfg *config.Config, st store.Store, reg *registry.Registry, backends Backends, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		store:    st,
		registry: reg,
		backends: backends,
		logger:   logging.NewComponentLogger(logger, "dispatcher"),
		now:      time.Now,
	}
}

// Start launches the worker pool. Workers drain the queue until Stop is
// called or the parent context is cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return errors.New("dispatcher already started")
	}

	workers := d.cfg.Conversion.MaxConcurrent
	if workers <= 0 {
		workers = 1
	}
	depth := d.cfg.Conversion.QueueDepth
	if depth <= 0 {
		depth = 1
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.queue = make(chan *task.Task, depth)
	d.group, runCtx = errgroup.WithContext(runCtx)
	for i := 0; i < workers; i++ {
		ctx := runCtx
		d.group.Go(func() error {
			d.worker(ctx)
			return nil
		})
	}
	d.running = true

	d.logger.Info("dispatcher started",
		logging.Int("workers", workers),
		logging.Int("queue_depth", depth),
	)
	return nil
}

// Stop cancels the workers and waits for in-flight tasks to finish their
// current state transition.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	cancel := d.cancel
	group := d.group
	d.mu.Unlock()

	cancel()
	_ = group.Wait()
	d.logger.Info("dispatcher stopped")
}

// Submit enqueues a task already persisted in the queued state. A full
// queue rejects the task instead of blocking the caller.
func (d *Dispatcher) Submit(t *task.Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return ErrNotRunning
	}
	select {
	case d.queue <- t:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-d.queue:
			d.process(ctx, t)
		}
	}
}

// process drives one task through processing to a terminal state. Failures
// never escape: every outcome ends in a persisted finished or error record
// and exactly one input-file removal.
func (d *Dispatcher) process(ctx context.Context, t *task.Task) {
	log := d.logger.With(
		logging.String(logging.FieldTaskID, t.ID),
		logging.String(logging.FieldCategory, string(t.Category)),
	)

	t.SetProcessing(d.now())
	if err := d.store.Update(ctx, t); err != nil {
		log.Error("failed to persist processing state", logging.Error(err))
	}

	outputPath, err := d.convert(ctx, t, log)

	defer func() {
		if err := fileutil.RemoveIfExists(t.InputPath); err != nil {
			log.Warn("failed to remove input file", logging.Error(err))
		}
	}()

	if err != nil {
		t.SetError(err.Error(), d.now())
		if updateErr := d.store.Update(ctx, t); updateErr != nil {
			log.Error("failed to persist error state", logging.Error(updateErr))
		}
		log.Warn("conversion failed",
			logging.String("source", t.SourceFormat),
			logging.String("target", t.TargetFormat),
			logging.Error(err),
		)
		return
	}

	name := filepath.Base(outputPath)
	t.SetFinished(outputPath,
		d.cfg.PublicFileURL(name),
		d.cfg.DownloadFileURL(name),
		d.cfg.PreviewFileURL(name),
		d.now(),
	)
	if updateErr := d.store.Update(ctx, t); updateErr != nil {
		log.Error("failed to persist finished state", logging.Error(updateErr))
	}
	log.Info("conversion finished",
		logging.String("source", t.SourceFormat),
		logging.String("target", t.TargetFormat),
		logging.String("output", name),
	)
}

// convert routes one task to its backend and returns the produced artifact
// path.
func (d *Dispatcher) convert(ctx context.Context, t *task.Task, log *slog.Logger) (string, error) {
	stem := strings.TrimSuffix(t.OriginalFilename, fileutil.DetectExt(t.OriginalFilename))
	outputName := fileutil.FriendlyName(stem, t.ID, t.TargetFormat, d.now())
	outputPath := filepath.Join(d.cfg.Paths.PublicDir, outputName)

	switch t.Category {
	case task.CategoryAudio:
		if err := d.backends.Transcoder.Convert(ctx, t.InputPath, outputPath, t.TargetFormat); err != nil {
			return "", err
		}
		return outputPath, nil

	case task.CategoryImage:
		return d.backends.ImageTool.Convert(ctx, t.InputPath, outputPath, t.TargetFormat)

	case task.CategoryDocument:
		return d.convertDocument(ctx, t, outputPath, log)

	default:
		return "", fmt.Errorf("unknown category %q", t.Category)
	}
}

func (d *Dispatcher) convertDocument(ctx context.Context, t *task.Task, outputPath string, log *slog.Logger) (string, error) {
	strategy, ok := d.registry.Lookup(t.Category, t.SourceFormat, t.TargetFormat)
	if !ok {
		return "", fmt.Errorf("conversion %s to %s is not supported", t.SourceFormat, t.TargetFormat)
	}

	switch strategy.Kind {
	case registry.KindBundled:
		if strategy.Program == "pdf_to_doc" {
			if err := d.backends.PDFWord.Convert(ctx, t.InputPath, outputPath); err != nil {
				return "", err
			}
			return outputPath, nil
		}
		if err := d.backends.Bundled.Convert(ctx, strategy.Program, t.InputPath, outputPath); err != nil {
			return "", err
		}
		return outputPath, nil

	case registry.KindDocumentSuite:
		produced, err := d.backends.Suite.Convert(ctx, t.InputPath, d.cfg.Paths.PublicDir, t.TargetFormat)
		if err != nil {
			return "", err
		}
		if produced == outputPath {
			return outputPath, nil
		}
		// The suite names its own output; reconcile it with the addressed
		// path. A failed rename keeps the suite's name rather than failing
		// the task.
		if err := fileutil.ReplaceFile(produced, outputPath); err != nil {
			log.Warn("failed to rename suite output, keeping original name",
				logging.String("produced", produced),
				logging.Error(err),
			)
			return produced, nil
		}
		return outputPath, nil

	default:
		return "", fmt.Errorf("strategy %s cannot serve a document task", strategy.Kind)
	}
}
