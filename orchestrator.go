package doc2pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"

	"github.com/alnah/go-doc2pdf/internal/artifact"
	"github.com/alnah/go-doc2pdf/internal/logging"
	"github.com/alnah/go-doc2pdf/internal/pipeline"
	"github.com/alnah/go-doc2pdf/internal/scheduler"
)

// DefaultEngineTimeout bounds one engine call, office or browser.
const DefaultEngineTimeout = 120 * time.Second

// Stage is a step of a single conversion, as logged.
type Stage string

// Conversion stages in order. StageError can follow any of them.
const (
	StageReceived         Stage = "received"
	StageValidated        Stage = "validated"
	StageStored           Stage = "stored"
	StageMutated          Stage = "mutated"
	StageRendering        Stage = "rendering"
	StageStreaming        Stage = "streaming"
	StageCleanupScheduled Stage = "cleanup_scheduled"
	StageDone             Stage = "done"
	StageError            Stage = "error"
)

// StorageConfig controls the artifact directory and retention.
type StorageConfig struct {
	OutputDir   string        // Used first, created if absent.
	LocalDir    string        // Used when it exists (default "outputs").
	DebugDir    string        // Used in debug mode (default <tmp>/outputs).
	InputGrace  time.Duration // Delay before the input is deleted.
	OutputGrace time.Duration // Further delay before the output is deleted.
}

// SchedulerConfig sizes the work scheduler.
type SchedulerConfig struct {
	Workers       int
	QueueSize     int
	ShutdownGrace time.Duration
}

type orchestratorConfig struct {
	engineTimeout time.Duration
	debug         bool
	printCSS      string
	storage       StorageConfig
	scheduler     SchedulerConfig
	now           func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRendererPool sets the HTML renderer pool. Without it HTML and
// Markdown conversions report ErrRendererUnavailable.
func WithRendererPool(p *RendererPool) Option {
	return func(o *Orchestrator) { o.pool = p }
}

// WithOfficeConverter sets the spreadsheet engine. Without it spreadsheet
// conversions report ErrOfficeUnavailable.
func WithOfficeConverter(c OfficeConverter) Option {
	return func(o *Orchestrator) { o.office = c }
}

// WithLogger sets the logger (default: discard).
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithEngineTimeout bounds each engine call.
func WithEngineTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.cfg.engineTimeout = d
		}
	}
}

// WithDebug retains outputs and prefers the debug directory.
func WithDebug(on bool) Option {
	return func(o *Orchestrator) { o.cfg.debug = on }
}

// WithPrintCSS replaces the print rules injected into HTML documents.
func WithPrintCSS(css string) Option {
	return func(o *Orchestrator) { o.cfg.printCSS = css }
}

// WithStorage configures artifact placement and retention.
func WithStorage(s StorageConfig) Option {
	return func(o *Orchestrator) { o.cfg.storage = s }
}

// WithScheduler sizes the work scheduler.
func WithScheduler(s SchedulerConfig) Option {
	return func(o *Orchestrator) { o.cfg.scheduler = s }
}

// WithClock sets the time source used to name artifacts.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.cfg.now = now
		}
	}
}

// withMarkdownConverter replaces goldmark in tests.
func withMarkdownConverter(c pipeline.HTMLConverter) Option {
	return func(o *Orchestrator) { o.markdown = c }
}

// Orchestrator drives conversions from upload to streamed PDF.
// Create with NewOrchestrator and release with Close.
type Orchestrator struct {
	cfg      orchestratorConfig
	logger   *log.Logger
	pool     *RendererPool
	office   OfficeConverter
	markdown pipeline.HTMLConverter
	sched    *scheduler.Scheduler
	store    *artifact.Store
}

// NewOrchestrator starts the work scheduler and wires the artifact store.
func NewOrchestrator(opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		cfg: orchestratorConfig{
			engineTimeout: DefaultEngineTimeout,
			printCSS:      pipeline.DefaultPrintCSS,
			now:           time.Now,
		},
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.pool == nil {
		o.pool = NewUnavailableRendererPool(errors.New("no renderer configured"))
	}
	if o.markdown == nil {
		o.markdown = pipeline.NewGoldmarkConverter()
	}

	o.sched = scheduler.New(scheduler.Config{
		Workers:       o.cfg.scheduler.Workers,
		QueueSize:     o.cfg.scheduler.QueueSize,
		ShutdownGrace: o.cfg.scheduler.ShutdownGrace,
	}, o.logger)

	st := o.cfg.storage
	o.store = artifact.New(artifact.Config{
		OutputDir:   st.OutputDir,
		LocalDir:    st.LocalDir,
		DebugDir:    st.DebugDir,
		Debug:       o.cfg.debug,
		InputGrace:  st.InputGrace,
		OutputGrace: st.OutputGrace,
		Now:         o.cfg.now,
	}, o.sched, o.logger)

	return o, nil
}

// conversion is the per-request state threaded through the stages.
type conversion struct {
	id    string
	req   Request
	start time.Time
	stage Stage
	pair  *artifact.Pair
	log   *log.Logger
}

func (c *conversion) advance(s Stage) {
	c.stage = s
	c.log.Debug().Str("request_id", c.id).Str("stage", string(s)).Msg("conversion stage")
}

// Convert runs one conversion synchronously. The returned Result's Body
// must be closed. Every error matches one of ErrValidation, ErrUnavailable,
// ErrBusy, ErrStorage or ErrConversion.
func (o *Orchestrator) Convert(ctx context.Context, req Request) (res *Result, err error) {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	c := &conversion{
		id:    id,
		req:   req,
		start: time.Now(),
		log:   o.logger,
	}
	c.advance(StageReceived)

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().
				Str("request_id", c.id).
				Str("panic", fmt.Sprint(r)).
				Str("stack", string(debug.Stack())).
				Msg("conversion panicked")
			if res != nil && res.Body != nil {
				_ = res.Body.Close()
			}
			res, err = nil, ErrInternal
		}
		o.finish(c, res, err)
	}()

	if err := o.checkAvailable(req.Kind); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	c.advance(StageValidated)

	pair, err := o.store.Allocate(req.Filename, req.Kind.defaultExtension())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	c.pair = pair
	defer func() {
		o.store.ScheduleCleanup(pair, o.cfg.debug)
		if err == nil {
			c.advance(StageCleanupScheduled)
		}
	}()

	if err := o.store.Persist(pair, req.Data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	c.advance(StageStored)

	switch req.Kind {
	case SourceSpreadsheet:
		err = o.convertSpreadsheet(ctx, c)
	default:
		err = o.convertHTML(ctx, c)
	}
	if err != nil {
		return nil, o.classify(err)
	}

	return o.stream(c)
}

// checkAvailable fails fast when the engine for kind is down.
func (o *Orchestrator) checkAvailable(kind SourceKind) error {
	if o.sched.Closed() {
		return ErrShuttingDown
	}
	switch kind {
	case SourceSpreadsheet:
		if o.office == nil {
			return ErrOfficeUnavailable
		}
	case SourceHTML, SourceMarkdown:
		if !o.pool.Available() {
			return ErrRendererUnavailable
		}
	}
	return nil
}

func (o *Orchestrator) convertSpreadsheet(ctx context.Context, c *conversion) error {
	chain := pipeline.BuildChain(pipeline.Options{
		Landscape: c.req.Options.Landscape,
		FitToPage: c.req.Options.FitToPage,
	})
	// The office engine applies the chain; with no options it is skipped.
	if len(chain) > 0 {
		c.advance(StageMutated)
	}
	c.advance(StageRendering)

	engineCtx, cancel := context.WithTimeout(ctx, o.cfg.engineTimeout)
	defer cancel()
	return o.office.Convert(engineCtx, c.pair.Input, c.pair.Output, chain)
}

func (o *Orchestrator) convertHTML(ctx context.Context, c *conversion) error {
	raw, err := os.ReadFile(c.pair.Input)
	if err != nil {
		return fmt.Errorf("%w: reading input: %v", ErrInternal, err)
	}
	content := string(raw)

	if c.req.Kind == SourceMarkdown {
		content, err = o.markdown.ToHTML(ctx, titleFromFilename(c.req.Filename), content)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrHTMLConversion, err)
		}
	}

	doc := &pipeline.HTMLDocument{Content: content}
	chain := pipeline.BuildChain(pipeline.Options{
		PrintCSS:  true,
		CSS:       o.cfg.printCSS,
		Landscape: c.req.Options.Landscape,
	})
	chain.Apply(ctx, doc, c.log)
	c.advance(StageMutated)

	opts := DefaultPDFOptions()
	opts.Landscape = c.req.Options.Landscape
	c.advance(StageRendering)

	// The engine deadline starts once a permit is held, so waiting on a
	// saturated pool ends in ErrBusy rather than a timeout.
	return o.pool.WithPermit(ctx, func(r Renderer) error {
		renderCtx, cancel := context.WithTimeout(ctx, o.cfg.engineTimeout)
		defer cancel()
		return r.Render(renderCtx, doc.Content, c.pair.Output, opts)
	})
}

// stream verifies the output and opens it for the caller.
func (o *Orchestrator) stream(c *conversion) (*Result, error) {
	c.advance(StageStreaming)
	if _, err := os.Stat(c.pair.Output); err != nil {
		return nil, ErrOutputMissing
	}
	pages, err := countPages(c.pair.Output)
	if err != nil {
		return nil, err
	}
	f, size, err := o.store.Open(c.pair)
	if err != nil {
		if errors.Is(err, artifact.ErrMissing) {
			return nil, ErrOutputMissing
		}
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return &Result{
		RequestID:   c.id,
		Filename:    c.req.Kind.downloadName(),
		ContentType: PDFContentType,
		Size:        size,
		Pages:       pages,
		Body:        f,
	}, nil
}

// classify folds engine errors into the taxonomy.
func (o *Orchestrator) classify(err error) error {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrUnavailable),
		errors.Is(err, ErrBusy), errors.Is(err, ErrStorage), errors.Is(err, ErrConversion):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrEngineTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrConversion, err)
	}
}

func (o *Orchestrator) finish(c *conversion, res *Result, err error) {
	if err != nil {
		failed := c.stage
		c.advance(StageError)
		var ev *log.Entry
		switch {
		case errors.Is(err, ErrValidation), errors.Is(err, ErrBusy), errors.Is(err, ErrUnavailable):
			ev = o.logger.Warn()
		default:
			ev = o.logger.Error()
		}
		ev.Str("request_id", c.id).
			Str("kind", string(c.req.Kind)).
			Str("filename", c.req.Filename).
			Str("stage", string(failed)).
			Dur("duration", time.Since(c.start)).
			Err(err).
			Msg("conversion failed")
		return
	}
	c.advance(StageDone)
	o.logger.Info().
		Str("request_id", c.id).
		Str("kind", string(c.req.Kind)).
		Str("filename", c.req.Filename).
		Int("pages", res.Pages).
		Int64("bytes", res.Size).
		Dur("duration", time.Since(c.start)).
		Msg("conversion completed")
}

// titleFromFilename strips the directory and extension.
func titleFromFilename(name string) string {
	base := filepath.Base(name)
	return base[:len(base)-len(filepath.Ext(base))]
}

// Pending is a conversion running on the scheduler.
type Pending struct {
	future *scheduler.Future[*Result]
}

// Submit queues req on the work scheduler. When the queue is full the
// conversion runs on the calling goroutine before Submit returns. The
// conversion is canceled when ctx ends or the scheduler is forced down.
func (o *Orchestrator) Submit(ctx context.Context, req Request) *Pending {
	return &Pending{future: scheduler.Submit(o.sched, func(schedCtx context.Context) (*Result, error) {
		runCtx, cancel := context.WithCancel(schedCtx)
		defer cancel()
		stop := context.AfterFunc(ctx, cancel)
		defer stop()
		return o.Convert(runCtx, req)
	})}
}

// Done is closed once the conversion has finished.
func (p *Pending) Done() <-chan struct{} {
	return p.future.Done()
}

// Wait blocks until the conversion finishes or ctx ends. When ctx ends
// first, call Discard to release the result once it arrives.
func (p *Pending) Wait(ctx context.Context) (*Result, error) {
	res, err := p.future.Wait(ctx)
	switch {
	case errors.Is(err, scheduler.ErrClosed):
		return nil, ErrShuttingDown
	case errors.Is(err, scheduler.ErrTaskPanic):
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return res, err
}

// Discard closes the result of an abandoned conversion in the background.
func (p *Pending) Discard() {
	go func() {
		<-p.future.Done()
		if res, err := p.future.Wait(context.Background()); err == nil && res != nil && res.Body != nil {
			_ = res.Body.Close()
		}
	}()
}

// Status is a snapshot of engine availability and load.
type Status struct {
	Renderer  PoolStats       `json:"renderer"`
	Office    OfficeStatus    `json:"office"`
	Scheduler scheduler.Stats `json:"scheduler"`
	Artifacts int             `json:"artifacts_reserved"`
}

// OfficeStatus reports the spreadsheet engine.
type OfficeStatus struct {
	Available bool   `json:"available"`
	Binary    string `json:"binary,omitempty"`
}

// Status reports engine availability and current load.
func (o *Orchestrator) Status() Status {
	s := Status{
		Renderer:  o.pool.Stats(),
		Scheduler: o.sched.Stats(),
		Artifacts: o.store.Reserved(),
	}
	if o.office != nil {
		s.Office.Available = true
		if b, ok := o.office.(interface{ Binary() string }); ok {
			s.Office.Binary = b.Binary()
		}
	}
	return s
}

// Close drains the scheduler, then closes both engines. Pending cleanup
// runs before the scheduler returns.
func (o *Orchestrator) Close(ctx context.Context) error {
	var errs []error
	if err := o.sched.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := o.pool.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("closing renderer: %w", err))
	}
	if o.office != nil {
		if err := o.office.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing office engine: %w", err))
		}
	}
	return errors.Join(errs...)
}
