// Package pipeline runs a recitation session: audio chunks pushed by a
// producer are recognized, aligned and rendered by a single consumer
// goroutine, in push order.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/escalopa/quran-recite-checker/internal/domain"
	"github.com/escalopa/quran-recite-checker/internal/observe"
	"github.com/escalopa/quran-recite-checker/internal/recite/alignment"
	"github.com/escalopa/quran-recite-checker/internal/recite/pageflip"
)

// DefaultQueueSize is the number of audio chunks that may wait for the
// consumer before Push starts rejecting.
const DefaultQueueSize = 8

var (
	ErrQueueFull = errors.New("audio queue is full")
	ErrStopped   = errors.New("session is stopped")
)

// Option configures a [Session].
type Option func(*Session)

// WithQueueSize bounds the audio queue. Default: [DefaultQueueSize].
func WithQueueSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithEngineOptions configures the alignment engine of the session.
func WithEngineOptions(opts ...alignment.Option) Option {
	return func(s *Session) {
		s.engineOpts = append(s.engineOpts, opts...)
	}
}

// WithMonitorOptions configures the page-flip monitor of the session.
func WithMonitorOptions(opts ...pageflip.Option) Option {
	return func(s *Session) {
		s.monitorOpts = append(s.monitorOpts, opts...)
	}
}

func WithMetrics(m *observe.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithID overrides the generated session ID.
func WithID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// WithClock overrides time.Now for the report's start and stop times.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// Session is one running recitation over a range. Push, AcknowledgeFlip and
// Stop may be called from any goroutine.
type Session struct {
	id          string
	rng         *domain.Range
	recognizer  domain.RecognizerPort
	render      domain.RenderPort
	metrics     *observe.Metrics
	logger      *zap.Logger
	now         func() time.Time
	queueSize   int
	engineOpts  []alignment.Option
	monitorOpts []pageflip.Option

	// owned by the consumer goroutine until Stop returns
	engine  *alignment.Engine
	display Display

	monitor   *pageflip.Monitor
	queue     chan []byte
	cancel    context.CancelFunc
	group     *errgroup.Group
	startedAt time.Time

	mu       sync.Mutex
	stopped  bool
	stopOnce sync.Once
	report   domain.FinalReport
}

// Start builds a session over rng and starts its consumer. The consumer
// lives until Stop or until ctx is cancelled.
func Start(
	ctx context.Context,
	rng *domain.Range,
	recognizer domain.RecognizerPort,
	render domain.RenderPort,
	opts ...Option,
) (*Session, error) {
	if rng == nil || rng.Empty() {
		return nil, domain.ErrEmptyRange
	}

	s := &Session{
		rng:        rng,
		recognizer: recognizer,
		render:     render,
		logger:     zap.NewNop(),
		now:        time.Now,
		queueSize:  DefaultQueueSize,
	}
	for _, o := range opts {
		o(s)
	}
	if s.id == "" {
		s.id = ulid.Make().String()
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	s.logger = s.logger.With(zap.String("session_id", s.id))

	s.engine = alignment.New(append([]alignment.Option{alignment.WithLogger(s.logger)}, s.engineOpts...)...)
	s.engine.Start(rng.Words)
	s.monitor = pageflip.New(rng, append([]pageflip.Option{pageflip.WithLogger(s.logger)}, s.monitorOpts...)...)
	s.queue = make(chan []byte, s.queueSize)
	s.startedAt = s.now()

	ctx, s.cancel = context.WithCancel(ctx)
	s.group, ctx = errgroup.WithContext(ctx)
	s.group.Go(func() error {
		return s.consume(ctx)
	})

	s.metrics.SessionStarted(ctx)
	s.logger.Info("recitation session started",
		zap.Stringer("from", rng.From),
		zap.Stringer("to", rng.To),
		zap.Int("words", rng.Len()),
		zap.Int("first_page", rng.FirstPage()),
	)
	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

// Range returns the expected words of the session.
func (s *Session) Range() *domain.Range {
	return s.rng
}

// Displayed returns the page the display currently shows.
func (s *Session) Displayed() int {
	return s.monitor.Displayed()
}

// Push queues a WAV chunk for recognition. It never blocks: a full queue
// yields ErrQueueFull and a stopped session ErrStopped.
func (s *Session) Push(audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	select {
	case s.queue <- audio:
		return nil
	default:
		s.metrics.RecordDroppedChunk(context.Background())
		return ErrQueueFull
	}
}

// AcknowledgeFlip tells the session the requested page flip is done.
func (s *Session) AcknowledgeFlip() {
	s.monitor.AcknowledgeFlip()
}

// Stop discards queued audio, waits for the consumer to exit and returns
// the final report. Further calls return the same report.
func (s *Session) Stop() domain.FinalReport {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()

		s.cancel()
		if err := s.group.Wait(); err != nil {
			s.logger.Error("session consumer failed", zap.Error(err))
		}

		dropped := 0
	drain:
		for {
			select {
			case <-s.queue:
				dropped++
			default:
				break drain
			}
		}

		report := s.engine.Stop()
		report.ID = s.id
		report.From = s.rng.From
		report.To = s.rng.To
		report.StartedAt = s.startedAt
		report.StoppedAt = s.now()
		s.report = report

		s.metrics.SessionStopped(context.Background(), report)
		s.logger.Info("recitation session stopped",
			zap.Int("reached", report.Reached),
			zap.Int("correct", report.Correct),
			zap.Int("incorrect", report.Incorrect),
			zap.Float64("ratio", report.Ratio),
			zap.Int("dropped_chunks", dropped),
		)
	})
	return s.report
}

func (s *Session) consume(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case audio := <-s.queue:
			if ctx.Err() != nil {
				return nil
			}
			s.process(ctx, audio)
		}
	}
}

func (s *Session) process(ctx context.Context, audio []byte) {
	start := time.Now()
	tr, err := s.recognizer.Recognize(ctx, bytes.NewReader(audio))
	s.metrics.RecordRecognition(ctx, time.Since(start), err)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("speech recognition failed", zap.Error(err))
		s.render.RecognitionUnavailable(ctx, err)
		return
	}

	display := s.display.Add(tr)
	res := s.engine.FeedText(tr.Text)
	s.metrics.RecordEvents(ctx, res.Events)
	s.metrics.RecordSkips(ctx, res.Skips)

	s.render.RenderChunk(ctx, domain.ChunkUpdate{
		SessionID:  s.id,
		Transcript: tr,
		Display:    display,
		Events:     res.Events,
		Skips:      res.Skips,
		Cursor:     res.Cursor,
		Statuses:   s.engine.Statuses(),
	})

	if !res.Advanced {
		return
	}
	if page, ok := s.monitor.OnCursorAdvanced(res.Cursor); ok {
		s.metrics.RecordPageFlip(ctx)
		s.render.FlipPage(ctx, page)
	}
}
