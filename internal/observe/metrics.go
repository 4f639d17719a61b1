// Package observe provides the OpenTelemetry metrics of the recitation
// checker and a Prometheus exporter bridge for scraping them.
//
// Tests should use [NewMetrics] with their own [metric.MeterProvider];
// [DefaultMetrics] is bound to the global provider.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/escalopa/quran-recite-checker/internal/domain"
)

const meterName = "github.com/escalopa/quran-recite-checker"

// Metrics holds all metric instruments. Safe for concurrent use.
type Metrics struct {
	// RecognitionDuration tracks recognizer latency per audio chunk.
	RecognitionDuration metric.Float64Histogram

	// RecognitionErrors counts failed recognizer calls.
	RecognitionErrors metric.Int64Counter

	// WordsJudged counts status changes. Use with attribute:
	//   attribute.String("status", ...)
	WordsJudged metric.Int64Counter

	// SkippedWords counts expected words jumped over by lookahead.
	SkippedWords metric.Int64Counter

	// PageFlips counts page flip instructions.
	PageFlips metric.Int64Counter

	// ChunksDropped counts audio chunks rejected by a full queue.
	ChunksDropped metric.Int64Counter

	// SessionRatio records the correct/reached ratio of stopped sessions.
	SessionRatio metric.Float64Histogram

	ActiveSessions metric.Int64UpDownCounter
}

var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16,
}

var ratioBuckets = []float64{
	0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1,
}

// NewMetrics creates all instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.RecognitionDuration, err = m.Float64Histogram("recite.recognition.duration",
		metric.WithDescription("Latency of speech recognition per audio chunk."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RecognitionErrors, err = m.Int64Counter("recite.recognition.errors",
		metric.WithDescription("Total failed speech recognition calls."),
	); err != nil {
		return nil, err
	}
	if met.WordsJudged, err = m.Int64Counter("recite.words.judged",
		metric.WithDescription("Total expected words judged, by status."),
	); err != nil {
		return nil, err
	}
	if met.SkippedWords, err = m.Int64Counter("recite.words.skipped",
		metric.WithDescription("Total expected words skipped by the reciter."),
	); err != nil {
		return nil, err
	}
	if met.PageFlips, err = m.Int64Counter("recite.page.flips",
		metric.WithDescription("Total page flip instructions."),
	); err != nil {
		return nil, err
	}
	if met.ChunksDropped, err = m.Int64Counter("recite.audio.dropped",
		metric.WithDescription("Total audio chunks rejected by a full session queue."),
	); err != nil {
		return nil, err
	}
	if met.SessionRatio, err = m.Float64Histogram("recite.session.ratio",
		metric.WithDescription("Correct over reached words of stopped sessions."),
		metric.WithExplicitBucketBoundaries(ratioBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("recite.active_sessions",
		metric.WithDescription("Number of running recitation sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a package-level instance created from
// [otel.GetMeterProvider] on first call.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordRecognition records the latency of one recognizer call and counts
// it as an error when err is non-nil.
func (m *Metrics) RecordRecognition(ctx context.Context, d time.Duration, err error) {
	m.RecognitionDuration.Record(ctx, d.Seconds())
	if err != nil {
		m.RecognitionErrors.Add(ctx, 1)
	}
}

// RecordEvents counts judged words by status.
func (m *Metrics) RecordEvents(ctx context.Context, events []domain.StatusEvent) {
	var correct, incorrect int64
	for _, ev := range events {
		switch ev.Status {
		case domain.StatusCorrect:
			correct++
		case domain.StatusIncorrect:
			incorrect++
		}
	}
	if correct > 0 {
		m.WordsJudged.Add(ctx, correct, metric.WithAttributes(statusAttr(domain.StatusCorrect)))
	}
	if incorrect > 0 {
		m.WordsJudged.Add(ctx, incorrect, metric.WithAttributes(statusAttr(domain.StatusIncorrect)))
	}
}

// RecordSkips counts the words covered by skip spans.
func (m *Metrics) RecordSkips(ctx context.Context, spans []domain.SkipSpan) {
	var n int64
	for _, s := range spans {
		n += int64(s.Len())
	}
	if n > 0 {
		m.SkippedWords.Add(ctx, n)
	}
}

func (m *Metrics) RecordPageFlip(ctx context.Context) {
	m.PageFlips.Add(ctx, 1)
}

func (m *Metrics) RecordDroppedChunk(ctx context.Context) {
	m.ChunksDropped.Add(ctx, 1)
}

// SessionStarted increments the active session gauge.
func (m *Metrics) SessionStarted(ctx context.Context) {
	m.ActiveSessions.Add(ctx, 1)
}

// SessionStopped decrements the active session gauge and records the
// session's ratio when any word was reached.
func (m *Metrics) SessionStopped(ctx context.Context, report domain.FinalReport) {
	m.ActiveSessions.Add(ctx, -1)
	if report.Reached > 0 {
		m.SessionRatio.Record(ctx, report.Ratio)
	}
}

func statusAttr(s domain.WordStatus) attribute.KeyValue {
	return attribute.String("status", s.String())
}
