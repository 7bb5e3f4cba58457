package telemetry

import (
	"context"
	"expvar"
	"strings"
	"sync"
	"time"

	"github.com/stenolabs/demandgen/internal/common"
)

type spanKey struct{}

type span struct {
	name  string
	start time.Time
}

var (
	initOnce sync.Once

	generationTotal     *expvar.Int
	generationFailures  *expvar.Map
	generationLatencyMS *expvar.Int
	tokensInputTotal    *expvar.Int
	tokensOutputTotal   *expvar.Int

	extractionTotal *expvar.Map
	exportTotal     *expvar.Int
)

func ensureInit() {
	initOnce.Do(func() {
		generationTotal = expvar.NewInt("demandgen_generation_total")
		generationFailures = expvar.NewMap("demandgen_generation_failures")
		generationLatencyMS = expvar.NewInt("demandgen_generation_latency_ms")
		tokensInputTotal = expvar.NewInt("demandgen_tokens_input_total")
		tokensOutputTotal = expvar.NewInt("demandgen_tokens_output_total")

		extractionTotal = expvar.NewMap("demandgen_extraction_total")
		exportTotal = expvar.NewInt("demandgen_export_total")
	})
}

// StartSpan attaches a named timing span to the context and returns a closer
// that logs the duration at debug level.
func StartSpan(ctx context.Context, name string) (context.Context, func(attrs ...interface{})) {
	ensureInit()
	sp := &span{name: name, start: time.Now()}
	ctx = context.WithValue(ctx, spanKey{}, sp)
	logger := common.Logger()
	logger.Debug("trace: start", "span", name)
	return ctx, func(attrs ...interface{}) {
		if sp == nil {
			return
		}
		duration := time.Since(sp.start)
		logger.Debug("trace: end", append([]interface{}{"span", name, "dur", duration}, attrs...)...)
	}
}

// RecordGeneration accounts for one completed letter-generation call.
func RecordGeneration(inputTokens, outputTokens int64, duration time.Duration) {
	ensureInit()
	generationTotal.Add(1)
	if inputTokens > 0 {
		tokensInputTotal.Add(inputTokens)
	}
	if outputTokens > 0 {
		tokensOutputTotal.Add(outputTokens)
	}
	if duration > 0 {
		generationLatencyMS.Add(duration.Milliseconds())
	}
}

// RecordGenerationFailure counts a failed generation keyed by failure kind
// (configuration, service, quality, timeout).
func RecordGenerationFailure(kind string) {
	ensureInit()
	key := strings.TrimSpace(strings.ToLower(kind))
	if key == "" {
		key = "unknown"
	}
	generationFailures.Add(key, 1)
}

// RecordExtraction counts a document text extraction keyed by file kind.
func RecordExtraction(kind string) {
	ensureInit()
	key := strings.TrimSpace(strings.ToLower(kind))
	if key == "" {
		key = "unknown"
	}
	extractionTotal.Add(key, 1)
}

// RecordExport counts a completed letter export.
func RecordExport() {
	ensureInit()
	exportTotal.Add(1)
}

// SpanDuration reports elapsed time for the span on the context, if any.
func SpanDuration(ctx context.Context) time.Duration {
	sp, _ := ctx.Value(spanKey{}).(*span)
	if sp == nil {
		return 0
	}
	return time.Since(sp.start)
}
