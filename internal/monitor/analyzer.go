package monitor

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

const analysisPrompt = "Analyze these Docker container logs and identify potential issues or failures:\n\n"

var failureKeywords = []string{"error", "failure", "exception"}

// Analyze runs one anomaly analysis cycle over the stored log tails. Each
// non-empty tail is sent to the text generator; failure lines extracted from
// the answer replace the container's FailureRecord. A generator error for
// one container never stops the others.
func (m *Monitor) Analyze(ctx context.Context) (err error) {
	ctx, span := m.tracer.Start(ctx, "monitor.analyze")
	start := time.Now()
	defer func() {
		m.metrics.cycleDone(kindAnalysis, time.Since(start), err)
		endSpan(span, err)
	}()

	logs := m.store.Logs()
	ids := make([]ContainerID, 0, len(logs))
	for id := range logs {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	analyzed := 0
	for _, id := range ids {
		tail := logs[id]
		if len(tail) == 0 {
			continue
		}
		if err := m.limiter.Wait(ctx); err != nil {
			return err
		}

		prompt := analysisPrompt + strings.Join(tail, "\n")
		analysis, err := withTimeout(ctx, m.cfg.AnalysisTimeout, func(ctx context.Context) (string, error) {
			return m.generator.Generate(ctx, prompt)
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.metrics.fetchFailed(kindAnalysis)
			m.log.Error("Failed to analyze container logs.", "container", id.Short(), "err", err)
			continue
		}
		analyzed++

		failures := ParseFailures(analysis)
		switch {
		case len(failures) > 0:
			m.store.SetFailures(id, failures)
			m.log.Warn("Detected failures in container.", "container", id.Short(), "failures", len(failures))
		case m.cfg.FailurePolicy == FailuresClearOnEmpty:
			m.store.ClearFailures(id)
		}
	}
	span.SetAttributes(attribute.Int("monitor.analyzed", analyzed))

	failures := m.store.Failures()
	m.metrics.collected(kindAnalysis, analyzed)
	m.metrics.failing(len(failures))

	if m.cfg.Sink != nil {
		if err := m.cfg.Sink.ReplaceFailures(ctx, failures); err != nil {
			m.log.Warn("Failed to persist failure patterns.", "err", err)
		}
	}
	return nil
}

// ParseFailures keeps the lines of a free-text analysis that mention an
// error, failure or exception in any case, in their original order.
func ParseFailures(analysis string) FailureRecord {
	var out FailureRecord
	for _, line := range strings.Split(analysis, "\n") {
		line = strings.TrimSuffix(line, "\r")
		lower := strings.ToLower(line)
		for _, kw := range failureKeywords {
			if strings.Contains(lower, kw) {
				out = append(out, line)
				break
			}
		}
	}
	return out
}
