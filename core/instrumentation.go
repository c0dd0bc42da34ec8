package orchestration

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-lens/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var (
	turnCounter        = mustCounter("ema_lens.turns", "Chat turns sent, by outcome")
	translationCounter = mustCounter("ema_lens.translations", "Translations requested, by outcome")
	captureCounter     = mustCounter("ema_lens.captures", "Screen captures requested, by outcome")
)

func mustCounter(name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		otel.Handle(err)
	}
	return counter
}
