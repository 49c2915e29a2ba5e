package main

import (
	"github.com/ssyqq/dream"
	"github.com/ssyqq/dream/openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// newClient builds the OpenAI client. A positive rps paces attempts with a
// burst of one; observer may be nil.
func newClient(logger *zap.Logger, rps float64, observer dream.Observer) *openai.Client {
	opts := []openai.Option{openai.WithLogger(logger)}
	if rps > 0 {
		opts = append(opts, openai.WithRateLimiter(rate.NewLimiter(rate.Limit(rps), 1)))
	}
	if observer != nil {
		opts = append(opts, openai.WithObserver(observer))
	}
	return openai.New(opts...)
}
