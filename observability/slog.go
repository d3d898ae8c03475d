package observability

import (
	"context"
	"log/slog"
	"slices"
)

// SlogObserver bridges events onto a slog.Logger: the event type becomes the
// log message, the source and the data keys become attributes. Data keys are
// emitted in sorted order so a given event always produces the same line.
type SlogObserver struct {
	logger *slog.Logger // nil means slog.Default() at emit time
}

// NewSlogObserver creates a SlogObserver. A nil logger makes the observer
// follow slog.Default(), picking up handler changes made after construction.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	return &SlogObserver{logger: logger}
}

func (o *SlogObserver) OnEvent(ctx context.Context, event Event) {
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	keys := make([]string, 0, len(event.Data))
	for k := range event.Data {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	args := make([]any, 0, 2*(len(keys)+1))
	args = append(args, "source", event.Source)
	for _, k := range keys {
		args = append(args, k, event.Data[k])
	}

	logger.Log(ctx, event.Level.SlogLevel(), string(event.Type), args...)
}
