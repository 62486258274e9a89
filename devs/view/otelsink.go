package view

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/pdevs/devs"
)

// OTelSink records one span per observation sample, grounded on the
// teacher's OTelEmitter (graph/emit/otel.go). Spans are points in time:
// started and ended immediately, carrying the sample as attributes.
type OTelSink struct {
	tracer trace.Tracer
	view   string
}

// NewOTelSink returns a sink using tracer, labelling every span's view
// attribute with view.
func NewOTelSink(view string, tracer trace.Tracer) *OTelSink {
	return &OTelSink{tracer: tracer, view: view}
}

func (o *OTelSink) Open(map[string]any) error {
	if o.tracer == nil {
		o.tracer = otel.Tracer("pdevs")
	}
	return nil
}

func (o *OTelSink) WriteRow(t devs.Time, source, port string, value devs.Value) error {
	_, span := o.tracer.Start(context.Background(), "devs.observation")
	defer span.End()
	span.SetAttributes(
		attribute.String("devs.view", o.view),
		attribute.Float64("devs.time", float64(t)),
		attribute.String("devs.source", source),
		attribute.String("devs.port", port),
		attribute.String("devs.tag", value.Tag),
		attribute.String("devs.value", fmt.Sprintf("%v", value.Data)),
	)
	return nil
}

func (o *OTelSink) Flush() error {
	tp := otel.GetTracerProvider()
	type flusher interface {
		ForceFlush(context.Context) error
	}
	if f, ok := tp.(flusher); ok {
		return f.ForceFlush(context.Background())
	}
	return nil
}

func (o *OTelSink) Close() (devs.FinalArtifact, error) {
	return o.view, o.Flush()
}
