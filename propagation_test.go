package remotesim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
)

func TestBuildPropagator(t *testing.T) {
	cases := []struct {
		name   string
		cfg    *PropConfig
		fields []string
	}{
		{name: "nil", cfg: nil, fields: []string{"traceparent", "tracestate", "baggage"}},
		{name: "tracecontext only", cfg: &PropConfig{Propagators: "tracecontext"}, fields: []string{"traceparent", "tracestate"}},
		{name: "baggage only", cfg: &PropConfig{Propagators: "baggage"}, fields: []string{"baggage"}},
		{name: "none", cfg: &PropConfig{Propagators: "none"}, fields: nil},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			p := buildPropagator(tt.cfg)
			assert.ElementsMatch(t, tt.fields, p.Fields())
		})
	}
}

func TestBuildPropagator_UnknownNameReported(t *testing.T) {
	var reported []error
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) { reported = append(reported, err) }))
	t.Cleanup(func() {
		otel.SetErrorHandler(otel.ErrorHandlerFunc(func(error) {}))
	})

	p := buildPropagator(&PropConfig{Propagators: "tracecontext,carrier-pigeon"})
	assert.ElementsMatch(t, []string{"traceparent", "tracestate"}, p.Fields())
	assert.Len(t, reported, 1)
	assert.Contains(t, reported[0].Error(), "carrier-pigeon")
}

func TestBuildPropagator_DuplicatesCollapsed(t *testing.T) {
	p := buildPropagator(&PropConfig{Propagators: "baggage, BAGGAGE, b3"})
	assert.Equal(t, []string{"baggage"}, p.Fields())
}
