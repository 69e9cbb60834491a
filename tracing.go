package syntax

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/cptaffe/acme-syntax"

// tracer returns the package tracer from the global provider.  Until a
// provider is installed (see cmd/acme-syntax) spans are no-ops.
func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
