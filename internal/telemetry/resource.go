package telemetry

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/projectenv/tools-index/internal/versions"
)

// Resource attribute keys describing the running binary
const (
	AttrBuildCommit = attribute.Key("tools_index.build.commit")
	AttrBuildDate   = attribute.Key("tools_index.build.date")
)

// instanceID identifies this process in traces and metrics alike
var instanceID = uuid.NewString()

// newResource describes the running tools-index process. Spans and metrics of one
// process share the same service.instance.id.
func newResource(ctx context.Context, serviceName, serviceVersion string) (*resource.Resource, error) {
	info := versions.GetBuildInfo()
	if serviceVersion == "" {
		serviceVersion = info.Version
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
			semconv.ServiceInstanceID(instanceID),
			AttrBuildCommit.String(info.Commit),
			AttrBuildDate.String(info.BuildDate),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}
