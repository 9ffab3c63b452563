// Package otel provides OpenTelemetry span helpers shared by the sync driver,
// the source resolvers and the git client.
package otel

import (
	"context"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys of run and item spans
const (
	AttrRunID           = attribute.Key("sync.run_id")
	AttrRunItems        = attribute.Key("sync.items")
	AttrRepositoryName  = attribute.Key("repository.name")
	AttrResolverType    = attribute.Key("resolver.type")
	AttrItemIndex       = attribute.Key("item.index")
	AttrItemSource      = attribute.Key("item.source")
	AttrItemDestination = attribute.Key("item.destination")
	AttrArtifactURL     = attribute.Key("artifact.url")
	AttrArtifactVersion = attribute.Key("artifact.version")
	AttrSyncAction      = attribute.Key("sync.action")
	AttrBytesWritten    = attribute.Key("download.bytes")
)

// StartSpan starts a new span if the tracer is non-nil, otherwise returns a no-op span.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records an error on a span and sets the span status to error.
// The status description stays generic because resolver errors can carry
// repository URLs with credentials; the error itself goes to the span event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}

// RunAttributes describes a sync run
func RunAttributes(runID string, items int) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrRunID.String(runID),
		AttrRunItems.Int(items),
	}
}

// ItemAttributes describes one item at the start of its span
func ItemAttributes(index int, repository, resolverType, source, destination string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrItemIndex.Int(index),
		AttrRepositoryName.String(repository),
		AttrResolverType.String(resolverType),
		AttrItemSource.String(source),
		AttrItemDestination.String(destination),
	}
}

// ResultAttributes describes what a resolver did. The artifact URL is
// redacted.
func ResultAttributes(action, artifactURL, version string, bytes int64) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		AttrSyncAction.String(action),
		AttrBytesWritten.Int64(bytes),
	}
	if artifactURL != "" {
		attrs = append(attrs, AttrArtifactURL.String(RedactURL(artifactURL)))
	}
	if version != "" {
		attrs = append(attrs, AttrArtifactVersion.String(version))
	}
	return attrs
}

// RedactURL drops user info and query from u. Values that do not parse as a
// URL are returned unchanged.
func RedactURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return u
	}
	parsed.User = nil
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}
