// Package requestctx carries per-request metadata from the transport layer to
// the application layer.
package requestctx

import (
	"context"

	"github.com/google/uuid"
)

// Metadata identifies who issued a request and how it is traced.
type Metadata struct {
	CorrelationID   string
	ActorID         string
	IsAuthenticated bool
}

type ctxKey struct{}

// With returns a copy of ctx carrying md.
func With(ctx context.Context, md Metadata) context.Context {
	return context.WithValue(ctx, ctxKey{}, md)
}

// From returns the metadata stored in ctx. A missing correlation id is
// generated so every envelope can be traced.
func From(ctx context.Context) Metadata {
	md, _ := ctx.Value(ctxKey{}).(Metadata)
	if md.CorrelationID == "" {
		md.CorrelationID = uuid.NewString()
	}
	return md
}
