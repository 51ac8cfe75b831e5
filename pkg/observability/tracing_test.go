package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceFunction_DisabledRunsFunction(t *testing.T) {
	tracer := NewTracer("guard-backend", false)

	called := false
	err := tracer.TraceFunction(context.Background(), "fanout.deliver", func(ctx context.Context) error {
		called = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, called)
}

func TestTraceFunction_DisabledPropagatesError(t *testing.T) {
	tracer := NewTracer("guard-backend", false)

	err := tracer.TraceFunction(context.Background(), "dynamodb.commit_transition", func(ctx context.Context) error {
		return assert.AnError
	})

	assert.ErrorIs(t, err, assert.AnError)
}

func TestTraceFunction_NilTracerIsNoOp(t *testing.T) {
	var tracer *Tracer

	called := false
	err := tracer.TraceFunction(context.Background(), "anything", func(ctx context.Context) error {
		called = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, called)

	// Annotation and error recording on a nil tracer must not panic either.
	tracer.AddAnnotation(context.Background(), "k", "v")
	tracer.RecordError(context.Background(), assert.AnError)

	ctx, seg := tracer.StartSubsegment(context.Background(), "anything")
	assert.Nil(t, seg)
	assert.Equal(t, context.Background(), ctx)
}
