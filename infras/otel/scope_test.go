package otel_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"hotel/infras/otel"
	"hotel/shared/failure"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestScopeTraceError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode codes.Code
		wantAttr int64
	}{
		{
			name:     "client failure keeps the span ok",
			err:      &failure.Failure{Code: http.StatusConflict, Message: "room is not available"},
			wantCode: codes.Unset,
			wantAttr: http.StatusConflict,
		},
		{
			name:     "server failure fails the span",
			err:      errors.New("connection reset"),
			wantCode: codes.Error,
			wantAttr: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := tracetest.NewSpanRecorder()
			provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

			_, span := provider.Tracer("test").Start(context.Background(), "booking.Create")
			scope := otel.NewScope(span)

			scope.TraceIfError(tt.err)
			scope.End()

			ended := recorder.Ended()
			require.Len(t, ended, 1)

			assert.Equal(t, tt.wantCode, ended[0].Status().Code)
			assert.Contains(t, ended[0].Attributes(), attribute.Int64("error.code", tt.wantAttr))
			assert.NotEmpty(t, ended[0].Events())
		})
	}
}

func TestScopeTraceIfErrorIgnoresNil(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := provider.Tracer("test").Start(context.Background(), "room.Reserve")
	scope := otel.NewScope(span)

	scope.TraceIfError(nil)
	scope.SetAttributes(map[string]any{"room.number": 101, "room.available": true})
	scope.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)

	assert.Equal(t, codes.Unset, ended[0].Status().Code)
	assert.Empty(t, ended[0].Events())
	assert.Contains(t, ended[0].Attributes(), attribute.Bool("room.available", true))
}
