package server

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/relay/internal/model"
)

// stubHandler is a no-op gRPC handler used in interceptor tests.
func stubHandler(_ context.Context, _ any) (any, error) {
	return "ok", nil
}

var reportInfo = &grpc.UnaryServerInfo{FullMethod: model.MethodReport}

func TestLoggingInterceptor_PassesThrough(t *testing.T) {
	resp, err := LoggingInterceptor(context.Background(), nil, reportInfo, stubHandler)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp != "ok" {
		t.Fatalf("expected 'ok', got %v", resp)
	}
}

func TestLoggingInterceptor_PreservesError(t *testing.T) {
	want := status.Error(codes.NotFound, "client \"x\" not found")
	_, err := LoggingInterceptor(context.Background(), nil, reportInfo, func(context.Context, any) (any, error) {
		return nil, want
	})
	if err != want {
		t.Fatalf("expected original error, got %v", err)
	}
}

func TestRecoveryInterceptor_Panic(t *testing.T) {
	_, err := RecoveryInterceptor(context.Background(), nil, reportInfo, func(context.Context, any) (any, error) {
		panic("boom")
	})
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal, got %v", status.Code(err))
	}
}

func TestRecoveryInterceptor_NoPanic(t *testing.T) {
	resp, err := RecoveryInterceptor(context.Background(), nil, reportInfo, stubHandler)
	if err != nil || resp != "ok" {
		t.Fatalf("got (%v, %v)", resp, err)
	}
}
