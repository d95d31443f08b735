package apm

import (
	"bytes"
	"context"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/fd1az/pooldash/internal/logger"
)

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    map[string]string
		wantErr bool
	}{
		{name: "empty", raw: "", want: map[string]string{}},
		{name: "single", raw: "x-honeycomb-team=abc", want: map[string]string{"x-honeycomb-team": "abc"}},
		{name: "multiple", raw: "a=1, b=2", want: map[string]string{"a": "1", "b": "2"}},
		{name: "value with equals", raw: "auth=k=v", want: map[string]string{"auth": "k=v"}},
		{name: "missing value separator", raw: "novalue", wantErr: true},
		{name: "empty key", raw: "=v", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHeaders(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("header %q = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestNewTraceProvider_Empty(t *testing.T) {
	for _, p := range []Provider{"", EmptyProvider} {
		tp, err := NewTraceProvider(context.Background(), Config{Provider: p}, logger.NewNop())
		if err != nil {
			t.Fatalf("provider %q: %v", p, err)
		}
		if _, ok := tp.(emptyTraceProvider); !ok {
			t.Errorf("provider %q: got %T, want emptyTraceProvider", p, tp)
		}
	}
}

func TestNewTraceProvider_UnknownProvider(t *testing.T) {
	if _, err := NewTraceProvider(context.Background(), Config{Provider: "jaeger"}, logger.NewNop()); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewTraceProvider_ConsoleExportsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	tp, err := NewTraceProvider(context.Background(), Config{
		ServiceName: "pooldash-test",
		Provider:    ConsoleProvider,
		Writer:      &buf,
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("NewTraceProvider: %v", err)
	}

	_, span := otel.Tracer("apm-test").Start(context.Background(), "probe")
	span.End()

	if err := tp.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"probe"`)) {
		t.Errorf("span not exported, output: %s", buf.String())
	}
}
