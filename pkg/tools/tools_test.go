package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nstogner/answerpipe/pkg/domain"
)

type echoTool struct {
	name string
	got  []string
}

func (e *echoTool) Name() string             { return e.name }
func (e *echoTool) Description() string      { return "echoes " + e.name }
func (e *echoTool) QueryDescription() string { return "what to echo" }
func (e *echoTool) Invoke(_ context.Context, q string) (Output, error) {
	e.got = append(e.got, q)
	return Output{Text: e.name + ":" + q, Citations: []domain.Citation{{URL: "https://" + e.name}}}, nil
}

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	r := NewRegistry(&echoTool{name: "b"}, &echoTool{name: "a"}, &echoTool{name: "c"})
	r.Register(&echoTool{name: "a"})

	catalog := r.Catalog()
	if len(catalog) != 3 {
		t.Fatalf("got %d catalog entries, want 3", len(catalog))
	}
	for i, want := range []string{"b", "a", "c"} {
		if catalog[i].Name != want {
			t.Errorf("catalog[%d] = %q, want %q", i, catalog[i].Name, want)
		}
	}
	if len(catalog[0].Arguments) != 1 || catalog[0].Arguments[0].Name != "query" {
		t.Errorf("arguments = %+v", catalog[0].Arguments)
	}
}

func TestDispatch(t *testing.T) {
	echo := &echoTool{name: "echo"}
	r := NewRegistry(echo)

	out, err := r.Dispatch(context.Background(), domain.ToolCall{ID: "1", Name: "echo", Arguments: json.RawMessage(`{"query":"hi"}`)})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if out.Text != "echo:hi" || len(out.Citations) != 1 {
		t.Errorf("out = %+v", out)
	}

	_, err = r.Dispatch(context.Background(), domain.ToolCall{ID: "2", Name: "nope", Arguments: json.RawMessage(`{"query":"hi"}`)})
	if !errors.Is(err, ErrUnknownTool) {
		t.Errorf("err = %v, want ErrUnknownTool", err)
	}
	if err.Error() != "unknown tool: nope" {
		t.Errorf("err text = %q", err.Error())
	}
}

func TestDecodeQuery(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: `{"query":"go generics"}`, want: "go generics"},
		{raw: `"{\"query\":\"double encoded\"}"`, want: "double encoded"},
		{raw: `{"query":"  "}`, wantErr: true},
		{raw: `{"q":"x"}`, wantErr: true},
		{raw: `not json`, wantErr: true},
		{raw: ``, wantErr: true},
	}
	for _, tt := range tests {
		got, err := DecodeQuery(json.RawMessage(tt.raw))
		if (err != nil) != tt.wantErr {
			t.Errorf("DecodeQuery(%s) err = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("DecodeQuery(%s) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
