package mcpsvc

import (
	"context"
	"testing"
)

func TestServerSpec_EnvSlice(t *testing.T) {
	spec := ServerSpec{Env: map[string]string{"FOO": "bar"}}
	got := spec.envSlice()
	if len(got) != 1 || got[0] != "FOO=bar" {
		t.Errorf("envSlice() = %v, want [FOO=bar]", got)
	}
}

func TestServerSpec_EnvSliceEmpty(t *testing.T) {
	spec := ServerSpec{}
	if got := spec.envSlice(); got != nil {
		t.Errorf("envSlice() = %v, want nil", got)
	}
}

func TestNewClient_StartsUnconnected(t *testing.T) {
	c := NewClient(ServerSpec{ID: "test", Command: "does-not-exist"})
	if c.Connected() {
		t.Error("new client should not be connected")
	}
	if c.Healthy() {
		t.Error("new client should not be healthy")
	}
}

func TestConnect_UnknownCommandFailsFast(t *testing.T) {
	c := NewClient(ServerSpec{ID: "ghost", Transport: "stdio", Command: "this-binary-does-not-exist-anywhere"})
	err := c.Connect(context.Background())
	if err == nil {
		t.Fatal("expected an error connecting to a missing command")
	}
	serr, ok := err.(*ServerError)
	if !ok {
		t.Fatalf("expected *ServerError, got %T", err)
	}
	if serr.Kind != ErrCommandNotFound {
		t.Errorf("Kind = %v, want %v", serr.Kind, ErrCommandNotFound)
	}
}

func TestConnect_UnknownTransport(t *testing.T) {
	c := NewClient(ServerSpec{ID: "weird", Transport: "carrier-pigeon"})
	err := c.Connect(context.Background())
	if err == nil {
		t.Fatal("expected an error for unknown transport")
	}
	serr, ok := err.(*ServerError)
	if !ok || serr.Kind != ErrTransport {
		t.Fatalf("expected ErrTransport, got %#v", err)
	}
}

func TestCallTool_NotConnected(t *testing.T) {
	c := NewClient(ServerSpec{ID: "test"})
	result := c.CallTool(context.Background(), "whatever", nil, nil)
	if result.Success {
		t.Error("expected failure calling a tool on an unconnected client")
	}
	if result.Error != ErrTransport {
		t.Errorf("Error = %v, want %v", result.Error, ErrTransport)
	}
}
