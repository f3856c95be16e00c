package proxy

import (
	"net/http"
	"testing"
)

func TestDirectClient(t *testing.T) {
	c, err := NewClient("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Timeout != Timeout || c.Transport != nil {
		t.Errorf("expected a plain client with the default timeout, got %+v", c)
	}
}

func TestSocksClient(t *testing.T) {
	c, err := NewClient("127.0.0.1:1080")
	if err != nil {
		t.Fatal(err)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok || tr.DialContext == nil {
		t.Fatalf("expected a transport dialing through the proxy, got %T", c.Transport)
	}
	if c.Timeout != Timeout {
		t.Errorf("timeout = %v", c.Timeout)
	}
}
