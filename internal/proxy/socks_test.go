package proxy

import (
	"testing"
	"time"
)

func TestNewHTTPClientDirect(t *testing.T) {
	c, err := NewHTTPClient("", 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if c.Transport != nil {
		t.Error("direct client must use the default transport")
	}
	if c.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", c.Timeout)
	}
}

func TestNewHTTPClientSocks(t *testing.T) {
	c, err := NewHTTPClient("127.0.0.1:1080", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if c.Transport == nil {
		t.Error("socks client has no transport")
	}
}
