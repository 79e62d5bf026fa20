package audit

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/project-statements", nil)
	r.RemoteAddr = "10.0.0.9:52114"

	if got := ClientIP(r); got != "10.0.0.9" {
		t.Fatalf("remote addr: got %q", got)
	}

	r.Header.Set("X-Real-IP", "203.0.113.7")
	if got := ClientIP(r); got != "203.0.113.7" {
		t.Fatalf("real ip: got %q", got)
	}

	r.Header.Set("X-Forwarded-For", " 198.51.100.4 , 10.0.0.1")
	if got := ClientIP(r); got != "198.51.100.4" {
		t.Fatalf("forwarded chain: got %q", got)
	}

	if got := ClientIP(nil); got != "" {
		t.Fatalf("nil request: got %q", got)
	}
}
