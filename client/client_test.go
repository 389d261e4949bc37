package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(&HTTPError{Status: 404}) {
		t.Error("expected IsNotFound(404) = true")
	}
	if IsNotFound(&HTTPError{Status: 500}) {
		t.Error("expected IsNotFound(500) = false")
	}
	if IsNotFound(&NetworkError{Op: "GET /x"}) {
		t.Error("expected IsNotFound(NetworkError) = false")
	}
}

func TestBeefGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/beef/abcd" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte{0xde, 0xad, 0xbe, 0xef})
	}))
	defer srv.Close()

	c := New(srv.URL)
	b, err := c.Beef().Get(context.Background(), "abcd")
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 4 {
		t.Fatalf("len(b) = %d, want 4", len(b))
	}
}

func TestOrdFSMetadataNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.OrdFS().Metadata(context.Background(), "aa_0")
	if !IsNotFound(err) {
		t.Fatalf("expected IsNotFound(err), got %v", err)
	}
}
