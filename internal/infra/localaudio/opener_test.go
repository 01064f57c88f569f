package localaudio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ariahq/aria-catalog-backend/internal/domain/playback"
)

// The tests exercise the fetch and decode failure paths; actually queueing
// audio on the speaker needs a sound device.

func TestOpenRejectsNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	o := NewOpener()
	_, err := o.Open(context.Background(), server.URL+"/missing.mp3", playback.HandleEvents{})
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error %q does not carry the status", err)
	}
}

func TestOpenRejectsUndecodableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not an mp3 stream"))
	}))
	defer server.Close()

	o := NewOpener()
	_, err := o.Open(context.Background(), server.URL+"/bad.mp3", playback.HandleEvents{})
	if err == nil {
		t.Fatal("expected decode error")
	}
}

func TestOpenRejectsUnreachableHost(t *testing.T) {
	o := NewOpener()
	_, err := o.Open(context.Background(), "http://127.0.0.1:1/never.mp3", playback.HandleEvents{})
	if err == nil {
		t.Fatal("expected connection error")
	}
}
