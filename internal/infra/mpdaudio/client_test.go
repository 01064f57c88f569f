package mpdaudio_test

import (
	"context"
	"testing"

	"github.com/ariahq/aria-catalog-backend/internal/domain/playback"
	"github.com/ariahq/aria-catalog-backend/internal/infra/mpdaudio"
)

// The tests run without a daemon; they exercise the disconnected paths.
// Port 16600 is assumed unbound.

func TestNewClient(t *testing.T) {
	client := mpdaudio.NewClient("localhost", 16600, "")
	if client == nil {
		t.Error("NewClient should return a non-nil client")
	}
}

func TestConnectFailure(t *testing.T) {
	client := mpdaudio.NewClient("localhost", 16600, "")

	if err := client.Connect(); err == nil {
		t.Error("Connect should fail for non-existent daemon")
		client.Close()
	}
}

func TestPingWithoutConnect(t *testing.T) {
	client := mpdaudio.NewClient("localhost", 16600, "")

	if err := client.Ping(); err == nil {
		t.Error("Ping should fail when not connected")
	}
}

func TestLoadURLWithoutDaemon(t *testing.T) {
	client := mpdaudio.NewClient("localhost", 16600, "")

	if err := client.LoadURL("http://api/files/a.mp3"); err == nil {
		t.Error("LoadURL should fail when the daemon is unreachable")
	}
}

func TestStatusWithoutDaemon(t *testing.T) {
	client := mpdaudio.NewClient("localhost", 16600, "")

	if _, err := client.Status(); err == nil {
		t.Error("Status should fail when the daemon is unreachable")
	}
}

func TestOpenWithoutDaemonFails(t *testing.T) {
	client := mpdaudio.NewClient("localhost", 16600, "")
	opener := mpdaudio.NewOpener(client)

	_, err := opener.Open(context.Background(), "http://api/files/a.mp3", playback.HandleEvents{})
	if err == nil {
		t.Error("Open should fail when the daemon is unreachable")
	}
}
