//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestHealthLive(t *testing.T) {
	resp := doGet(t, "/livez")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("livez status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body := decodeJSON[healthResponse](t, resp)
	if body.Status != "ok" {
		t.Errorf("livez status field = %q, want %q", body.Status, "ok")
	}
}

func TestHealthReady(t *testing.T) {
	resp := doGet(t, "/readyz")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body := decodeJSON[healthResponse](t, resp)
	if body.Status != "ok" {
		t.Errorf("readyz status field = %q, want %q", body.Status, "ok")
	}
}
