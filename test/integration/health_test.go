package integration

import (
	"net/http"
	"testing"
)

func TestHealthEndpointsUnauthenticated(t *testing.T) {
	for _, path := range []string{"/healthz", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(testEnv.BaseURL() + path)
			if err != nil {
				t.Fatalf("GET %s: %v", path, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("status = %d, want 200 without credentials", resp.StatusCode)
			}
		})
	}
}

func TestRequestIDHeader(t *testing.T) {
	resp, err := http.Get(testEnv.BaseURL() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("response missing the X-Request-ID header")
	}
}

func TestInvalidJSONBody(t *testing.T) {
	req, _ := http.NewRequest(http.MethodPost, testEnv.BaseURL()+"/auth/register", nil)
	req.Header.Set("Content-Type", "application/json")
	req.Body = http.NoBody
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for an empty body", resp.StatusCode)
	}
}

func TestUnsupportedContentType(t *testing.T) {
	req, _ := http.NewRequest(http.MethodPost, testEnv.BaseURL()+"/auth/register", nil)
	req.Header.Set("Content-Type", "text/plain")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", resp.StatusCode)
	}
}
