package twilio

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

const testToken = "12345"

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestValidateSignature(t *testing.T) {
	// Sorted-key concatenation under the auth token.
	params := url.Values{}
	params.Set("CallSid", "CA123")
	params.Set("AccountSid", "AC123")
	sig := Sign(testToken, "https://example.com/incoming-call", params)
	if !ValidateSignature(testToken, "https://example.com/incoming-call", params, sig) {
		t.Fatal("expected signature to validate")
	}
	if ValidateSignature(testToken, "https://example.com/incoming-call", params, "bogus") {
		t.Fatal("expected bogus signature to fail")
	}
	if ValidateSignature("other-token", "https://example.com/incoming-call", params, sig) {
		t.Fatal("expected signature under wrong token to fail")
	}
}

func TestAuthMiddlewarePost(t *testing.T) {
	srv := httptest.NewServer(AuthMiddleware(testToken)(okHandler()))
	defer srv.Close()

	form := url.Values{}
	form.Set("CallSid", "CA123")
	sig := Sign(testToken, srv.URL+"/incoming-call", form)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/incoming-call", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(SignatureHeader, sig)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodPost, srv.URL+"/incoming-call", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(SignatureHeader, "tampered")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestAuthMiddlewareGet(t *testing.T) {
	srv := httptest.NewServer(AuthMiddleware(testToken)(okHandler()))
	defer srv.Close()

	target := srv.URL + "/incoming-call?CallSid=CA123"
	sig := Sign(testToken, target, nil)

	req, _ := http.NewRequest(http.MethodGet, target, nil)
	req.Header.Set(SignatureHeader, sig)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAuthMiddlewareWebsocketUpgrade(t *testing.T) {
	// Twilio signs websocket upgrades with a wss scheme and the bare path,
	// query parameters passed separately.
	var gotThrough bool
	handler := AuthMiddleware(testToken)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotThrough = true
	}))

	req := httptest.NewRequest(http.MethodGet, "http://example.com/media-stream?token=abc", nil)
	req.Header.Set("Upgrade", "websocket")
	params := url.Values{}
	params.Set("token", "abc")
	req.Header.Set(SignatureHeader, Sign(testToken, "wss://example.com/media-stream", params))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if !gotThrough || rec.Code != http.StatusOK {
		t.Fatalf("expected upgrade request to pass, code=%d", rec.Code)
	}
}

func TestAuthMiddlewareMissingSignature(t *testing.T) {
	srv := httptest.NewServer(AuthMiddleware(testToken)(okHandler()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/incoming-call")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestAuthMiddlewareDisabled(t *testing.T) {
	srv := httptest.NewServer(AuthMiddleware("")(okHandler()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/incoming-call")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
