// internal/captcha/captcha_test.go
//
// FormPlant – CAPTCHA subsystem tests.
//
//------------------------------------------------------------------------------

package captcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func verifierFor(t *testing.T, handler http.HandlerFunc) *HTTPVerifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	v := NewHTTPVerifier("secret")
	v.Endpoint = srv.URL
	return v
}

func TestVerifySuccess(t *testing.T) {
	v := verifierFor(t, func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("response") != "tok" || r.FormValue("remoteip") != "1.2.3.4" {
			t.Errorf("unexpected params: %v", r.Form)
		}
		w.Write([]byte(`{"success":true,"score":0.9}`))
	})

	if !Gate(context.Background(), v, "v3", "tok", "1.2.3.4") {
		t.Fatal("high-score token must pass")
	}
}

func TestLowScoreRejected(t *testing.T) {
	v := verifierFor(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success":true,"score":0.1}`))
	})
	if Gate(context.Background(), v, "v3", "tok", "") {
		t.Fatal("score below threshold must reject")
	}
	// Non-score versions ignore the score.
	if !Gate(context.Background(), v, "v2", "tok", "") {
		t.Fatal("v2 ignores the score field")
	}
}

func TestProviderFailureRejects(t *testing.T) {
	v := verifierFor(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	})
	if Gate(context.Background(), v, "v2", "tok", "") {
		t.Fatal("provider failure must reject")
	}
}

func TestTimeoutRejects(t *testing.T) {
	v := verifierFor(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"success":true}`))
	})
	v.Client = &http.Client{Timeout: 20 * time.Millisecond}

	if Gate(context.Background(), v, "v2", "tok", "") {
		t.Fatal("timeout must count as failure, not as skip")
	}
}

func TestEmptyTokenRejects(t *testing.T) {
	v := verifierFor(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("verifier must not be called for an empty token")
	})
	if Gate(context.Background(), v, "v2", "", "") {
		t.Fatal("empty token must reject")
	}
}
