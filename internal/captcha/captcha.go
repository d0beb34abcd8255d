// internal/captcha/captcha.go
//
// FormPlant – CAPTCHA subsystem.
//
// Context
//   CAPTCHA is a pluggable yes/no gate in front of the pipeline.  The HTTP
//   verifier posts the client token and remote IP to the provider's
//   siteverify endpoint with a short timeout; a timeout or transport error
//   counts as verification failure, never as "skip verification".  Score
//   based (v3 style) forms additionally apply a threshold.
//
//------------------------------------------------------------------------------

package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Result is the provider's verdict.
type Result struct {
	Success bool
	Score   float64
}

// Verifier checks one token.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) (Result, error)
}

// Defaults matching the provider contract.
const (
	DefaultEndpoint  = "https://www.google.com/recaptcha/api/siteverify"
	DefaultTimeout   = 10 * time.Second
	DefaultThreshold = 0.5
)

// HTTPVerifier talks to a reCAPTCHA-compatible siteverify endpoint.
type HTTPVerifier struct {
	Secret   string
	Endpoint string
	Client   *http.Client
}

// NewHTTPVerifier builds a verifier with the default endpoint and timeout.
func NewHTTPVerifier(secret string) *HTTPVerifier {
	return &HTTPVerifier{
		Secret:   secret,
		Endpoint: DefaultEndpoint,
		Client:   &http.Client{Timeout: DefaultTimeout},
	}
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify posts token and remote IP.  Any transport or decode failure is an
// error; the caller treats errors as rejection.
func (v *HTTPVerifier) Verify(ctx context.Context, token, remoteIP string) (Result, error) {
	body := url.Values{
		"secret":   {v.Secret},
		"response": {token},
		"remoteip": {remoteIP},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.Endpoint,
		strings.NewReader(body.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("captcha: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.Client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("captcha: verify call: %w", err)
	}
	defer resp.Body.Close()

	var decoded verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{}, fmt.Errorf("captcha: decode response: %w", err)
	}
	return Result{Success: decoded.Success, Score: decoded.Score}, nil
}

// Gate applies a form's CAPTCHA policy: verify the token and, for
// score-based versions, apply the threshold.  It returns false on any
// failure, including an unreachable provider.
func Gate(ctx context.Context, v Verifier, version, token, remoteIP string) bool {
	if token == "" {
		return false
	}
	res, err := v.Verify(ctx, token, remoteIP)
	if err != nil || !res.Success {
		return false
	}
	if version == "v3" && res.Score < DefaultThreshold {
		return false
	}
	return true
}
