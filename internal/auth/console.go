package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ConsoleAuthMiddleware validates HMAC signatures on automated forecourt
// console submissions. Consoles push meter readings without a staff JWT; the
// shared secret and a timestamp bound guard against replay.
type ConsoleAuthMiddleware struct {
	Secret  []byte
	MaxSkew time.Duration
}

// NewConsoleAuthMiddleware constructs console auth middleware.
func NewConsoleAuthMiddleware(secret []byte, maxSkew time.Duration) *ConsoleAuthMiddleware {
	return &ConsoleAuthMiddleware{Secret: secret, MaxSkew: maxSkew}
}

// Wrap enforces console signature validation.
func (m *ConsoleAuthMiddleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.Secret) == 0 {
			http.Error(w, "console auth not configured", http.StatusUnauthorized)
			return
		}
		timestamp := strings.TrimSpace(r.Header.Get("X-Console-Timestamp"))
		signature := strings.TrimSpace(r.Header.Get("X-Console-Signature"))
		if timestamp == "" || signature == "" {
			http.Error(w, "missing console signature", http.StatusUnauthorized)
			return
		}
		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			http.Error(w, "invalid console timestamp", http.StatusUnauthorized)
			return
		}
		skew := time.Since(time.Unix(ts, 0))
		if skew < 0 {
			skew = -skew
		}
		if m.MaxSkew > 0 && skew > m.MaxSkew {
			http.Error(w, "console signature expired", http.StatusUnauthorized)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "read body error", http.StatusBadRequest)
			return
		}
		_ = r.Body.Close()

		expected := computeConsoleSignature(m.Secret, timestamp, body)
		if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
			http.Error(w, "invalid console signature", http.StatusUnauthorized)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func computeConsoleSignature(secret []byte, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(timestamp))
	_, _ = mac.Write([]byte("\n"))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
