package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// VerifySignatureAt is VerifySignature plus a freshness check: the signed ts
// (Unix seconds or milliseconds) must lie within tolerance of now. A zero
// tolerance skips the check.
func VerifySignatureAt(secret, header, requestID, dataID string, now time.Time, tolerance time.Duration) error {
	if err := VerifySignature(secret, header, requestID, dataID); err != nil {
		return err
	}
	if tolerance <= 0 {
		return nil
	}
	ts, _ := parseHeader(header)
	sent, err := parseTimestamp(ts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if skew := now.Sub(sent); skew > tolerance || skew < -tolerance {
		return fmt.Errorf("%w: timestamp %s outside tolerance", ErrInvalidSignature, ts)
	}
	return nil
}

func parseTimestamp(ts string) (time.Time, error) {
	n, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q", ts)
	}
	if n > 1e12 {
		return time.UnixMilli(n), nil
	}
	return time.Unix(n, 0), nil
}

func parseHeader(header string) (ts, v1 string) {
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "ts":
			ts = value
		case "v1":
			v1 = value
		}
	}
	return ts, v1
}

// VerifySignature checks the x-signature header ("ts=<ts>,v1=<hex>") against
// an HMAC-SHA256 of the manifest "id:<dataID>;request-id:<requestID>;ts:<ts>;".
// Parts whose value is empty are left out of the manifest.
func VerifySignature(secret, header, requestID, dataID string) error {
	ts, v1 := parseHeader(header)
	if ts == "" || v1 == "" {
		return fmt.Errorf("%w: malformed header", ErrInvalidSignature)
	}

	expected := hex.EncodeToString(sign(secret, Manifest(dataID, requestID, ts)))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(v1))) {
		return ErrInvalidSignature
	}
	return nil
}

// Manifest builds the signed template. Alphanumeric ids are lower-cased.
func Manifest(dataID, requestID, ts string) string {
	var b strings.Builder
	if dataID != "" {
		b.WriteString("id:" + strings.ToLower(dataID) + ";")
	}
	if requestID != "" {
		b.WriteString("request-id:" + requestID + ";")
	}
	b.WriteString("ts:" + ts + ";")
	return b.String()
}

// Sign returns the header value for a manifest; used by tests and tooling.
func Sign(secret, dataID, requestID, ts string) string {
	return "ts=" + ts + ",v1=" + hex.EncodeToString(sign(secret, Manifest(dataID, requestID, ts)))
}

func sign(secret, manifest string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return mac.Sum(nil)
}
