// Package validation provides input validation for scan targets and the API.
package validation

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mr-tron/base58"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// base58Regex pre-filters obvious junk before the full decode check.
var base58Regex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,88}$`)

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidAddress checks whether a string is a valid Solana public key:
// base58 text decoding to exactly 32 bytes.
func IsValidAddress(addr string) bool {
	if !base58Regex.MatchString(addr) {
		return false
	}
	raw, err := base58.Decode(addr)
	if err != nil {
		return false
	}
	return len(raw) == 32
}

// IsValidSignature checks whether a string is a valid transaction signature:
// base58 text decoding to exactly 64 bytes.
func IsValidSignature(sig string) bool {
	if !base58Regex.MatchString(sig) {
		return false
	}
	raw, err := base58.Decode(sig)
	if err != nil {
		return false
	}
	return len(raw) == 64
}

// IsValidURL checks for a well-formed http(s) URL.
func IsValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// SanitizeString removes dangerous characters and limits length
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	s = strings.ReplaceAll(s, "\x00", "")
	return s
}
