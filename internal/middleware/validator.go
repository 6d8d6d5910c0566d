package middleware

import (
	"fmt"
	"net/http"
	"unicode/utf8"
)

// Input validation utilities

// ValidateText bounds the size of a submitted text. maxChars <= 0 disables the check.
func ValidateText(text string, maxChars int) error {
	if !utf8.ValidString(text) {
		return fmt.Errorf("text must be valid UTF-8")
	}
	if maxChars > 0 && utf8.RuneCountInString(text) > maxChars {
		return fmt.Errorf("text exceeds %d characters", maxChars)
	}
	return nil
}

// MaxBodyBytes caps request bodies so oversized uploads fail while decoding.
func MaxBodyBytes(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if n > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
