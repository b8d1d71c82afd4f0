package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HMACSignatureService implements ports.SignatureService using HMAC-SHA256.
// Webhook bodies are signed byte-for-byte: the signature covers the exact
// payload snapshot taken at enqueue time, not a re-serialization.
type HMACSignatureService struct{}

// NewHMACSignatureService creates a new HMAC-SHA256 signature service.
func NewHMACSignatureService() *HMACSignatureService {
	return &HMACSignatureService{}
}

// Sign computes HMAC-SHA256 of payload using secret.
// Returns lowercase hex-encoded signature.
func (s *HMACSignatureService) Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks if signature matches HMAC-SHA256(secret, payload).
// Uses constant-time comparison to prevent timing attacks.
func (s *HMACSignatureService) Verify(secret string, payload []byte, signature string) bool {
	expected := s.Sign(secret, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}
