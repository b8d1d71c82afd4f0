package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHMACSignatureService_SignAndVerify(t *testing.T) {
	svc := NewHMACSignatureService()
	secret := "whsec-test-secret"
	payload := []byte(`{"event_type":"payment.completed","amount":"100.50"}`)

	signature := svc.Sign(secret, payload)

	// Should be lowercase hex
	assert.Regexp(t, `^[0-9a-f]{64}$`, signature, "signature should be 64-char lowercase hex (SHA-256)")

	assert.True(t, svc.Verify(secret, payload, signature))
}

func TestHMACSignatureService_VerifyFails_WrongSecret(t *testing.T) {
	svc := NewHMACSignatureService()
	payload := []byte("test payload")

	signature := svc.Sign("correct-secret", payload)
	assert.False(t, svc.Verify("wrong-secret", payload, signature))
}

func TestHMACSignatureService_VerifyFails_TamperedPayload(t *testing.T) {
	svc := NewHMACSignatureService()
	secret := "my-secret"

	signature := svc.Sign(secret, []byte(`{"amount":"100.50"}`))
	assert.False(t, svc.Verify(secret, []byte(`{"amount":"999.99"}`), signature))
}

func TestHMACSignatureService_SignatureCoversExactBytes(t *testing.T) {
	svc := NewHMACSignatureService()
	secret := "my-secret"

	// Semantically equal JSON with different byte layout signs differently.
	sig1 := svc.Sign(secret, []byte(`{"a":1,"b":2}`))
	sig2 := svc.Sign(secret, []byte(`{"b":2,"a":1}`))
	assert.NotEqual(t, sig1, sig2)
}

func TestHMACSignatureService_DeterministicSign(t *testing.T) {
	svc := NewHMACSignatureService()

	sig1 := svc.Sign("key", []byte("data"))
	sig2 := svc.Sign("key", []byte("data"))

	assert.Equal(t, sig1, sig2, "same secret+payload should produce same signature")
}
