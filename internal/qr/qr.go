package qr

import (
	"strings"

	"github.com/skip2/go-qrcode"
)

// DefaultToken is the identifier printed on the hospital entrance QR code.
const DefaultToken = "HPJRM"

// Validator checks scanned or typed payloads against the static hospital token.
//
// The check is plain string equality after normalisation: anyone who knows the
// token passes it. Payloads are not signed.
type Validator struct {
	token string
}

// NewValidator creates a validator for token, falling back to DefaultToken.
func NewValidator(token string) *Validator {
	token = normalize(token)
	if token == "" {
		token = DefaultToken
	}
	return &Validator{token: token}
}

// IsValid trims and uppercases payload and compares it with the token.
func (v *Validator) IsValid(payload string) bool {
	return normalize(payload) == v.token
}

// Token returns the normalised expected token.
func (v *Validator) Token() string { return v.token }

// PNG renders the token as a QR image of size pixels for printing.
func (v *Validator) PNG(size int) ([]byte, error) {
	if size <= 0 {
		size = 300
	}
	return qrcode.Encode(v.token, qrcode.Medium, size)
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
