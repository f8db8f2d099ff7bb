package services

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"strings"

	"github.com/vncsmyrnk/elections/internal/core/domain"
)

// VerifyResultSignature checks a base64 signature over payload against a
// PKIX public key given as PEM or base64 DER. ECDSA signatures are ASN.1
// over the SHA-256 digest; Ed25519 signatures are over the raw payload.
func VerifyResultSignature(publicKey string, payload []byte, signature string) error {
	key, err := parsePublicKey(publicKey)
	if err != nil {
		return domain.WrapError(domain.CodeSignatureInvalid, domain.ErrSignatureInvalid.Message, err)
	}
	sig, err := decodeBase64(signature)
	if err != nil {
		return domain.WrapError(domain.CodeSignatureInvalid, domain.ErrSignatureInvalid.Message, err)
	}

	var valid bool
	switch k := key.(type) {
	case *ecdsa.PublicKey:
		digest := sha256.Sum256(payload)
		valid = ecdsa.VerifyASN1(k, digest[:], sig)
	case ed25519.PublicKey:
		valid = ed25519.Verify(k, payload, sig)
	default:
		return domain.WrapError(domain.CodeSignatureInvalid, domain.ErrSignatureInvalid.Message,
			errors.New("unsupported signing key type"))
	}
	if !valid {
		return domain.ErrSignatureInvalid
	}
	return nil
}

func parsePublicKey(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("election has no signing public key")
	}
	var der []byte
	if block, _ := pem.Decode([]byte(raw)); block != nil {
		der = block.Bytes
	} else {
		b, err := decodeBase64(raw)
		if err != nil {
			return nil, err
		}
		der = b
	}
	return x509.ParsePKIXPublicKey(der)
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
