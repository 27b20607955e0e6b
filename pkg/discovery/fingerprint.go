package discovery

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"strings"
)

// FingerprintLength is the length of a hex SHA-256 fingerprint.
const FingerprintLength = 64

// CertificateFingerprint returns the lowercase hex SHA-256 of the
// certificate DER, as advertised in gatewayTlsSha256.
func CertificateFingerprint(cert *x509.Certificate) string {
	hash := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(hash[:])
}

// NormalizeFingerprint accepts a hex SHA-256 fingerprint with optional
// colons and any case, and returns it lowercase without separators.
func NormalizeFingerprint(s string) (string, bool) {
	fp := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), ":", ""))
	if len(fp) != FingerprintLength || !isHexString(fp) {
		return "", false
	}
	return fp, true
}

func isHexString(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
