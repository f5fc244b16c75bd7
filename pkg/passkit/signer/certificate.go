package signer

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"software.sslmate.com/src/go-pkcs12"
)

var (
	// OIDUserID is the subject attribute Apple uses to carry the pass type identifier.
	OIDUserID = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 1}
	// OIDPassKitExtension marks a Pass Type ID certificate.
	OIDPassKitExtension = asn1.ObjectIdentifier{1, 2, 840, 113635, 100, 4, 16}
)

// Certificate is the signing material extracted from a PKCS#12 bundle.
type Certificate struct {
	Leaf       *x509.Certificate
	PrivateKey crypto.Signer
	CACerts    []*x509.Certificate
}

// CertificateInfo is the result of VerifyCertificate.
type CertificateInfo struct {
	Valid               bool   `json:"valid"`
	PassTypeID          string `json:"pass_type_id,omitempty"`
	TeamID              string `json:"team_id,omitempty"`
	HasPassKitExtension bool   `json:"has_passkit_extension"`
	Error               string `json:"error,omitempty"`
}

// LoadP12File reads and decodes a .p12 file.
func LoadP12File(path, password string) (*Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrCertificateParse, path, err)
	}

	return LoadP12(data, password)
}

// LoadP12 decodes a PKCS#12 bundle. The signing certificate is the one whose public key
// belongs to the bundled private key; every other certificate is returned as a CA.
func LoadP12(data []byte, password string) (*Certificate, error) {
	key, leaf, caCerts, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return nil, classifyP12Error(err)
	}

	privateKey, ok := key.(crypto.Signer)
	if !ok || privateKey == nil {
		return nil, fmt.Errorf("%w: unsupported key type %T", ErrNoPrivateKey, key)
	}

	all := make([]*x509.Certificate, 0, len(caCerts)+1)
	if leaf != nil {
		all = append(all, leaf)
	}
	all = append(all, caCerts...)
	if len(all) == 0 {
		return nil, ErrNoCertificate
	}

	cert := &Certificate{PrivateKey: privateKey}
	for _, c := range all {
		if cert.Leaf == nil && publicKeyMatches(c.PublicKey, privateKey.Public()) {
			cert.Leaf = c
			continue
		}
		cert.CACerts = append(cert.CACerts, c)
	}

	if cert.Leaf == nil {
		return nil, fmt.Errorf("%w: no certificate matches the private key", ErrNoCertificate)
	}

	return cert, nil
}

func classifyP12Error(err error) error {
	msg := err.Error()
	switch {
	case errors.Is(err, pkcs12.ErrIncorrectPassword):
		return fmt.Errorf("%w: %v", ErrDecryption, err)
	case strings.Contains(msg, "private key missing"):
		return fmt.Errorf("%w: %v", ErrNoPrivateKey, err)
	case strings.Contains(msg, "certificate missing"):
		return fmt.Errorf("%w: %v", ErrNoCertificate, err)
	default:
		return fmt.Errorf("%w: %v", ErrCertificateParse, err)
	}
}

type publicKeyEqualer interface {
	Equal(crypto.PublicKey) bool
}

func publicKeyMatches(certKey, key crypto.PublicKey) bool {
	switch pub := certKey.(type) {
	case *rsa.PublicKey:
		other, ok := key.(*rsa.PublicKey)
		return ok && pub.N.Cmp(other.N) == 0
	case publicKeyEqualer:
		return pub.Equal(key)
	}
	return false
}

// LoadWWDR loads Apple's WWDR intermediate certificate in PEM or DER form.
func LoadWWDR(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading WWDR certificate %s: %v", ErrCertificateParse, path, err)
	}

	return ParseCertificate(data)
}

// ParseCertificate accepts a single PEM or DER encoded certificate.
func ParseCertificate(data []byte) (*x509.Certificate, error) {
	if bytes.Contains(data, []byte("-----BEGIN CERTIFICATE-----")) {
		block, _ := pem.Decode(data)
		if block == nil {
			return nil, fmt.Errorf("%w: invalid PEM block", ErrCertificateParse)
		}
		data = block.Bytes
	}

	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCertificateParse, err)
	}
	return cert, nil
}

// VerifyCertificate loads the configured bundle and reports the pass type and team it was issued for.
func VerifyCertificate(cfg Config) CertificateInfo {
	cert, err := cfg.load()
	if err != nil {
		return CertificateInfo{Error: err.Error()}
	}

	return Inspect(cert.Leaf)
}

// Inspect extracts the pass type identifier (subject UID) and team (subject OU) from a certificate.
func Inspect(cert *x509.Certificate) CertificateInfo {
	info := CertificateInfo{}

	for _, attr := range cert.Subject.Names {
		if attr.Type.Equal(OIDUserID) {
			if v, ok := attr.Value.(string); ok {
				info.PassTypeID = v
			}
		}
	}
	if len(cert.Subject.OrganizationalUnit) > 0 {
		info.TeamID = cert.Subject.OrganizationalUnit[0]
	}
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(OIDPassKitExtension) {
			info.HasPassKitExtension = true
		}
	}

	if info.PassTypeID == "" {
		info.Error = "certificate does not contain a pass type identifier (UID field)"
		return info
	}

	info.Valid = true
	return info
}
