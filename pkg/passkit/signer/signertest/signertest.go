// Package signertest generates throwaway Pass Type ID credentials for tests.
package signertest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"software.sslmate.com/src/go-pkcs12"
)

const (
	Password   = "test-passphrase"
	PassTypeID = "pass.com.tapandstamp.test"
	TeamID     = "ABCDE12345"
)

var (
	oidUserID           = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 1}
	oidPassKitExtension = asn1.ObjectIdentifier{1, 2, 840, 113635, 100, 4, 16}
)

type Credentials struct {
	P12      []byte
	WWDR     *x509.Certificate
	Leaf     *x509.Certificate
	LeafKey  *rsa.PrivateKey
	P12Path  string
	WWDRPath string
	WWDRDER  string
}

// New issues a WWDR-like CA and a leaf carrying the pass type UID, writes both to t.TempDir().
func New(t testing.TB) *Credentials {
	t.Helper()

	caKey := mustKey(t)
	caTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test WWDR CA", Organization: []string{"Test"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTmpl, caTmpl, &caKey.PublicKey, caKey)
	if err != nil {
		t.Fatal(err)
	}
	ca, err := x509.ParseCertificate(caDER)
	if err != nil {
		t.Fatal(err)
	}

	leafKey := mustKey(t)
	leafTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject: pkix.Name{
			CommonName:         "Pass Type ID: " + PassTypeID,
			OrganizationalUnit: []string{TeamID},
			ExtraNames:         []pkix.AttributeTypeAndValue{{Type: oidUserID, Value: PassTypeID}},
		},
		NotBefore:       time.Now().Add(-time.Hour),
		NotAfter:        time.Now().Add(24 * time.Hour),
		KeyUsage:        x509.KeyUsageDigitalSignature,
		ExtKeyUsage:     []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		ExtraExtensions: []pkix.Extension{{Id: oidPassKitExtension, Value: []byte{0x05, 0x00}}},
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTmpl, ca, &leafKey.PublicKey, caKey)
	if err != nil {
		t.Fatal(err)
	}
	leaf, err := x509.ParseCertificate(leafDER)
	if err != nil {
		t.Fatal(err)
	}

	p12, err := pkcs12.Modern.Encode(leafKey, leaf, []*x509.Certificate{ca}, Password)
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	creds := &Credentials{
		P12:      p12,
		WWDR:     ca,
		Leaf:     leaf,
		LeafKey:  leafKey,
		P12Path:  filepath.Join(dir, "pass.p12"),
		WWDRPath: filepath.Join(dir, "wwdr.pem"),
		WWDRDER:  filepath.Join(dir, "wwdr.cer"),
	}

	write(t, creds.P12Path, p12)
	write(t, creds.WWDRPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: caDER}))
	write(t, creds.WWDRDER, caDER)

	return creds
}

// SwappedOrder encodes the bundle with the CA in the leaf slot to exercise key matching.
func (c *Credentials) SwappedOrder(t testing.TB) []byte {
	t.Helper()

	p12, err := pkcs12.Modern.Encode(c.LeafKey, c.WWDR, []*x509.Certificate{c.Leaf}, Password)
	if err != nil {
		t.Fatal(err)
	}
	return p12
}

// MismatchedKey encodes the leaf and CA with a private key that signed neither.
func (c *Credentials) MismatchedKey(t testing.TB) []byte {
	t.Helper()

	p12, err := pkcs12.Modern.Encode(mustKey(t), c.Leaf, []*x509.Certificate{c.WWDR}, Password)
	if err != nil {
		t.Fatal(err)
	}
	return p12
}

// TrustStoreOnly encodes certificates without any key bag.
func (c *Credentials) TrustStoreOnly(t testing.TB) []byte {
	t.Helper()

	p12, err := pkcs12.Modern.EncodeTrustStore([]*x509.Certificate{c.Leaf, c.WWDR}, Password)
	if err != nil {
		t.Fatal(err)
	}
	return p12
}

func mustKey(t testing.TB) *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func write(t testing.TB, path string, data []byte) {
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
}
