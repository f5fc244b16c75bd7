package signer

import (
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"go.mozilla.org/pkcs7"

	"tapandstamp/pkg/passkit/signer/signertest"
)

func TestLoadP12(t *testing.T) {
	creds := signertest.New(t)

	tests := []struct {
		name     string
		data     []byte
		password string
		wantErr  error
	}{
		{name: "sanity", data: creds.P12, password: signertest.Password},
		{name: "leaf not first", data: creds.SwappedOrder(t), password: signertest.Password},
		{name: "wrong passphrase", data: creds.P12, password: "nope", wantErr: ErrDecryption},
		{name: "garbage", data: []byte("not a pkcs12 bundle"), password: signertest.Password, wantErr: ErrCertificateParse},
		{name: "no key bag", data: creds.TrustStoreOnly(t), password: signertest.Password, wantErr: ErrNoPrivateKey},
		{name: "key matches no certificate", data: creds.MismatchedKey(t), password: signertest.Password, wantErr: ErrNoCertificate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cert, err := LoadP12(tt.data, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("LoadP12() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if !cert.Leaf.Equal(creds.Leaf) {
				t.Errorf("LoadP12() picked %q as signing certificate", cert.Leaf.Subject.CommonName)
			}
			if len(cert.CACerts) != 1 || !cert.CACerts[0].Equal(creds.WWDR) {
				t.Errorf("LoadP12() CA certs = %d", len(cert.CACerts))
			}
		})
	}
}

func TestLoadP12FileMissing(t *testing.T) {
	_, err := LoadP12File("/nonexistent/pass.p12", "x")
	if !errors.Is(err, ErrCertificateParse) {
		t.Errorf("LoadP12File() error = %v", err)
	}
}

func TestLoadWWDR(t *testing.T) {
	creds := signertest.New(t)

	for _, path := range []string{creds.WWDRPath, creds.WWDRDER} {
		cert, err := LoadWWDR(path)
		require.NoError(t, err, path)
		require.True(t, cert.Equal(creds.WWDR), path)
	}

	_, err := ParseCertificate([]byte("-----BEGIN CERTIFICATE-----\nbroken"))
	require.ErrorIs(t, err, ErrCertificateParse)
}

func TestVerifyCertificate(t *testing.T) {
	creds := signertest.New(t)

	info := VerifyCertificate(Config{CertData: creds.P12, CertPassword: signertest.Password})
	require.True(t, info.Valid, info.Error)
	require.Equal(t, signertest.PassTypeID, info.PassTypeID)
	require.Equal(t, signertest.TeamID, info.TeamID)
	require.True(t, info.HasPassKitExtension)

	info = Inspect(creds.WWDR)
	require.False(t, info.Valid)
	require.NotEmpty(t, info.Error)

	info = VerifyCertificate(Config{CertData: creds.P12, CertPassword: "bad"})
	require.False(t, info.Valid)
	require.NotEmpty(t, info.Error)
}

func TestSignDetached(t *testing.T) {
	creds := signertest.New(t)

	s, err := New(Config{CertPath: creds.P12Path, CertPassword: signertest.Password, WWDRCertPath: creds.WWDRPath})
	require.NoError(t, err)

	manifest := []byte(`{"pass.json":"0123456789abcdef0123456789abcdef01234567"}`)
	signature, err := s.Sign(manifest)
	require.NoError(t, err)

	p7, err := pkcs7.Parse(signature)
	require.NoError(t, err)
	require.Empty(t, p7.Content, "signature must not embed the manifest")
	require.Len(t, p7.Certificates, 2)

	p7.Content = manifest
	require.NoError(t, p7.Verify())

	p7.Content = append([]byte{}, manifest...)
	p7.Content[2] = 'X'
	require.Error(t, p7.Verify())
}

func TestSignWithoutWWDR(t *testing.T) {
	creds := signertest.New(t)

	s, err := New(Config{CertData: creds.P12, CertPassword: signertest.Password})
	require.NoError(t, err)
	require.True(t, s.Certificate().Equal(creds.Leaf))

	manifest := []byte("{}")
	signature, err := s.Sign(manifest)
	require.NoError(t, err)

	p7, err := pkcs7.Parse(signature)
	require.NoError(t, err)
	require.Len(t, p7.Certificates, 1)
	p7.Content = manifest
	require.NoError(t, p7.Verify())
}

func TestNewFailsFast(t *testing.T) {
	creds := signertest.New(t)

	_, err := New(Config{CertData: creds.P12, CertPassword: "wrong"})
	require.ErrorIs(t, err, ErrDecryption)

	_, err = New(Config{CertData: creds.P12, CertPassword: signertest.Password, WWDRCertPath: "/nonexistent.cer"})
	require.ErrorIs(t, err, ErrCertificateParse)
}

func TestNewPassTypeMismatch(t *testing.T) {
	creds := signertest.New(t)
	hook := logtest.NewGlobal()

	tests := []struct {
		name       string
		passTypeID string
		wantWarn   bool
	}{
		{name: "matching pass type", passTypeID: signertest.PassTypeID},
		{name: "not configured", passTypeID: ""},
		{name: "different pass type", passTypeID: "pass.com.example.other", wantWarn: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook.Reset()

			_, err := New(Config{
				PassTypeID:   tt.passTypeID,
				CertData:     creds.P12,
				CertPassword: signertest.Password,
				WWDRCertPath: creds.WWDRPath,
			})
			require.NoError(t, err)

			warned := false
			for _, entry := range hook.AllEntries() {
				if entry.Level == logrus.WarnLevel && strings.Contains(entry.Message, signertest.PassTypeID) {
					warned = true
				}
			}
			require.Equal(t, tt.wantWarn, warned)
		})
	}
}

func TestSHA1Hash(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: "da39a3ee5e6b4b0d3255bfef95601890afd80709"},
		{in: "abc", want: "a9993e364706816aba3e25717850c26c9cd0d89d"},
	}
	for _, tt := range tests {
		if got := SHA1Hash([]byte(tt.in)); got != tt.want {
			t.Errorf("SHA1Hash(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
