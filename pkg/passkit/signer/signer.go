package signer

import (
	"crypto/sha1"
	"crypto/x509"
	"encoding/hex"
	"fmt"

	"go.mozilla.org/pkcs7"

	"tapandstamp/utilities"
)

type Config struct {
	// PassTypeID is the identifier passes are built with, checked against the certificate UID.
	PassTypeID   string
	CertPath     string
	CertData     []byte
	CertPassword string
	WWDRCertPath string
}

func (cfg Config) load() (*Certificate, error) {
	if len(cfg.CertData) > 0 {
		return LoadP12(cfg.CertData, cfg.CertPassword)
	}
	return LoadP12File(cfg.CertPath, cfg.CertPassword)
}

// Signer produces detached PKCS#7 signatures over pass manifests.
type Signer struct {
	cert *Certificate
	wwdr *x509.Certificate
}

// New loads the signing credentials once so configuration problems surface at startup.
func New(cfg Config) (*Signer, error) {
	log := utilities.NewLogger("signer.New")

	cert, err := cfg.load()
	if err != nil {
		return nil, err
	}

	var wwdr *x509.Certificate
	if cfg.WWDRCertPath != "" {
		if wwdr, err = LoadWWDR(cfg.WWDRCertPath); err != nil {
			return nil, err
		}
	} else {
		log.Warn("no WWDR certificate configured, signatures will not chain to Apple's root")
	}

	info := Inspect(cert.Leaf)
	log.Debugf("loaded signing certificate for pass type %q team %q", info.PassTypeID, info.TeamID)
	if cfg.PassTypeID != "" && info.PassTypeID != cfg.PassTypeID {
		log.Warnf("signing certificate is issued for pass type %q, passes use %q and will be rejected by Wallet",
			info.PassTypeID, cfg.PassTypeID)
	}

	return NewFromCertificate(cert, wwdr), nil
}

func NewFromCertificate(cert *Certificate, wwdr *x509.Certificate) *Signer {
	return &Signer{cert: cert, wwdr: wwdr}
}

// Certificate returns the leaf used for signing.
func (s *Signer) Certificate() *x509.Certificate {
	return s.cert.Leaf
}

// Sign returns the DER encoded detached SignedData over manifest.
func (s *Signer) Sign(manifest []byte) ([]byte, error) {
	sd, err := pkcs7.NewSignedData(manifest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}
	sd.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)

	var parents []*x509.Certificate
	if s.wwdr != nil {
		parents = append(parents, s.wwdr)
	}

	if err := sd.AddSignerChain(s.cert.Leaf, s.cert.PrivateKey, parents, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}
	sd.Detach()

	signature, err := sd.Finish()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}

	return signature, nil
}

// SHA1Hash is the manifest digest Apple expects for every bundle file.
func SHA1Hash(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}
