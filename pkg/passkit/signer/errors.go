package signer

import "errors"

var (
	ErrCertificateParse = errors.New("certificate parse error")
	ErrDecryption       = errors.New("certificate decryption failed")
	ErrNoPrivateKey     = errors.New("no private key found in certificate bundle")
	ErrNoCertificate    = errors.New("no certificate found in certificate bundle")
	ErrSigning          = errors.New("manifest signing failed")
)
