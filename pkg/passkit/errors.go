package passkit

import (
	"errors"
	"fmt"
)

// ErrLogoFetch is logged and absorbed by the builder, which falls back to generated artwork.
var ErrLogoFetch = errors.New("logo fetch failed")

const (
	StagePassJSON  = "pass.json"
	StageAssets    = "assets"
	StageManifest  = "manifest"
	StageSignature = "signature"
	StageArchive   = "archive"
)

type BuildError struct {
	Stage string
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("pass build failed at %s: %v", e.Stage, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

func buildErr(stage string, err error) error {
	return &BuildError{Stage: stage, Err: err}
}
