package passkit

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"encoding/json"
	"io"
	"time"

	"tapandstamp/pkg/passkit/signer"
)

// bundleEpoch is stamped on every archive entry so identical input zips to identical bytes.
var bundleEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

type bundleFile struct {
	name string
	data []byte
}

// newManifest maps every file to its SHA-1. encoding/json writes map keys sorted.
func newManifest(files []bundleFile) ([]byte, error) {
	manifest := make(map[string]string, len(files))
	for _, f := range files {
		manifest[f.name] = signer.SHA1Hash(f.data)
	}
	return json.Marshal(manifest)
}

func writeBundle(files []bundleFile) ([]byte, error) {
	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	for _, f := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.name,
			Method:   zip.Deflate,
			Modified: bundleEpoch,
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(f.data); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
