package report

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/ralt/pkgcheck/internal/signer"
	"github.com/ralt/pkgcheck/internal/utils"
	"github.com/sirupsen/logrus"
)

// ArtifactOptions controls how a report is written to disk
type ArtifactOptions struct {
	Path        string
	Compression string
	Signer      signer.Signer
}

// WriteArtifact writes the JSON report to opts.Path (plus the compression
// extension) with sha256sum and sha512sum files next to it. When a signer
// is set it also writes an armored detached signature and the public key
// that verifies it. It returns the paths written.
func WriteArtifact(r *Report, opts ArtifactOptions) ([]string, error) {
	var buf bytes.Buffer
	if err := r.WriteJSON(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}

	data, err := utils.Compress(buf.Bytes(), opts.Compression)
	if err != nil {
		return nil, fmt.Errorf("failed to compress report: %w", err)
	}

	path := opts.Path
	if opts.Compression != utils.CompressNone {
		path += "." + opts.Compression
	}

	var written []string
	if err := utils.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	written = append(written, path)

	sums := utils.CalculateChecksums(data)
	for _, sum := range []struct{ ext, value string }{
		{".sha256", sums.SHA256},
		{".sha512", sums.SHA512},
	} {
		sumPath := path + sum.ext
		if err := utils.WriteFile(sumPath, []byte(utils.ChecksumLine(sum.value, filepath.Base(path))), 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", sumPath, err)
		}
		written = append(written, sumPath)
	}

	if opts.Signer != nil {
		sig, err := opts.Signer.SignDetached(data)
		if err != nil {
			return written, fmt.Errorf("failed to sign report: %w", err)
		}
		sigPath := path + ".asc"
		if err := utils.WriteFile(sigPath, sig, 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", sigPath, err)
		}
		written = append(written, sigPath)

		pub, err := opts.Signer.GetPublicKey()
		if err != nil {
			return written, fmt.Errorf("failed to export public key: %w", err)
		}
		pubPath := path + ".pub.asc"
		if err := utils.WriteFile(pubPath, pub, 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", pubPath, err)
		}
		written = append(written, pubPath)
		logrus.Info("Report signed successfully")
	}

	logrus.Debugf("Wrote report artifact %s (%d bytes)", path, sums.Size)
	return written, nil
}
