package utils

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
)

// Checksum contains the checksums of a report artifact
type Checksum struct {
	SHA256 string
	SHA512 string
	Size   int64
}

// CalculateChecksums calculates all checksums for data
func CalculateChecksums(data []byte) *Checksum {
	sha256Sum := sha256.Sum256(data)
	sha512Sum := sha512.Sum512(data)

	return &Checksum{
		SHA256: hex.EncodeToString(sha256Sum[:]),
		SHA512: hex.EncodeToString(sha512Sum[:]),
		Size:   int64(len(data)),
	}
}

// ChecksumLine formats a checksum the way sha256sum and sha512sum print it
func ChecksumLine(sum, name string) string {
	return fmt.Sprintf("%s  %s\n", sum, name)
}
