package signer

// Signer interface for signing report artifacts
type Signer interface {
	// SignDetached creates an armored detached signature
	SignDetached(data []byte) ([]byte, error)

	// GetPublicKey returns the public key
	GetPublicKey() ([]byte, error)
}
