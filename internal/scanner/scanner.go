package scanner

import "context"

// ScannedPackage represents a package directory found during scanning
type ScannedPackage struct {
	// Name is the directory name, which the package must be named after
	Name string
	// Path is the path of the metadata file inside the directory
	Path string
}

// Scanner interface for discovering package directories
type Scanner interface {
	// Scan lists the package directories directly below dir
	Scan(ctx context.Context, dir string) ([]ScannedPackage, error)
}
