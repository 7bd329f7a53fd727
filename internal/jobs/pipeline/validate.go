package pipeline

import (
	"context"
	"fmt"

	"github.com/velabs/studioforge-backend/internal/types"
)

// maxArtifactBytes caps accepted uploads at 5 GiB, which covers the largest
// scene files the studios produce today.
const maxArtifactBytes = 5 << 30

var allowedMimePrefixes = []string{
	"model/",
	"image/",
	"application/octet-stream",
	"application/zip",
}

// NewValidateUnit checks the stored version artifact's integrity metadata.
// It is deliberately cheap: deep format parsing belongs to the render farm.
func NewValidateUnit() WorkUnit {
	return func(ctx context.Context, asset *types.Asset, version *types.AssetVersion) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if version.FilePath == "" {
			return fmt.Errorf("version %d of asset %s has no stored artifact", version.Version, asset.ID)
		}
		if version.FileSize <= 0 {
			return fmt.Errorf("artifact for version %d is empty", version.Version)
		}
		if version.FileSize > maxArtifactBytes {
			return fmt.Errorf("artifact for version %d exceeds size limit (%d bytes)", version.Version, version.FileSize)
		}
		if version.FileMime != "" && !mimeAllowed(version.FileMime) {
			return fmt.Errorf("unsupported artifact mime type %q", version.FileMime)
		}
		return nil
	}
}

func mimeAllowed(mime string) bool {
	for _, prefix := range allowedMimePrefixes {
		if len(mime) >= len(prefix) && mime[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
