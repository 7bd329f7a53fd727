package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/fogleman/gg"

	"github.com/velabs/studioforge-backend/internal/services"
	"github.com/velabs/studioforge-backend/internal/types"
)

const (
	previewWidth  = 640
	previewHeight = 360
)

// NewPreviewUnit renders a placeholder preview card for the version and
// stores it next to the artifact as preview.png. Real thumbnail extraction
// per asset format is the render farm's job; this card is what the web UI
// shows until a render completes.
func NewPreviewUnit(storage services.StorageProvider) WorkUnit {
	return func(ctx context.Context, asset *types.Asset, version *types.AssetVersion) error {
		dc := gg.NewContext(previewWidth, previewHeight)
		dc.SetRGB(0.12, 0.13, 0.18)
		dc.Clear()
		dc.SetRGB(0.35, 0.62, 0.95)
		dc.DrawRectangle(0, 0, previewWidth, 8)
		dc.Fill()
		dc.SetRGB(0.92, 0.93, 0.95)
		dc.DrawStringAnchored(asset.Name, previewWidth/2, previewHeight/2-16, 0.5, 0.5)
		dc.SetRGB(0.55, 0.58, 0.65)
		dc.DrawStringAnchored(fmt.Sprintf("%s  v%d", asset.Type, version.Version), previewWidth/2, previewHeight/2+16, 0.5, 0.5)

		var buf bytes.Buffer
		if err := dc.EncodePNG(&buf); err != nil {
			return fmt.Errorf("failed to encode preview image: %w", err)
		}
		destination := fmt.Sprintf("%s/%s/v%d", asset.StudioID, asset.ID, version.Version)
		if _, err := storage.Save(ctx, destination, "preview.png", &buf); err != nil {
			return fmt.Errorf("failed to store preview image: %w", err)
		}
		return nil
	}
}
