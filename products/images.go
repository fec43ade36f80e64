package products

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"storefront/utils"

	"github.com/disintegration/imaging"
)

const thumbWidth = 300

// Image holds the public paths of a stored product picture.
type Image struct {
	Original  string `json:"original"`
	Thumbnail string `json:"thumbnail"`
}

// SaveProductImage decodes src and writes a JPEG original plus a 300px-wide
// thumbnail under <root>/products/<productID>/.
func SaveProductImage(src io.Reader, root, productID string) (Image, error) {
	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return Image{}, fmt.Errorf("failed to decode image: %w", err)
	}

	name := utils.GetUUID() + ".jpg"
	dir := filepath.Join(root, "products", productID)
	thumbDir := filepath.Join(dir, "thumb")
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		return Image{}, fmt.Errorf("failed to create upload directory: %w", err)
	}

	if err := imaging.Save(img, filepath.Join(dir, name)); err != nil {
		return Image{}, fmt.Errorf("failed to save original image: %w", err)
	}
	thumb := imaging.Resize(img, thumbWidth, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, filepath.Join(thumbDir, name)); err != nil {
		return Image{}, fmt.Errorf("failed to save thumbnail: %w", err)
	}

	base := "/uploads/products/" + productID + "/"
	return Image{Original: base + name, Thumbnail: base + "thumb/" + name}, nil
}
