package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	_ "image/png" // register PNG decoder
	"math"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"recipeshare/internal/config"
	"recipeshare/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	DefaultMediaDir             = "./media"
	DefaultImageMaxUploadSizeMB = 10
	MediaURLPrefix              = "/media"
	MasterMaxWidth              = 1600
	ThumbnailWidth              = 400
	JPEGQuality                 = 82
	WebPQuality                 = 70
)

// Recipe photos are cropped to the nearest of these aspect ratios.
var cardRatios = []float64{4.0 / 3.0, 1.0, 3.0 / 4.0}

// UploadImageInput is one photo uploaded for a recipe.
type UploadImageInput struct {
	RecipeID    uint
	UserID      uint
	Filename    string
	ContentType string
	Content     []byte
}

// StoredImage describes the files written for one upload. URLs are relative
// to the server root.
type StoredImage struct {
	Hash         string `json:"hash"`
	URL          string `json:"url"`
	WebPURL      string `json:"webpUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}

// ImageService normalizes recipe photos and writes them under the media directory.
type ImageService struct {
	mediaDir           string
	maxUploadSizeBytes int64
}

func NewImageService(cfg *config.Config) *ImageService {
	mediaDir := DefaultMediaDir
	maxMB := DefaultImageMaxUploadSizeMB
	if cfg != nil {
		if cfg.MediaDir != "" {
			mediaDir = cfg.MediaDir
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxMB = cfg.ImageMaxUploadSizeMB
		}
	}
	return &ImageService{
		mediaDir:           mediaDir,
		maxUploadSizeBytes: int64(maxMB) * 1024 * 1024,
	}
}

// MediaDir is the directory served under MediaURLPrefix.
func (s *ImageService) MediaDir() string {
	return s.mediaDir
}

// Store validates the upload, crops it to a card ratio and writes a JPEG
// master, a WebP master and a JPEG thumbnail. Identical uploads for the same
// recipe map to the same files.
func (s *ImageService) Store(ctx context.Context, in UploadImageInput) (*StoredImage, error) {
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}
	if !isAllowedImageMIME(http.DetectContentType(in.Content)) {
		return nil, models.NewValidationError("Invalid image type")
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !contentTypeMatches(provided, format) {
		return nil, models.NewValidationError("Image content type mismatch")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	master := resizeToWidth(cropToRatio(decoded), MasterMaxWidth)
	thumb := resizeToWidth(master, ThumbnailWidth)

	masterJPG, err := encodeJPEG(master)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	masterWebP, err := encodeWebP(master)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	thumbJPG, err := encodeJPEG(thumb)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	hash := imageHash(in.RecipeID, masterJPG)
	files := map[string][]byte{
		"master.jpg":  masterJPG,
		"master.webp": masterWebP,
		"thumb.jpg":   thumbJPG,
	}
	var written []string
	for name, data := range files {
		dst := filepath.Join(s.mediaDir, "recipes", hash, name)
		if err := writeFile(dst, data); err != nil {
			removeFiles(written)
			return nil, models.NewInternalError(err)
		}
		written = append(written, dst)
	}

	b := master.Bounds()
	return &StoredImage{
		Hash:         hash,
		URL:          mediaURL(hash, "master.jpg"),
		WebPURL:      mediaURL(hash, "master.webp"),
		ThumbnailURL: mediaURL(hash, "thumb.jpg"),
		Width:        b.Dx(),
		Height:       b.Dy(),
	}, nil
}

func mediaURL(hash, name string) string {
	return path.Join(MediaURLPrefix, "recipes", hash, name)
}

// cropToRatio center-crops src to the closest card ratio.
func cropToRatio(src image.Image) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return src
	}

	ratio := float64(w) / float64(h)
	best := cardRatios[0]
	for _, r := range cardRatios[1:] {
		if math.Abs(ratio-r) < math.Abs(ratio-best) {
			best = r
		}
	}

	cw, ch := w, h
	if ratio > best {
		cw = max(1, int(math.Round(float64(h)*best)))
	} else {
		ch = max(1, int(math.Round(float64(w)/best)))
	}
	offset := image.Pt(b.Min.X+(w-cw)/2, b.Min.Y+(h-ch)/2)

	dst := image.NewRGBA(image.Rect(0, 0, cw, ch))
	draw.Draw(dst, dst.Bounds(), src, offset, draw.Src)
	return dst
}

func resizeToWidth(src image.Image, maxWidth int) image.Image {
	b := src.Bounds()
	if b.Dx() <= maxWidth {
		return src
	}
	h := max(1, b.Dy()*maxWidth/b.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: WebPQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if mediaType == "image/jpg" {
		return "image/jpeg"
	}
	return mediaType
}

// contentTypeMatches compares a declared MIME type with the decoder's format name.
func contentTypeMatches(declared, format string) bool {
	return declared == "image/"+strings.ToLower(format)
}

func imageHash(recipeID uint, content []byte) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "recipe:%d:", recipeID)
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))[:32]
}

func writeFile(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o600)
}

func removeFiles(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
