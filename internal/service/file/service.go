package file

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoding
	"io"
	"math"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/storage"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

const (
	maxPhotoBytes = 200 * 1024
	minPhotoWidth = 480
)

type FileService interface {
	// UploadPunchPhoto stores a punch evidence photo. The path is derived
	// from the idempotency key so a replayed punch overwrites its own photo.
	UploadPunchPhoto(ctx context.Context, companyID, userID, date, idempotencyKey string, photo io.Reader) (string, error)

	UploadJustificationAttachment(ctx context.Context, companyID, userID string, file io.Reader, filename string) (string, error)

	DeleteFile(ctx context.Context, path string) error
	GetFileURL(ctx context.Context, path string, expiry time.Duration) (string, error)
}

type fileServiceImpl struct {
	storage storage.FileStorage
}

func NewFileService(storage storage.FileStorage) FileService {
	return &fileServiceImpl{
		storage: storage,
	}
}

// UploadPunchPhoto implements FileService.
func (s *fileServiceImpl) UploadPunchPhoto(ctx context.Context, companyID, userID, date, idempotencyKey string, photo io.Reader) (string, error) {
	buffer, err := io.ReadAll(photo)
	if err != nil {
		return "", fmt.Errorf("failed to read photo: %w", err)
	}

	switch http.DetectContentType(buffer) {
	case "image/jpeg", "image/png":
	default:
		return "", fmt.Errorf("invalid photo type: only jpeg and png allowed")
	}

	compressed, err := compressImage(buffer, maxPhotoBytes)
	if err != nil {
		return "", fmt.Errorf("failed to compress photo: %w", err)
	}

	// punches/{company}/{date}/{user}-{key}.jpg
	key := path.Join("punches", companyID, date, fmt.Sprintf("%s-%s.jpg", userID, idempotencyKey))

	uploadedPath, err := s.storage.Upload(ctx, bytes.NewReader(compressed), key, "image/jpeg")
	if err != nil {
		return "", fmt.Errorf("failed to upload punch photo: %w", err)
	}

	return uploadedPath, nil
}

// UploadJustificationAttachment implements FileService.
func (s *fileServiceImpl) UploadJustificationAttachment(ctx context.Context, companyID, userID string, file io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	contentType := "application/octet-stream"
	switch ext {
	case ".jpg", ".jpeg":
		contentType = "image/jpeg"
	case ".png":
		contentType = "image/png"
	case ".pdf":
		contentType = "application/pdf"
	default:
		return "", fmt.Errorf("invalid file type: only jpg, jpeg, png, pdf allowed")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate file name: %w", err)
	}
	key := path.Join("justifications", companyID, userID, id.String()+ext)

	uploadedPath, err := s.storage.Upload(ctx, file, key, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to upload justification attachment: %w", err)
	}

	return uploadedPath, nil
}

// DeleteFile implements FileService.
func (s *fileServiceImpl) DeleteFile(ctx context.Context, path string) error {
	return s.storage.Delete(ctx, path)
}

// GetFileURL implements FileService.
func (s *fileServiceImpl) GetFileURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	return s.storage.GetURL(ctx, path, expiry)
}

// ==================== HELPER FUNCTIONS ====================

// compressImage shrinks a photo to at most maxSize bytes. JPEGs already
// under the limit are kept byte for byte so the burned-in timestamp is not
// re-encoded; anything else comes out as JPEG.
func compressImage(buffer []byte, maxSize int) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(buffer))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	if format == "jpeg" && len(buffer) <= maxSize {
		return buffer, nil
	}

	var compressed []byte
	for quality := 85; quality >= 50; quality -= 5 {
		compressed, err = encodeJPEG(img, quality)
		if err != nil {
			return nil, err
		}
		if len(compressed) <= maxSize {
			return compressed, nil
		}
	}

	// still too large: scale down towards the limit
	bounds := img.Bounds()
	ratio := math.Sqrt(float64(maxSize) / float64(len(compressed)))
	newWidth := int(float64(bounds.Dx()) * ratio)
	if newWidth < minPhotoWidth {
		newWidth = minPhotoWidth
	}
	if newWidth >= bounds.Dx() {
		return compressed, nil
	}
	newHeight := bounds.Dy() * newWidth / bounds.Dx()

	return encodeJPEG(resizeImage(img, newWidth, newHeight), 70)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// resizeImage resizes an image using CatmullRom interpolation
func resizeImage(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
