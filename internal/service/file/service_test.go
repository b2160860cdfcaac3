package file

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func newService(t *testing.T) (FileService, *storage.LocalStorage) {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir(), "http://files.local")
	require.NoError(t, err)
	return NewFileService(s), s
}

func TestUploadPunchPhoto(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(64, 48), &jpeg.Options{Quality: 80}))
	original := buf.Bytes()

	key, err := svc.UploadPunchPhoto(ctx, "c1", "u1", "2024-03-08", "0190a1b2-0000-7000-8000-000000000001", bytes.NewReader(original))
	require.NoError(t, err)
	assert.Equal(t, "punches/c1/2024-03-08/u1-0190a1b2-0000-7000-8000-000000000001.jpg", key)

	rc, err := store.Download(ctx, key)
	require.NoError(t, err)
	stored, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, original, stored, "small jpeg must be stored untouched")

	url, err := svc.GetFileURL(ctx, key, 0)
	require.NoError(t, err)
	assert.Equal(t, "http://files.local/"+key, url)
}

func TestUploadPunchPhoto_ConvertsPNG(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(32, 32)))

	key, err := svc.UploadPunchPhoto(ctx, "c1", "u1", "2024-03-08", "k", &buf)
	require.NoError(t, err)

	rc, err := store.Download(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	_, format, err := image.DecodeConfig(rc)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestUploadPunchPhoto_RejectsNonImage(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.UploadPunchPhoto(context.Background(), "c1", "u1", "2024-03-08", "k", strings.NewReader("%PDF-1.4"))
	assert.Error(t, err)
}

func TestUploadJustificationAttachment(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	key, err := svc.UploadJustificationAttachment(ctx, "c1", "u1", strings.NewReader("%PDF-1.4"), "Atestado.PDF")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "justifications/c1/u1/"))
	assert.True(t, strings.HasSuffix(key, ".pdf"))

	_, err = svc.UploadJustificationAttachment(ctx, "c1", "u1", strings.NewReader("x"), "run.exe")
	assert.Error(t, err)
}

func TestCompressImage_ShrinksLargePhoto(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(1600, 1200)))

	out, err := compressImage(buf.Bytes(), maxPhotoBytes)
	require.NoError(t, err)
	_, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}
