package imageio

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"pothole-watch/internal/domain/entity"
)

func TestDecode_PNGAndJPEG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 5))
	src.SetRGBA(1, 1, color.RGBA{R: 200, A: 255})

	var pngBuf, jpgBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, src))
	require.NoError(t, jpeg.Encode(&jpgBuf, src, nil))

	for _, data := range [][]byte{pngBuf.Bytes(), jpgBuf.Bytes()} {
		photo, err := Decode(data)
		require.NoError(t, err)
		require.Equal(t, image.Pt(8, 5), photo.Image.Bounds().Size())
		require.Nil(t, photo.Location) // без EXIF
	}
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(nil)
	require.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = Decode([]byte("definitely not an image"))
	require.ErrorIs(t, err, entity.ErrInvalidInput)
}

// pngHeader PNG из одного заголовка IHDR с заявленным размером, без пиксельных данных
func pngHeader(width, height uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], width)
	binary.BigEndian.PutUint32(ihdr[4:8], height)
	ihdr[8] = 8 // бит на канал
	ihdr[9] = 2 // RGB

	chunk := append([]byte("IHDR"), ihdr...)
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestDecode_RejectsHugeCanvas(t *testing.T) {
	_, err := Decode(pngHeader(100_000, 100_000))
	require.ErrorIs(t, err, entity.ErrInvalidInput)
	require.ErrorContains(t, err, "100000x100000")
}
