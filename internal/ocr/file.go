package ocr

import (
	"bytes"
	"fmt"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/heic"
)

// File is one upload: a name, its MIME type and the raw bytes
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ReadFile loads a file from disk and determines its content type
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("reading file: %w", err)
	}
	name := filepath.Base(path)
	return File{
		Name:        name,
		ContentType: ContentTypeFor(name, data),
		Data:        data,
	}, nil
}

// ContentTypeFor guesses a MIME type from the extension, falling back to
// sniffing the content
func ContentTypeFor(name string, data []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	}
	if isHEICFormat(data) {
		return "image/heic"
	}
	return http.DetectContentType(data)
}

// Accepted reports whether the file matches the upload filter offered to
// operators: any image, or a .pdf/.jpg/.jpeg/.png file. The filter is
// advisory and is not enforced by the client.
func Accepted(name, contentType string) bool {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if strings.HasPrefix(contentType, "image/") {
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// Normalize re-encodes HEIC/HEIF photos as PNG, since the OCR backend only
// understands JPEG, PNG and PDF. Other files are returned unchanged.
// The boolean reports whether a conversion happened.
func Normalize(file File) (File, bool, error) {
	if !isHEICFormat(file.Data) && !isHEICMimeType(file.ContentType) {
		return file, false, nil
	}

	img, err := heic.Decode(bytes.NewReader(file.Data))
	if err != nil {
		return File{}, false, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return File{}, false, fmt.Errorf("encoding PNG: %w", err)
	}

	return File{
		Name:        strings.TrimSuffix(file.Name, filepath.Ext(file.Name)) + ".png",
		ContentType: "image/png",
		Data:        buf.Bytes(),
	}, true, nil
}

// isHEICFormat checks for an ftyp box with a HEIC-family brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
