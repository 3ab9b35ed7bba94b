package infrastructure

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/skip2/go-qrcode"
)

const pngDataURIPrefix = "data:image/png;base64,"

// QRCodeDataURI turns whatever the bot backend stored into something an <img> can show.
// Data URIs pass through, base64 images get a prefix matching their bytes and
// raw pairing strings are rendered to a PNG.
func QRCodeDataURI(payload string) (string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", nil
	}
	if strings.HasPrefix(payload, "data:") {
		return payload, nil
	}
	if mimeType := base64ImageType(payload); mimeType != "" {
		return "data:" + mimeType + ";base64," + payload, nil
	}
	png, err := QRCodePNG(payload)
	if err != nil {
		return "", err
	}
	return pngDataURIPrefix + base64.StdEncoding.EncodeToString(png), nil
}

// QRCodePNG renders a raw pairing string.
func QRCodePNG(code string) ([]byte, error) {
	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}
	return png, nil
}

// DecodeDataURI returns the image bytes of a base64 data URI.
func DecodeDataURI(uri string) ([]byte, string, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, "", fmt.Errorf("not a data uri")
	}
	meta, data, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, "", fmt.Errorf("unsupported data uri")
	}
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", fmt.Errorf("decode data uri: %w", err)
	}
	return b, strings.TrimSuffix(meta, ";base64"), nil
}

// base64ImageType sniffs a bare base64 payload and returns its image MIME
// type, or "" when it is not an image.
func base64ImageType(s string) string {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(b) == 0 {
		return ""
	}
	mimeType := http.DetectContentType(b)
	if !strings.HasPrefix(mimeType, "image/") {
		return ""
	}
	return mimeType
}
