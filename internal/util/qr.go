package util

import (
	"bytes"
	"fmt"

	"github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"
)

type nopCloser struct {
	*bytes.Buffer
}

func (nopCloser) Close() error { return nil }

// QRCodePNG encodes content as a PNG QR code image.
func QRCodePNG(content string) ([]byte, error) {
	qrc, err := qrcode.New(content)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}

	buf := nopCloser{Buffer: new(bytes.Buffer)}
	w := standard.NewWithWriter(buf, standard.WithBuiltinImageEncoder(standard.PNG_FORMAT), standard.WithQRWidth(10))
	if err := qrc.Save(w); err != nil {
		return nil, fmt.Errorf("failed to render qr code: %w", err)
	}
	return buf.Bytes(), nil
}
