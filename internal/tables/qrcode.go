package tables

import (
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

type QRGenerator interface {
	Generate(slug, token string) ([]byte, error)
}

// MenuQRGenerator: QR içeriği {BaseURL}/menu/{slug}?table={token}
type MenuQRGenerator struct {
	BaseURL string
	Size    int
}

func (g MenuQRGenerator) URL(slug, token string) string {
	return fmt.Sprintf("%s/menu/%s?table=%s", g.BaseURL, url.PathEscape(slug), url.QueryEscape(token))
}

func (g MenuQRGenerator) Generate(slug, token string) ([]byte, error) {
	size := g.Size
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(g.URL(slug, token), qrcode.Medium, size)
}

func newToken() string {
	return uuid.NewString()
}
