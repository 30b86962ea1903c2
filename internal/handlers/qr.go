package handlers

import (
	"log"
	"net/http"
	"net/url"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/aaronzipp/battleship/internal/game"
)

// QRSize is the edge length in pixels of join codes
const QRSize = 256

// JoinURL is the client link that opens the join screen for code
func (ctx *Context) JoinURL(code string) string {
	return ctx.Config.ClientURL + "/?join=" + url.QueryEscape(code)
}

// HandleQR serves a PNG QR code linking to the join screen of a session
func (ctx *Context) HandleQR(w http.ResponseWriter, r *http.Request) {
	code := game.NormalizeCode(r.PathValue("code"))
	if !ctx.Registry.Exists(code) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	png, err := qrcode.Encode(ctx.JoinURL(code), qrcode.Medium, QRSize)
	if err != nil {
		log.Printf("HandleQR: encode %s: %v", code, err)
		http.Error(w, "Failed to render QR code", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}
