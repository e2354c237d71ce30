package controller

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"giftbox-shop/models"
)

//go:embed templates/*.html
var pageFS embed.FS

var pages = template.Must(template.ParseFS(pageFS, "templates/*.html"))

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

// setCORSHeaders allows the storefront (any origin) to call the endpoints
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
}

func writeJSON(w http.ResponseWriter, status int, body models.OrderResponse) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.S().Errorf("❌ writeJSON: Error encoding response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.OrderResponse{Success: false, Error: message})
}

type confirmationPage struct {
	Title       string
	Message     string
	OrderNumber string
}

type errorPage struct {
	Message string
}

func writeHTML(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		zap.S().Errorf("❌ writeHTML: Error rendering %s: %v", name, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func writeErrorPage(w http.ResponseWriter, status int, message string) {
	writeHTML(w, status, "error.html", errorPage{Message: message})
}
