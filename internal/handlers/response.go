package handlers

import (
	"encoding/json"
	"html"
	"net/http"
	"strings"

	"github.com/sdko-org/get2put/internal/config"
	"github.com/sdko-org/get2put/internal/tunnel"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

type apiResponse struct {
	Status   string      `json:"status"`
	Response interface{} `json:"response,omitempty"`
	Message  string      `json:"message,omitempty"`
}

// Renderer writes the final answer to the caller, either as a JSON object
// or as the console-style list of <pre> lines.
type Renderer struct {
	Format            string
	LegacyStatusCodes bool
}

func NewRenderer(cfg *config.Config) *Renderer {
	return &Renderer{Format: cfg.OutputFormat, LegacyStatusCodes: cfg.LegacyStatusCodes}
}

func (rd *Renderer) Success(w http.ResponseWriter, trace []string, body []byte) {
	if rd.Format == config.OutputPlain {
		lines := append(trace, "Upstream response: "+string(body))
		writePlain(w, http.StatusOK, lines)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Status: statusSuccess, Response: passThrough(body)})
}

func (rd *Renderer) Error(w http.ResponseWriter, trace []string, err *tunnel.Error) {
	code := rd.statusCode(err.Kind)
	if rd.Format == config.OutputPlain {
		lines := append(trace, "Error: "+err.Error())
		writePlain(w, code, lines)
		return
	}
	writeJSON(w, code, apiResponse{Status: statusError, Message: err.Error()})
}

// BareError always answers with JSON, whatever the configured format.
func (rd *Renderer) BareError(w http.ResponseWriter, err *tunnel.Error) {
	writeJSON(w, rd.statusCode(err.Kind), apiResponse{Status: statusError, Message: err.Error()})
}

func (rd *Renderer) statusCode(kind tunnel.Kind) int {
	if rd.LegacyStatusCodes {
		return http.StatusOK
	}
	return StatusFor(kind)
}

func StatusFor(kind tunnel.Kind) int {
	switch kind {
	case tunnel.KindRateLimited:
		return http.StatusTooManyRequests
	case tunnel.KindMissingParameters, tunnel.KindInvalidAPIKeyFormat,
		tunnel.KindInvalidTunnelIDFormat, tunnel.KindInvalidClientAddress:
		return http.StatusBadRequest
	case tunnel.KindInvalidKeyIDPair:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// passThrough embeds a JSON body as-is and anything else as a string.
func passThrough(body []byte) interface{} {
	if len(body) > 0 && json.Valid(body) {
		return json.RawMessage(body)
	}
	return string(body)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writePlain(w http.ResponseWriter, code int, lines []string) {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString("<pre>")
		b.WriteString(html.EscapeString(line))
		b.WriteString("</pre>\n")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	w.Write([]byte(b.String()))
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
