package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sdko-org/get2put/internal/config"
	"github.com/sdko-org/get2put/internal/journal"
	"github.com/sdko-org/get2put/internal/metrics"
	"github.com/sdko-org/get2put/internal/storage"
	"github.com/sdko-org/get2put/internal/tunnel"
	"github.com/sdko-org/get2put/internal/upstream"
	"github.com/sirupsen/logrus"
)

// Relayer pushes a client address to the upstream tunnel record.
type Relayer interface {
	EndpointURL(apiKey, tunnelID string) string
	UpdateEndpoint(ctx context.Context, apiKey, tunnelID, ipv4 string) (*upstream.Result, error)
}

// Gate decides whether a session may make another request.
type Gate interface {
	Check(ctx context.Context, sessionID string) error
}

type RelayHandler struct {
	cfg      *config.Config
	gate     Gate
	relay    Relayer
	renderer *Renderer
	journal  *journal.Journal
	records  storage.RecordStore
	metrics  *metrics.Metrics
	log      *logrus.Entry
}

type RelayOption func(*RelayHandler)

func WithJournal(j *journal.Journal) RelayOption {
	return func(h *RelayHandler) { h.journal = j }
}

func WithRecordStore(s storage.RecordStore) RelayOption {
	return func(h *RelayHandler) { h.records = s }
}

func WithMetrics(m *metrics.Metrics) RelayOption {
	return func(h *RelayHandler) { h.metrics = m }
}

func NewRelayHandler(logger *logrus.Logger, cfg *config.Config, gate Gate, relay Relayer, opts ...RelayOption) *RelayHandler {
	h := &RelayHandler{
		cfg:      cfg,
		gate:     gate,
		relay:    relay,
		renderer: NewRenderer(cfg),
		log:      logger.WithField("component", "relay_handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// relayRun carries the per-request trace shown in plain output and written
// to the journal.
type relayRun struct {
	h     *RelayHandler
	ctx   context.Context
	trace []string
}

func (run *relayRun) step(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	run.trace = append(run.trace, line)
	run.h.journal.Printf(run.ctx, "%s", line)
}

func (h *RelayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	run := &relayRun{h: h, ctx: ctx}
	sessionID := SessionID(ctx)

	if err := h.gate.Check(ctx, sessionID); err != nil {
		te := tunnel.AsError(err)
		if h.cfg.RateLimitBareJSON {
			h.record(ctx, te.Kind.String())
			h.renderer.BareError(w, te)
			return
		}
		h.fail(w, run, te)
		return
	}

	req, err := tunnel.ExtractParameters(r.URL.Query(), mux.Vars(r)["path"])
	if err != nil {
		h.fail(w, run, tunnel.AsError(err))
		return
	}
	run.step("Received parameters: API_key = %s, TUNNEL_ID = %s", tunnel.MaskKey(req.APIKey), req.TunnelID)

	if err := tunnel.ValidateAPIKey(req.APIKey); err != nil {
		h.fail(w, run, tunnel.AsError(err))
		return
	}
	run.step("API_key validated")

	if err := tunnel.ValidateTunnelID(req.TunnelID); err != nil {
		h.fail(w, run, tunnel.AsError(err))
		return
	}
	run.step("TUNNEL_ID validated")
	run.step("Request URL: %s", h.relay.EndpointURL(tunnel.MaskKey(req.APIKey), req.TunnelID))

	rawAddr := getClientIP(r, h.cfg.TrustProxyHeaders)
	run.step("Client IP address: %s", rawAddr)

	req.ClientAddress, err = tunnel.ResolveClientAddress(rawAddr)
	if err != nil {
		h.fail(w, run, tunnel.AsError(err))
		return
	}
	if req.ClientAddress != rawAddr {
		run.step("IPv6 client address converted to IPv4: %s", req.ClientAddress)
	}
	run.step("Client IP address is a valid IPv4 address")

	start := time.Now()
	res, err := h.relay.UpdateEndpoint(ctx, req.APIKey, req.TunnelID, req.ClientAddress)
	h.metrics.ObserveUpstream(time.Since(start))
	if err != nil {
		h.fail(w, run, tunnel.AsError(err))
		return
	}

	h.journal.Printf(ctx, "Upstream response for tunnel %s: %s", req.TunnelID, res.Body)
	h.record(ctx, "success")
	h.archive(req, res)
	h.renderer.Success(w, run.trace, res.Body)
}

func (h *RelayHandler) fail(w http.ResponseWriter, run *relayRun, err *tunnel.Error) {
	fields := logrus.Fields{"outcome": err.Kind.String()}
	if err.Value != "" {
		fields["value"] = err.Value
	}
	if err.Status != 0 {
		fields["upstream_status"] = err.Status
	}
	h.log.WithFields(fields).WithError(err).Info("Relay request refused")

	switch {
	case err.Value != "":
		h.journal.Printf(run.ctx, "Error: %s (value: %q)", err.Error(), err.Value)
	default:
		h.journal.Printf(run.ctx, "Error: %s", err.Error())
	}

	h.record(run.ctx, err.Kind.String())
	h.renderer.Error(w, run.trace, err)
}

func (h *RelayHandler) record(ctx context.Context, outcome string) {
	setOutcome(ctx, outcome)
	h.metrics.Outcome(outcome)
}

// archive stores the relayed address in the background; failures never
// reach the caller.
func (h *RelayHandler) archive(req tunnel.Request, res *upstream.Result) {
	if h.records == nil {
		return
	}
	rec := storage.EndpointRecord{
		TunnelID:       req.TunnelID,
		IPv4:           req.ClientAddress,
		UpstreamStatus: res.StatusCode,
		UpdatedAt:      time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.records.PutRecord(ctx, rec); err != nil {
			h.log.WithError(err).WithField("tunnel_id", rec.TunnelID).Warn("Failed to archive endpoint record")
		}
	}()
}
