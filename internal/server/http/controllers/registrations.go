package controllers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/rzbill/zkhook/internal/subscription"
	logpkg "github.com/rzbill/zkhook/pkg/log"
)

const (
	contentTypeCBOR = "application/cbor"
	contentTypeJSON = "application/json"
	maxBodyBytes    = 1 << 20
)

// RegistrationController merges webhook registrations into the registry.
type RegistrationController struct {
	reg    Registry
	logger logpkg.Logger
}

// NewRegistrationController creates a new registration controller.
func NewRegistrationController(reg Registry, logger logpkg.Logger) *RegistrationController {
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	return &RegistrationController{reg: reg, logger: logger}
}

// RegisterRoutes registers POST / .
func (c *RegistrationController) RegisterRoutes(r chi.Router) {
	r.Post("/", c.handleRegister)
}

// handleRegister accepts a batch of {filter, subscriptions} entries as CBOR
// or JSON and merges each into the registry. 204 on success, 400 for an
// empty, malformed or invalid batch, 500 when a merge fails. Entries before
// a failing one stay merged. Responses carry a status only; reasons go to
// the log.
func (c *RegistrationController) handleRegister(w http.ResponseWriter, r *http.Request) {
	logger := c.logger.WithContext(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		logger.Debug("rejecting unreadable registration body", logpkg.Err(err))
		writeStatus(w, http.StatusBadRequest)
		return
	}
	batch, err := DecodeRegistrations(r.Header.Get("Content-Type"), body)
	if err != nil {
		logger.Debug("rejecting registration", logpkg.Err(err))
		writeStatus(w, http.StatusBadRequest)
		return
	}

	for _, entry := range batch {
		if err := c.reg.MergeAdd(r.Context(), entry.Filter, subscription.NewSet(entry.Subscriptions...)); err != nil {
			logger.Error("registration merge failed", logpkg.Str("filter", entry.Filter.String()), logpkg.Err(err))
			writeStatus(w, http.StatusInternalServerError)
			return
		}
		logger.Info("registered webhooks",
			logpkg.Str("filter", entry.Filter.String()),
			logpkg.Int("subscriptions", len(entry.Subscriptions)))
	}
	writeNoContent(w)
}

// DecodeRegistrations parses and validates a registration batch. Content
// type selects the codec; without one the body is sniffed.
func DecodeRegistrations(contentType string, body []byte) ([]Registration, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty request body")
	}

	mediaType := ""
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return nil, fmt.Errorf("bad content type: %w", err)
		}
		mediaType = mt
	}
	if mediaType == "" {
		mediaType = contentTypeCBOR
		if b := bytes.TrimSpace(body); b[0] == '[' || b[0] == '{' {
			mediaType = contentTypeJSON
		}
	}

	var raw []registrationWire
	switch mediaType {
	case contentTypeCBOR:
		if err := subscription.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("malformed cbor body: %w", err)
		}
	case contentTypeJSON:
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("malformed json body: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported content type %q", mediaType)
	}

	if len(raw) == 0 {
		return nil, errors.New("empty registration batch")
	}
	batch := make([]Registration, 0, len(raw))
	for i, w := range raw {
		if w.Filter == nil {
			return nil, fmt.Errorf("entry %d: missing filter", i)
		}
		entry := Registration{Filter: *w.Filter, Subscriptions: w.Subscriptions}
		if err := entry.Filter.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if len(entry.Subscriptions) == 0 {
			return nil, fmt.Errorf("entry %d: no subscriptions", i)
		}
		for _, sub := range entry.Subscriptions {
			if err := sub.Validate(); err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
		}
		batch = append(batch, entry)
	}
	return batch, nil
}
