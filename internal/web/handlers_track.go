package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/emiliopalmerini/abcta/internal/domain"
)

const maxEventBytes = 64 << 10

// rejectionCounter is implemented by sinks that count refused records.
type rejectionCounter interface {
	Rejected(reason string)
}

func (s *Server) handleTrackPreflight(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	setCORS(w)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.reject(w, "too_large", http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		s.reject(w, "read_error", http.StatusBadRequest, "failed to read body")
		return
	}

	in, err := domain.ParseIncomingEvent(body)
	if err != nil {
		s.reject(w, "invalid_event", http.StatusBadRequest, err.Error())
		return
	}

	fromCookie := false
	if in.Variant == "" {
		in.Variant = s.cookieVariant(r, in.TestID)
		fromCookie = in.Variant != ""
	}

	event := &domain.TrackedEvent{
		ID:         uuid.NewString(),
		Name:       in.Event,
		TestID:     in.TestID,
		TestName:   in.TestName,
		Variant:    in.Variant,
		SessionID:  in.SessionID,
		Payload:    body,
		ReceivedAt: s.now().UTC(),
	}

	if err := s.events.Create(r.Context(), event); err != nil {
		s.logger.Error("failed to store event", "event", in.Event, "test_id", in.TestID, "error", err)
		http.Error(w, "failed to store event", http.StatusInternalServerError)
		return
	}

	s.forward(r.Context(), in, body, fromCookie)

	writeJSON(w, http.StatusAccepted, map[string]string{"id": event.ID})
}

// cookieVariant reads the mirrored assignment cookie for the configured test.
func (s *Server) cookieVariant(r *http.Request, testID string) string {
	if testID != s.experiment.TestID || s.experiment.StorageKey == "" {
		return ""
	}
	c, err := r.Cookie(s.experiment.StorageKey)
	if err != nil || !s.experiment.IsValidVariant(c.Value) {
		return ""
	}
	return c.Value
}

// forward hands an accepted record to the server-side sinks.
func (s *Server) forward(ctx context.Context, in *domain.IncomingEvent, body []byte, tagVariant bool) {
	if len(s.sinks) == 0 {
		return
	}

	props := domain.Properties{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&props); err != nil {
		s.logger.Warn("failed to decode event properties", "error", err)
	}
	if tagVariant {
		props[domain.KeyVariant] = in.Variant
	}

	event := domain.Event{
		Name:       in.Event,
		TestID:     in.TestID,
		TestName:   in.TestName,
		Properties: props,
	}
	for _, sink := range s.sinks {
		if err := sink.Track(ctx, event); err != nil {
			s.logger.Warn("sink failed", "sink", sink.Name(), "error", err)
		}
	}
}

func (s *Server) reject(w http.ResponseWriter, reason string, status int, msg string) {
	for _, sink := range s.sinks {
		if rc, ok := sink.(rejectionCounter); ok {
			rc.Rejected(reason)
		}
	}
	s.logger.Debug("rejected event", "reason", reason, "detail", msg)
	http.Error(w, msg, status)
}

func setCORS(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
