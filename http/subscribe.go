package http

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"

	"github.com/rs/zerolog/hlog"

	"github.com/quantonganh/newsroom"
)

const (
	missingFieldsMessage  = "Name and email are required"
	invalidEmailMessage   = "Email is invalid"
	invalidRequestMessage = "Invalid request"
)

func (s *Server) subscribeHandler(w http.ResponseWriter, r *http.Request) error {
	var req newsroom.SubscribeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return NewError(err, http.StatusBadRequest, invalidRequestMessage)
	}

	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if name == "" || email == "" {
		return NewError(nil, http.StatusBadRequest, missingFieldsMessage)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return NewError(err, http.StatusBadRequest, invalidEmailMessage)
	}
	// store the bare address so the unique index sees one mailbox once
	email = strings.ToLower(addr.Address)

	logger := hlog.FromRequest(r)
	subscriber := newsroom.NewSubscriber(name, email)
	if err := s.SubscriberService.Insert(r.Context(), subscriber); err != nil {
		return err
	}
	logger.Info().Int("subscriber_id", subscriber.ID).Msg("saved new subscriber")

	if s.NewsletterService != nil {
		if err := s.NewsletterService.SendWelcomeEmail(r.Context(), subscriber); err != nil {
			logger.Warn().Err(err).Str("email", subscriber.Email).Msg("failed to send welcome email")
		}
	}

	writeJSONResponse(w, http.StatusOK, subscriber)

	return nil
}

func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	//nolint:errcheck
	json.NewEncoder(w).Encode(response)
}
