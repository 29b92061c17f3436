package http

import (
	"context"
	"io"
	"net/http"

	"github.com/quantonganh/newsroom"
)

const noSubscribersMessage = "No subscribers to send."

func (s *Server) newsletterWebhookHandler(w http.ResponseWriter, r *http.Request) error {
	// signatures cover the raw bytes, so the body is never re-encoded before verification
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return NewError(err, http.StatusBadRequest, invalidRequestMessage)
	}

	// a client disconnect must not cut a dispatch short
	ctx := context.WithoutCancel(r.Context())
	report, err := s.Processor.Process(ctx, body, r.Header.Get(s.SignatureHeader))
	if err != nil {
		return err
	}

	if report.Empty() {
		writeJSONResponse(w, http.StatusOK, newsroom.MessageResponse{Message: noSubscribersMessage})
		return nil
	}

	writeJSONResponse(w, http.StatusOK, newsroom.NewsletterResponse{
		Success:  report.OK(),
		Sent:     report.Sent,
		Failed:   len(report.Failures),
		Failures: report.Failures,
	})

	return nil
}
