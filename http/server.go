package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/quantonganh/newsroom"
	"github.com/quantonganh/newsroom/newsletter"
	"github.com/quantonganh/newsroom/sanity"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
	maxBodyBytes      = 1 << 20
)

// Server represents HTTP server
type Server struct {
	ln     net.Listener
	server *http.Server
	router *mux.Router

	logger zerolog.Logger

	Addr string

	// SignatureHeader names the header carrying the webhook signature
	SignatureHeader string

	SubscriberService newsroom.SubscriberService
	NewsletterService newsroom.NewsletterService
	Processor         *newsletter.Processor
}

// NewServer returns a server with the logging and Sentry middleware installed
func NewServer(zlog zerolog.Logger) *Server {
	s := &Server{
		server:          &http.Server{ReadHeaderTimeout: readHeaderTimeout},
		logger:          zlog,
		router:          mux.NewRouter().StrictSlash(true),
		SignatureHeader: sanity.SignatureHeader,
	}

	s.router.Use(hlog.NewHandler(zlog))
	s.router.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("")
	}))
	s.router.Use(hlog.UserAgentHandler("user_agent"))
	s.router.Use(hlog.RefererHandler("referer"))
	s.router.Use(hlog.RequestIDHandler("req_id", "Request-Id"))

	sentryHandler := sentryhttp.New(sentryhttp.Options{})
	s.router.Use(sentryHandler.Handle)

	s.server.Handler = http.HandlerFunc(s.serveHTTP)

	s.router.HandleFunc("/health", s.healthCheckHandler).Methods(http.MethodGet)

	s.router.HandleFunc("/api/subscribe", s.Error(s.subscribeHandler)).Methods(http.MethodPost)
	s.router.HandleFunc("/api/newsletter", s.Error(s.newsletterWebhookHandler)).Methods(http.MethodPost)

	return s
}

// URL returns the address the server listens on, once opened
func (s *Server) URL() string {
	if s.ln == nil {
		return ""
	}

	addr := s.ln.Addr().(*net.TCPAddr)
	host := "localhost"
	if !addr.IP.IsUnspecified() {
		host = addr.IP.String()
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(host, strconv.Itoa(addr.Port)))
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Open starts listening on Addr and serves in the background
func (s *Server) Open() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.Addr)
	}
	s.ln = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	return nil
}

// Close stops accepting connections and waits for in-flight requests,
// including dispatches, up to shutdownTimeout
func (s *Server) Close() error {
	if s.ln == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
