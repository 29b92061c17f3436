package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quantonganh/newsroom"
	"github.com/quantonganh/newsroom/mock"
	"github.com/quantonganh/newsroom/newsletter"
	"github.com/quantonganh/newsroom/richtext"
	"github.com/quantonganh/newsroom/sanity"
	"github.com/quantonganh/newsroom/sqlite"
)

var cfg *newsroom.Config

func TestMain(m *testing.M) {
	viper.SetConfigType("yaml")
	var yamlConfig = []byte(`
newsletter:
  from: Newsroom <news@example.com>
  product:
    name: Newsroom
  webhook:
    secret: da02e221bc331c9875c5e1299fa8d765
`)
	if err := viper.ReadConfig(bytes.NewBuffer(yamlConfig)); err != nil {
		log.Fatal(err)
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatal(err)
	}

	os.Exit(m.Run())
}

const validBody = `{"_id":"n1","subject":"Hi","title":"Issue 1","status":"sent","content":[{"children":[{"text":"Hello"}]},{"children":[{"text":"World"}]}]}`

func newTestServer(ss newsroom.SubscriberService, mailer newsroom.Mailer) *Server {
	s := NewServer(zerolog.Nop())
	s.SubscriberService = ss
	s.NewsletterService = newsletter.NewNewsletterService(cfg, mailer)
	s.Processor = newsletter.NewProcessor(
		sanity.NewVerifier(cfg.Newsletter.Webhook.Secret),
		ss,
		s.NewsletterService,
		richtext.NewRenderer(),
	)
	return s
}

func postWebhook(t *testing.T, s *Server, body, signature string) *httptest.ResponseRecorder {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, "/api/newsletter", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(sanity.SignatureHeader, signature)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func sign(t *testing.T, body string) string {
	t.Helper()

	header, err := sanity.Sign([]byte(body), cfg.Newsletter.Webhook.Secret, time.Now())
	require.NoError(t, err)
	return header
}

func subscribers(emails ...string) []newsroom.Subscriber {
	s := make([]newsroom.Subscriber, len(emails))
	for i, email := range emails {
		s[i] = newsroom.Subscriber{ID: i + 1, Name: "reader", Email: email}
	}
	return s
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&body))
	return body
}

func TestNewsletterWebhookInvalidSignature(t *testing.T) {
	t.Parallel()

	ss := new(mock.SubscriberService)
	mailer := new(mock.Mailer)
	s := newTestServer(ss, mailer)

	for _, signature := range []string{"", "t=1633519811129,v1=bogus"} {
		w := postWebhook(t, s, validBody, signature)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid signature", decode(t, w)["error"])
	}

	ss.AssertNotCalled(t, "FindAll", tmock.Anything)
	mailer.AssertNotCalled(t, "Send", tmock.Anything, tmock.Anything)
}

func TestNewsletterWebhookInvalidPayload(t *testing.T) {
	t.Parallel()

	for _, body := range []string{
		`{"content":[],"status":"sent"}`,
		`{"subject":"Hi","status":"sent"}`,
		`{"subject":"Hi","content":[]}`,
	} {
		ss := new(mock.SubscriberService)
		mailer := new(mock.Mailer)
		s := newTestServer(ss, mailer)

		w := postWebhook(t, s, body, sign(t, body))
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Contains(t, decode(t, w)["error"], "Invalid payload")

		ss.AssertNotCalled(t, "FindAll", tmock.Anything)
		mailer.AssertNotCalled(t, "Send", tmock.Anything, tmock.Anything)
	}
}

func TestNewsletterWebhookNoSubscribers(t *testing.T) {
	t.Parallel()

	ss := new(mock.SubscriberService)
	ss.On("FindAll", tmock.Anything).Return([]newsroom.Subscriber{}, nil)
	mailer := new(mock.Mailer)
	s := newTestServer(ss, mailer)

	w := postWebhook(t, s, validBody, sign(t, validBody))
	assert.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, noSubscribersMessage, body["message"])
	assert.NotContains(t, body, "sent")
	mailer.AssertNotCalled(t, "Send", tmock.Anything, tmock.Anything)
}

func TestNewsletterWebhookSends(t *testing.T) {
	t.Parallel()

	ss := new(mock.SubscriberService)
	ss.On("FindAll", tmock.Anything).Return(subscribers("a@example.com", "b@example.com", "c@example.com"), nil)
	mailer := new(mock.Mailer)
	mailer.On("Send", tmock.Anything, tmock.Anything).Return(nil)
	s := newTestServer(ss, mailer)

	w := postWebhook(t, s, validBody, sign(t, validBody))
	assert.Equal(t, http.StatusOK, w.Code)

	var resp newsroom.NewsletterResponse
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.Sent)
	assert.Empty(t, resp.Failures)

	mailer.AssertNumberOfCalls(t, "Send", 3)
	for i, want := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		email := mailer.Calls[i].Arguments.Get(1).(*newsroom.Email)
		assert.Equal(t, want, email.To)
		assert.Equal(t, "Hi", email.Subject)
		assert.Equal(t, "Newsroom <news@example.com>", email.From)
		assert.Equal(t, "<html><body>Hello<br/><br/>World</body></html>", email.HTML)
	}
}

func TestNewsletterWebhookPartialFailure(t *testing.T) {
	t.Parallel()

	ss := new(mock.SubscriberService)
	ss.On("FindAll", tmock.Anything).Return(subscribers("a@example.com", "b@example.com"), nil)
	mailer := new(mock.Mailer)
	mailer.On("Send", tmock.Anything, tmock.MatchedBy(func(e *newsroom.Email) bool {
		return e.To == "a@example.com"
	})).Return(errors.New("mailbox unavailable"))
	mailer.On("Send", tmock.Anything, tmock.Anything).Return(nil)
	s := newTestServer(ss, mailer)

	w := postWebhook(t, s, validBody, sign(t, validBody))
	assert.Equal(t, http.StatusOK, w.Code)

	var resp newsroom.NewsletterResponse
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Equal(t, 1, resp.Sent)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Failures, 1)
	assert.Equal(t, "a@example.com", resp.Failures[0].Email)
	mailer.AssertNumberOfCalls(t, "Send", 2)
}

func TestNewsletterWebhookStoreFailure(t *testing.T) {
	t.Parallel()

	ss := new(mock.SubscriberService)
	ss.On("FindAll", tmock.Anything).Return(nil, errors.New("connection refused"))
	mailer := new(mock.Mailer)
	s := newTestServer(ss, mailer)

	w := postWebhook(t, s, validBody, sign(t, validBody))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, internalErrorMessage, decode(t, w)["error"])
	mailer.AssertNotCalled(t, "Send", tmock.Anything, tmock.Anything)
}

func TestNewsletterWebhookMethodNotAllowed(t *testing.T) {
	t.Parallel()

	s := newTestServer(new(mock.SubscriberService), new(mock.Mailer))

	req := httptest.NewRequest(http.MethodGet, "/api/newsletter", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func postSubscribe(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, "/api/subscribe", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestSubscribeHandler(t *testing.T) {
	t.Parallel()

	ss := new(mock.SubscriberService)
	ss.On("Insert", tmock.Anything, tmock.MatchedBy(func(s *newsroom.Subscriber) bool {
		return s.Name == "Foo" && s.Email == "foo@example.com"
	})).Run(func(args tmock.Arguments) {
		s := args.Get(1).(*newsroom.Subscriber)
		s.ID = 7
		s.CreatedAt = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	}).Return(nil)
	mailer := new(mock.Mailer)
	s := newTestServer(ss, mailer)

	w := postSubscribe(t, s, `{"name":" Foo ","email":"foo@example.com"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var subscriber newsroom.Subscriber
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&subscriber))
	assert.Equal(t, 7, subscriber.ID)
	assert.Equal(t, "Foo", subscriber.Name)
	assert.Equal(t, "foo@example.com", subscriber.Email)
	assert.True(t, subscriber.CreatedAt.Equal(time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)))

	// welcome email is disabled in the test config
	mailer.AssertNotCalled(t, "Send", tmock.Anything, tmock.Anything)
}

func TestSubscribeHandlerWelcomeFailureIsIgnored(t *testing.T) {
	t.Parallel()

	ss := new(mock.SubscriberService)
	ss.On("Insert", tmock.Anything, tmock.Anything).Return(nil)
	ns := new(mock.NewsletterService)
	ns.On("SendWelcomeEmail", tmock.Anything, tmock.Anything).Return(errors.New("smtp down"))

	s := NewServer(zerolog.Nop())
	s.SubscriberService = ss
	s.NewsletterService = ns

	w := postSubscribe(t, s, `{"name":"Foo","email":"foo@example.com"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	ns.AssertNumberOfCalls(t, "SendWelcomeEmail", 1)
}

func TestSubscribeHandlerBadRequest(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"missing name":  `{"email":"foo@example.com"}`,
		"missing email": `{"name":"Foo"}`,
		"blank fields":  `{"name":"  ","email":"  "}`,
		"bad email":     `{"name":"Foo","email":"not-an-email"}`,
		"not json":      `name=Foo`,
	}

	for name, body := range tests {
		body := body
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ss := new(mock.SubscriberService)
			s := newTestServer(ss, new(mock.Mailer))

			w := postSubscribe(t, s, body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, decode(t, w)["error"])
			ss.AssertNotCalled(t, "Insert", tmock.Anything, tmock.Anything)
		})
	}
}

func TestSubscribeHandlerConflict(t *testing.T) {
	t.Parallel()

	ss := new(mock.SubscriberService)
	ss.On("Insert", tmock.Anything, tmock.Anything).Return(&newsroom.Error{Code: newsroom.ErrConflict, Message: "Email already subscribed"})
	s := newTestServer(ss, new(mock.Mailer))

	w := postSubscribe(t, s, `{"name":"Foo","email":"foo@example.com"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Email already subscribed", decode(t, w)["error"])
}

func TestSubscribeHandlerStorageFailure(t *testing.T) {
	t.Parallel()

	ss := new(mock.SubscriberService)
	ss.On("Insert", tmock.Anything, tmock.Anything).Return(errors.New("disk full"))
	s := newTestServer(ss, new(mock.Mailer))

	w := postSubscribe(t, s, `{"name":"Foo","email":"foo@example.com"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, internalErrorMessage, decode(t, w)["error"])
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	s := NewServer(zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestServerOpenClose(t *testing.T) {
	t.Parallel()

	s := NewServer(zerolog.Nop())
	assert.Empty(t, s.URL())
	assert.NoError(t, s.Close())

	s.Addr = "127.0.0.1:0"
	require.NoError(t, s.Open())
	assert.Contains(t, s.URL(), "http://127.0.0.1:")

	resp, err := http.Get(s.URL() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.NoError(t, s.Close())
}

func TestSubscribeHandlerStoresBareAddress(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"display name": `{"name":"Foo","email":"Foo <foo@example.com>"}`,
		"upper case":   `{"name":"Foo","email":"FOO@Example.COM"}`,
	}

	for name, body := range tests {
		body := body
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ss := new(mock.SubscriberService)
			ss.On("Insert", tmock.Anything, tmock.Anything).Return(nil)
			s := newTestServer(ss, new(mock.Mailer))

			w := postSubscribe(t, s, body)
			assert.Equal(t, http.StatusOK, w.Code)

			ss.AssertNumberOfCalls(t, "Insert", 1)
			subscriber := ss.Calls[0].Arguments.Get(1).(*newsroom.Subscriber)
			assert.Equal(t, "foo@example.com", subscriber.Email)
		})
	}
}

func TestSubscribeHandlerSameMailboxConflicts(t *testing.T) {
	t.Parallel()

	db := sqlite.NewDB(filepath.Join(t.TempDir(), "newsroom.db"))
	require.NoError(t, db.Open())
	t.Cleanup(func() {
		_ = db.Close()
	})
	ss := sqlite.NewSubscriberService(db)
	s := newTestServer(ss, new(mock.Mailer))

	w := postSubscribe(t, s, `{"name":"Foo","email":"foo@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)

	for _, email := range []string{"Foo <foo@example.com>", "FOO@example.com"} {
		body, err := json.Marshal(newsroom.SubscribeRequest{Name: "Foo", Email: email})
		require.NoError(t, err)

		w := postSubscribe(t, s, string(body))
		assert.Equal(t, http.StatusConflict, w.Code, email)
	}

	subscribers, err := ss.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, subscribers, 1)
	assert.Equal(t, "foo@example.com", subscribers[0].Email)
}
