package guerrillamail

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const testToken = "tok3nVALUE"

const testLandingPage = `<html><head><script>
var gm = { api_token : 'tok3nVALUE', lang : 'en' };
</script></head><body></body></html>`

const testInterval = 10 * time.Millisecond

// mockMessage is a message held by mockService.
type mockMessage struct {
	ID      string
	From    string
	Subject string
	Body    string
}

// mockService is an in-memory GuerrillaMail: it serves the landing page and
// implements the four AJAX functions against per-alias mailboxes.
type mockService struct {
	t      *testing.T
	server *httptest.Server

	mu        sync.Mutex
	landing   string
	domain    string
	mailboxes map[string][]mockMessage
	forgotten []string
	listErr   int // status returned by check_email when non-zero

	bootstraps atomic.Int32
	ajaxCalls  atomic.Int32
}

func newMockService(t *testing.T) *mockService {
	t.Helper()

	m := &mockService{
		t:         t,
		landing:   testLandingPage,
		domain:    "guerrillamailblock.com",
		mailboxes: make(map[string][]mockMessage),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", m.serveLanding)
	mux.HandleFunc("/ajax.php", m.serveAjax)
	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockService) serveLanding(w http.ResponseWriter, r *http.Request) {
	m.bootstraps.Add(1)
	http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: "mock-session", Path: "/"})

	m.mu.Lock()
	landing := m.landing
	m.mu.Unlock()
	io.WriteString(w, landing)
}

func (m *mockService) serveAjax(w http.ResponseWriter, r *http.Request) {
	m.ajaxCalls.Add(1)
	if r.Header.Get("Authorization") != "ApiToken "+testToken {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if _, err := r.Cookie("PHPSESSID"); err != nil {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	query := r.URL.Query()
	switch query.Get("f") {
	case "set_email_user":
		form := m.readForm(r)
		alias := form.Get("email_user")
		m.mu.Lock()
		domain := m.domain
		m.mu.Unlock()
		writeMockJSON(w, map[string]any{
			"email_addr":      alias + "@" + domain,
			"email_timestamp": time.Now().Unix(),
		})
	case "check_email":
		m.mu.Lock()
		status := m.listErr
		msgs := append([]mockMessage(nil), m.mailboxes[query.Get("in")]...)
		m.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		list := make([]map[string]any, 0, len(msgs))
		for _, msg := range msgs {
			list = append(list, map[string]any{
				"mail_id":        msg.ID,
				"mail_from":      msg.From,
				"mail_subject":   msg.Subject,
				"mail_excerpt":   msg.Body,
				"mail_timestamp": "1700000000",
				"mail_read":      0,
			})
		}
		writeMockJSON(w, map[string]any{"list": list, "count": len(list)})
	case "fetch_email":
		m.mu.Lock()
		defer m.mu.Unlock()
		for _, msg := range m.mailboxes[query.Get("in")] {
			if msg.ID == query.Get("email_id") {
				writeMockJSON(w, map[string]any{
					"mail_id":        msg.ID,
					"mail_from":      msg.From,
					"mail_subject":   msg.Subject,
					"mail_body":      msg.Body,
					"mail_timestamp": 1700000000,
					"mail_recipient": query.Get("in") + "@" + m.domain,
				})
				return
			}
		}
		io.WriteString(w, "false")
	case "forget_me":
		form := m.readForm(r)
		m.mu.Lock()
		m.forgotten = append(m.forgotten, form.Get("in"))
		m.mu.Unlock()
		writeMockJSON(w, true)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (m *mockService) readForm(r *http.Request) url.Values {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		m.t.Errorf("read request body: %v", err)
	}
	form, err := url.ParseQuery(string(body))
	if err != nil {
		m.t.Errorf("parse form body %q: %v", body, err)
	}
	return form
}

// deliver appends a message to the mailbox of alias.
func (m *mockService) deliver(alias string, msgs ...mockMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mailboxes[alias] = append(m.mailboxes[alias], msgs...)
}

func (m *mockService) setLanding(page string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.landing = page
}

func (m *mockService) setDomain(domain string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domain = domain
}

func (m *mockService) setListError(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = status
}

func (m *mockService) options() []Option {
	return []Option{
		WithBaseURL(m.server.URL),
		WithAjaxURL(m.server.URL + "/ajax.php"),
		WithPollInterval(testInterval),
	}
}

func newTestClient(t *testing.T, m *mockService, opts ...Option) *Client {
	t.Helper()

	client, err := New(context.Background(), append(m.options(), opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func writeMockJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(fmt.Sprintf("encode mock response: %v", err))
	}
}
