package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

const testToken = "abc123DEF"

const landingPage = `<!DOCTYPE html><html><head><script type="text/javascript">
var gm_config = {
	api_token : 'abc123DEF',
	ajax_url : '/ajax.php'
};
</script></head><body><div id="inbox"></div></body></html>`

// fakeService stands in for the GuerrillaMail site: "/" serves the landing
// page and sets a session cookie, "/ajax.php" delegates to ajax.
type fakeService struct {
	server   *httptest.Server
	landing  string
	ajax     http.HandlerFunc
	ajaxHits atomic.Int32
}

func newFakeService(t *testing.T, ajax http.HandlerFunc) *fakeService {
	t.Helper()

	f := &fakeService{landing: landingPage, ajax: ajax}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: "sess-1", Path: "/"})
		w.Header().Set("Content-Type", "text/html; charset=UTF-8")
		io.WriteString(w, f.landing)
	})
	mux.HandleFunc("/ajax.php", func(w http.ResponseWriter, r *http.Request) {
		f.ajaxHits.Add(1)
		if f.ajax == nil {
			w.WriteHeader(http.StatusNotImplemented)
			return
		}
		f.ajax(w, r)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeService) config() Config {
	return Config{
		BaseURL: f.server.URL,
		AjaxURL: f.server.URL + "/ajax.php",
	}
}

func newBootstrappedClient(t *testing.T, f *fakeService) *Client {
	t.Helper()

	client, err := NewClient(f.config())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if err := client.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	return client
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, body)
}
