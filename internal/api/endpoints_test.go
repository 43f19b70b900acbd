package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestAjaxHeaders_Post(t *testing.T) {
	var got *http.Request
	var gotBody string
	f := newFakeService(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got, gotBody = r, string(body)
		writeJSON(w, `{"email_addr":"demo@guerrillamailblock.com"}`)
	})
	client := newBootstrappedClient(t, f)

	_, err := client.SetEmailUser(context.Background(), "demo")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "www.guerrillamail.com", got.Host)
	assert.Equal(t, DefaultUserAgent, got.UserAgent())
	assert.Equal(t, "application/json, text/javascript, */*; q=0.01", got.Header.Get("Accept"))
	assert.Equal(t, "en-US,en;q=0.5", got.Header.Get("Accept-Language"))
	assert.Equal(t, "application/x-www-form-urlencoded; charset=UTF-8", got.Header.Get("Content-Type"))
	assert.Equal(t, "ApiToken "+testToken, got.Header.Get("Authorization"))
	assert.Equal(t, "XMLHttpRequest", got.Header.Get("X-Requested-With"))
	assert.Equal(t, "https://www.guerrillamail.com", got.Header.Get("Origin"))
	assert.Equal(t, "https://www.guerrillamail.com/", got.Header.Get("Referer"))
	assert.Equal(t, "empty", got.Header.Get("Sec-Fetch-Dest"))
	assert.Equal(t, "cors", got.Header.Get("Sec-Fetch-Mode"))
	assert.Equal(t, "same-origin", got.Header.Get("Sec-Fetch-Site"))
	assert.Equal(t, "u=0", got.Header.Get("Priority"))

	cookie, err := got.Cookie("PHPSESSID")
	require.NoError(t, err, "session cookie from bootstrap must be replayed")
	assert.Equal(t, "sess-1", cookie.Value)

	assert.Equal(t, FuncSetEmailUser, got.URL.Query().Get("f"))
	form, err := url.ParseQuery(gotBody)
	require.NoError(t, err)
	assert.Equal(t, url.Values{
		"email_user": {"demo"},
		"lang":       {"en"},
		"site":       {"guerrillamail.com"},
		"in":         {" Set cancel"},
	}, form)
}

func TestAjaxHeaders_GetOmitsContentType(t *testing.T) {
	var got *http.Request
	f := newFakeService(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		writeJSON(w, `{"list":[]}`)
	})
	client := newBootstrappedClient(t, f)

	_, err := client.CheckEmail(context.Background(), "demo@guerrillamailblock.com")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, http.MethodGet, got.Method)
	assert.Empty(t, got.Header.Get("Content-Type"))
	assert.Equal(t, "www.guerrillamail.com", got.Host)
	assert.Equal(t, "ApiToken "+testToken, got.Header.Get("Authorization"))
	assert.Equal(t, "XMLHttpRequest", got.Header.Get("X-Requested-With"))
}

func TestSetEmailUser_ReturnsAssignedAddress(t *testing.T) {
	f := newFakeService(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"email_addr":"Other.Name@sharklasers.com","email_timestamp":1700000000}`)
	})
	client := newBootstrappedClient(t, f)

	address, err := client.SetEmailUser(context.Background(), "requested")
	require.NoError(t, err)
	assert.Equal(t, "Other.Name@sharklasers.com", address, "address is returned verbatim")
}

func TestSetEmailUser_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantField string
		wantParse bool
	}{
		{"missing field", http.StatusOK, `{"alias":"demo"}`, "email_addr", true},
		{"non string field", http.StatusOK, `{"email_addr":42}`, "email_addr", true},
		{"not json", http.StatusOK, `<html>blocked</html>`, "", true},
		{"server error", http.StatusInternalServerError, `{"email_addr":"x@y"}`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			client := newBootstrappedClient(t, f)

			_, err := client.SetEmailUser(context.Background(), "demo")
			require.Error(t, err)

			if !tt.wantParse {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr), "err = %v", err)
				assert.Equal(t, tt.status, apiErr.StatusCode)
				assert.False(t, errors.Is(err, ErrResponseParse))
				return
			}
			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr), "err = %v", err)
			assert.Equal(t, FuncSetEmailUser, parseErr.Op)
			assert.Equal(t, tt.wantField, parseErr.Field)
			assert.True(t, errors.Is(err, ErrResponseParse))
			assert.False(t, errors.Is(err, ErrTokenParse))
		})
	}
}

func TestCheckEmail_QueryParameters(t *testing.T) {
	var query url.Values
	f := newFakeService(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		writeJSON(w, `{"list":[]}`)
	})
	client := newBootstrappedClient(t, f)

	before := time.Now().UnixMilli()
	_, err := client.CheckEmail(context.Background(), "myalias@guerrillamailblock.com")
	require.NoError(t, err)

	assert.Equal(t, FuncCheckEmail, query.Get("f"))
	assert.Equal(t, "1", query.Get("seq"))
	assert.Equal(t, "guerrillamail.com", query.Get("site"))
	assert.Equal(t, "myalias", query.Get("in"))

	ts, err := strconv.ParseInt(query.Get("_"), 10, 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ts, before)
}

func TestCheckEmail_DropsMalformedEntries(t *testing.T) {
	f := newFakeService(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"list":[
			{"mail_id":"101","mail_from":"a@example.com","mail_subject":"first","mail_excerpt":"hi","mail_timestamp":"1700000000","mail_read":"0","mail_date":"12:00:00"},
			{"mail_from":"nobody@example.com","mail_subject":"no id"},
			{"mail_id":102,"mail_from":"b@example.com","mail_subject":"second","mail_timestamp":1700000100,"mail_read":1},
			"not an object",
			{"mail_id":"103","mail_from":"c@example.com"},
			{"mail_id":"104","mail_from":"d@example.com","mail_subject":"third"}
		],"count":"6"}`)
	})
	client := newBootstrappedClient(t, f)

	messages, err := client.CheckEmail(context.Background(), "demo")
	require.NoError(t, err)

	want := []Message{
		{ID: "101", From: "a@example.com", Subject: "first", Excerpt: "hi", Timestamp: time.Unix(1700000000, 0).UTC(), Date: "12:00:00"},
		{ID: "102", From: "b@example.com", Subject: "second", Timestamp: time.Unix(1700000100, 0).UTC(), Read: true},
		{ID: "104", From: "d@example.com", Subject: "third"},
	}
	if diff := cmp.Diff(want, messages); diff != "" {
		t.Errorf("CheckEmail() mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckEmail_WellFormedCountIsPreserved(t *testing.T) {
	for _, tc := range []struct{ good, bad int }{{0, 0}, {0, 3}, {4, 0}, {3, 5}} {
		t.Run(fmt.Sprintf("%d_good_%d_bad", tc.good, tc.bad), func(t *testing.T) {
			f := newFakeService(t, func(w http.ResponseWriter, r *http.Request) {
				var entries []string
				for i := 0; i < tc.good; i++ {
					entries = append(entries, fmt.Sprintf(`{"mail_id":"%d","mail_from":"f","mail_subject":"s"}`, i))
				}
				for i := 0; i < tc.bad; i++ {
					entries = append(entries, `{"mail_id":"x"}`)
				}
				list := strings.Join(entries, ",")
				writeJSON(w, `{"list":[`+list+`]}`)
			})
			client := newBootstrappedClient(t, f)

			messages, err := client.CheckEmail(context.Background(), "demo")
			require.NoError(t, err)
			assert.Len(t, messages, tc.good)
		})
	}
}

func TestCheckEmail_EmptyOrMissingList(t *testing.T) {
	for _, body := range []string{`{"list":[]}`, `{}`, `{"list":null}`, `{"list":"nope"}`} {
		t.Run(body, func(t *testing.T) {
			f := newFakeService(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, body)
			})
			client := newBootstrappedClient(t, f)

			messages, err := client.CheckEmail(context.Background(), "demo")
			require.NoError(t, err)
			assert.Empty(t, messages)
		})
	}
}

func TestCheckEmail_NotJSON(t *testing.T) {
	f := newFakeService(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>rate limited</html>")
	})
	client := newBootstrappedClient(t, f)

	_, err := client.CheckEmail(context.Background(), "demo")
	assert.True(t, errors.Is(err, ErrResponseParse), "err = %v", err)
}

func TestCheckEmail_ServerError(t *testing.T) {
	f := newFakeService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	client := newBootstrappedClient(t, f)

	_, err := client.CheckEmail(context.Background(), "demo")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "err = %v", err)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, f.server.URL+"/ajax.php", apiErr.URL)
}

func TestFetchEmail_DecodesDetails(t *testing.T) {
	var query url.Values
	f := newFakeService(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		writeJSON(w, `{
			"mail_id":"555","mail_from":"sender@example.com","mail_recipient":"demo@guerrillamailblock.com",
			"mail_subject":"Welcome","mail_excerpt":"Click","mail_timestamp":1700000000,"mail_read":"1",
			"mail_date":"2023-11-14 22:13:20","mail_size":"2048","content_type":"text/html",
			"mail_body":"<p>Click <a href=\"https://example.com/verify\">here</a></p>",
			"att":"1","atts":[{"f":"invoice.pdf","t":"application/pdf","p":"2"}]
		}`)
	})
	client := newBootstrappedClient(t, f)

	details, err := client.FetchEmail(context.Background(), "demo@guerrillamailblock.com", "555")
	require.NoError(t, err)

	assert.Equal(t, FuncFetchEmail, query.Get("f"))
	assert.Equal(t, "guerrillamail.com", query.Get("site"))
	assert.Equal(t, "demo", query.Get("in"))
	assert.Equal(t, "555", query.Get("email_id"))
	assert.NotEmpty(t, query.Get("_"))

	want := &EmailDetails{
		Message: Message{
			ID:        "555",
			From:      "sender@example.com",
			Subject:   "Welcome",
			Excerpt:   "Click",
			Timestamp: time.Unix(1700000000, 0).UTC(),
			Date:      "2023-11-14 22:13:20",
			Read:      true,
		},
		Recipient:       "demo@guerrillamailblock.com",
		Body:            `<p>Click <a href="https://example.com/verify">here</a></p>`,
		ContentType:     "text/html",
		Size:            2048,
		AttachmentCount: 1,
		Attachments:     []Attachment{{Filename: "invoice.pdf", ContentType: "application/pdf", PartID: "2"}},
	}
	if diff := cmp.Diff(want, details); diff != "" {
		t.Errorf("FetchEmail() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Click here", details.Text())
	assert.Equal(t, []string{"https://example.com/verify"}, details.Links())
}

func TestFetchEmail_StrictDecode(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"missing body", `{"mail_id":"1","mail_from":"a","mail_subject":"s"}`, "mail_body"},
		{"missing subject", `{"mail_id":"1","mail_from":"a","mail_body":"b"}`, "mail_subject"},
		{"missing id", `{"mail_from":"a","mail_subject":"s","mail_body":"b"}`, "mail_id"},
		{"unknown id", `false`, ""},
		{"mistyped body", `{"mail_id":"1","mail_from":"a","mail_subject":"s","mail_body":7}`, "mail_body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeService(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.body)
			})
			client := newBootstrappedClient(t, f)

			details, err := client.FetchEmail(context.Background(), "demo", "1")
			require.Error(t, err)
			assert.Nil(t, details)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr), "err = %v", err)
			assert.Equal(t, FuncFetchEmail, parseErr.Op)
			assert.Equal(t, tt.wantField, parseErr.Field)
			assert.True(t, errors.Is(err, ErrResponseParse))
		})
	}
}

func TestForgetMe_StatusDecidesResult(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusOK, true},
		{http.StatusNoContent, true},
		{http.StatusNotFound, false},
		{http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.status), func(t *testing.T) {
			f := newFakeService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, "not json at all")
			})
			client := newBootstrappedClient(t, f)

			ok, err := client.ForgetMe(context.Background(), "demo@guerrillamailblock.com")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestForgetMe_Form(t *testing.T) {
	var query url.Values
	var form url.Values
	f := newFakeService(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))
	})
	client := newBootstrappedClient(t, f)

	ok, err := client.ForgetMe(context.Background(), "gone@sharklasers.com")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, FuncForgetMe, query.Get("f"))
	assert.Equal(t, url.Values{"site": {"guerrillamail.com"}, "in": {"gone"}}, form)
}

func TestForgetMe_NetworkError(t *testing.T) {
	f := newFakeService(t, nil)
	client := newBootstrappedClient(t, f)
	f.server.Close()

	ok, err := client.ForgetMe(context.Background(), "demo")
	assert.False(t, ok)
	var netErr *NetworkError
	assert.True(t, errors.As(err, &netErr), "err = %v", err)
}

func TestTimestampsDifferBetweenCalls(t *testing.T) {
	var mu sync.Mutex
	var stamps []string
	f := newFakeService(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		stamps = append(stamps, r.URL.Query().Get("_"))
		mu.Unlock()
		writeJSON(w, `{"list":[]}`)
	})
	client := newBootstrappedClient(t, f)

	for i := 0; i < 5; i++ {
		_, err := client.CheckEmail(context.Background(), "demo")
		require.NoError(t, err)
	}

	seen := make(map[string]bool)
	for _, s := range stamps {
		assert.False(t, seen[s], "timestamp %s reused", s)
		seen[s] = true
	}
	assert.Len(t, seen, 5)
}

func TestConcurrentCalls(t *testing.T) {
	f := newFakeService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("f") {
		case FuncCheckEmail:
			writeJSON(w, `{"list":[{"mail_id":"1","mail_from":"a","mail_subject":"s"}]}`)
		case FuncFetchEmail:
			writeJSON(w, `{"mail_id":"1","mail_from":"a","mail_subject":"s","mail_body":"b"}`)
		default:
			w.WriteHeader(http.StatusOK)
		}
	})
	client := newBootstrappedClient(t, f)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 10; i++ {
		address := fmt.Sprintf("user%d@guerrillamailblock.com", i)
		g.Go(func() error {
			if _, err := client.CheckEmail(ctx, address); err != nil {
				return err
			}
			if _, err := client.FetchEmail(ctx, address, "1"); err != nil {
				return err
			}
			_, err := client.ForgetMe(ctx, address)
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(30), f.ajaxHits.Load())
}

func TestClockStrictlyIncreasing(t *testing.T) {
	frozen := time.UnixMilli(1700000000000)
	c := newClock(func() time.Time { return frozen })

	prev := int64(0)
	for i := 0; i < 100; i++ {
		n, err := strconv.ParseInt(c.next(), 10, 64)
		require.NoError(t, err)
		assert.Greater(t, n, prev)
		prev = n
	}
	assert.Equal(t, int64(1700000000099), prev)
}

func TestClockConcurrentUnique(t *testing.T) {
	c := newClock(time.Now)

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				v := c.next()
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 1600)
}

func TestAlias(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"foo@bar.com", "foo"},
		{"foo", "foo"},
		{"a@b@c", "a"},
		{"@domain.com", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			assert.Equal(t, tt.want, Alias(tt.address))
		})
	}
}
