package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBrowser(t *testing.T) {
	tests := map[string]struct {
		cookie    string
		expID     string
		expIssued bool
	}{
		"new browser":      {cookie: "", expID: "generated", expIssued: true},
		"existing browser": {cookie: "known", expID: "known", expIssued: false},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var id string
			handler := Browser(
				CookieOptions{Domain: "localhost"},
				func() string { return "generated" },
			)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				id, _ = BrowserFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/v1/page", nil)
			if test.cookie != "" {
				req.AddCookie(&http.Cookie{Name: browserKey, Value: test.cookie})
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			require.Equal(t, test.expID, id)

			resp := rr.Result()
			defer resp.Body.Close()
			var issued bool
			for _, cookie := range resp.Cookies() {
				if cookie.Name == browserKey {
					issued = true
					require.Equal(t, test.expID, cookie.Value)
					require.True(t, cookie.HttpOnly)
				}
			}
			require.Equal(t, test.expIssued, issued)
		})
	}
}
