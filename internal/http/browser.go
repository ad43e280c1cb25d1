package http

import (
	"context"
	"net/http"
)

const browserKey = "_sf-browser"

type CookieOptions struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// Browser ensures every request carries a browser ID. Requests without the
// browser cookie are issued a new ID from newID. The ID is made available
// through BrowserFromContext.
func Browser(options CookieOptions, newID func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := BrowserFromRequest(r)
			if id == "" {
				id = newID()
				SetBrowserCookie(w, id, options)
			}

			ctx := context.WithValue(r.Context(), browserCtxKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SetBrowserCookie(w http.ResponseWriter, id string, options CookieOptions) {
	http.SetCookie(
		w,
		&http.Cookie{
			Name:     browserKey,
			Value:    id,
			Domain:   options.Domain,
			Path:     "/",
			Secure:   options.Secure,
			HttpOnly: true,
			SameSite: options.SameSite,
		},
	)
}

func BrowserFromRequest(req *http.Request) string {
	cookie, err := req.Cookie(browserKey)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// BrowserFromContext retrieves the browser ID stored by Browser.
func BrowserFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(browserCtxKey).(string)
	return id, ok && id != ""
}

const browserCtxKey key = "browser_id"
