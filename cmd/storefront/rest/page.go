package rest

import (
	http "net/http"

	ihttp "github.com/tjper/storefront/internal/http"

	"go.uber.org/zap"
)

// Page upgrades the request to the websocket of a storefront page.
type Page struct{ API }

func (ep Page) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	browserID, ok := ihttp.BrowserFromContext(r.Context())
	if !ok {
		ihttp.ErrUnauthorized(w)
		return
	}

	// Headers written by middleware, such as a new browser cookie, must be
	// passed to Upgrade to reach the client.
	header := make(http.Header)
	if cookies := w.Header().Values("Set-Cookie"); len(cookies) > 0 {
		header["Set-Cookie"] = cookies
	}

	conn, err := ep.upgrader.Upgrade(w, r, header)
	if err != nil {
		// Upgrade has already responded to the client.
		ep.logger.Info("upgrade page connection", zap.Error(err))
		return
	}

	logger := ep.logger.With(zap.String("browser-id", browserID))
	logger.Debug("page connected")
	if err := ep.pages.Serve(r.Context(), browserID, conn); err != nil {
		logger.Warn("serve page", zap.Error(err))
		return
	}
	logger.Debug("page disconnected")
}
