package rest

import (
	http "net/http"

	"github.com/tjper/storefront/internal/remoteconfig"
)

// Config serves the page configuration to bearer-authenticated clients.
type Config struct{ API }

func (ep Config) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Success bool                `json:"success"`
		Config  remoteconfig.Config `json:"config"`
	}

	ep.write(w, http.StatusOK, response{Success: true, Config: ep.config})
}
