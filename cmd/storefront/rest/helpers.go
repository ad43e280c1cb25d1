package rest

import (
	"encoding/json"
	http "net/http"

	ihttp "github.com/tjper/storefront/internal/http"

	"go.uber.org/zap"
)

func (api API) read(w http.ResponseWriter, req *http.Request, i interface{}) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, 1<<20)).Decode(i); err != nil {
		ihttp.ErrBadRequest(api.logger, w, err)
		return err
	}
	return nil
}

func (api API) write(w http.ResponseWriter, code int, i interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if i == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(i); err != nil {
		api.logger.Error("encode response body", zap.Error(err))
	}
}
