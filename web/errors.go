package web

import (
	"net/http"

	"github.com/nanzhong/stonkboard/httperr"
)

func (h *Handler) respondWithErr(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Warn().
		Str("request_id", requestID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", httperr.Status(err)).
		Err(err).
		Msg("responding with error")

	if werr := httperr.Write(w, err); werr != nil {
		h.log.Error().Err(werr).Msg("writing error response")
	}
}
