package apperr

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

// Write translates err into a JSON error response. Server-side failures are
// logged at error level, client errors at debug level.
func Write(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	status, detail := Status(err)
	if status >= http.StatusInternalServerError {
		logger.Errorw("request failed", "err", err)
	} else {
		logger.Debugw("request rejected", "status", status, "err", err)
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	utilities.WriteJSON(w, status, Response{Detail: detail})
}
