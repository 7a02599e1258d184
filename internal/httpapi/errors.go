package httpapi

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/beni69/csengo/internal/errs"
)

// statusFor maps an errs.Kind to the HTTP status code the original
// implementation's err_to_reply call sites used for the equivalent
// failure, collapsed into one table instead of one status literal per
// call site.
func statusFor(err error) int {
	e, ok := errs.As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindNameConflict:
		return http.StatusConflict
	case errs.KindInvalidInput, errs.KindDecodeError:
		return http.StatusBadRequest
	case errs.KindStorageError, errs.KindAudioDeviceError, errs.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// replyErr logs the full error and writes a short, safe message at the
// status its kind maps to — the "detailed chain to logs, short message
// to the client" rule.
func replyErr(w http.ResponseWriter, r *http.Request, name, msg string, err error) {
	log.Error().Str("name", name).Err(err).Msg(msg)
	http.Error(w, msg, statusFor(err))
}
