package handlers

import (
	"net/http"

	"guard-backend/pkg/common"
	appErrors "guard-backend/pkg/errors"
)

// respondError maps an application error onto the wire format. Unknown
// errors surface as 500 without leaking their cause.
func respondError(w http.ResponseWriter, err error) {
	appErr := appErrors.AsAppError(err)
	if len(appErr.Details) > 0 {
		common.RespondErrorWithDetails(w, appErr.HTTPStatus, string(appErr.Type), appErr.Message, appErr.Details)
		return
	}
	common.RespondError(w, appErr.HTTPStatus, string(appErr.Type), appErr.Message)
}
