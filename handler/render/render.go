package render

import (
	"encoding/json"
	"errors"
	"net/http"

	"levee/core"
)

type H map[string]interface{}

// JSON render with json
func JSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	_ = json.NewEncoder(w).Encode(v)
}

// Error write error
func Error(w http.ResponseWriter, statusCode int, errCode core.ErrorCode, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	_ = json.NewEncoder(w).Encode(H{"code": errCode, "msg": err.Error()})
}

// BadRequest bad request error
func BadRequest(w http.ResponseWriter, err error) {
	Error(w, http.StatusBadRequest, errCode(err), err)
}

// NotFoundRequest not found request error
func NotFoundRequest(w http.ResponseWriter, err error) {
	Error(w, http.StatusNotFound, errCode(err), err)
}

func errCode(err error) core.ErrorCode {
	var code core.ErrorCode
	if errors.As(err, &code) {
		return code
	}

	return core.ErrUnknown
}
