// Package param binds query string values onto a request params struct.
package param

import (
	"net/http"

	"github.com/gorilla/schema"
)

var decoder = schema.NewDecoder()

func init() {
	decoder.IgnoreUnknownKeys(true)
	decoder.SetAliasTag("json")
}

// Binding decodes the request query into params using json field tags.
func Binding(r *http.Request, params interface{}) error {
	return decoder.Decode(params, r.URL.Query())
}
