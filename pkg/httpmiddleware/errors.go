package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/jx"
)

// writeError writes the API error body {"code":...,"message":...,"errors":{}}.
func writeError(w http.ResponseWriter, status int, message string) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(message)
	e.FieldStart("errors")
	e.ObjStart()
	e.ObjEnd()
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
