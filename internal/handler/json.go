package handler

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// decodable is implemented by request DTOs.
type decodable interface {
	decode(d *jx.Decoder) error
}

// readBody decodes and validates the request body into v. On failure the
// error response is already written and false is returned.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request, v decodable) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		writeError(w, r, badRequest("request body is too large or unreadable"))
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}
	if err := v.decode(jx.DecodeBytes(body)); err != nil {
		writeError(w, r, badRequest("malformed JSON: "+err.Error()))
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, r, err)
		return false
	}
	return true
}

func decodeStr(d *jx.Decoder, v *string) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return err
	}
	*v = s
	return nil
}

func decodeInt(d *jx.Decoder, v **int) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	n, err := d.Int()
	if err != nil {
		return err
	}
	*v = &n
	return nil
}

// decodeDecimal accepts both JSON numbers and numeric strings.
func decodeDecimal(d *jx.Decoder, v **decimal.Decimal) error {
	var text string
	switch d.Next() {
	case jx.Null:
		return d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return err
		}
		text = s
	case jx.Number:
		raw, err := d.Raw()
		if err != nil {
			return err
		}
		text = string(raw)
	default:
		return errors.New("expected number")
	}
	n, err := decimal.NewFromString(text)
	if err != nil {
		return errors.Wrap(err, "parse number")
	}
	*v = &n
	return nil
}

// writeEnvelope writes {"success":true,"message":...,"data":...,"meta":...}.
// data and meta are optional.
func writeEnvelope(w http.ResponseWriter, status int, message string, data, meta func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("success")
	e.Bool(true)
	e.FieldStart("message")
	e.Str(message)
	if data != nil {
		e.FieldStart("data")
		data(e)
	}
	if meta != nil {
		e.FieldStart("meta")
		meta(e)
	}
	e.ObjEnd()

	writeJSON(w, status, e.Bytes())
}

func writeData(w http.ResponseWriter, status int, message string, data func(e *jx.Encoder)) {
	writeEnvelope(w, status, message, data, nil)
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Raw([]byte(d.StringFixed(2)))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339Nano))
}
