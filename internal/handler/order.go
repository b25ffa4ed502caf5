package handler

import (
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/order"
)

type placeOrderRequest struct {
	Number          string         `json:"number" validate:"required"`
	Note            string         `json:"note"`
	PaymentStatus   string         `json:"paymentStatus" validate:"required,oneof=paid cod"`
	ShippingAddress addressRequest `json:"shippingAddress" validate:"required"`
}

type addressRequest struct {
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	PostalCode *int   `json:"postalCode" validate:"required,gte=0,lte=2147483647"`
}

func (req *placeOrderRequest) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "number":
			return decodeStr(d, &req.Number)
		case "note":
			return decodeStr(d, &req.Note)
		case "paymentStatus":
			return decodeStr(d, &req.PaymentStatus)
		case "shippingAddress":
			return req.ShippingAddress.decode(d)
		default:
			// Client supplied prices and totals are ignored.
			return d.Skip()
		}
	})
}

func (req *addressRequest) decode(d *jx.Decoder) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "street":
			return decodeStr(d, &req.Street)
		case "city":
			return decodeStr(d, &req.City)
		case "postalCode":
			return decodeInt(d, &req.PostalCode)
		default:
			return d.Skip()
		}
	})
}

// PlaceOrder handles POST /orders. The order is built from the caller's
// cart with server-side prices.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if !h.readBody(w, r, &req) {
		return
	}
	o, err := h.orders.PlaceOrder(r.Context(), claimsFrom(r.Context()).UserID, order.Details{
		Number:        req.Number,
		Note:          req.Note,
		PaymentStatus: order.PaymentStatus(req.PaymentStatus),
		ShippingAddress: order.Address{
			Street:     req.ShippingAddress.Street,
			City:       req.ShippingAddress.City,
			PostalCode: *req.ShippingAddress.PostalCode,
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Order is created successfully", func(e *jx.Encoder) {
		encodeOrder(e, o, nil)
	})
}

// MyOrders handles GET /orders/me.
func (h *Handler) MyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Orders are retrieved successfully", func(e *jx.Encoder) {
		e.ArrStart()
		for i := range orders {
			encodeOrder(e, &orders[i], nil)
		}
		e.ArrEnd()
	})
}

// ListOrders handles GET /orders for admins. Supported query parameters are
// search (or searchTerm), status, paymentStatus, userId, sort, page, limit
// and fields.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q, err := parseOrderQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.orders.ListAllOrders(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	fields := newFieldSet(page.Fields)
	writeEnvelope(w, http.StatusOK, "Orders are retrieved successfully",
		func(e *jx.Encoder) {
			e.ArrStart()
			for i := range page.Orders {
				encodeOrder(e, &page.Orders[i], fields)
			}
			e.ArrEnd()
		},
		func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("page")
			e.Int(page.Page)
			e.FieldStart("limit")
			e.Int(page.Limit)
			e.FieldStart("total")
			e.Int(page.Total)
			e.FieldStart("totalPage")
			e.Int(totalPages(page.Total, page.Limit))
			e.ObjEnd()
		},
	)
}

func totalPages(total, limit int) int {
	if limit < 1 {
		return 0
	}
	return (total + limit - 1) / limit
}

func parseOrderQuery(v url.Values) (order.Query, error) {
	invalid := func(field, msg string) error {
		return &apiError{
			status:  http.StatusUnprocessableEntity,
			message: "invalid query parameters",
			fields:  map[string]string{field: msg},
		}
	}

	q := order.Query{
		Search: v.Get("search"),
		Filter: order.Filter{
			Status:        order.Status(v.Get("status")),
			PaymentStatus: order.PaymentStatus(v.Get("paymentStatus")),
			UserID:        v.Get("userId"),
		},
	}
	if q.Search == "" {
		q.Search = v.Get("searchTerm")
	}
	if s := q.Filter.Status; s != "" && !s.Valid() {
		return q, invalid("status", "unknown order status")
	}
	switch q.Filter.PaymentStatus {
	case "", order.PaymentPaid, order.PaymentCOD, order.PaymentRefunded:
	default:
		return q, invalid("paymentStatus", "unknown payment status")
	}

	sort, err := order.ParseSort(v.Get("sort"))
	if err != nil {
		return q, invalid("sort", err.Error())
	}
	q.Sort = sort

	for _, p := range []struct {
		name string
		dst  *int
		max  int
	}{
		{"page", &q.Page, order.MaxPage},
		{"limit", &q.Limit, order.MaxLimit},
	} {
		raw := v.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > p.max {
			return q, invalid(p.name, "must be an integer between 1 and "+strconv.Itoa(p.max))
		}
		*p.dst = n
	}

	for _, f := range strings.Split(v.Get("fields"), ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if !slices.Contains(orderFields, f) {
			return q, invalid("fields", "unknown field "+strconv.Quote(f))
		}
		q.Fields = append(q.Fields, f)
	}
	return q, nil
}

// UpdateOrderStatus handles PATCH /orders/{id}/status.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !h.readBody(w, r, &req) {
		return
	}
	o, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), order.Status(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Order status is updated successfully", func(e *jx.Encoder) {
		encodeOrder(e, o, nil)
	})
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending packaging ready_to_ship on_the_way delivered cancelled"`
}

func (req *updateStatusRequest) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		if key == "status" {
			return decodeStr(d, &req.Status)
		}
		return d.Skip()
	})
}

// CancelOrder handles PATCH /orders/{id}/cancel.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Cancel(r.Context(), r.PathValue("id"), claimsFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Order is cancelled successfully", func(e *jx.Encoder) {
		encodeOrder(e, o, nil)
	})
}

// DeliverOrder handles PATCH /orders/{id}/deliver.
func (h *Handler) DeliverOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Deliver(r.Context(), r.PathValue("id"), claimsFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Order is delivered successfully", func(e *jx.Encoder) {
		encodeOrder(e, o, nil)
	})
}

// RefundOrder handles PATCH /orders/{id}/refund.
func (h *Handler) RefundOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Refund(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Payment is refunded successfully", func(e *jx.Encoder) {
		encodeOrder(e, o, nil)
	})
}

// orderFields are the top-level keys encodeOrder can emit.
var orderFields = []string{
	"id", "userId", "number", "note", "items", "totalAmount", "status",
	"paymentStatus", "shippingAddress", "createdAt", "updatedAt",
}

// fieldSet is a response projection. A nil set selects every field.
type fieldSet map[string]struct{}

func newFieldSet(fields []string) fieldSet {
	if len(fields) == 0 {
		return nil
	}
	s := fieldSet{"id": {}}
	for _, f := range fields {
		s[f] = struct{}{}
	}
	return s
}

func (s fieldSet) has(field string) bool {
	if s == nil {
		return true
	}
	_, ok := s[field]
	return ok
}

func encodeOrder(e *jx.Encoder, o *order.Order, fields fieldSet) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	if fields.has("userId") {
		e.FieldStart("userId")
		e.Str(o.UserID)
	}
	if fields.has("number") {
		e.FieldStart("number")
		e.Str(o.Number)
	}
	if fields.has("note") {
		e.FieldStart("note")
		e.Str(o.Note)
	}
	if fields.has("items") {
		e.FieldStart("items")
		e.ArrStart()
		for _, it := range o.Items {
			e.ObjStart()
			e.FieldStart("productId")
			e.Str(it.ProductID)
			e.FieldStart("name")
			e.Str(it.Name)
			e.FieldStart("quantity")
			e.Int(it.Quantity)
			e.FieldStart("unitPrice")
			encodeMoney(e, it.UnitPrice)
			e.FieldStart("price")
			encodeMoney(e, it.Price)
			e.ObjEnd()
		}
		e.ArrEnd()
	}
	if fields.has("totalAmount") {
		e.FieldStart("totalAmount")
		encodeMoney(e, o.TotalAmount)
	}
	if fields.has("status") {
		e.FieldStart("status")
		e.Str(string(o.Status))
	}
	if fields.has("paymentStatus") {
		e.FieldStart("paymentStatus")
		e.Str(string(o.PaymentStatus))
	}
	if fields.has("shippingAddress") {
		e.FieldStart("shippingAddress")
		e.ObjStart()
		e.FieldStart("street")
		e.Str(o.ShippingAddress.Street)
		e.FieldStart("city")
		e.Str(o.ShippingAddress.City)
		e.FieldStart("postalCode")
		e.Int(o.ShippingAddress.PostalCode)
		e.ObjEnd()
	}
	if fields.has("createdAt") {
		e.FieldStart("createdAt")
		encodeTime(e, o.CreatedAt)
	}
	if fields.has("updatedAt") {
		e.FieldStart("updatedAt")
		encodeTime(e, o.UpdatedAt)
	}
	e.ObjEnd()
}
