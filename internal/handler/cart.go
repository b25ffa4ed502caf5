package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/cart"
)

type addToCartRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  *int   `json:"quantity" validate:"omitempty,min=1,max=2147483647"`
}

func (req *addToCartRequest) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "productId":
			return decodeStr(d, &req.ProductID)
		case "quantity":
			return decodeInt(d, &req.Quantity)
		default:
			return d.Skip()
		}
	})
}

type updateCartItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  *int   `json:"quantity" validate:"required,min=1,max=2147483647"`
}

func (req *updateCartItemRequest) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "productId":
			return decodeStr(d, &req.ProductID)
		case "quantity":
			return decodeInt(d, &req.Quantity)
		default:
			return d.Skip()
		}
	})
}

// GetCart handles GET /carts.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.GetCart(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Cart is retrieved successfully", func(e *jx.Encoder) {
		encodeCart(e, c)
	})
}

// AddToCart handles POST /carts/items. Quantity defaults to one.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if !h.readBody(w, r, &req) {
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	c, err := h.carts.AddToCart(r.Context(), claimsFrom(r.Context()).UserID, req.ProductID, qty)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Product is added to cart successfully", func(e *jx.Encoder) {
		encodeCart(e, c)
	})
}

// UpdateCartItem handles PATCH /carts/items.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateCartItemRequest
	if !h.readBody(w, r, &req) {
		return
	}
	c, err := h.carts.UpdateQuantity(r.Context(), claimsFrom(r.Context()).UserID, req.ProductID, *req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Cart item is updated successfully", func(e *jx.Encoder) {
		encodeCart(e, c)
	})
}

// RemoveCartItem handles DELETE /carts/items/{productId}.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.RemoveItem(r.Context(), claimsFrom(r.Context()).UserID, r.PathValue("productId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Product is removed from cart successfully", func(e *jx.Encoder) {
		encodeCart(e, c)
	})
}

func encodeCart(e *jx.Encoder, c *cart.Cart) {
	e.ObjStart()
	e.FieldStart("userId")
	e.Str(c.UserID)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range c.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(it.ProductID)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("createdAt")
	encodeTime(e, c.CreatedAt)
	e.FieldStart("updatedAt")
	encodeTime(e, c.UpdatedAt)
	e.ObjEnd()
}
