package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

type createProductRequest struct {
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Stock       *int             `json:"stock" validate:"required,gte=0,lte=2147483647"`
	ImageURL    string           `json:"imageUrl" validate:"omitempty,url"`
}

func (req *createProductRequest) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			return decodeStr(d, &req.Name)
		case "description":
			return decodeStr(d, &req.Description)
		case "price":
			return decodeDecimal(d, &req.Price)
		case "stock":
			return decodeInt(d, &req.Stock)
		case "imageUrl":
			return decodeStr(d, &req.ImageURL)
		default:
			return d.Skip()
		}
	})
}

// ListProducts handles GET /products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Products are retrieved successfully", func(e *jx.Encoder) {
		e.ArrStart()
		for i := range products {
			encodeProduct(e, &products[i])
		}
		e.ArrEnd()
	})
}

// GetProduct handles GET /products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Product is retrieved successfully", func(e *jx.Encoder) {
		encodeProduct(e, p)
	})
}

// CreateProduct handles POST /products.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if !h.readBody(w, r, &req) {
		return
	}
	p, err := h.products.Create(r.Context(), product.Input{
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		Stock:       *req.Stock,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Product is created successfully", func(e *jx.Encoder) {
		encodeProduct(e, p)
	})
}

func encodeProduct(e *jx.Encoder, p *product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("price")
	encodeMoney(e, p.Price)
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("imageUrl")
	e.Str(p.ImageURL)
	e.FieldStart("createdAt")
	encodeTime(e, p.CreatedAt)
	e.FieldStart("updatedAt")
	encodeTime(e, p.UpdatedAt)
	e.ObjEnd()
}
