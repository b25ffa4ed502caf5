package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/user"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required"`
	Address  string `json:"address"`
}

func (req *registerRequest) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "email":
			return decodeStr(d, &req.Email)
		case "password":
			return decodeStr(d, &req.Password)
		case "name":
			return decodeStr(d, &req.Name)
		case "address":
			return decodeStr(d, &req.Address)
		default:
			return d.Skip()
		}
	})
}

// Register handles POST /users/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.readBody(w, r, &req) {
		return
	}
	u, err := h.users.Register(r.Context(), user.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Address:  req.Address,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "User is created successfully", func(e *jx.Encoder) {
		encodeUser(e, u)
	})
}

// Me handles GET /users/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "User is retrieved successfully", func(e *jx.Encoder) {
		encodeUser(e, u)
	})
}

// ListUsers handles GET /users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Users are retrieved successfully", func(e *jx.Encoder) {
		e.ArrStart()
		for i := range users {
			encodeUser(e, &users[i])
		}
		e.ArrEnd()
	})
}

// GetUser handles GET /users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "User is retrieved successfully", func(e *jx.Encoder) {
		encodeUser(e, u)
	})
}

type changeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=in-progress blocked"`
}

func (req *changeStatusRequest) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		if key == "status" {
			return decodeStr(d, &req.Status)
		}
		return d.Skip()
	})
}

// ChangeUserStatus handles PATCH /users/{id}/status.
func (h *Handler) ChangeUserStatus(w http.ResponseWriter, r *http.Request) {
	var req changeStatusRequest
	if !h.readBody(w, r, &req) {
		return
	}
	u, err := h.users.ChangeStatus(r.Context(), r.PathValue("id"), user.Status(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "User status is updated successfully", func(e *jx.Encoder) {
		encodeUser(e, u)
	})
}

// encodeUser writes the public view of an account. The password hash is
// never included.
func encodeUser(e *jx.Encoder, u *user.User) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(u.ID)
	e.FieldStart("email")
	e.Str(u.Email)
	e.FieldStart("name")
	e.Str(u.Name)
	e.FieldStart("address")
	e.Str(u.Address)
	e.FieldStart("role")
	e.Str(string(u.Role))
	e.FieldStart("status")
	e.Str(string(u.Status))
	e.FieldStart("isDeleted")
	e.Bool(u.IsDeleted)
	if u.PasswordChangedAt != nil {
		e.FieldStart("passwordChangedAt")
		encodeTime(e, *u.PasswordChangedAt)
	}
	e.FieldStart("createdAt")
	encodeTime(e, u.CreatedAt)
	e.ObjEnd()
}
