package handler

import (
	"context"
	"net/http"
	"slices"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/user"
)

const refreshCookie = "refreshToken"

type claimsKey struct{}

// authorize authenticates the bearer token and, when roles are given,
// requires the caller to hold one of them.
func (h *Handler) authorize(next http.HandlerFunc, roles ...user.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := h.auth.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if len(roles) > 0 && !slices.Contains(roles, claims.Role) {
			writeError(w, r, auth.ErrRoleMismatch)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

// claimsFrom returns the identity stored by authorize.
func claimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	if c == nil {
		return &auth.Claims{}
	}
	return c
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (req *loginRequest) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "email":
			return decodeStr(d, &req.Email)
		case "password":
			return decodeStr(d, &req.Password)
		default:
			return d.Skip()
		}
	})
}

// Login handles POST /auth/login. The refresh token is returned in the body
// and as an HttpOnly cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.readBody(w, r, &req) {
		return
	}
	pair, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    pair.RefreshToken,
		Path:     PathPrefix + "/auth",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	writeData(w, http.StatusOK, "User logged in successfully", func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("accessToken")
		e.Str(pair.AccessToken)
		e.FieldStart("refreshToken")
		e.Str(pair.RefreshToken)
		e.ObjEnd()
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (req *refreshRequest) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		if key == "refreshToken" {
			return decodeStr(d, &req.RefreshToken)
		}
		return d.Skip()
	})
}

// RefreshToken handles POST /auth/refresh-token. The token is taken from the
// body, falling back to the refresh cookie.
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.readBody(w, r, &req) {
		return
	}
	token := req.RefreshToken
	if token == "" {
		if c, err := r.Cookie(refreshCookie); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		writeError(w, r, auth.ErrMissingToken)
		return
	}

	access, err := h.auth.Refresh(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Access token is retrieved successfully", func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("accessToken")
		e.Str(access)
		e.ObjEnd()
	})
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

func (req *changePasswordRequest) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "oldPassword":
			return decodeStr(d, &req.OldPassword)
		case "newPassword":
			return decodeStr(d, &req.NewPassword)
		default:
			return d.Skip()
		}
	})
}

// ChangePassword handles POST /auth/change-password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !h.readBody(w, r, &req) {
		return
	}
	claims := claimsFrom(r.Context())
	if err := h.auth.ChangePassword(r.Context(), claims.UserID, req.OldPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Password is updated successfully", nil)
}
