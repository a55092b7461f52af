package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"workmesh/pkg/errs"
	"workmesh/pkg/user"

	jwt "github.com/dgrijalva/jwt-go"
)

type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Handler struct {
	Service user.ServiceInterface
	Logger  *slog.Logger
}

type FieldError struct {
	Location string `json:"location"`
	Param    string `json:"param"`
	Value    string `json:"value"`
	Msg      string `json:"msg"`
}

func NewUserHandler(service user.ServiceInterface, logger *slog.Logger) *Handler {
	return &Handler{
		Service: service,
		Logger:  logger,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req LoginForm
	if ok := DecodeJSONBody(w, r, &req); !ok {
		return
	}

	u, n, err := h.Service.Register(req.Email, req.Password)
	if err != nil {
		if !errors.Is(err, errs.ErrEmailTaken) {
			h.Logger.Error("register", "error", err.Error())
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if ok := WriteResp(w, h.Logger, map[string]any{
			"errors": []FieldError{
				{
					Location: "body",
					Param:    "email",
					Value:    req.Email,
					Msg:      "already registered",
				},
			},
		}, http.StatusUnprocessableEntity); ok {
			h.Logger.Error("register", "error", err.Error())
		}
	} else {
		GenerateToken(u.Email, u.ID, n.Value, w, h.Logger, "register")
	}
}

// Login classifies failures internally but answers every credential
// problem with the same 401 body, so an outside caller cannot probe which
// emails are registered.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginForm
	if ok := DecodeJSONBody(w, r, &req); !ok {
		return
	}

	u, n, err := h.Service.Login(req.Email, req.Password)
	switch {
	case err == nil:
		GenerateToken(u.Email, u.ID, n.Value, w, h.Logger, "login")
	case errors.Is(err, errs.ErrUserNotFound),
		errors.Is(err, errs.ErrNonceNotFound),
		errors.Is(err, errs.ErrAuthenticationFailed):
		if ok := WriteResp(w, h.Logger, map[string]any{"message": "invalid email or password"}, http.StatusUnauthorized); ok {
			h.Logger.Error("login", "error", err.Error(), "email", req.Email)
		}
	default:
		h.Logger.Error("login", "error", err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(w, r)
	if !ok {
		return
	}

	if err := h.Service.Logout(claims.User.ID); err != nil {
		h.Logger.Error("logout", "error", err.Error(), "user", claims.User.ID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if ok := WriteResp(w, h.Logger, map[string]any{"message": "success"}, http.StatusOK); ok {
		h.Logger.Info("logout", "user", claims.User.ID)
	}
}

func DecodeJSONBody(w http.ResponseWriter, r *http.Request, req any) bool {
	if r.Header.Get("Content-Type") != "application/json" {
		writeError(w, http.StatusBadRequest, typeError, "invalid Content-Type")
		return false
	}

	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, typeError, "bad json")
		return false
	}

	return true
}

// GenerateToken mints the session token: an HS256 JWT carrying the user
// identity and the nonce that was current at issuance.
func GenerateToken(email, userID, nonce string, w http.ResponseWriter, logger *slog.Logger, action string) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user": map[string]string{
			"email": email,
			"id":    userID,
		},
		"nonce": nonce,
		"iat":   time.Now().UTC().Unix(),
		"exp":   time.Now().Add(time.Hour * 1).UTC().Unix(),
	})
	JWTSecret := os.Getenv("JWT_SECRET")
	tokenString, err := token.SignedString([]byte(JWTSecret))
	if err != nil {
		logger.Error("token signing", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if ok := WriteResp(w, logger, map[string]any{"token": tokenString}, http.StatusOK); ok {
		logger.Info(action, "user", userID)
	}
}

func WriteResp(w http.ResponseWriter, logger *slog.Logger, body map[string]any, status int) bool {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to write JSON response", slog.Any("err", err))
		return false
	}
	return true
}
