package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"cryptotracker/repository"
	"cryptotracker/service"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
)

type Handler struct {
	svc       service.Service
	jwtSecret string
}

func NewHandler(svc service.Service, jwtSecret string) Handler {
	return Handler{
		svc:       svc,
		jwtSecret: jwtSecret,
	}
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type WatchlistRequest struct {
	Symbol string `json:"symbol"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Errors string `json:"errors"`
}

func (h Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Неверный запрос")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		respondWithError(w, http.StatusBadRequest, "Неверные параметры запроса")
		return
	}
	if err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password); err != nil {
		if errors.Is(err, service.ErrUserExists) {
			respondWithError(w, http.StatusConflict, err.Error())
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusCreated, MessageResponse{
		Message: "Регистрация успешна, выполните вход",
	})
}

func (h Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Неверный запрос")
		return
	}
	token, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondWithError(w, http.StatusUnauthorized, err.Error())
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		MaxAge:   int((24 * time.Hour).Seconds()),
		HttpOnly: true,
	})
	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Вход выполнен"})
}

func (h Handler) LoginPageHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, MessageResponse{
		Message: "Требуется вход: отправьте POST /login с именем пользователя и паролем",
	})
}

func (h Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h Handler) TradingHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RefreshMarket(r.Context()); err != nil {
		log.Printf("Ошибка обновления рыночных данных: %v", err)
	}

	snapshots, err := h.svc.ListMarket(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"cryptos": snapshots})
}

func (h Handler) CryptoDetailHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	symbol, exists := vars["symbol"]
	if !exists {
		respondWithError(w, http.StatusBadRequest, "Символ не указан")
		return
	}

	snap, chartImg, err := h.svc.GetDetail(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, repository.ErrSnapshotNotFound) {
			log.Printf("Данные по символу %s не найдены", symbol)
			http.Redirect(w, r, "/trading", http.StatusSeeOther)
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"coin":  snap,
		"chart": chartImg,
	})
}

func (h Handler) WatchlistHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(string)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Пользователь не найден в контексте")
		return
	}
	items, err := h.svc.ListWatchlist(r.Context(), userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h Handler) AddToWatchlistHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(string)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Пользователь не найден в контексте")
		return
	}
	var req WatchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Неверный запрос")
		return
	}
	if req.Symbol == "" {
		respondWithError(w, http.StatusBadRequest, "Символ не указан")
		return
	}
	if err := h.svc.AddToWatchlist(r.Context(), userID, req.Symbol); err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("%s added to watchlist", req.Symbol),
	})
}

func (h Handler) RemoveFromWatchlistHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(string)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Пользователь не найден в контексте")
		return
	}
	var req WatchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Неверный запрос")
		return
	}
	if req.Symbol == "" {
		respondWithError(w, http.StatusBadRequest, "Символ не указан")
		return
	}
	if err := h.svc.RemoveFromWatchlist(r.Context(), userID, req.Symbol); err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("%s removed", req.Symbol),
	})
}

func (h Handler) SessionMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("token")
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		token, err := jwt.Parse(cookie.Value, func(token *jwt.Token) (interface{}, error) {
			return []byte(h.jwtSecret), nil
		})
		if err != nil || !token.Valid {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		userID, ok := claims["user_id"].(string)
		if !ok || userID == "" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), "user_id", userID)
		next(w, r.WithContext(ctx))
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{Errors: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
