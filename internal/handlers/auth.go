package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/vantegra/fieldgo/internal/models"
	"github.com/vantegra/fieldgo/internal/utils"
)

var validate = validator.New()

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=admin tech"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// register creates a new account and signs it in
func (r *Router) register(w http.ResponseWriter, req *http.Request) {
	var regReq RegisterRequest
	if err := json.NewDecoder(req.Body).Decode(&regReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := validate.Struct(regReq); err != nil {
		respondError(w, http.StatusBadRequest, "A valid email, a name and a password of at least 8 characters are required")
		return
	}

	// 1. Hash Password
	hashedPassword, err := utils.HashPassword(regReq.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	// 2. Create User
	user := models.User{
		Email:        regReq.Email,
		PasswordHash: hashedPassword,
		Name:         regReq.Name,
		Role:         models.RoleTech,
	}
	if regReq.Role != "" {
		user.Role = regReq.Role
	}
	if err := r.db.Create(&user).Error; err != nil {
		respondError(w, http.StatusBadRequest, "Failed to create user (email might exist)")
		return
	}

	// 3. Generate Tokens for immediate login
	accessToken, refreshToken, err := utils.GenerateTokens(&user, r.cfg.JWTSecret)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "User created but failed to generate tokens")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"tokens": map[string]string{
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
		},
		"user": user,
	})
}

// login handles user login
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var loginReq LoginRequest
	if err := json.NewDecoder(req.Body).Decode(&loginReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := validate.Struct(loginReq); err != nil {
		respondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	// 1. Find User
	var user models.User
	if err := r.db.Where("email = ?", loginReq.Email).First(&user).Error; err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	// 2. Check Password
	if !utils.CheckPasswordHash(loginReq.Password, user.PasswordHash) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	// 3. Generate Tokens
	accessToken, refreshToken, err := utils.GenerateTokens(&user, r.cfg.JWTSecret)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate tokens")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tokens": map[string]string{
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
		},
		"user": user,
	})
}

// refresh exchanges a refresh token for a new token pair
func (r *Router) refresh(w http.ResponseWriter, req *http.Request) {
	var refReq RefreshRequest
	if err := json.NewDecoder(req.Body).Decode(&refReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if refReq.RefreshToken == "" {
		respondError(w, http.StatusBadRequest, "refreshToken is required")
		return
	}

	claims, err := utils.ValidateToken(refReq.RefreshToken, r.cfg.JWTSecret)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}
	id, _ := claims["id"].(string)
	if id == "" {
		respondError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	var user models.User
	if err := r.db.First(&user, "id = ?", id).Error; err != nil {
		respondError(w, http.StatusUnauthorized, "Account no longer exists")
		return
	}

	accessToken, refreshToken, err := utils.GenerateTokens(&user, r.cfg.JWTSecret)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate tokens")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tokens": map[string]string{
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
		},
	})
}

// me returns the authenticated account
func (r *Router) me(w http.ResponseWriter, req *http.Request) {
	caller, ok := principal(req)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var user models.User
	if err := r.db.First(&user, "id = ?", caller.ID).Error; err != nil {
		respondError(w, http.StatusNotFound, "Account not found")
		return
	}
	respondJSON(w, http.StatusOK, user)
}
