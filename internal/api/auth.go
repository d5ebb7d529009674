package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// login handles POST /api/login: bcrypt comparison against the users table.
// Unknown user and wrong password are indistinguishable to the caller. When
// a token secret is configured the response carries a signed session token.
func (r *Router) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "missing username or password")
		return
	}

	user, err := r.users.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		r.logger.Error("Failed to look up user", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "login failed")
		return
	}
	if user == nil {
		respondError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respondError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	resp := gin.H{"success": true}
	if r.cfg.Auth.TokenSecret != "" {
		token, err := r.issueToken(req.Username)
		if err != nil {
			r.logger.Error("Failed to issue session token", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "login failed")
			return
		}
		resp["token"] = token
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) issueToken(username string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(r.cfg.Auth.TokenTTL)),
		Issuer:    "mhdash",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(r.cfg.Auth.TokenSecret))
}
