package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ramadhanik/account-service/internal/application"
	"github.com/ramadhanik/account-service/internal/interface/middleware"
	"github.com/ramadhanik/account-service/pkg/response"
	"github.com/ramadhanik/account-service/pkg/validation"
)

type AccountHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
}

func NewAccountHandler(svc *application.Service, logger *logrus.Logger) *AccountHandler {
	return &AccountHandler{Svc: svc, Logger: logger}
}

const dateLayout = "2006-01-02"

type registerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Name        string `json:"name" binding:"required,max=200"`
	Terms       bool   `json:"terms"`
	Password    string `json:"password" binding:"required,pwd"`
	Password2   string `json:"password2" binding:"required"`
	DateOfBirth string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type passwordsRequest struct {
	Password  string `json:"password" binding:"required,pwd"`
	Password2 string `json:"password2" binding:"required"`
}

type resetMailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func tokensPayload(pair application.TokenPair) gin.H {
	return gin.H{"tokens": gin.H{"access": pair.AccessToken, "refresh": pair.RefreshToken}}
}

// POST /register
func (h *AccountHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FieldErrors(c, http.StatusBadRequest, validation.ToFieldErrors(err))
		return
	}
	var dob *time.Time
	if req.DateOfBirth != "" {
		t, err := time.Parse(dateLayout, req.DateOfBirth)
		if err != nil {
			response.FieldErrors(c, http.StatusBadRequest, map[string][]string{"date_of_birth": {"Must match format 2006-01-02"}})
			return
		}
		dob = &t
	}

	_, pair, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		Email:       req.Email,
		Name:        req.Name,
		Terms:       req.Terms,
		Password:    req.Password,
		Password2:   req.Password2,
		DateOfBirth: dob,
	})
	if err != nil {
		var fe application.FieldErrors
		switch {
		case errors.As(err, &fe):
			response.FieldErrors(c, http.StatusBadRequest, fe)
		case errors.Is(err, application.ErrConflict):
			response.FieldErrors(c, http.StatusBadRequest, map[string][]string{"email": {"Account with this email already exists"}})
		default:
			h.logInternal(c, err, "register failed")
			response.Internal(c)
		}
		return
	}
	response.MessageWith(c, http.StatusCreated, "Registration Success", tokensPayload(pair))
}

// POST /login
func (h *AccountHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FieldErrors(c, http.StatusBadRequest, validation.ToFieldErrors(err))
		return
	}
	_, pair, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, application.ErrInvalidCredentials) {
			response.NonFieldErrors(c, http.StatusNotFound, "email or password is invalid")
			return
		}
		h.logInternal(c, err, "login failed")
		response.Internal(c)
		return
	}
	response.MessageWith(c, http.StatusOK, "Login Success", tokensPayload(pair))
}

// POST /refresh
func (h *AccountHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.NonFieldErrors(c, http.StatusUnauthorized, "refresh token is invalid")
		return
	}
	pair, err := h.Svc.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		if errors.Is(err, application.ErrInvalidCredentials) {
			response.NonFieldErrors(c, http.StatusUnauthorized, "refresh token is invalid")
			return
		}
		h.logInternal(c, err, "refresh failed")
		response.Internal(c)
		return
	}
	response.MessageWith(c, http.StatusOK, "Token refreshed", tokensPayload(pair))
}

// GET /profile
func (h *AccountHandler) Profile(c *gin.Context) {
	a, err := h.Svc.Profile(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		if errors.Is(err, application.ErrNotFound) {
			response.NonFieldErrors(c, http.StatusNotFound, "account not found")
			return
		}
		h.logInternal(c, err, "profile fetch failed")
		response.Internal(c)
		return
	}
	var dob *string
	if a.DateOfBirth != nil {
		s := a.DateOfBirth.Format(dateLayout)
		dob = &s
	}
	c.JSON(http.StatusOK, gin.H{
		"id":            a.ID,
		"email":         a.Email,
		"name":          a.Name,
		"terms":         a.Terms,
		"date_of_birth": dob,
		"is_active":     a.IsActive,
		"is_admin":      a.IsAdmin,
		"created":       a.CreatedAt,
		"updated":       a.UpdatedAt,
	})
}

// POST /changepassword
func (h *AccountHandler) ChangePassword(c *gin.Context) {
	var req passwordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FieldErrors(c, http.StatusBadRequest, validation.ToFieldErrors(err))
		return
	}
	if err := h.Svc.ChangePassword(c.Request.Context(), middleware.AccountID(c), req.Password, req.Password2); err != nil {
		var fe application.FieldErrors
		switch {
		case errors.As(err, &fe):
			response.FieldErrors(c, http.StatusBadRequest, fe)
		case errors.Is(err, application.ErrNotFound):
			response.NonFieldErrors(c, http.StatusNotFound, "account not found")
		default:
			h.logInternal(c, err, "change password failed")
			response.Internal(c)
		}
		return
	}
	response.Message(c, http.StatusOK, "Password changed successfully")
}

// POST /resetpassword-mail
func (h *AccountHandler) ResetPasswordMail(c *gin.Context) {
	var req resetMailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FieldErrors(c, http.StatusBadRequest, validation.ToFieldErrors(err))
		return
	}
	if err := h.Svc.RequestReset(c.Request.Context(), req.Email); err != nil {
		var fe application.FieldErrors
		if errors.As(err, &fe) {
			response.FieldErrors(c, http.StatusBadRequest, fe)
			return
		}
		h.logInternal(c, err, "reset request failed")
		response.Internal(c)
		return
	}
	response.Message(c, http.StatusOK, "Password reset email sent successfully")
}

// POST /resetpassword/:uid/:token
func (h *AccountHandler) ResetPassword(c *gin.Context) {
	var req passwordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FieldErrors(c, http.StatusBadRequest, validation.ToFieldErrors(err))
		return
	}
	err := h.Svc.RedeemReset(c.Request.Context(), c.Param("uid"), c.Param("token"), req.Password, req.Password2)
	if err != nil {
		var fe application.FieldErrors
		switch {
		case errors.As(err, &fe):
			response.FieldErrors(c, http.StatusBadRequest, fe)
		case errors.Is(err, application.ErrInvalidToken):
			response.NonFieldErrors(c, http.StatusBadRequest, "Token invalid or expired")
		default:
			h.logInternal(c, err, "reset redeem failed")
			response.Internal(c)
		}
		return
	}
	response.Message(c, http.StatusOK, "Password reset successfully")
}

// GET /accounts/search?q=&size= (admin only)
func (h *AccountHandler) Search(c *gin.Context) {
	caller, err := h.Svc.Profile(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		if errors.Is(err, application.ErrNotFound) {
			response.NonFieldErrors(c, http.StatusForbidden, "admin privileges required")
			return
		}
		h.logInternal(c, err, "admin check failed")
		response.Internal(c)
		return
	}
	if !caller.IsAdmin {
		response.NonFieldErrors(c, http.StatusForbidden, "admin privileges required")
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	results, err := h.Svc.Search(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		h.logInternal(c, err, "account search failed")
		response.Internal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *AccountHandler) logInternal(c *gin.Context, err error, msg string) {
	if h.Logger == nil {
		return
	}
	h.Logger.WithError(err).WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"path":       c.FullPath(),
	}).Error(msg)
}
