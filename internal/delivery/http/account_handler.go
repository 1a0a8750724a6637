package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/entity"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/service"
)

type registerRequest struct {
	Username  string `form:"username" json:"username"`
	Email     string `form:"email" json:"email"`
	Password1 string `form:"password1" json:"password1"`
	Password2 string `form:"password2" json:"password2"`
}

type loginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// POST /api/accounts/register
// Registration signs the new account in.
func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "Malformed request.")
		return
	}

	account, err := h.accounts.Register(c.Request.Context(), req.Username, req.Email, req.Password1, req.Password2)
	if err != nil {
		respondError(c, err)
		return
	}
	h.startSession(c, http.StatusCreated, account)
}

// POST /api/accounts/login
func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "Malformed request.")
		return
	}

	account, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.startSession(c, http.StatusOK, account)
}

func (h *Handler) startSession(c *gin.Context, status int, account *entity.Account) {
	token, err := h.sessions.Create(c.Request.Context(), account.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.setSessionCookie(c, token, int(h.sessions.TTL().Seconds()))
	c.JSON(status, gin.H{"account": account, "token": token})
}

// POST /api/accounts/logout
func (h *Handler) logout(c *gin.Context) {
	if err := h.sessions.Destroy(c.Request.Context(), c.GetString(ctxSessionToken)); err != nil {
		respondError(c, err)
		return
	}
	h.setSessionCookie(c, "", -1)
	c.Status(http.StatusNoContent)
}

// GET /api/accounts/me
func (h *Handler) dashboard(c *gin.Context) {
	dash, err := h.accounts.Dashboard(c.Request.Context(), accountID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

// PUT /api/accounts/me
func (h *Handler) updateProfile(c *gin.Context) {
	in := service.ProfileInput{
		Username: c.PostForm("username"),
		Email:    c.PostForm("email"),
		Password: c.PostForm("password"),
	}

	fh, err := c.FormFile("avatar")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	case err != nil:
		badRequest(c, "Malformed upload.")
		return
	default:
		avatar, closeAll, err := openUploads(fh)
		if err != nil {
			badRequest(c, "Malformed upload.")
			return
		}
		defer closeAll()
		in.Avatar = &avatar[0]
	}

	account, err := h.accounts.UpdateProfile(c.Request.Context(), accountID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	slog.Info("Profile updated", "account_id", account.ID)
	c.JSON(http.StatusOK, gin.H{"account": account})
}
