package auth

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/volunteerhub/backend/internal/models"
	"github.com/volunteerhub/backend/pkg/response"
	"github.com/volunteerhub/backend/pkg/utils"
)

// UserStore is the persistence surface the auth handler needs.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByEmailAndRole(ctx context.Context, email string, role models.Role) (*models.User, error)
}

// RegisterNGORequest is the body for POST /api/ngo/register.
type RegisterNGORequest struct {
	OrganizationName string `json:"organization_name" binding:"required"`
	Email            string `json:"email" binding:"required,email"`
	Password         string `json:"password" binding:"required,min=6"`
	Location         string `json:"location"`
	Description      string `json:"description"`
	Website          string `json:"website"`
}

// RegisterVolunteerRequest is the body for POST /api/volunteer/register.
type RegisterVolunteerRequest struct {
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email" binding:"required,email"`
	Password string   `json:"password" binding:"required,min=6"`
	Location string   `json:"location"`
	Skills   []string `json:"skills"`
}

// LoginRequest is the body for the login endpoints.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is the registration response with JWT.
type RegisterResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// LoginResponse is the login response: token plus the role it was issued for.
type LoginResponse struct {
	Token string      `json:"token"`
	Role  models.Role `json:"role"`
}

// Handler handles identity HTTP endpoints for both roles.
type Handler struct {
	store  UserStore
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(store UserStore, jwt *JWTService, logger *zap.Logger) *Handler {
	return &Handler{store: store, jwt: jwt, logger: logger}
}

// RegisterNGO handles POST /api/ngo/register.
func (h *Handler) RegisterNGO(c *gin.Context) {
	var req RegisterNGORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	user := &models.User{
		Name:             req.OrganizationName,
		Email:            req.Email,
		Role:             models.RoleNGO,
		Location:         req.Location,
		OrganizationName: req.OrganizationName,
		Description:      req.Description,
		Website:          req.Website,
	}
	h.register(c, user, req.Password)
}

// RegisterVolunteer handles POST /api/volunteer/register.
func (h *Handler) RegisterVolunteer(c *gin.Context) {
	var req RegisterVolunteerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Role:     models.RoleVolunteer,
		Location: req.Location,
		Skills:   req.Skills,
	}
	h.register(c, user, req.Password)
}

// register hashes the credential and persists the user. The email pre-check gives a
// friendly error; the unique constraint in the store closes the race window.
func (h *Handler) register(c *gin.Context, user *models.User, password string) {
	ctx := c.Request.Context()

	if _, err := h.store.GetByEmail(ctx, user.Email); err == nil {
		response.BadRequest(c, "email already registered")
		return
	} else if !errors.Is(err, ErrNotFound) {
		response.Internal(c, "failed to check email")
		return
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	user.Password = hash

	if err := h.store.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			response.BadRequest(c, "email already registered")
			return
		}
		h.logger.Error("create user", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.Created(c, RegisterResponse{Token: token, User: user.ToPublic()})
}

// LoginNGO handles POST /api/ngo/login.
func (h *Handler) LoginNGO(c *gin.Context) {
	h.login(c, models.RoleNGO, "ngo not found")
}

// LoginVolunteer handles POST /api/volunteer/login.
func (h *Handler) LoginVolunteer(c *gin.Context) {
	h.login(c, models.RoleVolunteer, "volunteer not found")
}

func (h *Handler) login(c *gin.Context, role models.Role, notFoundMsg string) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.store.GetByEmailAndRole(c.Request.Context(), req.Email, role)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, notFoundMsg)
			return
		}
		response.Internal(c, "failed to look up user")
		return
	}

	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, LoginResponse{Token: token, Role: user.Role})
}
