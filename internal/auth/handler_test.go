package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/volunteerhub/backend/internal/models"
	"github.com/volunteerhub/backend/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockUserStore implements UserStore backed by an in-memory email map.
type mockUserStore struct {
	users     map[string]*models.User
	createErr error
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[string]*models.User)}
}

func (m *mockUserStore) Create(_ context.Context, u *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.users[u.Email]; ok {
		return ErrEmailTaken
	}
	m.users[u.Email] = u
	return nil
}

func (m *mockUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, ErrNotFound
}

func (m *mockUserStore) GetByEmailAndRole(_ context.Context, email string, role models.Role) (*models.User, error) {
	if u, ok := m.users[email]; ok && u.Role == role {
		return u, nil
	}
	return nil, ErrNotFound
}

func newAuthRouter(store UserStore) *gin.Engine {
	h := NewHandler(store, NewJWTService("test-secret", 1), zap.NewNop())
	r := gin.New()
	r.POST("/api/ngo/register", h.RegisterNGO)
	r.POST("/api/ngo/login", h.LoginNGO)
	r.POST("/api/volunteer/register", h.RegisterVolunteer)
	r.POST("/api/volunteer/login", h.LoginVolunteer)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterNGO(t *testing.T) {
	store := newMockUserStore()
	r := newAuthRouter(store)

	w := doJSON(t, r, http.MethodPost, "/api/ngo/register", gin.H{
		"organization_name": "Green Earth",
		"email":             "green@example.org",
		"password":          "secret123",
		"website":           "https://green.example.org",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	created := store.users["green@example.org"]
	require.NotNil(t, created)
	assert.Equal(t, models.RoleNGO, created.Role)
	assert.Equal(t, "Green Earth", created.Name)
	// credential must be stored hashed
	assert.NotEqual(t, "secret123", created.Password)
	assert.True(t, utils.CheckPassword("secret123", created.Password))
	// the response never carries the hash
	assert.NotContains(t, w.Body.String(), created.Password)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := newMockUserStore()
	r := newAuthRouter(store)

	body := gin.H{"name": "Vol One", "email": "v@example.org", "password": "secret123"}
	w := doJSON(t, r, http.MethodPost, "/api/volunteer/register", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/volunteer/register", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "email already registered")
}

func TestRegisterValidation(t *testing.T) {
	r := newAuthRouter(newMockUserStore())

	// missing email
	w := doJSON(t, r, http.MethodPost, "/api/volunteer/register", gin.H{"name": "V", "password": "secret123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// short password
	w = doJSON(t, r, http.MethodPost, "/api/volunteer/register", gin.H{"name": "V", "email": "v@example.org", "password": "abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	store := newMockUserStore()
	hash, err := utils.HashPassword("secret123")
	require.NoError(t, err)
	store.users["v@example.org"] = &models.User{Email: "v@example.org", Password: hash, Role: models.RoleVolunteer}
	r := newAuthRouter(store)

	w := doJSON(t, r, http.MethodPost, "/api/volunteer/login", gin.H{"email": "v@example.org", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Data.Token)
	assert.Equal(t, models.RoleVolunteer, body.Data.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	store := newMockUserStore()
	hash, err := utils.HashPassword("secret123")
	require.NoError(t, err)
	store.users["v@example.org"] = &models.User{Email: "v@example.org", Password: hash, Role: models.RoleVolunteer}
	r := newAuthRouter(store)

	w := doJSON(t, r, http.MethodPost, "/api/volunteer/login", gin.H{"email": "v@example.org", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginUnknownUser(t *testing.T) {
	r := newAuthRouter(newMockUserStore())

	w := doJSON(t, r, http.MethodPost, "/api/ngo/login", gin.H{"email": "ghost@example.org", "password": "secret123"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "ngo not found")
}

func TestLoginIsRoleScoped(t *testing.T) {
	store := newMockUserStore()
	hash, err := utils.HashPassword("secret123")
	require.NoError(t, err)
	store.users["v@example.org"] = &models.User{Email: "v@example.org", Password: hash, Role: models.RoleVolunteer}
	r := newAuthRouter(store)

	// volunteer account cannot log in through the NGO endpoint
	w := doJSON(t, r, http.MethodPost, "/api/ngo/login", gin.H{"email": "v@example.org", "password": "secret123"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
