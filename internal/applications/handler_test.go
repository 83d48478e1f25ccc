package applications

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/volunteerhub/backend/internal/middleware"
	"github.com/volunteerhub/backend/internal/models"
	"github.com/volunteerhub/backend/internal/opportunities"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type pair struct {
	opportunityID uuid.UUID
	volunteerID   uuid.UUID
}

// mockStore implements Store in memory, keyed on the (opportunity, volunteer) pair.
type mockStore struct {
	byID   map[uuid.UUID]*models.Application
	byPair map[pair]uuid.UUID
	owners map[uuid.UUID]uuid.UUID // opportunity -> owning NGO
}

func newMockStore() *mockStore {
	return &mockStore{
		byID:   make(map[uuid.UUID]*models.Application),
		byPair: make(map[pair]uuid.UUID),
		owners: make(map[uuid.UUID]uuid.UUID),
	}
}

func (m *mockStore) Create(_ context.Context, a *models.Application) error {
	p := pair{a.OpportunityID, a.VolunteerID}
	if _, ok := m.byPair[p]; ok {
		return ErrDuplicate
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.byID[a.ID] = a
	m.byPair[p] = a.ID
	return nil
}

func (m *mockStore) Exists(_ context.Context, opportunityID, volunteerID uuid.UUID) (bool, error) {
	_, ok := m.byPair[pair{opportunityID, volunteerID}]
	return ok, nil
}

func (m *mockStore) GetWithOwner(_ context.Context, id uuid.UUID) (*models.Application, uuid.UUID, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, uuid.Nil, ErrNotFound
	}
	cp := *a
	return &cp, m.owners[a.OpportunityID], nil
}

func (m *mockStore) UpdateStatus(_ context.Context, id uuid.UUID, status models.ApplicationStatus) error {
	a, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	return nil
}

func (m *mockStore) DeleteByPair(_ context.Context, opportunityID, volunteerID uuid.UUID) error {
	p := pair{opportunityID, volunteerID}
	id, ok := m.byPair[p]
	if !ok {
		return ErrNotFound
	}
	delete(m.byPair, p)
	delete(m.byID, id)
	return nil
}

func (m *mockStore) ListByVolunteer(_ context.Context, volunteerID uuid.UUID) ([]models.ApplicationWithOpportunity, error) {
	var out []models.ApplicationWithOpportunity
	for _, a := range m.byID {
		if a.VolunteerID == volunteerID {
			out = append(out, models.ApplicationWithOpportunity{Application: *a})
		}
	}
	return out, nil
}

func (m *mockStore) ListByOpportunity(_ context.Context, opportunityID uuid.UUID) ([]models.ApplicationWithVolunteer, error) {
	var out []models.ApplicationWithVolunteer
	for _, a := range m.byID {
		if a.OpportunityID == opportunityID {
			out = append(out, models.ApplicationWithVolunteer{Application: *a})
		}
	}
	return out, nil
}

// mockOppStore implements OpportunityStore.
type mockOppStore struct {
	byID map[uuid.UUID]*models.Opportunity
}

func (m *mockOppStore) GetByID(_ context.Context, id uuid.UUID) (*models.Opportunity, error) {
	if o, ok := m.byID[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, opportunities.ErrNotFound
}

type fixture struct {
	store   *mockStore
	opps    *mockOppStore
	handler *Handler
	ngoID   uuid.UUID
	oppID   uuid.UUID
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	store := newMockStore()
	ngoID := uuid.New()
	opp := &models.Opportunity{
		ID:            uuid.New(),
		Title:         "beach cleanup",
		Status:        models.OpportunityOpen,
		ApplyDeadline: now.Add(24 * time.Hour),
		NGOID:         ngoID,
	}
	oppStore := &mockOppStore{byID: map[uuid.UUID]*models.Opportunity{opp.ID: opp}}
	store.owners[opp.ID] = ngoID

	h := NewHandler(store, oppStore, zap.NewNop())
	h.now = func() time.Time { return now }
	return &fixture{store: store, opps: oppStore, handler: h, ngoID: ngoID, oppID: opp.ID}
}

func (f *fixture) router(userID uuid.UUID) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(middleware.ContextUserID, userID) })
	r.POST("/api/applications", f.handler.Apply)
	r.GET("/api/applications/my", f.handler.MyApplications)
	r.GET("/api/applications/opportunity/:opportunityId", f.handler.GetApplicants)
	r.PUT("/api/applications/:id", f.handler.UpdateStatus)
	r.DELETE("/api/applications/undo/:opportunityId", f.handler.Withdraw)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestApply(t *testing.T) {
	now := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	volunteerID := uuid.New()
	r := f.router(volunteerID)

	w := doJSON(t, r, http.MethodPost, "/api/applications", gin.H{
		"opportunity_id": f.oppID.String(),
		"message":        "I want to help",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	require.Len(t, f.store.byID, 1)
	for _, a := range f.store.byID {
		assert.Equal(t, models.ApplicationPending, a.Status)
		assert.Equal(t, volunteerID, a.VolunteerID)
		assert.Equal(t, "I want to help", a.Message)
	}
}

func TestApplyRequiresMessage(t *testing.T) {
	f := newFixture(t, time.Now())
	r := f.router(uuid.New())

	w := doJSON(t, r, http.MethodPost, "/api/applications", gin.H{"opportunity_id": f.oppID.String()})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.store.byID)
}

func TestApplyUnknownOpportunity(t *testing.T) {
	f := newFixture(t, time.Now())
	r := f.router(uuid.New())

	w := doJSON(t, r, http.MethodPost, "/api/applications", gin.H{
		"opportunity_id": uuid.NewString(),
		"message":        "hello",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApplyClosedOpportunity(t *testing.T) {
	f := newFixture(t, time.Now())
	f.opps.byID[f.oppID].Status = models.OpportunityClosed
	r := f.router(uuid.New())

	w := doJSON(t, r, http.MethodPost, "/api/applications", gin.H{
		"opportunity_id": f.oppID.String(),
		"message":        "hello",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "closed")
}

func TestApplyAfterDeadline(t *testing.T) {
	now := time.Date(2025, 5, 25, 0, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	f.opps.byID[f.oppID].ApplyDeadline = time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
	r := f.router(uuid.New())

	w := doJSON(t, r, http.MethodPost, "/api/applications", gin.H{
		"opportunity_id": f.oppID.String(),
		"message":        "too late",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "deadline")
	assert.Empty(t, f.store.byID)
}

func TestApplyDuplicateAndReapplyAfterWithdraw(t *testing.T) {
	f := newFixture(t, time.Now())
	volunteerID := uuid.New()
	r := f.router(volunteerID)
	body := gin.H{"opportunity_id": f.oppID.String(), "message": "count me in"}

	w := doJSON(t, r, http.MethodPost, "/api/applications", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/applications", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already applied")

	w = doJSON(t, r, http.MethodDelete, "/api/applications/undo/"+f.oppID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	// the pair is free again
	w = doJSON(t, r, http.MethodPost, "/api/applications", body)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestWithdrawNotFound(t *testing.T) {
	f := newFixture(t, time.Now())
	r := f.router(uuid.New())

	w := doJSON(t, r, http.MethodDelete, "/api/applications/undo/"+f.oppID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func applyAs(t *testing.T, f *fixture, volunteerID uuid.UUID) uuid.UUID {
	t.Helper()
	a := &models.Application{
		OpportunityID: f.oppID,
		VolunteerID:   volunteerID,
		Message:       "hi",
		Status:        models.ApplicationPending,
	}
	require.NoError(t, f.store.Create(context.Background(), a))
	return a.ID
}

func TestUpdateStatusAccept(t *testing.T) {
	f := newFixture(t, time.Now())
	appID := applyAs(t, f, uuid.New())
	r := f.router(f.ngoID)

	w := doJSON(t, r, http.MethodPut, "/api/applications/"+appID.String(), gin.H{"status": "accepted"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ApplicationAccepted, f.store.byID[appID].Status)
}

func TestUpdateStatusRejectsBadValue(t *testing.T) {
	f := newFixture(t, time.Now())
	appID := applyAs(t, f, uuid.New())
	r := f.router(f.ngoID)

	for _, status := range []string{"withdrawn", "pending", "maybe"} {
		w := doJSON(t, r, http.MethodPut, "/api/applications/"+appID.String(), gin.H{"status": status})
		assert.Equal(t, http.StatusBadRequest, w.Code, "status %q must be rejected", status)
	}
	assert.Equal(t, models.ApplicationPending, f.store.byID[appID].Status)
}

func TestUpdateStatusForbiddenForNonOwner(t *testing.T) {
	f := newFixture(t, time.Now())
	appID := applyAs(t, f, uuid.New())
	r := f.router(uuid.New()) // some other NGO

	w := doJSON(t, r, http.MethodPut, "/api/applications/"+appID.String(), gin.H{"status": "accepted"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, models.ApplicationPending, f.store.byID[appID].Status)
}

func TestUpdateStatusTerminal(t *testing.T) {
	f := newFixture(t, time.Now())
	appID := applyAs(t, f, uuid.New())
	r := f.router(f.ngoID)

	w := doJSON(t, r, http.MethodPut, "/api/applications/"+appID.String(), gin.H{"status": "accepted"})
	require.Equal(t, http.StatusOK, w.Code)

	// accepted is terminal; flipping to rejected is refused
	w = doJSON(t, r, http.MethodPut, "/api/applications/"+appID.String(), gin.H{"status": "rejected"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.ApplicationAccepted, f.store.byID[appID].Status)
}

func TestUpdateStatusNotFound(t *testing.T) {
	f := newFixture(t, time.Now())
	r := f.router(f.ngoID)

	w := doJSON(t, r, http.MethodPut, "/api/applications/"+uuid.NewString(), gin.H{"status": "accepted"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetApplicantsRequiresOwnership(t *testing.T) {
	f := newFixture(t, time.Now())
	applyAs(t, f, uuid.New())

	w := doJSON(t, f.router(uuid.New()), http.MethodGet, "/api/applications/opportunity/"+f.oppID.String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, f.router(f.ngoID), http.MethodGet, "/api/applications/opportunity/"+f.oppID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMyApplications(t *testing.T) {
	f := newFixture(t, time.Now())
	volunteerID := uuid.New()
	applyAs(t, f, volunteerID)
	applyAs(t, f, uuid.New()) // someone else's

	w := doJSON(t, f.router(volunteerID), http.MethodGet, "/api/applications/my", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []models.ApplicationWithOpportunity `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, volunteerID, body.Data[0].VolunteerID)
}
