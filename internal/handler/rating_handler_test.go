package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-engage-api/internal/middleware"
	"github.com/noah-isme/sma-engage-api/internal/models"
)

func newTestContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestRatingHandlerRecomputeInvalidBody(t *testing.T) {
	handler := NewRatingHandler(nil)
	c, w := newTestContext(t, http.MethodPost, "/ratings/recompute", []byte(`{"student_id":""}`))

	handler.Recompute(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRatingHandlerSnapshotInvalidBody(t *testing.T) {
	handler := NewRatingHandler(nil)
	c, w := newTestContext(t, http.MethodPost, "/groups/g1/snapshots", []byte(`not json`))
	c.Params = gin.Params{{Key: "groupId", Value: "g1"}}

	handler.Snapshot(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRewardHandlerClaimRequiresClaims(t *testing.T) {
	handler := NewRewardHandler(nil)
	c, w := newTestContext(t, http.MethodPost, "/rewards/r1/claim", nil)
	c.Params = gin.Params{{Key: "id", Value: "r1"}}

	handler.Claim(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRewardHandlerClaimStatusRejectsUnknown(t *testing.T) {
	handler := NewRewardHandler(nil)
	c, w := newTestContext(t, http.MethodPatch, "/rewards/r1/claims/status", []byte(`{"user_id":"u1","status":"SHIPPED"}`))
	c.Params = gin.Params{{Key: "id", Value: "r1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.UpdateClaimStatus(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCompetitionHandlerStatusRejectsUnknown(t *testing.T) {
	handler := NewCompetitionHandler(nil)
	c, w := newTestContext(t, http.MethodPatch, "/competitions/c1/status", []byte(`{"status":"PAUSED"}`))
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	handler.UpdateStatus(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMessageHandlerSendRequiresClaims(t *testing.T) {
	handler := NewMessageHandler(nil)
	c, w := newTestContext(t, http.MethodPost, "/messages", []byte(`{"recipient_id":"u2","body":"hi"}`))

	handler.Send(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
