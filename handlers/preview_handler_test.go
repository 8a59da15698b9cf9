package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vincentrandon/freelance-project-saas/errors"
	"github.com/vincentrandon/freelance-project-saas/middleware"
	"github.com/vincentrandon/freelance-project-saas/types"
)

const (
	testOwnerID   = "owner-1"
	testPreviewID = "preview-1"
)

var testVersion = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// buildRouter wraps a handler in a Gin router with the error handler
// middleware, matching the production setup so c.Error() calls produce the
// correct HTTP status.
func buildRouter(path, method string, handler gin.HandlerFunc, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set(string(middleware.UserIDKey), userID)
		}
		c.Next()
	})
	switch method {
	case http.MethodGet:
		r.GET(path, handler)
	case http.MethodPost:
		r.POST(path, handler)
	case http.MethodPatch:
		r.PATCH(path, handler)
	}
	return r
}

func samplePreview() *types.Preview {
	return &types.Preview{
		ID:         testPreviewID,
		DocumentID: "doc-1",
		OwnerID:    testOwnerID,
		Status:     types.PreviewStatusPendingReview,
		CustomerData: types.CustomerFields{
			Name: types.ExtractedField{Value: "Acme Corp", Confidence: 95},
		},
		CustomerAction: types.EntityActionCreateNew,
		ProjectAction:  types.EntityActionCreateNew,
		Warnings:       []string{},
		Conflicts:      []string{},
		UpdatedAt:      testVersion,
	}
}

func ifMatch(t time.Time) string {
	return `"` + t.UTC().Format(time.RFC3339Nano) + `"`
}

func TestGetByDocument(t *testing.T) {
	svc := new(MockPreviewService)
	h := NewPreviewHandler(svc)
	preview := samplePreview()

	svc.On("GetPreviewByDocument", mock.Anything, "doc-1", testOwnerID).Return(preview, nil)

	r := buildRouter("/v1/documents/:id/preview", http.MethodGet, h.GetByDocument, testOwnerID)
	req := httptest.NewRequest(http.MethodGet, "/v1/documents/doc-1/preview", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ifMatch(testVersion), w.Header().Get("ETag"))

	var got types.Preview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, testPreviewID, got.ID)
	svc.AssertExpectations(t)
}

func TestGetByDocument_NotFound(t *testing.T) {
	svc := new(MockPreviewService)
	h := NewPreviewHandler(svc)

	svc.On("GetPreviewByDocument", mock.Anything, "doc-404", testOwnerID).
		Return(nil, apperrors.NotFound("Preview", "doc-404"))

	r := buildRouter("/v1/documents/:id/preview", http.MethodGet, h.GetByDocument, testOwnerID)
	req := httptest.NewRequest(http.MethodGet, "/v1/documents/doc-404/preview", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdate(t *testing.T) {
	svc := new(MockPreviewService)
	h := NewPreviewHandler(svc)

	updated := samplePreview()
	updated.HadEdits = true
	updated.UpdatedAt = testVersion.Add(time.Second)

	name := "Acme Corporation"
	svc.On("UpdatePreviewData", mock.Anything, testPreviewID, testOwnerID,
		mock.MatchedBy(func(u *types.PreviewUpdate) bool {
			return u.CustomerData != nil && u.CustomerData.Name != nil && *u.CustomerData.Name == name
		}), testVersion).Return(updated, nil)

	body, _ := json.Marshal(types.PreviewUpdate{
		CustomerData: &types.CustomerFieldsUpdate{Name: &name},
	})

	r := buildRouter("/v1/previews/:id", http.MethodPatch, h.Update, testOwnerID)
	req := httptest.NewRequest(http.MethodPatch, "/v1/previews/"+testPreviewID, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("If-Match", ifMatch(testVersion))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ifMatch(updated.UpdatedAt), w.Header().Get("ETag"))
	svc.AssertExpectations(t)
}

func TestUpdate_MissingIfMatch(t *testing.T) {
	svc := new(MockPreviewService)
	h := NewPreviewHandler(svc)

	r := buildRouter("/v1/previews/:id", http.MethodPatch, h.Update, testOwnerID)
	req := httptest.NewRequest(http.MethodPatch, "/v1/previews/"+testPreviewID, bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "If-Match")
	svc.AssertNotCalled(t, "UpdatePreviewData", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_StaleVersion(t *testing.T) {
	svc := new(MockPreviewService)
	h := NewPreviewHandler(svc)

	svc.On("UpdatePreviewData", mock.Anything, testPreviewID, testOwnerID, mock.Anything, testVersion).
		Return(nil, apperrors.StalePreview(testPreviewID))

	r := buildRouter("/v1/previews/:id", http.MethodPatch, h.Update, testOwnerID)
	req := httptest.NewRequest(http.MethodPatch, "/v1/previews/"+testPreviewID, bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("If-Match", ifMatch(testVersion))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestApprove(t *testing.T) {
	svc := new(MockPreviewService)
	h := NewPreviewHandler(svc)

	result := &types.ApprovalResult{
		CustomerID: "c-1",
		ProjectID:  "pr-1",
		TaskIDs:    []string{"t-1"},
		InvoiceID:  "inv-1",
	}
	rating := "good"
	svc.On("Approve", mock.Anything, testPreviewID, testOwnerID, testVersion,
		mock.MatchedBy(func(r *string) bool { return r != nil && *r == rating })).
		Return(result, nil)

	r := buildRouter("/v1/previews/:id/approve", http.MethodPost, h.Approve, testOwnerID)
	req := httptest.NewRequest(http.MethodPost, "/v1/previews/"+testPreviewID+"/approve",
		bytes.NewReader([]byte(`{"rating":"good"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("If-Match", ifMatch(testVersion))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var got types.ApprovalResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "inv-1", got.InvoiceID)
	svc.AssertExpectations(t)
}

func TestApprove_NoBody(t *testing.T) {
	svc := new(MockPreviewService)
	h := NewPreviewHandler(svc)

	svc.On("Approve", mock.Anything, testPreviewID, testOwnerID, testVersion, (*string)(nil)).
		Return(&types.ApprovalResult{CustomerID: "c-1"}, nil)

	r := buildRouter("/v1/previews/:id/approve", http.MethodPost, h.Approve, testOwnerID)
	req := httptest.NewRequest(http.MethodPost, "/v1/previews/"+testPreviewID+"/approve", nil)
	req.Header.Set("If-Match", ifMatch(testVersion))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestApprove_Conflicts(t *testing.T) {
	svc := new(MockPreviewService)
	h := NewPreviewHandler(svc)

	svc.On("Approve", mock.Anything, testPreviewID, testOwnerID, testVersion, (*string)(nil)).
		Return(nil, apperrors.ValidationConflict("Preview has unresolved conflicts", "Currency is missing."))

	r := buildRouter("/v1/previews/:id/approve", http.MethodPost, h.Approve, testOwnerID)
	req := httptest.NewRequest(http.MethodPost, "/v1/previews/"+testPreviewID+"/approve", nil)
	req.Header.Set("If-Match", ifMatch(testVersion))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Currency is missing.")
}

func TestReject(t *testing.T) {
	svc := new(MockPreviewService)
	h := NewPreviewHandler(svc)

	rejected := samplePreview()
	rejected.Status = types.PreviewStatusRejected
	svc.On("Reject", mock.Anything, testPreviewID, testOwnerID, testVersion, (*string)(nil)).
		Return(rejected, nil)

	r := buildRouter("/v1/previews/:id/reject", http.MethodPost, h.Reject, testOwnerID)
	req := httptest.NewRequest(http.MethodPost, "/v1/previews/"+testPreviewID+"/reject", nil)
	req.Header.Set("If-Match", ifMatch(testVersion))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var got types.Preview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, types.PreviewStatusRejected, got.Status)
	svc.AssertExpectations(t)
}

func TestRefineTasks(t *testing.T) {
	svc := new(MockPreviewService)
	h := NewPreviewHandler(svc)

	refined := samplePreview()
	refined.UpdatedAt = testVersion.Add(time.Second)

	svc.On("BulkRefineTasks", mock.Anything, testPreviewID, testOwnerID,
		mock.MatchedBy(func(patches []types.TaskPatch) bool {
			return len(patches) == 1 && patches[0].Index == 0 && patches[0].ApplySuggestion
		}), testVersion).Return(refined, nil)

	r := buildRouter("/v1/previews/:id/clarifications/refine", http.MethodPost, h.RefineTasks, testOwnerID)
	req := httptest.NewRequest(http.MethodPost, "/v1/previews/"+testPreviewID+"/clarifications/refine",
		bytes.NewReader([]byte(`{"tasks":[{"index":0,"applySuggestion":true}]}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("If-Match", ifMatch(testVersion))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestRefineTasks_EmptyBody(t *testing.T) {
	svc := new(MockPreviewService)
	h := NewPreviewHandler(svc)

	r := buildRouter("/v1/previews/:id/clarifications/refine", http.MethodPost, h.RefineTasks, testOwnerID)
	req := httptest.NewRequest(http.MethodPost, "/v1/previews/"+testPreviewID+"/clarifications/refine",
		bytes.NewReader([]byte(`{"tasks":[]}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("If-Match", ifMatch(testVersion))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "BulkRefineTasks", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSkipClarification(t *testing.T) {
	svc := new(MockPreviewService)
	h := NewPreviewHandler(svc)

	skipped := samplePreview()
	skipped.ClarificationSkipped = true
	svc.On("SkipClarification", mock.Anything, testPreviewID, testOwnerID, testVersion).
		Return(skipped, nil)

	r := buildRouter("/v1/previews/:id/clarifications/skip", http.MethodPost, h.SkipClarification, testOwnerID)
	req := httptest.NewRequest(http.MethodPost, "/v1/previews/"+testPreviewID+"/clarifications/skip", nil)
	req.Header.Set("If-Match", ifMatch(testVersion))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var got types.Preview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.ClarificationSkipped)
	svc.AssertExpectations(t)
}
