package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kardan-dev/kardan-api/internal/middleware"
	"github.com/kardan-dev/kardan-api/internal/models"
	apperrors "github.com/kardan-dev/kardan-api/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

const captureURL = "/api/v1/leads/capture"

const validBody = `{
	"clientName": "Ana Ruiz",
	"isCompany": true,
	"companyName": "Acme",
	"industry": "E-commerce",
	"serviceType": "Other",
	"otherService": "Inventory sync",
	"email": "ana@acme.io"
}`

type MockLeadService struct {
	mock.Mock
}

func (m *MockLeadService) SubmitLead(ctx context.Context, sub *models.LeadSubmission) (models.LeadRecord, error) {
	args := m.Called(ctx, sub)
	return args.Get(0).(models.LeadRecord), args.Error(1)
}

func newLeadRouter(service *MockLeadService) *gin.Engine {
	router := gin.New()
	router.Use(middleware.BodySizeLimitMiddleware(1024))
	router.POST(captureURL, NewLeadHandler(service).Capture)
	return router
}

func postLead(router *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, captureURL, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:4321"
	router.ServeHTTP(w, req)
	return w
}

func TestLeadHandler_Capture_Created(t *testing.T) {
	service := new(MockLeadService)
	service.On("SubmitLead", mock.Anything, mock.MatchedBy(func(sub *models.LeadSubmission) bool {
		return *sub.ClientName == "Ana Ruiz" && *sub.IsCompany && sub.RemoteIP == "203.0.113.7"
	})).Return(models.LeadRecord{}, nil).Once()

	w := postLead(newLeadRouter(service), validBody)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	service.AssertExpectations(t)
}

func TestLeadHandler_Capture_ValidationFailed(t *testing.T) {
	service := new(MockLeadService)
	verr := &apperrors.ValidationError{Violations: []apperrors.FieldViolation{
		{Field: "companyName", Message: "Company name required"},
		{Field: "otherService", Message: "Describe the other service"},
	}}
	service.On("SubmitLead", mock.Anything, mock.Anything).Return(models.LeadRecord{}, verr).Once()

	w := postLead(newLeadRouter(service), validBody)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{
		"ok": false,
		"error": "Validation failed",
		"errors": [
			{"field": "companyName", "message": "Company name required"},
			{"field": "otherService", "message": "Describe the other service"}
		]
	}`, w.Body.String())
}

func TestLeadHandler_Capture_BadBody(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "malformed json", body: `{"clientName": "Jo",`, field: "body"},
		{name: "not json", body: `clientName=Jo`, field: "body"},
		{name: "empty body", body: ``, field: "body"},
		{name: "array body", body: `[1, 2]`, field: "body"},
		{name: "wrong type for boolean", body: `{"clientName": "Jo", "isCompany": "yes"}`, field: "isCompany"},
		{name: "wrong type for string", body: `{"clientName": 42}`, field: "clientName"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockLeadService)

			w := postLead(newLeadRouter(service), tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"ok":false`)
			assert.Contains(t, w.Body.String(), `"error":"Invalid request body"`)
			assert.Contains(t, w.Body.String(), `"field":"`+tt.field+`"`)
			service.AssertNotCalled(t, "SubmitLead", mock.Anything, mock.Anything)
		})
	}
}

func TestLeadHandler_Capture_BodyTooLarge(t *testing.T) {
	service := new(MockLeadService)
	body := `{"message":"` + strings.Repeat("x", 2048) + `"}`

	w := postLead(newLeadRouter(service), body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.JSONEq(t, `{"ok":false,"error":"Request body too large"}`, w.Body.String())
	service.AssertNotCalled(t, "SubmitLead", mock.Anything, mock.Anything)
}

func TestLeadHandler_Capture_ServerErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    string
		message string
	}{
		{
			name:    "sheet write failed",
			err:     apperrors.ExternalService("google_sheets", "appendRows", apperrors.CodeSheetWriteFailed, errors.New("Quota exceeded for quota metric 'Write requests'")),
			code:    "sheet_write_failed",
			message: "Failed to record lead",
		},
		{
			name:    "missing configuration",
			err:     apperrors.MissingConfig("GOOGLE_SHEETS_PRIVATE_KEY"),
			code:    "configuration_error",
			message: "Service is not configured",
		},
		{
			name:    "notification failed",
			err:     apperrors.ExternalService("sendgrid", "send", apperrors.CodeNotificationFailed, errors.New("sendgrid returned status 401")),
			code:    "notification_failed",
			message: "Failed to send notification",
		},
		{
			name:    "unexpected",
			err:     errors.New("boom"),
			code:    "internal_error",
			message: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockLeadService)
			service.On("SubmitLead", mock.Anything, mock.Anything).Return(models.LeadRecord{}, tt.err).Once()

			w := postLead(newLeadRouter(service), validBody)

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.JSONEq(t, `{"ok":false,"error":"`+tt.message+`","code":"`+tt.code+`"}`, w.Body.String())
			assert.NotContains(t, w.Body.String(), tt.err.Error())
		})
	}
}
