package controllers_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"marketplace-service/controllers"
	"marketplace-service/models"
	"marketplace-service/services"
)

func applicationRouter(svc services.ApplicationService) *gin.Engine {
	r := gin.New()
	ac := controllers.NewApplicationController(svc)
	admin := r.Group("/admin", withCaller(adminCaller))
	admin.GET("/applications", ac.List)
	admin.PATCH("/applications/:id/review", ac.Review)
	return r
}

func TestReview_RejectionWithoutNotes(t *testing.T) {
	svc := new(mockApplicationService)
	id := uuid.New()
	svc.On("Review", mock.Anything, adminCaller, id, &models.ReviewApplicationRequest{Status: "rejected"}).
		Return(nil, &services.ServiceError{StatusCode: http.StatusBadRequest, Message: "Admin notes required when rejecting an application"})

	w := doJSON(applicationRouter(svc), http.MethodPatch, "/admin/applications/"+id.String()+"/review", gin.H{"status": "rejected"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]interface{}{"error": "Admin notes required when rejecting an application"}, decodeBody(w))
	svc.AssertExpectations(t)
}

func TestReview_Approved(t *testing.T) {
	svc := new(mockApplicationService)
	id := uuid.New()
	svc.On("Review", mock.Anything, adminCaller, id, mock.Anything).
		Return(&models.Application{ID: id, Status: models.ApplicationApproved}, nil)

	w := doJSON(applicationRouter(svc), http.MethodPatch, "/admin/applications/"+id.String()+"/review", gin.H{"status": "approved"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Application approved", decodeBody(w)["message"])
}

func TestReview_InvalidStatusAndID(t *testing.T) {
	svc := new(mockApplicationService)

	w := doJSON(applicationRouter(svc), http.MethodPatch, "/admin/applications/"+uuid.NewString()+"/review", gin.H{"status": "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(applicationRouter(svc), http.MethodPatch, "/admin/applications/not-a-uuid/review", gin.H{"status": "approved"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.AssertNotCalled(t, "Review", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListApplications_Paginated(t *testing.T) {
	svc := new(mockApplicationService)
	svc.On("List", mock.Anything, "pending", 2, 5).
		Return([]models.Application{{ID: uuid.New()}}, int64(6), nil)

	w := doJSON(applicationRouter(svc), http.MethodGet, "/admin/applications?status=pending&page=2&limit=5", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	meta := decodeBody(w)["meta"].(map[string]interface{})
	assert.Equal(t, float64(6), meta["total"])
	assert.Equal(t, float64(2), meta["total_pages"])
	assert.Equal(t, false, meta["has_more"])
}
