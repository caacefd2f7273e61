package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"marketplace-service/middleware"
	"marketplace-service/models"
	"marketplace-service/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// withCaller stands in for AuthMiddleware.
func withCaller(caller services.Caller) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserContextKey, caller.UserID.String())
		c.Set(middleware.RoleContextKey, caller.Role)
		c.Set(middleware.EmailContextKey, caller.Email)
		c.Set(middleware.NameContextKey, caller.Name)
		c.Next()
	}
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

var consumerCaller = services.Caller{UserID: uuid.New(), Email: "ada@example.com", Name: "Ada", Role: models.RoleConsumer}
var adminCaller = services.Caller{UserID: uuid.New(), Email: "root@example.com", Name: "Root", Role: models.RoleAdmin}

type mockCheckoutService struct {
	mock.Mock
}

func (m *mockCheckoutService) CreateCheckoutSession(ctx context.Context, caller services.Caller, req *models.CheckoutRequest) (*models.CheckoutResponse, *services.ServiceError) {
	args := m.Called(ctx, caller, req)
	resp, _ := args.Get(0).(*models.CheckoutResponse)
	svcErr, _ := args.Get(1).(*services.ServiceError)
	return resp, svcErr
}

func (m *mockCheckoutService) JoinGroupOrder(ctx context.Context, caller services.Caller, req *models.GroupCheckoutRequest) (*models.CheckoutResponse, *services.ServiceError) {
	args := m.Called(ctx, caller, req)
	resp, _ := args.Get(0).(*models.CheckoutResponse)
	svcErr, _ := args.Get(1).(*services.ServiceError)
	return resp, svcErr
}

type mockApplicationService struct {
	mock.Mock
}

func (m *mockApplicationService) Submit(ctx context.Context, caller services.Caller, req *models.CreateApplicationRequest) (*models.Application, *services.ServiceError) {
	args := m.Called(ctx, caller, req)
	app, _ := args.Get(0).(*models.Application)
	svcErr, _ := args.Get(1).(*services.ServiceError)
	return app, svcErr
}

func (m *mockApplicationService) GetMine(ctx context.Context, caller services.Caller) (*models.Application, *services.ServiceError) {
	args := m.Called(ctx, caller)
	app, _ := args.Get(0).(*models.Application)
	svcErr, _ := args.Get(1).(*services.ServiceError)
	return app, svcErr
}

func (m *mockApplicationService) List(ctx context.Context, status string, page, limit int) ([]models.Application, int64, *services.ServiceError) {
	args := m.Called(ctx, status, page, limit)
	apps, _ := args.Get(0).([]models.Application)
	svcErr, _ := args.Get(2).(*services.ServiceError)
	return apps, args.Get(1).(int64), svcErr
}

func (m *mockApplicationService) Get(ctx context.Context, id uuid.UUID) (*models.Application, *services.ServiceError) {
	args := m.Called(ctx, id)
	app, _ := args.Get(0).(*models.Application)
	svcErr, _ := args.Get(1).(*services.ServiceError)
	return app, svcErr
}

func (m *mockApplicationService) Review(ctx context.Context, admin services.Caller, id uuid.UUID, req *models.ReviewApplicationRequest) (*models.Application, *services.ServiceError) {
	args := m.Called(ctx, admin, id, req)
	app, _ := args.Get(0).(*models.Application)
	svcErr, _ := args.Get(1).(*services.ServiceError)
	return app, svcErr
}

type mockFulfillmentService struct {
	mock.Mock
}

func (m *mockFulfillmentService) ConfirmSession(ctx context.Context, sess services.CompletedSession) (*services.FulfillmentResult, *services.ServiceError) {
	args := m.Called(ctx, sess)
	result, _ := args.Get(0).(*services.FulfillmentResult)
	svcErr, _ := args.Get(1).(*services.ServiceError)
	return result, svcErr
}
