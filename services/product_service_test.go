package services_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"marketplace-service/models"
	"marketplace-service/services"
)

type mockObjectStore struct {
	mock.Mock
}

func (m *mockObjectStore) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	args := m.Called(ctx, key, contentType, body)
	return args.String(0), args.Error(1)
}

func (m *mockObjectStore) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, map[string]string, error) {
	args := m.Called(ctx, key, contentType, expiry)
	return args.String(0), args.Get(1).(map[string]string), args.Error(2)
}

func (m *mockObjectStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockObjectStore) URLFor(key string) string {
	return "https://cdn.example.com/" + key
}

type productFixture struct {
	db       *gorm.DB
	store    *mockObjectStore
	svc      services.ProductService
	owner    services.Caller
	stranger services.Caller
}

func newProductFixture(t *testing.T, withStore bool) *productFixture {
	t.Helper()
	db := newTestDB(t)
	repos, _ := newRepos(db)
	store := &mockObjectStore{}
	var svc services.ProductService
	if withStore {
		svc = services.NewProductService(repos.Products, store, 0, testLogger)
	} else {
		svc = services.NewProductService(repos.Products, nil, 0, testLogger)
	}
	return &productFixture{
		db:       db,
		store:    store,
		svc:      svc,
		owner:    providerCaller(seedUser(t, db, models.RoleProvider)),
		stranger: providerCaller(seedUser(t, db, models.RoleProvider)),
	}
}

func (f *productFixture) create(t *testing.T) *models.Product {
	t.Helper()
	p, svcErr := f.svc.Create(context.Background(), f.owner, &models.CreateProductRequest{
		Name: " Wildflower honey ", Category: " Pantry ", Price: mustDecimal("12.50"), QuantityAvailable: 10,
	})
	require.Nil(t, svcErr)
	return p
}

func TestProductCreate_Normalizes(t *testing.T) {
	f := newProductFixture(t, false)
	p := f.create(t)

	assert.Equal(t, "Wildflower honey", p.Name)
	assert.Equal(t, "pantry", p.Category)
	assert.Equal(t, f.owner.UserID, p.ProducerID)
	assert.True(t, p.IsAvailable)
}

func TestProductCreate_RejectsBadPrices(t *testing.T) {
	f := newProductFixture(t, false)

	for _, price := range []string{"0", "-1.00", "1.999"} {
		_, svcErr := f.svc.Create(context.Background(), f.owner, &models.CreateProductRequest{
			Name: "Honey", Category: "pantry", Price: mustDecimal(price),
		})
		require.NotNil(t, svcErr, price)
		assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	}
}

func TestProductUpdateAndDelete_Ownership(t *testing.T) {
	f := newProductFixture(t, false)
	p := f.create(t)
	name := "Clover honey"

	_, svcErr := f.svc.Update(context.Background(), f.stranger, p.ID, &models.UpdateProductRequest{Name: &name})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusForbidden, svcErr.StatusCode)
	assert.Equal(t, "You do not own this product", svcErr.Message)

	svcErr = f.svc.Delete(context.Background(), f.stranger, p.ID)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusForbidden, svcErr.StatusCode)

	updated, svcErr := f.svc.Update(context.Background(), f.owner, p.ID, &models.UpdateProductRequest{Name: &name})
	require.Nil(t, svcErr)
	assert.Equal(t, "Clover honey", updated.Name)

	admin := services.Caller{UserID: uuid.New(), Role: models.RoleAdmin}
	require.Nil(t, f.svc.Delete(context.Background(), admin, p.ID))
	_, svcErr = f.svc.Get(context.Background(), p.ID)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)
}

func TestProductImages_StorageDisabled(t *testing.T) {
	f := newProductFixture(t, false)
	p := f.create(t)

	_, svcErr := f.svc.UploadImage(context.Background(), f.owner, p.ID, "a.png", "image/png", strings.NewReader("png"))
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusServiceUnavailable, svcErr.StatusCode)
}

func TestProductImages_UploadAndDelete(t *testing.T) {
	f := newProductFixture(t, true)
	p := f.create(t)
	prefix := "products/" + p.ID.String() + "/"

	f.store.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, prefix) && strings.HasSuffix(key, ".png")
	}), "image/png", mock.Anything).Return("https://cdn.example.com/img.png", nil).Once()

	image, svcErr := f.svc.UploadImage(context.Background(), f.owner, p.ID, "photo.PNG", "image/png", strings.NewReader("png"))
	require.Nil(t, svcErr)
	assert.Equal(t, "https://cdn.example.com/img.png", image.URL)

	_, svcErr = f.svc.UploadImage(context.Background(), f.owner, p.ID, "doc.pdf", "application/pdf", strings.NewReader("pdf"))
	require.NotNil(t, svcErr)
	assert.Equal(t, "Unsupported image type", svcErr.Message)

	f.store.On("Delete", mock.Anything, image.ObjectKey).Return(errors.New("s3 down")).Once()
	require.Nil(t, f.svc.DeleteImage(context.Background(), f.owner, p.ID, image.ID))
	f.store.AssertExpectations(t)

	svcErr = f.svc.DeleteImage(context.Background(), f.owner, p.ID, image.ID)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)
}

func TestProductImages_PresignAndAttach(t *testing.T) {
	f := newProductFixture(t, true)
	p := f.create(t)

	f.store.On("PresignPut", mock.Anything, mock.Anything, "image/webp", 15*time.Minute).
		Return("https://bucket.s3.example.com/signed", map[string]string{"Content-Type": "image/webp"}, nil).Once()

	upload, svcErr := f.svc.PresignImage(context.Background(), f.owner, p.ID, "image/webp")
	require.Nil(t, svcErr)
	assert.True(t, strings.HasSuffix(upload.ObjectKey, ".webp"))

	image, svcErr := f.svc.AttachImage(context.Background(), f.owner, p.ID, upload.ObjectKey)
	require.Nil(t, svcErr)
	assert.Equal(t, "https://cdn.example.com/"+upload.ObjectKey, image.URL)

	_, svcErr = f.svc.AttachImage(context.Background(), f.owner, p.ID, "products/"+uuid.NewString()+"/x.png")
	require.NotNil(t, svcErr)
	assert.Equal(t, "Object key does not belong to this product", svcErr.Message)
}
