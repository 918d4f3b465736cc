package products

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/armysmp/storefront/pkg/common"
	"github.com/armysmp/storefront/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) ListProducts(ctx context.Context, filter ProductFilter, limit, offset int) ([]*Product, int64, error) {
	args := m.Called(ctx, filter, limit, offset)
	p, _ := args.Get(0).([]*Product)
	return p, args.Get(1).(int64), args.Error(2)
}

func (m *mockCatalog) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*Product)
	return p, args.Error(1)
}

func (m *mockCatalog) UploadImage(ctx context.Context, id uuid.UUID, upload ImageUpload, body io.Reader) (*Product, error) {
	args := m.Called(ctx, id, upload, body)
	p, _ := args.Get(0).(*Product)
	return p, args.Error(1)
}

func setupTestContext(method, path string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, nil)
	return c, w
}

func parseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &response)
	return response
}

func multipartImage(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func TestHandler_ListProducts(t *testing.T) {
	svc := new(mockCatalog)
	h := NewHandler(svc)

	svc.On("ListProducts", mock.Anything, ProductFilter{Category: "ranks"}, 20, 0).
		Return([]*Product{{ID: uuid.New(), Name: "VIP"}}, int64(1), nil).Once()

	c, w := setupTestContext(http.MethodGet, "/api/v1/products?category=ranks")
	h.ListProducts(c)

	require.Equal(t, http.StatusOK, w.Code)
	resp := parseResponse(w)
	assert.Len(t, resp["data"], 1)
	assert.Equal(t, float64(1), resp["meta"].(map[string]interface{})["total"])
}

func TestHandler_GetProduct(t *testing.T) {
	tests := []struct {
		name         string
		param        string
		setupMock    func(svc *mockCatalog, id uuid.UUID)
		expectedCode int
	}{
		{
			name:         "invalid id",
			param:        "nope",
			setupMock:    func(svc *mockCatalog, id uuid.UUID) {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "not found",
			setupMock: func(svc *mockCatalog, id uuid.UUID) {
				svc.On("GetProduct", mock.Anything, id).Return(nil, common.NewNotFoundError("product not found", nil)).Once()
			},
			expectedCode: http.StatusNotFound,
		},
		{
			name: "found",
			setupMock: func(svc *mockCatalog, id uuid.UUID) {
				svc.On("GetProduct", mock.Anything, id).Return(&Product{ID: id, Active: true}, nil).Once()
			},
			expectedCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockCatalog)
			h := NewHandler(svc)
			id := uuid.New()
			param := tt.param
			if param == "" {
				param = id.String()
			}
			tt.setupMock(svc, id)

			c, w := setupTestContext(http.MethodGet, "/api/v1/products/"+param)
			c.Params = gin.Params{{Key: "id", Value: param}}
			h.GetProduct(c)

			assert.Equal(t, tt.expectedCode, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_UploadImage(t *testing.T) {
	svc := new(mockCatalog)
	h := NewHandler(svc)
	id := uuid.New()

	svc.On("UploadImage", mock.Anything, id, ImageUpload{Filename: "vip.png", ContentType: "image/png", Size: 4}, mock.Anything).
		Return(&Product{ID: id, ImageURL: "https://cdn.test/products/vip.png"}, nil).Once()

	body, contentType := multipartImage(t, "vip.png", "image/png", []byte("\x89PNG"))
	c, w := setupTestContext(http.MethodPost, "/api/v1/admin/products/"+id.String()+"/image")
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/admin/products/"+id.String()+"/image", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	h.UploadImage(c)

	require.Equal(t, http.StatusOK, w.Code)
	data := parseResponse(w)["data"].(map[string]interface{})
	assert.Equal(t, "https://cdn.test/products/vip.png", data["image_url"])
	svc.AssertExpectations(t)
}

func TestHandler_UploadImage_MissingFile(t *testing.T) {
	svc := new(mockCatalog)
	h := NewHandler(svc)
	id := uuid.New()

	c, w := setupTestContext(http.MethodPost, "/api/v1/admin/products/"+id.String()+"/image")
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	h.UploadImage(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "UploadImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRoutes_UploadRequiresAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(new(mockCatalog)).RegisterRoutes(r, testSecret)

	token, err := middleware.GenerateToken(testSecret, uuid.New(), "steve@example.com", "Steve", middleware.RoleCustomer, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products/"+uuid.NewString()+"/image", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
