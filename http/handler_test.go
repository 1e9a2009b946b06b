package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/filevault"
	fvhttp "github.com/mkravets/filevault/http"
)

// readSeekNopCloser wraps an io.ReadSeeker to add a no-op Close method
type readSeekNopCloser struct {
	io.ReadSeeker
}

func (r readSeekNopCloser) Close() error { return nil }

type MockStorageService struct {
	mock.Mock
}

func (m *MockStorageService) Store(ctx context.Context, ownerID int64, originalName string, content io.Reader) (filevault.FileItem, error) {
	args := m.Called(ctx, ownerID, originalName, content)
	return args.Get(0).(filevault.FileItem), args.Error(1)
}

func (m *MockStorageService) LoadAll(ctx context.Context, ownerID int64) ([]filevault.FileItem, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]filevault.FileItem), args.Error(1)
}

func (m *MockStorageService) Open(ctx context.Context, ownerID, fileID int64) (filevault.FileItem, io.ReadSeekCloser, error) {
	args := m.Called(ctx, ownerID, fileID)
	if args.Get(1) == nil {
		return args.Get(0).(filevault.FileItem), nil, args.Error(2)
	}
	return args.Get(0).(filevault.FileItem), args.Get(1).(io.ReadSeekCloser), args.Error(2)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) VerifyToken(token string) (filevault.Principal, error) {
	args := m.Called(token)
	return args.Get(0).(filevault.Principal), args.Error(1)
}

func (m *MockAuthService) Register(ctx context.Context, username, password string) (filevault.User, error) {
	args := m.Called(ctx, username, password)
	return args.Get(0).(filevault.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, username, password string) (string, error) {
	args := m.Called(ctx, username, password)
	return args.String(0), args.Error(1)
}

func newHandler(t *testing.T) (*fvhttp.Handler, *MockStorageService, *MockAuthService) {
	t.Helper()
	service := new(MockStorageService)
	auth := new(MockAuthService)
	handler := fvhttp.NewHandler(&fvhttp.HandlerConfig{}, service, auth)
	return handler, service, auth
}

// authorize makes the auth mock accept "valid-token" as the given user.
func authorize(auth *MockAuthService, userID int64) {
	auth.On("VerifyToken", "valid-token").Return(filevault.Principal{UserID: userID}, nil)
}

func TestHandler_List_Success(t *testing.T) {
	handler, service, auth := newHandler(t)
	authorize(auth, 7)

	service.On("LoadAll", mock.Anything, int64(7)).Return([]filevault.FileItem{
		{ID: 1, Name: "a.txt", OwnerID: 7},
		{ID: 2, Name: "b.pdf", OwnerID: 7},
	}, nil)

	req := httptest.NewRequest("GET", "/api/v1/fileStorage/all", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var items []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&items))
	require.Len(t, items, 2)
	assert.Equal(t, "a.txt", items[0]["name"])
	// internal fields never leak over the wire
	assert.NotContains(t, items[0], "fs_path")
	assert.NotContains(t, items[0], "owner_id")

	service.AssertExpectations(t)
}

func TestHandler_List_EmptyIsJSONArray(t *testing.T) {
	handler, service, auth := newHandler(t)
	authorize(auth, 7)

	service.On("LoadAll", mock.Anything, int64(7)).Return([]filevault.FileItem{}, nil)

	req := httptest.NewRequest("GET", "/api/v1/fileStorage/all", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestHandler_List_NoToken(t *testing.T) {
	handler, service, _ := newHandler(t)

	req := httptest.NewRequest("GET", "/api/v1/fileStorage/all", nil)
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	service.AssertNotCalled(t, "LoadAll")
}

func newUploadRequest(t *testing.T, field, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/v1/fileStorage/uploadFile", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer valid-token")
	return req
}

func TestHandler_Upload_RedirectsToProfile(t *testing.T) {
	handler, service, auth := newHandler(t)
	authorize(auth, 7)

	service.On("Store", mock.Anything, int64(7), "report.pdf", mock.Anything).
		Return(filevault.FileItem{ID: 42, Name: "report.pdf", OwnerID: 7, Version: 1}, nil)

	req := newUploadRequest(t, "uploadFile", "report.pdf", "report body")
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/profile", rec.Header().Get("Location"))

	service.AssertExpectations(t)
}

func TestHandler_Upload_JSONResponseWhenRequested(t *testing.T) {
	handler, service, auth := newHandler(t)
	authorize(auth, 7)

	service.On("Store", mock.Anything, int64(7), "report.pdf", mock.Anything).
		Return(filevault.FileItem{ID: 42, Name: "report.pdf", OwnerID: 7, Version: 1}, nil)

	req := newUploadRequest(t, "uploadFile", "report.pdf", "report body")
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, float64(42), created["id"])
	assert.Equal(t, "report.pdf", created["name"])
}

func TestHandler_Upload_MissingField(t *testing.T) {
	handler, service, auth := newHandler(t)
	authorize(auth, 7)

	req := newUploadRequest(t, "wrongField", "report.pdf", "report body")
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_upload")

	service.AssertNotCalled(t, "Store")
}

func TestHandler_Upload_TooLarge(t *testing.T) {
	service := new(MockStorageService)
	auth := new(MockAuthService)
	handler := fvhttp.NewHandler(&fvhttp.HandlerConfig{MaxUploadSize: 16}, service, auth)
	authorize(auth, 7)

	req := newUploadRequest(t, "uploadFile", "big.bin", strings.Repeat("x", 1024))
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	service.AssertNotCalled(t, "Store")
}

func TestHandler_Download_Success(t *testing.T) {
	handler, service, auth := newHandler(t)
	authorize(auth, 7)

	content := "Hello, World!"
	item := filevault.FileItem{
		ID:        42,
		Name:      "greeting.txt",
		OwnerID:   7,
		UpdatedAt: time.Now(),
	}

	service.On("Open", mock.Anything, int64(7), int64(42)).Return(
		item,
		readSeekNopCloser{strings.NewReader(content)},
		nil,
	)

	req := httptest.NewRequest("GET", "/api/v1/fileStorage/downloadFile/42", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, content, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, `attachment; filename="greeting.txt"`, rec.Header().Get("Content-Disposition"))

	service.AssertExpectations(t)
}

func TestHandler_Download_UnknownExtensionFallsBack(t *testing.T) {
	handler, service, auth := newHandler(t)
	authorize(auth, 7)

	item := filevault.FileItem{ID: 42, Name: "blob.xyzzy", OwnerID: 7, UpdatedAt: time.Now()}
	service.On("Open", mock.Anything, int64(7), int64(42)).Return(
		item,
		readSeekNopCloser{strings.NewReader("data")},
		nil,
	)

	req := httptest.NewRequest("GET", "/api/v1/fileStorage/downloadFile/42", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
}

func TestHandler_Download_ForeignFile(t *testing.T) {
	handler, service, auth := newHandler(t)
	authorize(auth, 7)

	service.On("Open", mock.Anything, int64(7), int64(42)).Return(
		filevault.FileItem{}, nil, filevault.ErrAccessDenied,
	)

	req := httptest.NewRequest("GET", "/api/v1/fileStorage/downloadFile/42", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "access_denied")
}

func TestHandler_Download_NotFound(t *testing.T) {
	handler, service, auth := newHandler(t)
	authorize(auth, 7)

	service.On("Open", mock.Anything, int64(7), int64(404)).Return(
		filevault.FileItem{}, nil, filevault.ErrNotFound,
	)

	req := httptest.NewRequest("GET", "/api/v1/fileStorage/downloadFile/404", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}

func TestHandler_Download_InvalidID(t *testing.T) {
	handler, service, auth := newHandler(t)
	authorize(auth, 7)

	req := httptest.NewRequest("GET", "/api/v1/fileStorage/downloadFile/abc", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	service.AssertNotCalled(t, "Open")
}

func TestHandler_Register_Success(t *testing.T) {
	handler, _, auth := newHandler(t)

	auth.On("Register", mock.Anything, "alice", "s3cret").
		Return(filevault.User{ID: 1, Username: "alice"}, nil)

	body := `{"username":"alice","password":"s3cret"}`
	req := httptest.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "alice", created["username"])

	auth.AssertExpectations(t)
}

func TestHandler_Register_UsernameTaken(t *testing.T) {
	handler, _, auth := newHandler(t)

	auth.On("Register", mock.Anything, "alice", "s3cret").
		Return(filevault.User{}, filevault.ErrConflict)

	body := `{"username":"alice","password":"s3cret"}`
	req := httptest.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "username_taken")
}

func TestHandler_Register_MalformedBody(t *testing.T) {
	handler, _, auth := newHandler(t)

	req := httptest.NewRequest("POST", "/api/v1/auth/register", strings.NewReader("{"))
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	auth.AssertNotCalled(t, "Register")
}

func TestHandler_Login_Success(t *testing.T) {
	handler, _, auth := newHandler(t)

	auth.On("Login", mock.Anything, "alice", "s3cret").Return("signed-token", nil)

	body := `{"username":"alice","password":"s3cret"}`
	req := httptest.NewRequest("POST", "/api/v1/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "signed-token", resp["token"])
}

func TestHandler_Login_BadCredentials(t *testing.T) {
	handler, _, auth := newHandler(t)

	auth.On("Login", mock.Anything, "alice", "wrong").Return("", filevault.ErrUnauthorized)

	body := `{"username":"alice","password":"wrong"}`
	req := httptest.NewRequest("POST", "/api/v1/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized")
}

func TestHandler_InternalErrorsAreOpaque(t *testing.T) {
	handler, service, auth := newHandler(t)
	authorize(auth, 7)

	service.On("LoadAll", mock.Anything, int64(7)).
		Return([]filevault.FileItem(nil), errors.New("pq: connection refused"))

	req := httptest.NewRequest("GET", "/api/v1/fileStorage/all", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}
