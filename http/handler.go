package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/mkravets/filevault"
)

// profileURL is where a successful form upload redirects to.
const profileURL = "/profile"

// StorageService is the part of the storage core the transport needs.
type StorageService interface {
	Store(ctx context.Context, ownerID int64, originalName string, content io.Reader) (filevault.FileItem, error)
	LoadAll(ctx context.Context, ownerID int64) ([]filevault.FileItem, error)
	Open(ctx context.Context, ownerID, fileID int64) (filevault.FileItem, io.ReadSeekCloser, error)
}

// AuthService handles account creation and credential verification.
type AuthService interface {
	TokenVerifier
	Register(ctx context.Context, username, password string) (filevault.User, error)
	Login(ctx context.Context, username, password string) (string, error)
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	// MaxUploadSize limits the request body of uploads in bytes; 0 means no limit.
	MaxUploadSize int64
	CORS          CORSConfig
}

// Handler provides HTTP handlers for the file storage operations.
type Handler struct {
	config  HandlerConfig
	service StorageService
	auth    AuthService
}

// NewHandler creates a new Handler with the given configuration and services.
func NewHandler(config *HandlerConfig, service StorageService, auth AuthService) *Handler {
	return &Handler{
		config:  *config,
		service: service,
		auth:    auth,
	}
}

// Router returns an http.Handler with all routes configured. The fileStorage
// group requires a bearer token; the auth group is public.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.handleRegister)
		r.Post("/auth/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.auth))
			r.Get("/fileStorage/all", h.handleList)
			r.Post("/fileStorage/uploadFile", h.handleUpload)
			r.Get("/fileStorage/downloadFile/{fileId}", h.handleDownload)
		})
	})

	return r
}

// fileItemResponse is the wire shape of one listed file.
type fileItemResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	principal, ok := filevault.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	items, err := h.service.LoadAll(r.Context(), principal.UserID)
	if err != nil {
		HandleError(w, err)
		return
	}

	// Always a JSON array, never null.
	result := make([]fileItemResponse, 0, len(items))
	for _, item := range items {
		result = append(result, fileItemResponse{ID: item.ID, Name: item.Name})
	}

	_ = WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	principal, ok := filevault.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	if h.config.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadSize)
	}

	file, header, err := r.FormFile("uploadFile")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_upload", `Missing multipart field "uploadFile"`)
		return
	}
	defer func() { _ = file.Close() }()

	item, err := h.service.Store(r.Context(), principal.UserID, header.Filename, file)
	if err != nil {
		HandleError(w, err)
		return
	}

	// Browser form posts get the original redirect; API clients asking for
	// JSON get the created record.
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		_ = WriteJSON(w, http.StatusCreated, fileItemResponse{ID: item.ID, Name: item.Name})
		return
	}

	http.Redirect(w, r, profileURL, http.StatusSeeOther)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	principal, ok := filevault.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	fileID, err := strconv.ParseInt(chi.URLParam(r, "fileId"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "File id must be an integer")
		return
	}

	item, content, err := h.service.Open(r.Context(), principal.UserID, fileID)
	if err != nil {
		HandleError(w, err)
		return
	}
	defer func() { _ = content.Close() }()

	contentType := mime.TypeByExtension(filepath.Ext(item.Name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", item.Name))

	http.ServeContent(w, r, item.Name, item.UpdatedAt, content)
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "Malformed JSON body")
		return
	}

	user, err := h.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, filevault.ErrConflict) {
			WriteError(w, http.StatusConflict, "username_taken", "Username already taken")
			return
		}
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, map[string]any{
		"id":       user.ID,
		"username": user.Username,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "Malformed JSON body")
		return
	}

	token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, filevault.ErrUnauthorized) {
			WriteError(w, http.StatusUnauthorized, "unauthorized", "Invalid username or password")
			return
		}
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}
