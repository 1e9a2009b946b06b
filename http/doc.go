// Package http provides the REST adapter for the filevault storage service.
//
// It exposes the file storage API under /api/v1/fileStorage and the
// registration/login endpoints under /api/v1/auth:
//
//	GET  /api/v1/fileStorage/all                  list the caller's files
//	POST /api/v1/fileStorage/uploadFile           multipart upload (field "uploadFile")
//	GET  /api/v1/fileStorage/downloadFile/{id}    download one owned file
//	POST /api/v1/auth/register                    create an account
//	POST /api/v1/auth/login                       obtain a bearer token
//
// File storage routes require a Bearer token; AuthMiddleware verifies it and
// places the resulting Principal in the request context. Service errors map
// onto status codes so that a file owned by somebody else answers 403 while a
// genuinely missing file answers 404 — the two are never conflated.
//
// # Usage
//
//	handler := http.NewHandler(&http.HandlerConfig{}, storageService, authService)
//	srv := &nethttp.Server{Addr: ":8080", Handler: handler.Router()}
//	srv.ListenAndServe()
package http
