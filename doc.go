// Package filevault provides a per-user file storage service with filesystem
// blobs and relational metadata.
//
// Authenticated users upload files, list the files they own, and download
// them. Every file has exactly one owner; the StorageService is the sole
// authority enforcing that a user only ever sees their own files.
//
// # Key Components
//
//   - StorageService: ownership-scoped store/load/list operations keeping the
//     blob store and the metadata store consistent
//   - UserRepo, FileRepo: interfaces for metadata persistence (PostgreSQL, SQLite)
//   - BlobStorage: interface for physical file operations (filesystem)
//   - Principal: the authenticated user carried through a request context
//
// # Storage Layout
//
// Blobs are written below a configured root as {root}/{ownerID}/{uuid}. The
// generated blob name is decoupled from the uploaded filename, which is kept
// only as display metadata.
//
// # Example Usage
//
//	service, err := filevault.NewStorageService(users, files, blobs, filevault.ServiceConfig{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store a file for user 42
//	item, err := service.Store(ctx, 42, "report.pdf", reader)
//
//	// List user 42's files
//	items, err := service.LoadAll(ctx, 42)
//
// See the http package for the REST adapter, the auth package for credentials
// and tokens, and the database packages for metadata backends.
package filevault
