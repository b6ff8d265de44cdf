// Package protocol defines the request/response types of the remote folder API.
//
//	GET  {endpoint}/{label}/folder/?permission=...          FolderListResponse
//	GET  {endpoint}/{label}/folder/{folder}/files/           FileListResponse
//	GET  {endpoint}/{label}/folder/{folder}/files/{name}/    raw file content
//	POST {endpoint}/{label}/folder/{folder}/files/           ExportPayload -> ExportResponse
package protocol

import (
	"github.com/sharingconfigs/sharingconfigs/pkg/models"
)

// Permission filters the folders returned by the folder listing.
type Permission string

const (
	PermissionNone  Permission = ""
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
	PermissionAll   Permission = "all"
)

// Valid reports whether p is one of the known permission filters.
func (p Permission) Valid() bool {
	switch p {
	case PermissionNone, PermissionRead, PermissionWrite, PermissionAll:
		return true
	}
	return false
}

// ParsePermission converts user input into a Permission. "none" and ""
// both mean no filter.
func ParsePermission(s string) (Permission, bool) {
	if s == "none" {
		return PermissionNone, true
	}
	p := Permission(s)
	return p, p.Valid()
}

// FolderListResponse is returned by the folder listing.
// Pagination fields are passed through as received.
type FolderListResponse struct {
	Results  []models.FolderNode `json:"results"`
	Count    int                 `json:"count"`
	Next     *string             `json:"next"`
	Previous *string             `json:"previous"`
}

// FileListResponse is returned by the file listing of a folder.
type FileListResponse struct {
	Results  []models.FileDescriptor `json:"results"`
	Count    int                     `json:"count"`
	Next     *string                 `json:"next"`
	Previous *string                 `json:"previous"`
}

// ExportResponse is returned after a successful export.
// Commit is only set by backends that store files in version control.
type ExportResponse struct {
	DownloadURL string `json:"download_url"`
	Filename    string `json:"filename"`
	Commit      string `json:"commit,omitempty"`
}

// ErrorResponse is the body of a failed API call.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
