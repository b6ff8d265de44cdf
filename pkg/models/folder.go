// Package models contains the data types exchanged with the remote folder service.
package models

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMissingFolderName is returned when a folder record has no "name" key.
var ErrMissingFolderName = errors.New("folder record has no name")

// FolderNode is one folder in the tree returned by the folder listing endpoint.
// Names are not unique across siblings or across the tree.
type FolderNode struct {
	Name     string       `json:"name"`
	Children []FolderNode `json:"children"`
}

// MalformedFolderError reports a folder record that could not be decoded.
// Path holds the sibling indexes leading to the record, outermost first.
type MalformedFolderError struct {
	Path []int
	Err  error
}

func (e *MalformedFolderError) Error() string {
	if len(e.Path) == 0 {
		return "malformed folder: " + e.Err.Error()
	}
	parts := make([]string, len(e.Path))
	for i, idx := range e.Path {
		parts[i] = strconv.Itoa(idx)
	}
	return fmt.Sprintf("malformed folder at children[%s]: %v", strings.Join(parts, "]["), e.Err)
}

func (e *MalformedFolderError) Unwrap() error {
	return e.Err
}

// AsMalformedFolder checks if an error is a MalformedFolderError and returns it.
func AsMalformedFolder(err error) (*MalformedFolderError, bool) {
	var me *MalformedFolderError
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}

// UnmarshalJSON decodes a folder record. A missing or null "children" key
// decodes to an empty slice; a missing "name" key is an error.
func (n *FolderNode) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name     *string           `json:"name"`
		Children []json.RawMessage `json:"children"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Name == nil {
		return &MalformedFolderError{Err: ErrMissingFolderName}
	}

	children := make([]FolderNode, len(raw.Children))
	for i, child := range raw.Children {
		if err := json.Unmarshal(child, &children[i]); err != nil {
			if me, ok := AsMalformedFolder(err); ok {
				return &MalformedFolderError{Path: append([]int{i}, me.Path...), Err: me.Err}
			}
			return err
		}
	}

	n.Name = *raw.Name
	n.Children = children
	return nil
}

// FileDescriptor is one entry of a folder's file listing.
type FileDescriptor struct {
	Filename    string `json:"filename"`
	DownloadURL string `json:"download_url"`
}

// ExportPayload is the body of an export (upload) request.
// Content holds the exported object as standard base64 text.
type ExportPayload struct {
	Filename  string `json:"filename"`
	Content   string `json:"content"`
	Author    string `json:"author"`
	Overwrite bool   `json:"overwrite"`
}

// NewExportPayload builds a payload from the raw bytes of an object.
func NewExportPayload(filename string, raw []byte, author string, overwrite bool) ExportPayload {
	return ExportPayload{
		Filename:  filename,
		Content:   EncodeContent(raw),
		Author:    author,
		Overwrite: overwrite,
	}
}

// DecodeContent returns the raw bytes carried by the payload.
func (p ExportPayload) DecodeContent() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(p.Content)
	if err != nil {
		return nil, fmt.Errorf("decode content of %s: %w", p.Filename, err)
	}
	return b, nil
}

// EncodeContent converts raw object bytes into the text form sent to the service.
func EncodeContent(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}
