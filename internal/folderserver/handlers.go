package folderserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sharingconfigs/sharingconfigs/internal/logging"
	"github.com/sharingconfigs/sharingconfigs/internal/storage"
	"github.com/sharingconfigs/sharingconfigs/pkg/models"
	"github.com/sharingconfigs/sharingconfigs/pkg/protocol"
	"github.com/sharingconfigs/sharingconfigs/pkg/tree"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	permission, ok := protocol.ParsePermission(r.URL.Query().Get("permission"))
	if !ok {
		s.sendError(w, http.StatusBadRequest, "Unknown permission.")
		return
	}

	results := s.nodes
	if permission == protocol.PermissionWrite {
		results = tree.Filter(s.nodes, func(n models.FolderNode) bool {
			return s.writable[n.Name]
		})
	}

	s.sendJSON(w, http.StatusOK, protocol.FolderListResponse{
		Results: results,
		Count:   len(results),
	})
}

// folderParam resolves the {folder} parameter, writing the error response
// when it is not a known folder.
func (s *Server) folderParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	folder, err := pathParam(r, "folder")
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid folder.")
		return "", false
	}
	if _, ok := s.writable[folder]; !ok {
		s.sendError(w, http.StatusNotFound, "Folder not found.")
		return "", false
	}
	return folder, true
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	folder, ok := s.folderParam(w, r)
	if !ok {
		return
	}

	prefix := s.storageKey(folder, "")
	keys, err := s.cfg.Storage.ListObjects(r.Context(), prefix)
	if err != nil {
		logging.WithContext(r.Context()).Error("list files failed", zap.String("folder", folder), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "failed to list files")
		return
	}

	results := make([]models.FileDescriptor, 0, len(keys))
	for _, key := range keys {
		name := strings.TrimPrefix(key, prefix)
		if strings.Contains(name, "/") {
			continue
		}
		link, err := s.downloadURL(r, key)
		if err != nil {
			s.sendError(w, http.StatusInternalServerError, "failed to build download url")
			return
		}
		results = append(results, models.FileDescriptor{Filename: name, DownloadURL: link})
	}

	s.sendJSON(w, http.StatusOK, protocol.FileListResponse{
		Results: results,
		Count:   len(results),
	})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	folder, ok := s.folderParam(w, r)
	if !ok {
		return
	}
	filename, err := pathParam(r, "filename")
	if err != nil || !validFilename(filename) {
		s.sendError(w, http.StatusBadRequest, "Invalid filename.")
		return
	}
	s.sendContent(w, r, s.storageKey(folder, filename))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	token, err := pathParam(r, "token")
	key, ok := s.lookupToken(token)
	if err != nil || !ok {
		s.sendError(w, http.StatusNotFound, "Not found.")
		return
	}
	s.sendContent(w, r, key)
}

func (s *Server) sendContent(w http.ResponseWriter, r *http.Request, key string) {
	reader, size, err := s.cfg.Storage.GetObject(r.Context(), key)
	if err != nil {
		if storage.IsNotFound(err) {
			s.sendError(w, http.StatusNotFound, "Not found.")
			return
		}
		logging.WithContext(r.Context()).Error("read content failed", zap.String("key", key), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "failed to retrieve content")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, reader); err != nil {
		logging.WithContext(r.Context()).Warn("content transfer error", zap.String("key", key), zap.Error(err))
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	folder, ok := s.folderParam(w, r)
	if !ok {
		return
	}

	var payload models.ExportPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxExportSize)).Decode(&payload); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if !validFilename(payload.Filename) {
		s.sendError(w, http.StatusBadRequest, "Invalid filename.")
		return
	}
	content, err := payload.DecodeContent()
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "Content is not valid base64.")
		return
	}
	if !s.writable[folder] {
		s.sendError(w, http.StatusForbidden, "Folder is read-only.")
		return
	}

	key := s.storageKey(folder, payload.Filename)
	ctx := r.Context()

	s.exportMu.Lock()
	exists, err := s.cfg.Storage.ObjectExists(ctx, key)
	if err == nil && exists && !payload.Overwrite {
		s.exportMu.Unlock()
		s.sendError(w, http.StatusConflict, "File already exists.")
		return
	}
	if err == nil {
		err = s.cfg.Storage.PutObject(ctx, key, bytes.NewReader(content), int64(len(content)))
	}
	s.exportMu.Unlock()
	if err != nil {
		logging.WithContext(ctx).Error("store export failed", zap.String("key", key), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "failed to store file")
		return
	}

	link, err := s.downloadURL(r, key)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "failed to build download url")
		return
	}
	s.refreshStoredFiles(ctx)

	logging.WithContext(ctx).Info("file exported",
		zap.String("folder", folder),
		zap.String("filename", payload.Filename),
		zap.String("author", payload.Author),
		zap.Int("size", len(content)),
		zap.Bool("overwrite", exists),
	)

	s.sendJSON(w, http.StatusCreated, protocol.ExportResponse{
		DownloadURL: link,
		Filename:    payload.Filename,
	})
}
