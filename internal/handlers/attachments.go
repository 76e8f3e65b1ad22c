package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/vantegra/fieldgo/internal/models"
	"github.com/vantegra/fieldgo/internal/services/storage"
)

// PresignRequest asks for an upload slot for one work order photo.
type PresignRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

// presignAttachment hands out a short-lived upload URL. The client PUTs the
// photo straight to S3 and then records the key in the work order's photos
// array on its next push.
// POST /api/work_orders/{id}/attachments
func (r *Router) presignAttachment(w http.ResponseWriter, req *http.Request) {
	caller, ok := principal(req)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if r.storage == nil {
		respondError(w, http.StatusNotImplemented, "Attachment storage is not configured")
		return
	}

	workOrder, ok := r.loadWorkOrder(w, req, caller.ID)
	if !ok {
		return
	}

	var presignReq PresignRequest
	if req.Body != nil {
		_ = json.NewDecoder(req.Body).Decode(&presignReq) // body is optional
	}

	// Keys are namespaced by owner so downloads can be checked cheaply.
	key := fmt.Sprintf("%s/%s/%s", caller.ID, workOrder.ID, uuid.NewString())
	if ext := fileExt(presignReq.FileName); ext != "" {
		key += ext
	}

	url, err := r.storage.PresignUpload(req.Context(), key, presignReq.ContentType)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to presign upload: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"url":       url,
		"key":       key,
		"expiresAt": time.Now().UTC().Add(storage.PresignExpiry),
	})
}

// listAttachments resolves the work order's photo keys into download URLs.
// GET /api/work_orders/{id}/attachments
func (r *Router) listAttachments(w http.ResponseWriter, req *http.Request) {
	caller, ok := principal(req)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if r.storage == nil {
		respondError(w, http.StatusNotImplemented, "Attachment storage is not configured")
		return
	}

	workOrder, ok := r.loadWorkOrder(w, req, caller.ID)
	if !ok {
		return
	}

	var keys []string
	if len(workOrder.Photos) > 0 {
		if err := json.Unmarshal(workOrder.Photos, &keys); err != nil {
			respondError(w, http.StatusInternalServerError, "Work order has a malformed photos list")
			return
		}
	}

	attachments := make([]map[string]string, 0, len(keys))
	for _, key := range keys {
		// A synced photos array is client data. Serve only keys under the
		// caller's own prefix.
		if !strings.HasPrefix(key, caller.ID+"/") {
			continue
		}
		url, err := r.storage.PresignDownload(req.Context(), key)
		if err != nil {
			respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to presign download: %v", err))
			return
		}
		attachments = append(attachments, map[string]string{
			"key": key,
			"url": url,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"attachments": attachments,
		"expiresAt":   time.Now().UTC().Add(storage.PresignExpiry),
	})
}

func (r *Router) loadWorkOrder(w http.ResponseWriter, req *http.Request, userID string) (*models.WorkOrder, bool) {
	id := mux.Vars(req)["id"]
	var workOrder models.WorkOrder
	err := r.db.WithContext(req.Context()).
		Where("id = ? AND user_id = ?", id, userID).
		First(&workOrder).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(w, http.StatusNotFound, "Record not found")
		return nil, false
	}
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Temporary storage failure, retry later")
		return nil, false
	}
	return &workOrder, true
}

// fileExt keeps the original extension on the storage key so content type
// survives a round trip through clients that infer it from the name.
func fileExt(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 || idx == len(name)-1 {
		return ""
	}
	ext := name[idx:]
	if len(ext) > 8 || strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return strings.ToLower(ext)
}
