package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/vantegra/fieldgo/internal/models"
)

// invoicePDF renders one invoice as a downloadable PDF.
// GET /api/invoices/{id}/pdf
func (r *Router) invoicePDF(w http.ResponseWriter, req *http.Request) {
	caller, ok := principal(req)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	id := mux.Vars(req)["id"]

	// 1. Load the invoice, scoped to the caller
	var invoice models.Invoice
	err := r.db.WithContext(req.Context()).
		Where("id = ? AND user_id = ?", id, caller.ID).
		First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(w, http.StatusNotFound, "Record not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Temporary storage failure, retry later")
		return
	}

	// 2. Load the billed client. The client may have been deleted since,
	// the invoice still needs its address.
	var client models.Client
	err = r.db.WithContext(req.Context()).Unscoped().
		Where("id = ? AND user_id = ?", invoice.ClientID, caller.ID).
		First(&client).Error
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Temporary storage failure, retry later")
		return
	}

	// 3. Render and send
	pdfBytes, err := r.pdf.Invoice(&invoice, &client)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate PDF: %v", err))
		return
	}
	servePDF(w, "invoice", invoice.Number, invoice.ID, pdfBytes)
}

// quotePDF renders one quote as a downloadable PDF.
// GET /api/quotes/{id}/pdf
func (r *Router) quotePDF(w http.ResponseWriter, req *http.Request) {
	caller, ok := principal(req)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	id := mux.Vars(req)["id"]

	var quote models.Quote
	err := r.db.WithContext(req.Context()).
		Where("id = ? AND user_id = ?", id, caller.ID).
		First(&quote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(w, http.StatusNotFound, "Record not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Temporary storage failure, retry later")
		return
	}

	var client models.Client
	err = r.db.WithContext(req.Context()).Unscoped().
		Where("id = ? AND user_id = ?", quote.ClientID, caller.ID).
		First(&client).Error
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Temporary storage failure, retry later")
		return
	}

	pdfBytes, err := r.pdf.Quote(&quote, &client)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate PDF: %v", err))
		return
	}
	servePDF(w, "quote", quote.Number, quote.ID, pdfBytes)
}

func servePDF(w http.ResponseWriter, kind, number, id string, pdfBytes []byte) {
	name := number
	if name == "" {
		name = id
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s_%s.pdf\"", kind, name))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdfBytes)))
	w.Write(pdfBytes)
}
