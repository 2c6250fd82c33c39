package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/bookmarkai/bookmark-server/internal/api/respond"
	"github.com/bookmarkai/bookmark-server/internal/api/validate"
	"github.com/bookmarkai/bookmark-server/internal/auth"
	"github.com/bookmarkai/bookmark-server/internal/ingest"
	"github.com/bookmarkai/bookmark-server/internal/services"
)

// maxStoreBody bounds /store and /storepdf payloads. PDF bytes arrive as a JSON
// integer array, roughly four bytes of JSON per byte of PDF.
const maxStoreBody = 128 << 20

type BookmarkHandler struct {
	ingester *ingest.Ingester
	svc      *services.BookmarkService
}

func NewBookmarkHandler(in *ingest.Ingester, svc *services.BookmarkService) *BookmarkHandler {
	return &BookmarkHandler{ingester: in, svc: svc}
}

type storeRequest struct {
	RawText   string   `json:"raw_text"`
	URL       string   `json:"url"`
	Title     string   `json:"title"`
	ImageURLs []string `json:"image_urls"`
	Timestamp int64    `json:"timestamp"`
	Folder    string   `json:"folder"`
}

type storePDFRequest struct {
	PDFBytes  []int  `json:"pdf_bytes"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Timestamp int64  `json:"timestamp"`
	Folder    string `json:"folder"`
}

// Store handles POST /store.
func (h *BookmarkHandler) Store(w http.ResponseWriter, r *http.Request) {
	var in storeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxStoreBody)).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	if err := validate.StoreRequest(in.URL, in.Title, in.Folder); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	h.ingest(w, r, ingest.Document{
		Source:    ingest.Source{Kind: ingest.KindText, Text: in.RawText},
		URL:       in.URL,
		Title:     in.Title,
		Folder:    in.Folder,
		Timestamp: in.Timestamp,
		ImageURLs: in.ImageURLs,
	})
}

// StorePDF handles POST /storepdf.
func (h *BookmarkHandler) StorePDF(w http.ResponseWriter, r *http.Request) {
	var in storePDFRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxStoreBody)).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	if err := validate.StoreRequest(in.URL, in.Title, in.Folder); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	data, err := validate.PDFBytes(in.PDFBytes)
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	h.ingest(w, r, ingest.Document{
		Source:    ingest.Source{Kind: ingest.KindPDF, PDF: data},
		URL:       in.URL,
		Title:     in.Title,
		Folder:    in.Folder,
		Timestamp: in.Timestamp,
	})
}

// ingest reports every outcome past request validation in the success envelope.
func (h *BookmarkHandler) ingest(w http.ResponseWriter, r *http.Request, doc ingest.Document) {
	owner := auth.OwnerFrom(r.Context())
	res, err := h.ingester.Ingest(r.Context(), owner, doc)
	if err != nil {
		log.Warn().Err(err).Str("ownerId", owner).Str("url", doc.URL).Msg("store failed")
		res = ingest.Result{Success: false, Error: err.Error()}
	}
	respond.WriteJSON(w, http.StatusOK, res)
}

// Info handles GET /info?url=.
func (h *BookmarkHandler) Info(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Info(r.Context(), auth.OwnerFrom(r.Context()), r.URL.Query().Get("url"))
	if err != nil {
		respond.WriteErr(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, info)
}

type batchDeleteRequest struct {
	Documents []string `json:"documents"`
	Folders   []string `json:"folders"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// decodeBatchDelete accepts a bare id array or the {documents, folders} object.
func decodeBatchDelete(body io.Reader) (batchDeleteRequest, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return batchDeleteRequest{}, err
	}
	raw = bytes.TrimSpace(raw)
	var out batchDeleteRequest
	if len(raw) > 0 && raw[0] == '[' {
		err = json.Unmarshal(raw, &out.Documents)
	} else {
		err = json.Unmarshal(raw, &out)
	}
	return out, err
}

// BatchDelete handles POST /batch-delete. Folders may also be given as repeated
// `folders` query parameters.
func (h *BookmarkHandler) BatchDelete(w http.ResponseWriter, r *http.Request) {
	in, err := decodeBatchDelete(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	folders := append(in.Folders, nonBlank(r.URL.Query()["folders"])...)
	if err := h.svc.BatchDelete(r.Context(), auth.OwnerFrom(r.Context()), nonBlank(in.Documents), nonBlank(folders)); err != nil {
		log.Error().Err(err).Str("ownerId", auth.OwnerFrom(r.Context())).Msg("batch delete failed")
		respond.WriteJSON(w, http.StatusOK, successResponse{Success: false, Error: err.Error()})
		return
	}
	respond.WriteJSON(w, http.StatusOK, successResponse{Success: true})
}
