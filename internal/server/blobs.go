package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/giuppep/rustore/internal/blob"
	"github.com/giuppep/rustore/internal/ref"
)

// createdTimeLayout renders Metadata.Created as an ISO-8601 timestamp
// with an explicit numeric offset (spec §6), e.g.
// "2021-06-09T19:29:05.856119481+00:00" rather than stdlib's "Z" for UTC.
const createdTimeLayout = "2006-01-02T15:04:05.999999999-07:00"

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload ingests one or more multipart parts, each independently
// via Engine.Add, and returns the references of the parts that
// committed successfully. It streams the request body through
// multipart.Reader rather than buffering it, so upload size is bounded
// by maxUploadPartBytes and the store's disk, not by process memory.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadPartBytes)

	mr, err := r.MultipartReader()
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, fmt.Errorf("parsing multipart body: %w", err))
		return
	}

	var committed []string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A torn part mid-stream: whatever committed before this
			// point stands, per the N-1-successful-parts boundary case.
			s.log().Error("multipart read failed", "error", err)
			break
		}

		filename := part.FileName()
		if filename == "" {
			filename = part.FormName()
		}

		added, err := s.engine.Add(r.Context(), part, filename)
		part.Close()
		if err != nil {
			s.log().Error("ingest failed for part", "filename", filename, "error", err)
			continue
		}
		committed = append(committed, added.String())
	}

	if committed == nil {
		committed = []string{}
	}
	s.writeJSON(w, http.StatusOK, committed)
}

// parseRefParam extracts and validates the {ref} path parameter,
// writing a 400 InvalidReference response and returning ok=false on
// failure.
func (s *Server) parseRefParam(w http.ResponseWriter, r *http.Request) (ref.Reference, bool) {
	parsed, err := ref.Parse(r.PathValue("ref"))
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, makeAPIError(
			http.StatusBadRequest, kindInvalidReference, ErrCodeInvalidReference, err))
		return ref.Zero, false
	}
	return parsed, true
}

func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, blob.ErrNotFound):
		s.writeErrorReq(w, r, http.StatusNotFound, makeAPIError(
			http.StatusNotFound, kindNotFound, ErrCodeBlobNotFound, err))
	default:
		// blob.ErrCorrupted and any filesystem failure are both opaque
		// Internal errors to the caller (spec §7): corruption state is
		// never leaked to an unauthenticated or merely-authorized probe.
		s.writeErrorReq(w, r, http.StatusInternalServerError, makeAPIError(
			http.StatusInternalServerError, kindInternal, ErrCodeInternal, err))
	}
}

func setBlobHeaders(w http.ResponseWriter, meta blob.Metadata) {
	h := w.Header()
	h.Set("Content-Length", fmt.Sprintf("%d", meta.Size))
	h.Set("Content-Type", meta.MIMEType)
	h.Set("filename", meta.Filename)
	h.Set("created", meta.Created.Format(createdTimeLayout))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	reference, ok := s.parseRefParam(w, r)
	if !ok {
		return
	}

	meta, rc, err := s.engine.Get(r.Context(), reference, blob.GetOptions{})
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	defer rc.Close()

	setBlobHeaders(w, meta)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		s.log().Error("streaming blob body", "ref", reference, "error", err)
	}
}

func (s *Server) handleHead(w http.ResponseWriter, r *http.Request) {
	reference, ok := s.parseRefParam(w, r)
	if !ok {
		return
	}

	meta, err := s.engine.Head(r.Context(), reference)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	setBlobHeaders(w, meta)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	reference, ok := s.parseRefParam(w, r)
	if !ok {
		return
	}

	if err := s.engine.Delete(r.Context(), reference); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
