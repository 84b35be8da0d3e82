package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	doc2pdf "github.com/alnah/go-doc2pdf"
)

const (
	fileField      = "file"
	landscapeField = "landscape"
	fitToPageField = "fitToPage"

	// ErrorHeader carries the reason for a 503.
	ErrorHeader = "X-Error"

	// Parts above this size spill to temp files while parsing.
	multipartMemory = 8 << 20
)

// Errors raised while decoding an upload.
var (
	errNotMultipart = errors.New("request must be multipart/form-data")
	errMissingFile  = fmt.Errorf("%w: missing %q form field", doc2pdf.ErrValidation, fileField)
	errBadOption    = fmt.Errorf("%w: invalid boolean option", doc2pdf.ErrValidation)
	errTooLarge     = errors.New("upload exceeds size limit")
)

// convertHandler serves one conversion of the given kind.
func (s *Server) convertHandler(kind doc2pdf.SourceKind) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := s.decodeUpload(w, r, kind)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		pending := s.svc.Submit(r.Context(), req)
		res, err := pending.Wait(r.Context())
		if err != nil {
			if r.Context().Err() != nil {
				pending.Discard()
				s.logger.Info().Str("request_id", req.ID).Msg("client went away before conversion finished")
				return
			}
			s.writeError(w, r, err)
			return
		}
		defer res.Body.Close()

		h := w.Header()
		h.Set("Content-Type", res.ContentType)
		h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
		h.Set("Content-Length", strconv.FormatInt(res.Size, 10))
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, res.Body); err != nil {
			s.logger.Warn().Str("request_id", req.ID).Err(err).Msg("streaming result failed")
		}
	})
}

// decodeUpload reads the multipart body into a conversion request.
func (s *Server) decodeUpload(w http.ResponseWriter, r *http.Request, kind doc2pdf.SourceKind) (doc2pdf.Request, error) {
	req := doc2pdf.Request{ID: requestID(r.Context()), Kind: kind}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return req, errNotMultipart
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, errTooLarge
		}
		return req, fmt.Errorf("%w: malformed multipart body", doc2pdf.ErrValidation)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(fileField)
	if err != nil {
		return req, errMissingFile
	}
	defer file.Close()

	req.Filename = header.Filename
	if req.Data, err = io.ReadAll(file); err != nil {
		return req, fmt.Errorf("%w: reading upload: %v", doc2pdf.ErrValidation, err)
	}

	if req.Options.Landscape, err = formBool(r, landscapeField); err != nil {
		return req, err
	}
	if kind == doc2pdf.SourceSpreadsheet {
		if req.Options.FitToPage, err = formBool(r, fitToPageField); err != nil {
			return req, err
		}
	}
	return req, nil
}

// formBool reads an optional boolean from the form or query string.
func formBool(r *http.Request, field string) (bool, error) {
	v := strings.TrimSpace(r.FormValue(field))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", errBadOption, field, v)
	}
	return b, nil
}

// writeError maps the conversion error taxonomy onto status codes.
// Engine detail never reaches the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errNotMultipart):
		http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
	case errors.Is(err, errTooLarge):
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, doc2pdf.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, doc2pdf.ErrBusy):
		w.Header().Set(ErrorHeader, doc2pdf.ErrBusy.Error())
		w.Header().Set("Retry-After", "5")
		http.Error(w, doc2pdf.ErrBusy.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, doc2pdf.ErrUnavailable):
		reason := detail(err, doc2pdf.ErrUnavailable)
		w.Header().Set(ErrorHeader, reason)
		http.Error(w, reason, http.StatusServiceUnavailable)
	default:
		s.logger.Error().Str("request_id", requestID(r.Context())).Err(err).Msg("conversion request failed")
		http.Error(w, "Conversion failed", http.StatusInternalServerError)
	}
}

// detail strips the class prefix from err's message.
func detail(err, class error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, class.Error()+": "); ok {
		return rest
	}
	return msg
}

type healthResponse struct {
	State string `json:"status"`
	doc2pdf.Status
}

// handleHealth reports engine availability. It answers 200 while either
// engine can serve; "degraded" flags a missing one.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	st := s.svc.Status()
	resp := healthResponse{State: "ok", Status: st}
	if !st.Renderer.Available || !st.Office.Available {
		resp.State = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn().Err(err).Msg("writing health response failed")
	}
}
