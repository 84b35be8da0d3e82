package server

import (
	"net/http"

	doc2pdf "github.com/alnah/go-doc2pdf"
)

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("POST /convert/spreadsheet-to-pdf", s.convertHandler(doc2pdf.SourceSpreadsheet))
	mux.Handle("POST /convert/html-to-pdf", s.convertHandler(doc2pdf.SourceHTML))
	mux.Handle("POST /convert/markdown-to-pdf", s.convertHandler(doc2pdf.SourceMarkdown))

	// Paths of the service this one replaces.
	mux.Handle("POST /api/convert/ExcelToPdf", s.convertHandler(doc2pdf.SourceSpreadsheet))
	mux.Handle("POST /api/convert/HtmlToPdf", s.convertHandler(doc2pdf.SourceHTML))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}
