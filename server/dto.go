package server

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query    string `json:"query"`
	Document string `json:"document,omitempty"`
}

// QueryResponse is returned by POST /api/query. Citations is an HTML snippet
// linking every page that backed the answer, or a fixed phrase when none did.
type QueryResponse struct {
	Answer    string `json:"answer"`
	Citations string `json:"citations"`
}

// UploadResponse is returned by POST /api/upload_pdfs.
type UploadResponse struct {
	Message string   `json:"message"`
	Files   []string `json:"files"`
}

// MessageResponse carries a plain status message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse mirrors the detail shape clients already parse.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
