package server

import (
	"github.com/emicklei/go-restful/v3"

	"github.com/paperqa/paperqa/tools"
)

// RegisterRoutes mounts the API under /api plus a root health route.
func RegisterRoutes(container *restful.Container, handler *Handler) {
	ws := new(restful.WebService)
	ws.
		Path("/api").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	ws.Route(ws.POST("/upload_pdfs").
		To(handler.UploadPDFs).
		Consumes("multipart/form-data").
		Doc("Upload and index a batch of PDF documents").
		Writes(UploadResponse{}).
		Returns(200, "OK", UploadResponse{}).
		Returns(400, "Bad Request", ErrorResponse{}).
		Returns(500, "Internal Server Error", ErrorResponse{}))

	ws.Route(ws.POST("/query").
		To(handler.Query).
		Doc("Answer a question over the indexed documents").
		Reads(QueryRequest{}).
		Writes(QueryResponse{}).
		Returns(200, "OK", QueryResponse{}).
		Returns(400, "Bad Request", ErrorResponse{}))

	toolRoutes := []struct {
		path    string
		tool    string
		missing string
	}{
		{"/summarize", tools.Summarize, "No content available for summarization."},
		{"/abstract", tools.Abstract, "No content available for abstract generation."},
		{"/key_findings", tools.KeyFindings, "No content available for key findings."},
		{"/challenges", tools.Challenges, "No content available for challenges."},
	}
	for _, route := range toolRoutes {
		ws.Route(ws.POST(route.path).
			To(handler.toolHandler(route.tool, route.missing)).
			Doc("Run the " + route.tool + " tool over the indexed documents").
			Param(ws.QueryParameter("document", "Restrict to one uploaded document").DataType("string").Required(false)).
			Returns(200, "OK", nil))
	}

	ws.Route(ws.POST("/reset_index").
		To(handler.ResetIndex).
		Doc("Clear the vector index and its persisted artifacts").
		Writes(MessageResponse{}).
		Returns(200, "OK", MessageResponse{}).
		Returns(500, "Internal Server Error", ErrorResponse{}))

	ws.Route(ws.GET("/get_pdf").
		To(handler.GetPDF).
		Doc("Serve an uploaded PDF inline").
		Param(ws.QueryParameter("pdf_name", "File name of the uploaded PDF").DataType("string")).
		Param(ws.QueryParameter("page", "Page hint for the viewer").DataType("integer").Required(false)).
		Returns(200, "OK", nil).
		Returns(404, "Not Found", ErrorResponse{}))

	container.Add(ws)

	root := new(restful.WebService)
	root.Route(root.GET("/").To(handler.Health).Produces(restful.MIME_JSON))
	container.Add(root)
}
