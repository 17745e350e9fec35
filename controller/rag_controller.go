package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"docchat/models"
	"docchat/services"
)

// Upload size cap. The pipeline holds the whole document in memory while it
// runs, so unbounded uploads are rejected up front.
const maxUploadBytes = 32 << 20

// RAGController handles the HTTP requests for the document chat API. All
// rendering decisions live here; the service layer only returns values and
// errors.
type RAGController struct {
	ragService services.RAGService
}

// NewRAGController is a constructor function that creates a new RAGController.
// This is called from main.go to inject the service dependency.
func NewRAGController(service services.RAGService) *RAGController {
	return &RAGController{ragService: service}
}

// UploadDocument is the Gin handler for POST /api/v1/documents. It accepts a
// multipart upload under the "file" field and runs the ingestion pipeline.
func (c *RAGController) UploadDocument(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing file field: " + err.Error()})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		ctx.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File exceeds the upload limit"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Could not open uploaded file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Could not read uploaded file"})
		return
	}
	if len(data) > maxUploadBytes {
		ctx.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File exceeds the upload limit"})
		return
	}

	report, err := c.ragService.IngestDocument(ctx.Request.Context(), models.Document{
		Filename: fileHeader.Filename,
		Data:     data,
	})
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, services.ErrUnsupportedFormat):
			status = http.StatusUnsupportedMediaType
		case errors.Is(err, services.ErrExtraction):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, services.ErrIndexUpsert):
			status = http.StatusBadGateway
		}
		body := gin.H{"error": err.Error()}
		if report != nil {
			body["report"] = report
		}
		ctx.JSON(status, body)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"message": "Document ingested", "report": report})
}

// Query is the Gin handler for POST /api/v1/query.
func (c *RAGController) Query(ctx *gin.Context) {
	var req models.QueryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	resp, err := c.ragService.Query(ctx.Request.Context(), req)
	if err != nil {
		body := gin.H{"error": err.Error()}
		// A generation failure after retrieval still carries the
		// excerpts already fetched for the user.
		if resp != nil {
			body["question"] = resp.Question
			body["excerpts"] = resp.Excerpts
			if resp.Notice != nil {
				body["notice"] = resp.Notice
			}
		}
		switch {
		case errors.Is(err, services.ErrEmbedding), errors.Is(err, services.ErrGeneration):
			ctx.JSON(http.StatusBadGateway, body)
		default:
			ctx.JSON(http.StatusInternalServerError, body)
		}
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// CountChunks is the Gin handler for GET /api/v1/chunks/count.
func (c *RAGController) CountChunks(ctx *gin.Context) {
	count, err := c.ragService.TotalChunks(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "Failed to count indexed chunks"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"count": count})
}
