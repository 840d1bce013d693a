package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"parking-sign-backend/internal/imagedata"
	"parking-sign-backend/internal/ingest"
)

type uploadPlateRequest struct {
	Image     string   `json:"image" binding:"required"`
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

// errorResponse is the body of every failed upload.
type errorResponse struct {
	Error     string `json:"error"`
	Reason    string `json:"reason,omitempty"`
	Retryable bool   `json:"retryable"`
}

// UploadParkingPlate handles POST /api/parking/plates.
func (h *Handler) UploadParkingPlate(c *gin.Context) {
	if c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	var req uploadPlateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: "image is too large", Reason: string(ingest.ReasonInvalidImage)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	image, err := imagedata.Decode(req.Image)
	if err == nil && !imagedata.IsImage(image) {
		err = errors.New("payload is not an image")
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Reason: string(ingest.ReasonInvalidImage)})
		return
	}

	spot, err := h.ingester.Ingest(c.Request.Context(), image, *req.Latitude, *req.Longitude)
	if err != nil {
		h.writeIngestError(c, err)
		return
	}

	if h.spotCache != nil {
		h.spotCache.Flush()
	}
	c.JSON(http.StatusCreated, spot)
}

func (h *Handler) writeIngestError(c *gin.Context, err error) {
	var ierr *ingest.IngestionError
	if !errors.As(err, &ierr) {
		log.Printf("Failed to ingest parking plate: %v", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to store parking spot"})
		return
	}

	status := http.StatusUnprocessableEntity
	message := "could not read parking rules from this image"
	switch ierr.Reason {
	case ingest.ReasonInvalidCoordinates, ingest.ReasonInvalidImage:
		status = http.StatusBadRequest
		message = ierr.Error()
	case ingest.ReasonInterpreterUnavailable:
		status = http.StatusServiceUnavailable
		message = "sign interpreter is unavailable, try again later"
	case ingest.ReasonNotAParkingSign:
		message = "could not recognize a parking sign in this image"
	}

	c.JSON(status, errorResponse{
		Error:     message,
		Reason:    string(ierr.Reason),
		Retryable: ierr.Retryable(),
	})
}
