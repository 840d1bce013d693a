package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"parking-sign-backend/internal/query"
	"parking-sign-backend/internal/rules"
	"parking-sign-backend/internal/store"
)

// GetParkingSpots handles GET /api/parking/spots.
func (h *Handler) GetParkingSpots(c *gin.Context) {
	bounds, err := boundsFromQuery(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	spots, err := h.spots.Query(c.Request.Context(), bounds, c.Query("filter"))
	if err != nil {
		if errors.Is(err, query.ErrInvalidBounds) || errors.Is(err, rules.ErrUnknownFilter) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Printf("Failed to query parking spots: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve parking spots"})
		return
	}

	c.JSON(http.StatusOK, spots)
}

func boundsFromQuery(c *gin.Context) (store.Bounds, error) {
	var b store.Bounds
	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"north", &b.North},
		{"south", &b.South},
		{"east", &b.East},
		{"west", &b.West},
	} {
		raw := c.Query(p.name)
		if raw == "" {
			return b, fmt.Errorf("%s is required", p.name)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return b, fmt.Errorf("%s must be a number", p.name)
		}
		*p.dst = v
	}
	return b, nil
}
