package http

import (
	"net/http"

	"github.com/couchcryptid/civix-hazard-service/internal/domain"
	"github.com/couchcryptid/civix-hazard-service/internal/hazard"
	"github.com/gin-gonic/gin"
)

// Default search bias point (Ahmedabad).
var defaultSearchCenter = domain.Point{Latitude: 23.0225, Longitude: 72.5714}

func (s *Server) scoreRoutes(c *gin.Context) {
	var q hazard.RouteQuery
	if err := bindJSON(c, &q); err != nil {
		s.fail(c, err)
		return
	}
	routes, err := s.deps.Hazards.ScoreRoutes(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"routes": routes})
}

func (s *Server) checkAlerts(c *gin.Context) {
	var q hazard.AlertQuery
	if err := bindJSON(c, &q); err != nil {
		s.fail(c, err)
		return
	}
	result, err := s.deps.Hazards.CheckAlerts(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusOK, gin.H{"results": []domain.Place{}})
		return
	}
	if s.deps.Geocoder == nil {
		s.fail(c, domain.NewError(domain.KindSearchFailed, "place search is not configured"))
		return
	}

	near := defaultSearchCenter
	if lat := queryFloat(c, "lat"); lat != nil {
		near.Latitude = *lat
	}
	if lng := queryFloat(c, "lng"); lng != nil {
		near.Longitude = *lng
	}

	places, err := s.deps.Geocoder.Search(c.Request.Context(), query, near)
	if err != nil {
		s.logger.Warn("place search failed", "query", query, "error", err)
		s.fail(c, domain.WrapError(domain.KindSearchFailed, err.Error(), err))
		return
	}
	if places == nil {
		places = []domain.Place{}
	}
	c.JSON(http.StatusOK, gin.H{"results": places})
}
