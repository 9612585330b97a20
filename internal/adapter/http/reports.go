package http

import (
	"math"
	"net/http"
	"strconv"

	"github.com/couchcryptid/civix-hazard-service/internal/domain"
	"github.com/couchcryptid/civix-hazard-service/internal/hazard"
	"github.com/gin-gonic/gin"
)

func (s *Server) listReports(c *gin.Context) {
	reports, err := s.deps.Hazards.ListReports(c.Request.Context(), hazard.ListQuery{
		Latitude:  queryFloat(c, "lat"),
		Longitude: queryFloat(c, "lng"),
		Radius:    queryFloat(c, "radius"),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	if reports == nil {
		reports = []domain.NearbyReport{}
	}
	c.JSON(http.StatusOK, reports)
}

func (s *Server) getReport(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}
	report, err := s.deps.Hazards.GetReport(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) createReport(c *gin.Context) {
	var in hazard.CreateReportInput
	if err := bindJSON(c, &in); err != nil {
		s.fail(c, err)
		return
	}
	report, err := s.deps.Hazards.CreateReport(c.Request.Context(), currentUser(c), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (s *Server) deleteReport(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}
	if err := s.deps.Hazards.DeleteReport(c.Request.Context(), currentUser(c), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Report deleted successfully"})
}

func (s *Server) voteReport(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}
	var body struct {
		Vote any `json:"vote"`
	}
	if err := bindJSON(c, &body); err != nil {
		s.fail(c, err)
		return
	}
	result, err := s.deps.Hazards.VoteReport(c.Request.Context(), currentUser(c), id, voteValue(body.Vote))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) verifyReport(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}
	result, err := s.deps.Hazards.VerifyReport(c.Request.Context(), currentUser(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.deps.Hazards.Stats(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// reportID parses the :id path segment. Non-integer ids do not match any
// endpoint, so they answer like an unknown route.
func reportID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeError(c, domain.NewError(domain.KindNotFound, "Endpoint not found"))
		return 0, false
	}
	return id, true
}

// queryFloat returns the named query parameter, or nil when it is missing or not a number.
func queryFloat(c *gin.Context, key string) *float64 {
	raw, ok := c.GetQuery(key)
	if !ok {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// voteValue maps a decoded JSON vote to an int. Anything that is not a whole
// number becomes 0, which the service rejects as an invalid vote.
func voteValue(v any) int {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || math.Abs(f) > 1 {
		return 0
	}
	return int(f)
}
