package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chapterops/palms-server/internal/lottery"
	"github.com/chapterops/palms-server/internal/report"
	"github.com/chapterops/palms-server/internal/scoring"
)

type errResponse struct {
	Error string `json:"error"`
}

func renderErr(c *gin.Context, status int, msg string) {
	c.JSON(status, errResponse{Error: msg})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"name":    s.cfg.ServerName,
		"version": s.cfg.Version,
	})
}

// saveUpload writes the uploaded PDF into the configured report
// directory under a fresh name and returns its path.
func (s *Server) saveUpload(c *gin.Context) (string, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return "", fmt.Errorf("missing 'file' form field: %w", err)
	}
	if !strings.HasSuffix(strings.ToLower(file.Filename), ".pdf") {
		return "", fmt.Errorf("file is not a PDF: %s", file.Filename)
	}
	if file.Size > s.cfg.MaxFileSize {
		return "", fmt.Errorf("file too large: %d bytes (max: %d bytes)", file.Size, s.cfg.MaxFileSize)
	}

	path := filepath.Join(s.cfg.PDFDirectory, uuid.NewString()+".pdf")
	if err := c.SaveUploadedFile(file, path); err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	return path, nil
}

func (s *Server) handleUploadReport(c *gin.Context) {
	path, err := s.saveUpload(c)
	if err != nil {
		renderErr(c, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := s.reports.Ingest(path)
	if err != nil {
		// Binary-format failures are the one fatal class; the client
		// gets a generic parse failure.
		s.log.Warn("report ingestion failed", zap.String("path", path), zap.Error(err))
		renderErr(c, http.StatusUnprocessableEntity, "parse failed: not a readable PALMS report")
		return
	}

	c.JSON(http.StatusCreated, rep)
}

func (s *Server) handleListReports(c *gin.Context) {
	c.JSON(http.StatusOK, s.reports.History())
}

func (s *Server) handleCurrentReport(c *gin.Context) {
	rep, ok := s.reports.Current()
	if !ok {
		renderErr(c, http.StatusNotFound, "no current report")
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) handleReportSummary(c *gin.Context) {
	summary, ok := s.reports.Summary()
	if !ok {
		renderErr(c, http.StatusNotFound, "no current report")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleGetReport(c *gin.Context) {
	rep, ok := s.reports.Get(c.Param("id"))
	if !ok {
		renderErr(c, http.StatusNotFound, "report not found")
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) handleSetCurrentReport(c *gin.Context) {
	if err := s.reports.SetCurrent(c.Param("id")); err != nil {
		if errors.Is(err, report.ErrNotFound) {
			renderErr(c, http.StatusNotFound, "report not found")
			return
		}
		renderErr(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDeleteReport(c *gin.Context) {
	if err := s.reports.Delete(c.Param("id")); err != nil {
		if errors.Is(err, report.ErrNotFound) {
			renderErr(c, http.StatusNotFound, "report not found")
			return
		}
		renderErr(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

// handleHalfYearUpload ingests a half-year report into the rating
// table. Optional form field "training_credits" carries a JSON object
// of member name to credits.
func (s *Server) handleHalfYearUpload(c *gin.Context) {
	path, err := s.saveUpload(c)
	if err != nil {
		renderErr(c, http.StatusBadRequest, err.Error())
		return
	}

	credits := map[string]int{}
	if raw := c.PostForm("training_credits"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &credits); err != nil {
			renderErr(c, http.StatusBadRequest, "invalid training_credits: "+err.Error())
			return
		}
	}

	parsed, records, err := s.reports.IngestHalfYear(path, credits)
	if err != nil {
		s.log.Warn("half-year ingestion failed", zap.String("path", path), zap.Error(err))
		renderErr(c, http.StatusUnprocessableEntity, "parse failed: not a readable PALMS report")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"header":  parsed.Header,
		"members": len(parsed.Members),
		"ratings": records,
	})
}

func (s *Server) handleListRatings(c *gin.Context) {
	if statusParam := c.Query("status"); statusParam != "" {
		status := scoring.Status(statusParam)
		if !scoring.ValidStatus(status) {
			renderErr(c, http.StatusBadRequest, "unknown status: "+statusParam)
			return
		}
		c.JSON(http.StatusOK, s.ratings.ByStatus(status))
		return
	}
	c.JSON(http.StatusOK, s.ratings.Snapshot())
}

type trainingCreditsRequest struct {
	Credits int `json:"credits" binding:"min=0"`
}

func (s *Server) handleTrainingCredits(c *gin.Context) {
	var req trainingCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderErr(c, http.StatusBadRequest, err.Error())
		return
	}

	rec, ok := s.ratings.UpdateTrainingCredits(c.Param("name"), req.Credits)
	if !ok {
		renderErr(c, http.StatusNotFound, "member not found")
		return
	}
	c.JSON(http.StatusOK, rec)
}

type overrideRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) handleManualOverride(c *gin.Context) {
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderErr(c, http.StatusBadRequest, err.Error())
		return
	}

	status := scoring.Status(req.Status)
	if !scoring.ValidStatus(status) {
		renderErr(c, http.StatusBadRequest, "unknown status: "+req.Status)
		return
	}

	rec, ok := s.ratings.ManualOverride(c.Param("name"), status)
	if !ok {
		renderErr(c, http.StatusNotFound, "member not found")
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleClearOverride(c *gin.Context) {
	rec, ok := s.ratings.ClearOverride(c.Param("name"))
	if !ok {
		renderErr(c, http.StatusNotFound, "member not found")
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleLotteryCandidates(c *gin.Context) {
	c.JSON(http.StatusOK, s.lotto.Candidates())
}

func (s *Server) handleStartSession(c *gin.Context) {
	c.JSON(http.StatusCreated, gin.H{"session_id": s.lotto.StartNewSession()})
}

type drawRequest struct {
	Count int `json:"count"`
}

// handleDraw draws count winners (default 1). An exhausted pool is not
// an error: the winners list is simply shorter than requested, possibly
// empty.
func (s *Server) handleDraw(c *gin.Context) {
	req := drawRequest{Count: 1}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			renderErr(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Count < 1 {
		renderErr(c, http.StatusBadRequest, "count must be at least 1")
		return
	}

	winners := s.lotto.DrawMany(req.Count)
	if winners == nil {
		winners = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"winners": winners})
}

func (s *Server) handleLotteryRecords(c *gin.Context) {
	c.JSON(http.StatusOK, s.lotto.Records())
}

func (s *Server) handleSessionRecords(c *gin.Context) {
	recs := s.lotto.SessionRecords()
	if recs == nil {
		recs = []lottery.Record{}
	}
	c.JSON(http.StatusOK, recs)
}

type policyRequest struct {
	ExcludeWinners *bool `json:"exclude_winners" binding:"required"`
}

func (s *Server) handleLotteryPolicy(c *gin.Context) {
	var req policyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderErr(c, http.StatusBadRequest, err.Error())
		return
	}
	s.lotto.SetExcludeWinners(*req.ExcludeWinners)
	c.JSON(http.StatusOK, gin.H{"exclude_winners": *req.ExcludeWinners})
}

func (s *Server) handleClearLotteryRecords(c *gin.Context) {
	s.lotto.ClearRecords()
	c.Status(http.StatusNoContent)
}

func (s *Server) handleClearAllData(c *gin.Context) {
	if err := s.reports.ClearAll(); err != nil {
		renderErr(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}
