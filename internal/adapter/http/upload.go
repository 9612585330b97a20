package http

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/civix-hazard-service/internal/domain"
	"github.com/gin-gonic/gin"
)

type uploadResponse struct {
	PhotoURL   string    `json:"photoUrl"`
	PhotoID    string    `json:"photoId"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// upload accepts a multipart "photo" file or a JSON body {"photo": "<base64 or data URL>"}.
func (s *Server) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.deps.MaxUploadBytes)

	data, err := s.readPhoto(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		s.fail(c, domain.NewError(domain.KindUploadFailed, "cannot identify image file"))
		return
	}

	photoID := s.deps.PhotoIDs()
	url, size, err := s.deps.Photos.Save(c.Request.Context(), photoID+".jpg", contentType, bytes.NewReader(data))
	if err != nil {
		s.logger.Error("photo save failed", "photo_id", photoID, "error", err)
		s.fail(c, domain.WrapError(domain.KindUploadFailed, err.Error(), err))
		return
	}

	s.logger.Info("photo uploaded", "photo_id", photoID, "size", size)
	c.JSON(http.StatusOK, uploadResponse{
		PhotoURL:   url,
		PhotoID:    photoID,
		Size:       size,
		UploadedAt: domain.Now(),
	})
}

func (s *Server) readPhoto(c *gin.Context) ([]byte, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("photo")
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				return nil, domain.NewError(domain.KindNoFile, "No photo provided")
			}
			return nil, domain.WrapError(domain.KindUploadFailed, err.Error(), err)
		}
		return readFormFile(fh)
	}

	var body struct {
		Photo *string `json:"photo"`
	}
	if err := bindJSON(c, &body); err != nil || body.Photo == nil {
		return nil, domain.NewError(domain.KindNoFile, "No photo provided")
	}
	return decodeDataURL(*body.Photo)
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, domain.WrapError(domain.KindUploadFailed, err.Error(), err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.WrapError(domain.KindUploadFailed, err.Error(), err)
	}
	return data, nil
}

// decodeDataURL accepts raw base64 or a data URL and returns the decoded bytes.
func decodeDataURL(s string) ([]byte, error) {
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, domain.WrapError(domain.KindUploadFailed, err.Error(), err)
	}
	return data, nil
}

func (s *Server) serveUpload(c *gin.Context) {
	name := filepath.Base(c.Param("file"))
	if s.deps.UploadDir == "" || name == "." || name == "/" {
		writeError(c, domain.NewError(domain.KindNotFound, "Endpoint not found"))
		return
	}
	path := filepath.Join(s.deps.UploadDir, name)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		writeError(c, domain.NewError(domain.KindNotFound, "Endpoint not found"))
		return
	}
	c.File(path)
}
