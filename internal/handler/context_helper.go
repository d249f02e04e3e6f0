package handler

import (
	"bytes"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/civreg/personnel-api/internal/middleware"
	"github.com/civreg/personnel-api/internal/models"
	"github.com/civreg/personnel-api/internal/service"
	"github.com/civreg/personnel-api/pkg/storage"
)

func userFromContext(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

// formUpload extracts an optional multipart file field. A missing field
// returns (nil, nil); only read failures surface as errors.
func formUpload(c *gin.Context, field string) (*storage.Upload, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return nil, nil
	}
	src, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	reader, ok := src.(io.ReadSeeker)
	if !ok {
		buf, readErr := io.ReadAll(src)
		if readErr != nil {
			return nil, readErr
		}
		reader = bytes.NewReader(buf)
	}
	return &storage.Upload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Content:  reader,
	}, nil
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
