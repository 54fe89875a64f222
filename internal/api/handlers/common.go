package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/sightline/internal/models"
	"github.com/yoockh/sightline/internal/utils"
)

const maxImageBytes = 10 << 20

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	code, msg := utils.Public(err)
	c.JSON(utils.HTTPStatus(err), APIError{Code: code, Message: msg})
}

// sessionParam falls back to the default session for an empty path segment.
func sessionParam(c *gin.Context) string {
	if s := c.Param("session_id"); s != "" {
		return s
	}
	return models.DefaultSessionID
}

// readFormFile returns nil, nil for an absent field.
func readFormFile(c *gin.Context, field string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	return readUpload(fh)
}

var errImageTooLarge = errors.New("file too large (max 10MB)")

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > maxImageBytes {
		return nil, errImageTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readImage(f)
}

// readImage fails rather than truncating a body over maxImageBytes.
func readImage(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxImageBytes {
		return nil, errImageTooLarge
	}
	return b, nil
}
