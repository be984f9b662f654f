package httpHandler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"iot-monitor/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func respondOK(c *gin.Context, status int, data interface{}, message string) {
	body := gin.H{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}

// respondError maps usecase errors onto status codes. Anything unrecognised
// is logged and reported as a 500 without details.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		verr *usecases.ValidationError
		nf   *usecases.NotFoundError
		lerr *usecases.LimitExceededError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": verr.Message})
	case errors.As(err, &lerr):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": lerr.Error()})
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": nf.Message})
	default:
		_ = c.Error(err)
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
	}
}

func badRequest(c *gin.Context, message string, details error) {
	body := gin.H{"success": false, "error": message}
	if details != nil {
		body["details"] = details.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}

// queryTime parses an optional ISO-8601 query parameter.
func queryTime(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := usecases.ParseTimestamp(raw)
	if err != nil {
		return nil, &usecases.ValidationError{Message: "Invalid " + name + ". Use ISO-8601."}
	}
	return &t, nil
}

// dateRange reads date_from/date_to, defaulting to the month before now.
func dateRange(c *gin.Context, now time.Time) (time.Time, time.Time, error) {
	from, err := queryTime(c, "date_from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := queryTime(c, "date_to")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end := now.UTC()
	if to != nil {
		end = *to
	}
	start := end.AddDate(0, -1, 0)
	if from != nil {
		start = *from
	}
	return start, end, nil
}

func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}
