package response

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/transcoderd/internal/repos"
	"github.com/yungbote/transcoderd/internal/services"
)

// Detail writes the {"detail": ...} error envelope the API's clients parse.
func Detail(c *gin.Context, status int, detail string) {
	c.JSON(status, gin.H{"detail": detail})
}

// IntegrityError mirrors the validation-error shape emitted for duplicate
// keys and other constraint violations.
func IntegrityError(c *gin.Context, err error) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"detail": []gin.H{{"loc": []string{}, "msg": err.Error(), "type": "IntegrityError"}},
	})
}

func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// ServiceError maps the service error chain onto the wire contract.
// notFoundDetail names the missing resource since each endpoint words its
// 404 differently.
func ServiceError(c *gin.Context, err error, notFoundDetail string) {
	switch {
	case errors.Is(err, services.ErrPresetNotFound):
		Detail(c, http.StatusNotFound, "Preset not found")
	case errors.Is(err, repos.ErrNotFound):
		Detail(c, http.StatusNotFound, notFoundDetail)
	case errors.Is(err, services.ErrPipelineRequired):
		Detail(c, http.StatusBadRequest, "Either preset_id or pipeline must be provided")
	case errors.Is(err, repos.ErrDuplicate):
		IntegrityError(c, err)
	case errors.Is(err, repos.ErrIllegalTransition):
		Detail(c, http.StatusConflict, err.Error())
	default:
		Detail(c, http.StatusInternalServerError, err.Error())
	}
}

// Page reads the skip/limit query parameters with the bounds the API has
// always enforced: skip >= 0, 1 <= limit <= 100, limit defaulting to 10.
// On a violation it responds 422 and reports false.
func Page(c *gin.Context) (skip, limit int, ok bool) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		Detail(c, http.StatusUnprocessableEntity, "skip must be a non-negative integer")
		return 0, 0, false
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 || limit > 100 {
		Detail(c, http.StatusUnprocessableEntity, "limit must be an integer between 1 and 100")
		return 0, 0, false
	}
	return skip, limit, true
}
