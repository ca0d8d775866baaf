package httpservice

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/alphaflow/blobkit/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// BindJSON decodes the JSON body into req and validates it.
// On failure the error is already attached to the context.
func BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var verrs validator.ValidationErrors
		if !stderrors.As(err, &verrs) {
			HandleError(c, errors.NewValidationError("Invalid JSON: "+err.Error()))
			return false
		}
	}
	return check(c, req)
}

// BindQuery decodes query parameters into req and validates it.
func BindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		var verrs validator.ValidationErrors
		if !stderrors.As(err, &verrs) {
			HandleError(c, errors.NewValidationError("Invalid query parameters: "+err.Error()))
			return false
		}
	}
	return check(c, req)
}

func check(c *gin.Context, req interface{}) bool {
	err := validate.Struct(req)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		HandleError(c, errors.NewValidationError("Validation failed: "+err.Error()))
		return false
	}

	fields := make(map[string]interface{}, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		fields[strings.ToLower(fe.Field())] = rule
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), rule))
	}
	HandleError(c, errors.NewValidationError("Validation failed: "+strings.Join(msgs, "; ")).WithDetails(fields))
	return false
}
