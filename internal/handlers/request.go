package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/charlesng35/estatecrm/internal/middleware"
	"github.com/charlesng35/estatecrm/internal/models"
	appErrors "github.com/charlesng35/estatecrm/pkg/errors"
	"github.com/charlesng35/estatecrm/pkg/response"
	appValidator "github.com/charlesng35/estatecrm/pkg/validator"
)

func init() {
	if err := appValidator.RegisterValidation("department", func(fl validator.FieldLevel) bool {
		return models.Department(fl.Field().String()).Valid()
	}); err != nil {
		panic(err)
	}
}

func requestContext(c *gin.Context) context.Context {
	if c == nil || c.Request == nil {
		return context.Background()
	}
	return c.Request.Context()
}

// currentUser reads the caller set by middleware.Auth and answers 401 when it is missing.
func currentUser(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	return userID, true
}

// bindAndValidate decodes the JSON body into dest and runs the struct rules. On
// failure the error response is already written.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewValidation(describeValidation(err)))
		return false
	}

	return true
}

func describeValidation(err error) string {
	failures, ok := err.(appValidator.ValidationErrors)
	if !ok || len(failures) == 0 {
		return "invalid request payload"
	}

	messages := make([]string, 0, len(failures))
	for _, failure := range failures {
		field := strings.ReplaceAll(failure.Field, "_", " ")
		if field == "" {
			field = "field"
		}
		switch failure.Tag {
		case "required":
			messages = append(messages, field+" is required")
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", field, failure.Param))
		case "department":
			messages = append(messages, fmt.Sprintf("%s must be one of: %s", field, departmentList()))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(failure.Param, " ", ", ")))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid (%s)", field, failure.Tag))
		}
	}
	return strings.Join(messages, "; ")
}

func departmentList() string {
	departments := models.Departments()
	names := make([]string, len(departments))
	for i, department := range departments {
		names[i] = string(department)
	}
	return strings.Join(names, ", ")
}

// feedLimit reads ?limit=. Garbage and negative values fall back to the service default.
func feedLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(strings.TrimSpace(c.Query("limit")))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
