package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/pan-pacific/tracking-service/pkg/errors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
	enumMu       sync.Mutex
	enums        = map[string]map[string]bool{
		"service_type":    {},
		"shipment_status": {},
	}
)

var trackingIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]{2,39}$`)

// InitValidator initializes the validator and gin's binding engine with the
// custom tracking validators
func InitValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		configure(validate)

		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			configure(v)
		}
	})
	return validate
}

func configure(v *validator.Validate) {
	_ = v.RegisterValidation("tracking_id", validateTrackingID)
	_ = v.RegisterValidation("service_type", enumValidator("service_type"))
	_ = v.RegisterValidation("shipment_status", enumValidator("shipment_status"))

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
}

// RegisterEnum sets the accepted values of the service_type or
// shipment_status validators
func RegisterEnum(tag string, values ...string) {
	enumMu.Lock()
	defer enumMu.Unlock()
	allowed := make(map[string]bool, len(values))
	for _, v := range values {
		allowed[v] = true
	}
	enums[tag] = allowed
}

func enumValidator(tag string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		enumMu.Lock()
		defer enumMu.Unlock()
		return enums[tag][fl.Field().String()]
	}
}

func validateTrackingID(fl validator.FieldLevel) bool {
	return trackingIDRegex.MatchString(strings.TrimSpace(fl.Field().String()))
}

// GetValidator returns the singleton validator instance
func GetValidator() *validator.Validate {
	return InitValidator()
}

// ValidationErrorFormatter formats validation errors into a map
func ValidationErrorFormatter(err error) map[string]string {
	fields := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			fields[e.Field()] = formatValidationError(e)
		}
	}
	return fields
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "email":
		return "must be a valid email address"
	case "tracking_id":
		return "must be a valid tracking ID (3-40 letters, digits or dashes)"
	case "service_type":
		return "must be a known service type"
	case "shipment_status":
		return "must be a known shipment status"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

func bindingError(err error) *apperrors.AppError {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return apperrors.ErrValidationWithFields("validation failed", ValidationErrorFormatter(validationErrors))
	}
	return apperrors.ErrBadRequest("invalid request: " + err.Error())
}

// BindAndValidate binds the JSON request body and validates it
func BindAndValidate(c *gin.Context, obj interface{}) *apperrors.AppError {
	if err := c.ShouldBindJSON(obj); err != nil {
		return bindingError(err)
	}
	return nil
}

// BindQuery binds and validates query parameters
func BindQuery(c *gin.Context, obj interface{}) *apperrors.AppError {
	if err := c.ShouldBindQuery(obj); err != nil {
		return bindingError(err)
	}
	return nil
}

// ValidateStruct validates a struct using the validator
func ValidateStruct(obj interface{}) *apperrors.AppError {
	if err := GetValidator().Struct(obj); err != nil {
		return bindingError(err)
	}
	return nil
}

// SanitizeString strips NUL bytes and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

// InputSanitizer sanitizes query parameters
func InputSanitizer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.RawQuery != "" {
			query := c.Request.URL.Query()
			for key, values := range query {
				for i, v := range values {
					values[i] = SanitizeString(v)
				}
				query[key] = values
			}
			c.Request.URL.RawQuery = query.Encode()
		}
		c.Next()
	}
}

var acceptedContentTypes = []string{
	"application/json",
	"multipart/form-data",
	"text/csv",
	"text/plain",
	"application/octet-stream",
}

// ContentType rejects POST and PUT bodies the API cannot read
func ContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if (method == http.MethodPost || method == http.MethodPut) && c.Request.ContentLength > 0 {
			contentType := c.GetHeader("Content-Type")
			accepted := false
			for _, prefix := range acceptedContentTypes {
				if strings.HasPrefix(contentType, prefix) {
					accepted = true
					break
				}
			}
			if !accepted {
				AbortWithAppError(c, apperrors.NewAppError(
					"INVALID_CONTENT_TYPE",
					"unsupported Content-Type "+contentType,
					http.StatusUnsupportedMediaType,
				))
				return
			}
		}
		c.Next()
	}
}
