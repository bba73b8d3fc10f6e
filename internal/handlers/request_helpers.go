package handlers

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/shop"
)

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Errors  []shop.FieldError `json:"errors,omitempty"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		zap.L().Error("panic recovered", zap.String("route", route), zap.Any("panic", r))
		c.AbortWithStatusJSON(http.StatusInternalServerError, envelope{Message: "internal server error"})
	}
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	timeout := config.AppEnv.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	zap.L().Debug("request rejected", zap.String("route", route), zap.Int("status", status), zap.String("message", message))
	c.AbortWithStatusJSON(status, envelope{Message: message})
}

func statusFor(kind shop.Kind) int {
	switch kind {
	case shop.KindEmptyCart, shop.KindInsufficientStock, shop.KindInvalidTransition, shop.KindValidation:
		return http.StatusBadRequest
	case shop.KindNotFound:
		return http.StatusNotFound
	case shop.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError renders a service error. Unexpected failures keep their detail
// out of production responses.
func respondError(c *gin.Context, route string, err error) {
	var se *shop.Error
	if !errors.As(err, &se) {
		zap.L().Error("request failed", zap.String("route", route), zap.Error(err))
		message := err.Error()
		if config.AppEnv.IsProduction() {
			message = "internal server error"
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, envelope{Message: message})
		return
	}

	body := envelope{Message: se.Message, Errors: se.Fields}
	if se.Kind == shop.KindInsufficientStock && !se.ProductID.IsZero() {
		body.Data = gin.H{
			"productId": se.ProductID.Hex(),
			"available": se.Available,
			"requested": se.Requested,
		}
	}
	c.AbortWithStatusJSON(statusFor(se.Kind), body)
}

func respondValidationError(c *gin.Context, route string, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		respondWithError(c, http.StatusBadRequest, route, "invalid request body")
		return
	}

	fields := make([]shop.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, shop.FieldError{Field: fe.Field(), Message: validationMessage(fe)})
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, envelope{Message: "validation failed", Errors: fields})
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min", "gte":
		return fe.Field() + " must be at least " + fe.Param()
	case "max", "lte":
		return fe.Field() + " must be at most " + fe.Param()
	case "oneof":
		return fe.Field() + " must be one of " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}

// jsonFieldName makes validator report fields by their JSON names.
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

func objectIDParam(c *gin.Context, route, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		respondWithError(c, http.StatusBadRequest, route, "invalid "+name)
		return primitive.NilObjectID, false
	}
	return id, true
}

func currentUserID(c *gin.Context, route string) (primitive.ObjectID, bool) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
		return primitive.NilObjectID, false
	}
	return p.ID, true
}
