package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/store"
)

func Health(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /health"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}
		respond(c, http.StatusOK, "ok", nil)
	}
}
