package docs

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

//go:embed openapi.json
var openAPI []byte

// Mount serves the OpenAPI document at /swagger/doc.json and the Swagger UI
// under /swagger/.
func Mount(r chi.Router) {
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(openAPI)
	})
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
}
