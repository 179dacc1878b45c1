package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/qr-service/docs"
	"github.com/vadimbarashkov/qr-service/internal/database"
	"github.com/vadimbarashkov/qr-service/internal/safebrowsing"
	"github.com/vadimbarashkov/qr-service/internal/service"
	"github.com/vadimbarashkov/qr-service/pkg/response"
)

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

func handleAPIDocs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(docs.Spec)
}

func toThreatMatches(matches []safebrowsing.ThreatMatch) []response.ThreatMatch {
	if len(matches) == 0 {
		return nil
	}

	res := make([]response.ThreatMatch, 0, len(matches))
	for _, m := range matches {
		res = append(res, response.ThreatMatch{
			ThreatType:      m.ThreatType,
			PlatformType:    m.PlatformType,
			ThreatEntryType: m.ThreatEntryType,
			Threat:          response.ThreatEntry{URL: m.Threat.URL},
			CacheDuration:   m.CacheDuration,
		})
	}

	return res
}

// requireJSON answers requests whose body is not declared as JSON with the
// invalid URL envelope, the same way an undecodable body is answered.
func requireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct := strings.ToLower(strings.TrimSpace(strings.Split(r.Header.Get("Content-Type"), ";")[0]))
		if ct != "application/json" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.InvalidURLResponse)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type generateQRRequest struct {
	URL string `json:"url" validate:"required,weburl"`
}

func handleGenerateQR(svc QRService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleGenerateQR"

	return func(w http.ResponseWriter, r *http.Request) {
		var req generateQRRequest

		// Empty and malformed bodies are both reported as an invalid URL.
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.InvalidURLResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		qr, err := svc.Generate(r.Context(), req.URL)
		if err != nil {
			var unsafeErr *service.UnsafeURLError

			switch {
			case errors.Is(err, service.ErrInvalidURL):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.InvalidURLResponse)
			case errors.As(err, &unsafeErr):
				if unsafeErr.Verdict.Failed() {
					httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})
				}

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.UnsafeURLResponse(toThreatMatches(unsafeErr.Verdict.Matches)))
			case errors.Is(err, service.ErrUnreachableURL):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.URLNotExistResponse)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		w.Write(qr.Image)
	}
}

func handleDeleteQR(svc QRService) http.HandlerFunc {
	const op = "api.http.handleDeleteQR"
	const successMsg = "QR code, URL, and record deleted!"

	return func(w http.ResponseWriter, r *http.Request) {
		url := r.URL.Query().Get("url")
		if url == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.InvalidURLResponse)
			return
		}

		if _, err := svc.Delete(r.Context(), url); err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.URLNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg))
	}
}
