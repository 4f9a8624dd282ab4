package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/andresvelasquez/ganaderia-backend/api/responses"
	"github.com/andresvelasquez/ganaderia-backend/api/validators"
	"github.com/andresvelasquez/ganaderia-backend/internal/breeds"
	"github.com/andresvelasquez/ganaderia-backend/internal/bulls"
	pkgerrors "github.com/andresvelasquez/ganaderia-backend/pkg/errors"
	"github.com/andresvelasquez/ganaderia-backend/pkg/logger"
)

type createBreedRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	Code string `json:"code" validate:"required,max=10"`
}

// CreateBreed registers a breed in the genetics catalog. Admin only.
func CreateBreed(svc breeds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createBreedRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		breed, err := svc.Create(r.Context(), breeds.CreateParams{
			Name: validators.SanitizeString(req.Name, 100),
			Code: req.Code,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, breed)
	}
}

// ListBreeds returns the full breed catalog.
func ListBreeds(svc breeds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

type createBullRequest struct {
	Name               string     `json:"name" validate:"required,max=150"`
	RegistrationNumber string     `json:"registration_number" validate:"required,max=50"`
	BreedID            string     `json:"breed_id" validate:"required,uuid4"`
	BirthDate          *time.Time `json:"birth_date,omitempty"`
	Notes              *string    `json:"notes,omitempty"`
}

type updateBullRequest struct {
	Name   *string `json:"name,omitempty" validate:"omitempty,max=150"`
	Notes  *string `json:"notes,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

// CreateBull registers a donor bull. Admin only.
func CreateBull(svc bulls.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createBullRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		breedID, err := uuid.Parse(req.BreedID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid breed id"))
			return
		}

		params := bulls.CreateParams{
			Name:               validators.SanitizeString(req.Name, 150),
			RegistrationNumber: req.RegistrationNumber,
			BreedID:            breedID,
			BirthDate:          req.BirthDate,
		}
		if req.Notes != nil {
			notes := validators.SanitizeString(*req.Notes, 500)
			params.Notes = &notes
		}

		bull, err := svc.Create(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, bull)
	}
}

// GetBull returns a single catalog entry with its breed preloaded.
func GetBull(svc bulls.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bullID, err := uuid.Parse(chi.URLParam(r, "bullId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid bull id"))
			return
		}

		bull, err := svc.Get(r.Context(), bullID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bull)
	}
}

// ListBulls returns catalog entries, newest first.
func ListBulls(svc bulls.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := bulls.ListParams{}

		if raw := strings.TrimSpace(r.URL.Query().Get("breed_id")); raw != "" {
			breedID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid breed filter"))
				return
			}
			params.BreedID = &breedID
		}
		params.ActiveOnly = r.URL.Query().Get("active") == "true"

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Limit = limit
		params.Cursor = strings.TrimSpace(r.URL.Query().Get("cursor"))

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// UpdateBull edits mutable bull fields, including deactivation. Admin only.
func UpdateBull(svc bulls.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bullID, err := uuid.Parse(chi.URLParam(r, "bullId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid bull id"))
			return
		}

		var req updateBullRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := bulls.UpdateParams{
			BullID: bullID,
			Active: req.Active,
		}
		if req.Name != nil {
			name := validators.SanitizeString(*req.Name, 150)
			params.Name = &name
		}
		if req.Notes != nil {
			notes := validators.SanitizeString(*req.Notes, 500)
			params.Notes = &notes
		}

		bull, err := svc.Update(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bull)
	}
}
