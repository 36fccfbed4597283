package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	respond "github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/api/respond"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/api/validate"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/auth"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/keys"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/model"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/services"
)

// LicenseService is the subset of services.LicenseService the handlers use.
type LicenseService interface {
	CreateTitle(ctx context.Context, owner model.Owner, signer *keys.Signer, req services.CreateTitleRequest) (*model.CreateResult, error)
	Create(ctx context.Context, owner model.Owner, signer *keys.Signer, req services.CreateLicenseRequest) (*model.CreateResult, error)
	Verify(ctx context.Context, owner model.Owner) *model.VerifyResult
}

// SignerSource returns the application signer for an owner.
type SignerSource interface {
	Get(ctx context.Context, owner model.Owner) (*keys.Signer, error)
}

// LicenseHandler is the HTTP transport for titles and licenses.
type LicenseHandler struct {
	svc     LicenseService
	signers SignerSource
}

func NewLicenseHandler(svc LicenseService, signers SignerSource) *LicenseHandler {
	return &LicenseHandler{svc: svc, signers: signers}
}

type titleRequest struct {
	Ptr         string   `json:"ptr"`
	Origin      string   `json:"origin"`
	Tags        []string `json:"tags"`
	Description *string  `json:"description"`
	Signature   string   `json:"signature"`
}

type licenseUseRequest struct {
	UseCases     []string
	Destinations []string
}

// UnmarshalJSON accepts "usecases" as an alias of "useCases".
func (u *licenseUseRequest) UnmarshalJSON(b []byte) error {
	var raw struct {
		UseCases     []string `json:"useCases"`
		Alias        []string `json:"usecases"`
		Destinations []string `json:"destinations"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	u.UseCases = raw.UseCases
	if len(u.UseCases) == 0 {
		u.UseCases = raw.Alias
	}
	u.Destinations = raw.Destinations
	return nil
}

type licenseRequest struct {
	titleRequest
	Uses   []licenseUseRequest `json:"uses"`
	Terms  string              `json:"terms"`
	Expiry *time.Time          `json:"expiry"`
}

// CreateLicense POST /license/create
func (h *LicenseHandler) CreateLicense(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}
	var req licenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.CreateLicense(req.Ptr, req.Origin, req.Terms, req.Signature, req.Description); err != nil {
		respond.BadRequest(w, err.Error())
		return
	}
	signer, err := h.signers.Get(r.Context(), owner)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	uses := make([]services.LicenseUse, 0, len(req.Uses))
	for _, u := range req.Uses {
		uses = append(uses, services.LicenseUse{UseCases: u.UseCases, Destinations: u.Destinations})
	}
	out, err := h.svc.Create(r.Context(), owner, signer, services.CreateLicenseRequest{
		Ptr:         req.Ptr,
		Origin:      req.Origin,
		Tags:        req.Tags,
		Uses:        uses,
		Terms:       req.Terms,
		Description: req.Description,
		Expiry:      req.Expiry,
		Signature:   req.Signature,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, out)
}

// CreateTitle POST /title/create
func (h *LicenseHandler) CreateTitle(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}
	var req titleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.CreateTitle(req.Ptr, req.Origin, req.Signature, req.Description); err != nil {
		respond.BadRequest(w, err.Error())
		return
	}
	signer, err := h.signers.Get(r.Context(), owner)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out, err := h.svc.CreateTitle(r.Context(), owner, signer, services.CreateTitleRequest{
		Ptr:         req.Ptr,
		Origin:      req.Origin,
		Tags:        req.Tags,
		Description: req.Description,
		Signature:   req.Signature,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, out)
}

// VerifyLicense POST /license/verify
func (h *LicenseHandler) VerifyLicense(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, h.svc.Verify(r.Context(), owner))
}

func ownerOf(w http.ResponseWriter, r *http.Request) (model.Owner, bool) {
	c, ok := auth.FromContext(r.Context())
	if !ok {
		respond.Unauthorized(w, auth.ErrUnauthorized.Error())
		return model.Owner{}, false
	}
	owner, err := c.Owner()
	if err != nil {
		respond.Unauthorized(w, err.Error())
		return model.Owner{}, false
	}
	return owner, true
}

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrBadRequest):
		respond.BadRequest(w, err.Error())
	case errors.Is(err, auth.ErrUnauthorized):
		respond.Unauthorized(w, err.Error())
	default:
		log.Ctx(r.Context()).Error().Stack().Err(err).Str("path", r.URL.Path).Msg("request failed")
		respond.Internal(w, err.Error())
	}
}
