package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/healthhub/healthhub-service/internal/api/dto"
	"github.com/healthhub/healthhub-service/internal/auth"
	"github.com/healthhub/healthhub-service/internal/service"
)

// ClinicianHandler exposes doctor account endpoints.
type ClinicianHandler struct {
	auth     *service.AuthService
	accounts *service.AccountService
	careTeam *service.CareTeamService
	session  *AuthHandler
}

// NewClinicianHandler constructs handler. Registration signs the clinician in,
// so it shares the refresh cookie settings of the auth handler.
func NewClinicianHandler(authService *service.AuthService, accounts *service.AccountService, careTeam *service.CareTeamService, session *AuthHandler) *ClinicianHandler {
	return &ClinicianHandler{auth: authService, accounts: accounts, careTeam: careTeam, session: session}
}

// Register handles POST /doctors.
func (h *ClinicianHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterClinicianRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	res, err := h.auth.RegisterClinician(c.UserContext(), service.RegisterClinicianInput{
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		Device:      auth.DeviceFromRequest(c),
	})
	if err != nil {
		return err
	}

	h.session.setRefreshCookie(c, res.RefreshToken, res.RefreshExpiresAt)
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message":     "Doctor registered successfully",
		"doctor":      subjectResponse(res.Subject),
		"accessToken": res.AccessToken,
	})
}

// List handles GET /doctors?isActive=&verified=&populatePatients=.
func (h *ClinicianHandler) List(c *fiber.Ctx) error {
	views, err := h.careTeam.ListClinicians(c.UserContext(), service.ClinicianQuery{
		IsActive:         queryFilterBool(c, "isActive"),
		Verified:         queryFilterBool(c, "verified"),
		PopulatePatients: queryBool(c, "populatePatients"),
	})
	if err != nil {
		return err
	}
	doctors := make([]dto.ClinicianResponse, 0, len(views))
	for _, v := range views {
		doctors = append(doctors, clinicianViewResponse(v))
	}
	return c.JSON(fiber.Map{"doctors": doctors})
}

// Get handles GET /doctors/:id.
func (h *ClinicianHandler) Get(c *fiber.Ctx) error {
	view, err := h.careTeam.GetClinician(c.UserContext(), c.Params("id"), queryBool(c, "populatePatients"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"doctor": clinicianViewResponse(*view)})
}

// Update handles PUT /doctors/:id.
func (h *ClinicianHandler) Update(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateClinicianRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	clinician, err := h.accounts.UpdateClinician(c.UserContext(), principal, c.Params("id"), service.UpdateClinicianInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Doctor updated successfully",
		"doctor":  clinicianResponse(clinician),
	})
}

// Deactivate handles DELETE /doctors/:id.
func (h *ClinicianHandler) Deactivate(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.accounts.DeactivateClinician(c.UserContext(), principal, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Doctor deactivated successfully"})
}
