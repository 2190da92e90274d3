package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/healthhub/healthhub-service/internal/api/dto"
	"github.com/healthhub/healthhub-service/internal/service"
)

// ProgramHandler exposes care program endpoints.
type ProgramHandler struct {
	programs *service.ProgramService
}

// NewProgramHandler constructs handler.
func NewProgramHandler(programs *service.ProgramService) *ProgramHandler {
	return &ProgramHandler{programs: programs}
}

// Create handles POST /programs.
func (h *ProgramHandler) Create(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateProgramRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	in := service.CreateProgramInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Capacity:    req.Capacity,
	}
	if in.StartDate, err = optionalDate(req.StartDate, "startDate"); err != nil {
		return err
	}
	if req.EndDate != "" {
		end, err := optionalDate(req.EndDate, "endDate")
		if err != nil {
			return err
		}
		in.EndDate = &end
	}

	program, err := h.programs.Create(c.UserContext(), principal, in)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "Program created successfully",
		"program": programResponse(program),
	})
}

// List handles GET /programs?isActive=&type=&coordinatorId=&cordinator=&participants=.
func (h *ProgramHandler) List(c *fiber.Ctx) error {
	views, err := h.programs.List(c.UserContext(), service.ProgramQuery{
		IsActive:         queryFilterBool(c, "isActive"),
		Type:             c.Query("type"),
		CoordinatorID:    c.Query("coordinatorId"),
		WithCoordinator:  populateCoordinator(c),
		WithParticipants: queryBool(c, "participants"),
	})
	if err != nil {
		return err
	}
	programs := make([]dto.ProgramResponse, 0, len(views))
	for _, v := range views {
		programs = append(programs, programViewResponse(v))
	}
	return c.JSON(fiber.Map{"programs": programs})
}

// Get handles GET /programs/:id.
func (h *ProgramHandler) Get(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	view, err := h.programs.Get(c.UserContext(), principal, c.Params("id"), populateCoordinator(c), queryBool(c, "participants"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"program": programViewResponse(*view)})
}

// Stats handles GET /programs/:id/stats.
func (h *ProgramHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.programs.Stats(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"stats": dto.ProgramStatsResponse{
		TotalParticipants:     stats.TotalParticipants,
		ActiveParticipants:    stats.ActiveParticipants,
		CompletedParticipants: stats.CompletedParticipants,
		WithdrawnParticipants: stats.WithdrawnParticipants,
		OnHoldParticipants:    stats.OnHoldParticipants,
		CapacityPercentage:    stats.CapacityPercentage,
		SpotsAvailable:        stats.SpotsAvailable,
		AverageDurationDays:   stats.AverageDurationDays,
		IsActive:              stats.IsActive,
		HasEnded:              stats.HasEnded,
	}})
}

// Update handles PUT /programs/:id.
func (h *ProgramHandler) Update(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateProgramRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	in := service.UpdateProgramInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Capacity:    req.Capacity,
		IsActive:    req.IsActive,
	}
	if req.StartDate != "" {
		start, err := optionalDate(req.StartDate, "startDate")
		if err != nil {
			return err
		}
		in.StartDate = &start
	}
	if req.EndDate != nil {
		if *req.EndDate == "" {
			in.ClearEndDate = true
		} else {
			end, err := optionalDate(*req.EndDate, "endDate")
			if err != nil {
				return err
			}
			in.EndDate = &end
		}
	}

	program, err := h.programs.Update(c.UserContext(), principal, c.Params("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Program updated successfully",
		"program": programResponse(program),
	})
}

// Deactivate handles DELETE /programs/:id.
func (h *ProgramHandler) Deactivate(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.programs.Deactivate(c.UserContext(), principal, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Program deactivated successfully"})
}

// AddParticipant handles POST /programs/:id/participants.
func (h *ProgramHandler) AddParticipant(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.EnrollPatientRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	program, err := h.programs.Enroll(c.UserContext(), principal, c.Params("id"), req.PatientID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Patient added to program successfully",
		"program": programResponse(program),
	})
}

// UpdateParticipant handles PUT /programs/:id/participants/:patientId.
func (h *ProgramHandler) UpdateParticipant(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateParticipantRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	in := service.UpdateParticipantInput{Status: req.Status, Notes: req.Notes}
	if req.DischargeDate != "" {
		discharged, err := optionalDate(req.DischargeDate, "dischargeDate")
		if err != nil {
			return err
		}
		in.DischargeDate = &discharged
	}

	program, err := h.programs.UpdateParticipant(c.UserContext(), principal, c.Params("id"), c.Params("patientId"), in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Participant status updated successfully",
		"program": programResponse(program),
	})
}

// RemoveParticipant handles DELETE /programs/:id/participants/:patientId?forceRemove=.
func (h *ProgramHandler) RemoveParticipant(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	force := queryBool(c, "forceRemove")
	program, err := h.programs.RemoveParticipant(c.UserContext(), principal, c.Params("id"), c.Params("patientId"), force)
	if err != nil {
		return err
	}
	message := "Participant withdrawn from program"
	if force {
		message = "Participant removed from program"
	}
	return c.JSON(fiber.Map{
		"message": message,
		"program": programResponse(program),
	})
}

// populateCoordinator accepts both spellings of the coordinator flag; older
// clients send "cordinator".
func populateCoordinator(c *fiber.Ctx) bool {
	return queryBool(c, "coordinator") || queryBool(c, "cordinator")
}

// optionalDate parses a date field; an empty value yields the zero time.
func optionalDate(raw, field string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := parseDate(raw)
	if err != nil {
		return time.Time{}, fiber.NewError(http.StatusBadRequest, field+" must be YYYY-MM-DD")
	}
	return t, nil
}
