package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/healthhub/healthhub-service/internal/api/dto"
	"github.com/healthhub/healthhub-service/internal/domain"
	"github.com/healthhub/healthhub-service/internal/service"
)

// PatientHandler exposes patient account endpoints.
type PatientHandler struct {
	auth     *service.AuthService
	accounts *service.AccountService
	careTeam *service.CareTeamService
}

// NewPatientHandler constructs handler.
func NewPatientHandler(authService *service.AuthService, accounts *service.AccountService, careTeam *service.CareTeamService) *PatientHandler {
	return &PatientHandler{auth: authService, accounts: accounts, careTeam: careTeam}
}

// Register handles POST /patients.
func (h *PatientHandler) Register(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.RegisterPatientRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	var dob time.Time
	if req.DateOfBirth != "" {
		if dob, err = parseDate(req.DateOfBirth); err != nil {
			return fiber.NewError(http.StatusBadRequest, "dateOfBirth must be YYYY-MM-DD")
		}
	}

	patient, err := h.auth.RegisterPatient(c.UserContext(), principal, service.RegisterPatientInput{
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		DateOfBirth: dob,
		Gender:      req.Gender,
		Address:     req.Address,

		EmergencyContact: emergencyContact(req.EmergencyContact),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "Patient registered successfully",
		"patient": patientResponse(patient),
	})
}

// List handles GET /patients?isActive=&doctorId=&programId=&populateDoctors=&populatePrograms=.
func (h *PatientHandler) List(c *fiber.Ctx) error {
	populateDoctors := queryBool(c, "populateDoctors")
	views, err := h.careTeam.ListPatients(c.UserContext(), service.PatientQuery{
		IsActive:         queryFilterBool(c, "isActive"),
		ClinicianID:      c.Query("doctorId"),
		ProgramID:        c.Query("programId"),
		PopulateDoctors:  populateDoctors,
		PopulatePrograms: queryBool(c, "populatePrograms"),
	})
	if err != nil {
		return err
	}
	patients := make([]dto.PatientResponse, 0, len(views))
	for _, v := range views {
		patients = append(patients, patientViewResponse(v, populateDoctors))
	}
	return c.JSON(fiber.Map{"patients": patients})
}

// Get handles GET /patients/:id.
func (h *PatientHandler) Get(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	populateDoctors := queryBool(c, "populateDoctors")
	view, err := h.careTeam.GetPatient(c.UserContext(), principal, c.Params("id"), populateDoctors, queryBool(c, "populatePrograms"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"patient": patientViewResponse(*view, populateDoctors)})
}

// Update handles PUT /patients/:id.
func (h *PatientHandler) Update(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdatePatientRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	in := service.UpdatePatientInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
	}
	if req.EmergencyContact != nil {
		contact := emergencyContact(req.EmergencyContact)
		in.EmergencyContact = &contact
	}
	patient, err := h.accounts.UpdatePatient(c.UserContext(), principal, c.Params("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Patient updated successfully",
		"patient": patientResponse(patient),
	})
}

// AssignDoctor handles POST /patients/:id/doctors.
func (h *PatientHandler) AssignDoctor(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AssignDoctorRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	patient, err := h.careTeam.AssignClinician(c.UserContext(), principal, c.Params("id"), req.DoctorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Doctor assigned to patient successfully",
		"patient": patientResponse(patient),
	})
}

// RemoveDoctor handles DELETE /patients/:id/doctors/:doctorId.
func (h *PatientHandler) RemoveDoctor(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	patient, err := h.careTeam.UnassignClinician(c.UserContext(), principal, c.Params("id"), c.Params("doctorId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Doctor removed from patient successfully",
		"patient": patientResponse(patient),
	})
}

// ChangePassword handles POST /patients/:id/password.
func (h *PatientHandler) ChangePassword(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	err = h.accounts.ChangePatientPassword(c.UserContext(), principal, service.ChangePasswordInput{
		PatientID:       c.Params("id"),
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Password updated successfully"})
}

// Deactivate handles DELETE /patients/:id.
func (h *PatientHandler) Deactivate(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.accounts.DeactivatePatient(c.UserContext(), principal, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Patient deactivated successfully"})
}

func emergencyContact(req *dto.EmergencyContact) domain.EmergencyContact {
	if req == nil {
		return domain.EmergencyContact{}
	}
	return domain.EmergencyContact{Name: req.Name, Relationship: req.Relationship, PhoneNumber: req.PhoneNumber}
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
