package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/healthhub/healthhub-service/internal/api/dto"
	"github.com/healthhub/healthhub-service/internal/auth"
	"github.com/healthhub/healthhub-service/internal/domain"
	"github.com/healthhub/healthhub-service/internal/service"
)

const dateLayout = "2006-01-02"

func subjectResponse(subject domain.Subject) any {
	switch s := subject.(type) {
	case *domain.Clinician:
		return clinicianResponse(s)
	case *domain.Patient:
		return patientResponse(s)
	default:
		return nil
	}
}

func clinicianResponse(c *domain.Clinician) dto.ClinicianResponse {
	return dto.ClinicianResponse{
		ID:          c.ID,
		Role:        string(domain.RoleDoctor),
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		PhoneNumber: c.PhoneNumber,
		Verified:    c.Verified,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
	}
}

func patientResponse(p *domain.Patient) dto.PatientResponse {
	resp := dto.PatientResponse{
		ID:              p.ID,
		Role:            string(domain.RolePatient),
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		Email:           p.Email,
		PhoneNumber:     p.PhoneNumber,
		Gender:          p.Gender,
		Address:         p.Address,
		UpdatedPassword: p.UpdatedPassword,
		IsActive:        p.IsActive,
		CreatedAt:       p.CreatedAt,
	}
	if !p.DateOfBirth.IsZero() {
		resp.DateOfBirth = p.DateOfBirth.Format(dateLayout)
	}
	if !p.EmergencyContact.IsZero() {
		resp.EmergencyContact = &dto.EmergencyContact{
			Name:         p.EmergencyContact.Name,
			Relationship: p.EmergencyContact.Relationship,
			PhoneNumber:  p.EmergencyContact.PhoneNumber,
		}
	}
	resp.AssignedDoctors = append(make([]string, 0, len(p.AssignedClinicianIDs)), p.AssignedClinicianIDs...)
	return resp
}

func clinicianViewResponse(v service.ClinicianView) dto.ClinicianResponse {
	resp := clinicianResponse(v.Clinician)
	for _, p := range v.Patients {
		resp.AssignedPatients = append(resp.AssignedPatients, dto.SubjectSummary{
			ID:        p.ID,
			FirstName: p.FirstName,
			LastName:  p.LastName,
			Email:     p.Email,
		})
	}
	return resp
}

func patientViewResponse(v service.PatientView, populateDoctors bool) dto.PatientResponse {
	resp := patientResponse(v.Patient)
	if populateDoctors {
		doctors := make([]dto.SubjectSummary, 0, len(v.Clinicians))
		for _, c := range v.Clinicians {
			doctors = append(doctors, dto.SubjectSummary{ID: c.ID, FirstName: c.FirstName, LastName: c.LastName, Email: c.Email})
		}
		resp.AssignedDoctors = doctors
	}
	for _, e := range v.History {
		resp.ProgramHistory = append(resp.ProgramHistory, dto.ProgramHistoryEntry{
			Program:       programSummary(e.Program),
			AdmissionDate: e.Participant.AdmissionDate,
			DischargeDate: e.Participant.DischargeDate,
			Status:        e.Participant.Status.HistoryStatus(),
		})
	}
	return resp
}

func programSummary(p *domain.Program) dto.ProgramSummary {
	return dto.ProgramSummary{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Type:        string(p.Type),
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		IsActive:    p.IsActive,
	}
}

func programResponse(p *domain.Program) dto.ProgramResponse {
	return programViewResponse(service.ProgramView{Program: p})
}

// programViewResponse renders ids for the coordinator and participant patients
// unless the view resolved them.
func programViewResponse(v service.ProgramView) dto.ProgramResponse {
	p := v.Program
	resp := dto.ProgramResponse{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Type:         string(p.Type),
		Capacity:     p.Capacity,
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
		IsActive:     p.IsActive,
		Coordinator:  p.CoordinatorID,
		Participants: make([]dto.ParticipantResponse, 0, len(p.Participants)),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if c := v.Coordinator; c != nil {
		resp.Coordinator = dto.SubjectSummary{ID: c.ID, FirstName: c.FirstName, LastName: c.LastName, Email: c.Email}
	}
	for _, pt := range p.Participants {
		var patient any = pt.PatientID
		if found, ok := v.Patients[pt.PatientID]; ok {
			patient = dto.SubjectSummary{ID: found.ID, FirstName: found.FirstName, LastName: found.LastName}
		}
		resp.Participants = append(resp.Participants, dto.ParticipantResponse{
			ID:            pt.ID,
			Patient:       patient,
			AdmissionDate: pt.AdmissionDate,
			DischargeDate: pt.DischargeDate,
			Status:        string(pt.Status),
			Notes:         pt.Notes,
		})
	}
	return resp
}

// queryBool reads a flag the way clients send it: only "true" is true.
func queryBool(c *fiber.Ctx, key string) bool {
	return c.Query(key) == "true"
}

// queryFilterBool returns nil when key is absent, so the filter is skipped.
func queryFilterBool(c *fiber.Ctx, key string) *bool {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v := raw == "true"
	return &v
}

func requirePrincipal(c *fiber.Ctx) (auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return auth.Principal{}, fiber.NewError(fiber.StatusUnauthorized, "Authentication required")
	}
	return *principal, nil
}
