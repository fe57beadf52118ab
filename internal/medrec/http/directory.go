package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/medrec/internal/medrec/service"
	"github.com/aussiebroadwan/medrec/pkg/httpx"
	"github.com/aussiebroadwan/medrec/pkg/medrecsdk"
)

type DirectoryHandler struct {
	Directory *service.DirectoryService
}

// HandleGetClinic returns one clinic.
//
//	@Summary		Get clinic
//	@Description	Admins may read any clinic, clinic roles only their own.
//	@Tags			Directory
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string						true	"Clinic ID"
//	@Success		200	{object}	medrecsdk.ClinicResponse	"Clinic"
//	@Failure		401	{object}	medrecsdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		403	{object}	medrecsdk.ErrorResponse		"Outside the caller's scope"
//	@Failure		404	{object}	medrecsdk.ErrorResponse		"No such clinic"
//	@Router			/clinics/{id} [get].
func (h *DirectoryHandler) HandleGetClinic(w http.ResponseWriter, r *http.Request) {
	p, _ := service.PrincipalFromContext(r.Context())

	clinic, err := h.Directory.GetClinic(r.Context(), p, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toClinicResponse(clinic))
}

// HandleAssignStaff moves a staff account into a clinic.
//
//	@Summary		Assign staff to clinic
//	@Description	Admins may assign to any clinic, clinic admins only to their own. The target must be a clinic_staff account.
//	@Tags			Directory
//	@Security		BearerAuth
//	@Accept			json
//	@Param			id		path	string							true	"Clinic ID"
//	@Param			request	body	medrecsdk.AssignStaffRequest	true	"Staff account"
//	@Success		204		"Assigned"
//	@Failure		400		{object}	medrecsdk.ErrorResponse	"Malformed request or target is not staff"
//	@Failure		401		{object}	medrecsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		403		{object}	medrecsdk.ErrorResponse	"Outside the caller's scope"
//	@Failure		404		{object}	medrecsdk.ErrorResponse	"No such clinic or user"
//	@Router			/clinics/{id}/members [post].
func (h *DirectoryHandler) HandleAssignStaff(w http.ResponseWriter, r *http.Request) {
	p, _ := service.PrincipalFromContext(r.Context())

	var req medrecsdk.AssignStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		medrecsdk.ErrInvalidRequest.WithDescription("user_id is required").WriteError(w)
		return
	}

	if err := h.Directory.AssignStaff(r.Context(), p, r.PathValue("id"), req.UserID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleMyPatient returns the caller's patient profile.
//
//	@Summary		My patient profile
//	@Description	Patients only. The read is audited against the patient record.
//	@Tags			Directory
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	medrecsdk.PatientProfileResponse	"Profile"
//	@Failure		401	{object}	medrecsdk.ErrorResponse				"Invalid or missing access token"
//	@Failure		403	{object}	medrecsdk.ErrorResponse				"Not a patient"
//	@Failure		404	{object}	medrecsdk.ErrorResponse				"No profile"
//	@Router			/patients/me [get].
func (h *DirectoryHandler) HandleMyPatient(w http.ResponseWriter, r *http.Request) {
	p, _ := service.PrincipalFromContext(r.Context())

	profile, err := h.Directory.MyPatientProfile(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toPatientResponse(profile))
}
