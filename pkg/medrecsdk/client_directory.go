package medrecsdk

import (
	"context"
	"net/http"
	"net/url"
)

// GetClinic returns a clinic the caller may see.
func (c *Client) GetClinic(ctx context.Context, clinicID string) (*ClinicResponse, error) {
	var out ClinicResponse
	if err := c.call(ctx, http.MethodGet, "/clinics/"+url.PathEscape(clinicID), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AssignStaff makes userID a member of clinicID.
func (c *Client) AssignStaff(ctx context.Context, clinicID, userID string) error {
	resp, err := c.do(ctx, http.MethodPost, "/clinics/"+url.PathEscape(clinicID)+"/members",
		AssignStaffRequest{UserID: userID}, "")
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// MyPatientProfile returns the caller's patient record.
func (c *Client) MyPatientProfile(ctx context.Context) (*PatientProfileResponse, error) {
	var out PatientProfileResponse
	if err := c.call(ctx, http.MethodGet, "/patients/me", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
