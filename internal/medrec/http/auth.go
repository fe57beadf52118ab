package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/medrec/internal/medrec/service"
	"github.com/aussiebroadwan/medrec/internal/medrec/store"
	"github.com/aussiebroadwan/medrec/pkg/httpx"
	"github.com/aussiebroadwan/medrec/pkg/medrecsdk"
	"github.com/aussiebroadwan/medrec/pkg/slogx"
)

type AuthHandler struct {
	Auth  *service.AuthService
	Store store.Store
}

// HandleRegister creates an account.
//
//	@Summary		Register a new user
//	@Description	Creates an account with the given role. Clinic admins must also supply clinic_name and clinic_license, and a clinic is created for them.
//	@Description	Patients get a patient profile. The admin role can only be claimed by the very first account.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		medrecsdk.RegisterRequest	true	"Account details"
//	@Success		201		{object}	medrecsdk.UserResponse		"Created account"
//	@Failure		400		{object}	medrecsdk.ErrorResponse		"Validation failed or email already registered"
//	@Failure		403		{object}	medrecsdk.ErrorResponse		"Admin self-registration refused"
//	@Failure		429		{object}	medrecsdk.ErrorResponse		"Rate limit exceeded"
//	@Router			/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req medrecsdk.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		medrecsdk.ErrInvalidRequest.WithDescription("invalid JSON body").WriteError(w)
		return
	}

	res, err := h.Auth.Register(r.Context(), service.RegisterInput{
		Email:         req.Email,
		Password:      req.Password,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Role:          req.Role,
		ClinicName:    req.ClinicName,
		ClinicLicense: req.ClinicLicense,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(res.User))
}

// HandleLogin is the form-encoded password login.
//
//	@Summary		Log in (form)
//	@Description	Password login with an application/x-www-form-urlencoded body. The email goes in the username field.
//	@Tags			Auth
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			username	formData	string					true	"Email address"
//	@Param			password	formData	string					true	"Password"
//	@Success		200			{object}	medrecsdk.TokenResponse	"Access token"
//	@Failure		400			{object}	medrecsdk.ErrorResponse	"Malformed request or inactive user"
//	@Failure		401			{object}	medrecsdk.ErrorResponse	"Incorrect email or password"
//	@Failure		429			{object}	medrecsdk.ErrorResponse	"Rate limit exceeded"
//	@Router			/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		medrecsdk.ErrInvalidRequest.WithDescription("invalid form body").WriteError(w)
		return
	}
	email := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if email == "" || password == "" {
		medrecsdk.ErrInvalidRequest.WithDescription("username and password are required").WriteError(w)
		return
	}

	h.login(w, r, email, password, service.LoginMethodForm)
}

// HandleLoginJSON is the JSON password login.
//
//	@Summary		Log in (JSON)
//	@Description	Password login with a JSON body.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		medrecsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	medrecsdk.TokenResponse	"Access token"
//	@Failure		400		{object}	medrecsdk.ErrorResponse	"Malformed request or inactive user"
//	@Failure		401		{object}	medrecsdk.ErrorResponse	"Incorrect email or password"
//	@Failure		429		{object}	medrecsdk.ErrorResponse	"Rate limit exceeded"
//	@Router			/auth/login/json [post].
func (h *AuthHandler) HandleLoginJSON(w http.ResponseWriter, r *http.Request) {
	var req medrecsdk.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		medrecsdk.ErrInvalidRequest.WithDescription("invalid JSON body").WriteError(w)
		return
	}
	if req.Email == "" || req.Password == "" {
		medrecsdk.ErrInvalidRequest.WithDescription("email and password are required").WriteError(w)
		return
	}

	h.login(w, r, req.Email, req.Password, service.LoginMethodJSON)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, email, password, method string) {
	res, err := h.Auth.Login(r.Context(), email, password, method)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, medrecsdk.TokenResponse{
		AccessToken: res.AccessToken,
		TokenType:   "bearer",
		ExpiresIn:   int(res.ExpiresIn.Seconds()),
		User:        toUserResponse(res.User),
	})
}

// HandleMe returns the caller.
//
//	@Summary		Current user
//	@Description	Returns the authenticated account and the clinic and patient scope resolved for it.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	medrecsdk.MeResponse	"Authenticated user"
//	@Failure		401	{object}	medrecsdk.ErrorResponse	"Invalid or missing access token"
//	@Router			/auth/me [get].
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, ok := service.PrincipalFromContext(ctx)
	if !ok {
		medrecsdk.ErrInvalidToken.WriteError(w)
		return
	}

	user, err := h.Store.Users().GetUserByID(ctx, p.UserID)
	if err != nil {
		slogx.FromContext(ctx).Warn("failed to load user", "user_id", p.UserID, "err", err)
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, medrecsdk.MeResponse{
		UserResponse: toUserResponse(user),
		ClinicID:     p.ClinicID,
		PatientID:    p.PatientID,
	})
}

// HandleSetActive enables or disables an account.
//
//	@Summary		Activate or deactivate a user
//	@Description	Admin only. Deactivated accounts can no longer log in and their outstanding tokens stop authenticating.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"User ID"
//	@Param			request	body		medrecsdk.SetActiveRequest	true	"Desired state"
//	@Success		200		{object}	medrecsdk.UserResponse		"Updated account"
//	@Failure		400		{object}	medrecsdk.ErrorResponse		"Malformed request or own account"
//	@Failure		401		{object}	medrecsdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		403		{object}	medrecsdk.ErrorResponse		"Not an admin"
//	@Failure		404		{object}	medrecsdk.ErrorResponse		"No such user"
//	@Router			/users/{id}/active [patch].
func (h *AuthHandler) HandleSetActive(w http.ResponseWriter, r *http.Request) {
	p, _ := service.PrincipalFromContext(r.Context())

	var req medrecsdk.SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		medrecsdk.ErrInvalidRequest.WithDescription("invalid JSON body").WriteError(w)
		return
	}

	user, err := h.Auth.SetActive(r.Context(), p, r.PathValue("id"), req.IsActive)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}
