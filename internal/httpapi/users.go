package httpapi

import (
	"net/http"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/middleware"
)

func (a *api) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	_, err := a.svc.Register(r.Context(), sessionauth.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, messageResponse{Message: "please check your mail!!!"})
}

func (a *api) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	user, err := a.svc.UpdateProfile(r.Context(), middleware.UserIDFromContext(r.Context()), sessionauth.UpdateProfileInput{
		Name:     req.Name,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, user)
}

func (a *api) deleteAccount(w http.ResponseWriter, r *http.Request) {
	c, err := a.carrier(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.svc.DeleteAccount(r.Context(), c.UserID()); err != nil {
		a.fail(w, r, err)
		return
	}
	a.clearSession(r, c)
	middleware.WriteJSON(w, http.StatusOK, messageResponse{Message: "Account deleted"})
}

func (a *api) verifyUser(w http.ResponseWriter, r *http.Request) {
	q := verifyQuery{Token: r.URL.Query().Get("token")}
	if err := validateStruct(&q); err != nil {
		a.fail(w, r, err)
		return
	}

	user, err := a.svc.VerifyEmail(r.Context(), q.Token)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, user)
}

func (a *api) resendVerification(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if _, err := a.svc.ResendVerification(r.Context(), req.Identifier); err != nil {
		a.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, messageResponse{Message: "Verification email sent"})
}
