package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"pawtrail/internal/app"
	"pawtrail/internal/domain"
)

type userJSON struct {
	ID       string  `json:"id"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	FullName *string `json:"full_name,omitempty"`
}

type membershipJSON struct {
	OrgID int64  `json:"org_id"`
	Role  string `json:"role"`
}

type authResultJSON struct {
	Token       string           `json:"token"`
	ExpiresAt   string           `json:"expires_at"`
	User        userJSON         `json:"user"`
	Memberships []membershipJSON `json:"memberships"`
}

func toAuthResultJSON(res app.AuthResult) authResultJSON {
	out := authResultJSON{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt.UTC().Format(time.RFC3339),
		User: userJSON{
			ID:       res.User.ID,
			Email:    res.User.Email,
			Phone:    res.User.Phone,
			FullName: res.User.FullName,
		},
		Memberships: []membershipJSON{},
	}
	for _, m := range res.Memberships {
		out.Memberships = append(out.Memberships, membershipJSON{OrgID: m.OrgID, Role: string(m.Role)})
	}
	return out
}

func (h *Handlers) loginUniversal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.Auth.LoginUniversal(r.Context(), req.Identifier, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuthResultJSON(res))
}

func (h *Handlers) phoneSendCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	code, err := h.Auth.SendPhoneCode(r.Context(), req.Phone)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := map[string]any{"status": "sent"}
	if code != "" { // dev mode only
		resp["code"] = code
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) phoneVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
		Code  string `json:"code"`
		OrgID *int64 `json:"org_id"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.Auth.VerifyPhoneCode(r.Context(), req.Phone, req.Code, req.OrgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuthResultJSON(res))
}

func (h *Handlers) googleLogin(w http.ResponseWriter, r *http.Request) {
	h.socialLogin(w, r, domain.ProviderGoogle)
}

func (h *Handlers) appleLogin(w http.ResponseWriter, r *http.Request) {
	h.socialLogin(w, r, domain.ProviderApple)
}

func (h *Handlers) socialLogin(w http.ResponseWriter, r *http.Request, provider domain.IdentityProvider) {
	var req struct {
		Subject  string `json:"subject"`
		Email    string `json:"email"`
		FullName string `json:"full_name"`
		OrgID    *int64 `json:"org_id"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.Auth.SocialLogin(r.Context(), provider, req.Subject, req.Email, req.FullName, req.OrgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuthResultJSON(res))
}

func (h *Handlers) walletChallenge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PublicKey string `json:"public_key"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	nonce, err := h.Auth.WalletChallenge(r.Context(), req.PublicKey)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"nonce": nonce})
}

func (h *Handlers) walletVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PublicKey string `json:"public_key"`
		Signature string `json:"signature"`
		OrgID     *int64 `json:"org_id"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.Auth.WalletVerify(r.Context(), req.PublicKey, req.Signature, req.OrgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuthResultJSON(res))
}

type identityJSON struct {
	ID        int64  `json:"id"`
	Provider  string `json:"provider"`
	Subject   string `json:"subject"`
	CreatedAt string `json:"created_at"`
}

func toIdentityJSON(id domain.Identity) identityJSON {
	return identityJSON{
		ID:        id.ID,
		Provider:  string(id.Provider),
		Subject:   id.Subject,
		CreatedAt: id.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handlers) listIdentities(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	ids, err := h.Identities.List(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]identityJSON, 0, len(ids))
	for _, id := range ids {
		out = append(out, toIdentityJSON(id))
	}
	writeJSON(w, http.StatusOK, map[string]any{"identities": out})
}

func (h *Handlers) linkIdentity(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	var req struct {
		Provider string `json:"provider"`
		Subject  string `json:"subject"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id, err := h.Identities.Link(r.Context(), claims.Subject, domain.IdentityProvider(req.Provider), req.Subject)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toIdentityJSON(id))
}

func (h *Handlers) unlinkIdentity(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid identity id", "identity id must be an integer")
		return
	}
	if err := h.Identities.Unlink(r.Context(), claims.Subject, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
