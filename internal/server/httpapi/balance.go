package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"owasp-controls-demo/backend/internal/audit"
	"owasp-controls-demo/backend/internal/identity/domain"
	"owasp-controls-demo/backend/internal/integrity"
	"owasp-controls-demo/backend/internal/pipeline"
)

type balanceRequest struct {
	AccountID string `json:"account_id"`
	Balance   *int64 `json:"balance"`
	Signature string `json:"signature"`
}

func (b balanceRequest) update() (integrity.BalanceUpdate, error) {
	if strings.TrimSpace(b.AccountID) == "" || b.Balance == nil {
		return integrity.BalanceUpdate{}, missing("account_id or balance")
	}
	return integrity.BalanceUpdate{AccountID: b.AccountID, Balance: *b.Balance}, nil
}

// UpdateBalance handles POST /balance/{variant}. Both variants only let the owner update an
// account; the secure variant also requires a signature over the account id and balance.
func (a *API) UpdateBalance(w http.ResponseWriter, r *http.Request) {
	v, ok := variant(r)
	if !ok {
		a.writeError(w, r, pipeline.VariantSecure, errUnknownVariant)
		return
	}
	var body balanceRequest
	if err := decodeJSON(r, &body); err != nil {
		a.writeError(w, r, v, err)
		return
	}
	u, err := body.update()
	if err != nil {
		a.writeError(w, r, v, err)
		return
	}
	out, ok := a.run(w, r, pipeline.Request{
		Variant:          v,
		Name:             audit.ActionBalanceUpdated,
		ResourceOwnerID:  u.AccountID,
		EnforceOwnership: true,
		Payload:          &u,
		Signature:        body.Signature,
		Action: func(ctx context.Context, _ *domain.Identity) (any, error) {
			acct, err := a.deps.Accounts.SetBalance(ctx, u.AccountID, u.Balance)
			if err != nil {
				return nil, err
			}
			if acct == nil {
				return nil, fmt.Errorf("account %s: %w", u.AccountID, errNotFound)
			}
			return acct, nil
		},
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Balance updated (%s)", v),
		"account": out.Result,
	})
}

// Signature handles POST /signature, a helper that signs {account_id, balance} the way a
// trusted client would.
func (a *API) Signature(w http.ResponseWriter, r *http.Request) {
	var body balanceRequest
	if err := decodeJSON(r, &body); err != nil {
		a.writeError(w, r, pipeline.VariantSecure, err)
		return
	}
	u, err := body.update()
	if err != nil {
		a.writeError(w, r, pipeline.VariantSecure, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"signature": a.deps.Signer.Sign(u)})
}
