// Package app assembles the server from configuration.
package app

import (
	"context"
	"crypto"
	"fmt"
	"net/http"
	"time"

	"owasp-controls-demo/backend/internal/access"
	"owasp-controls-demo/backend/internal/account"
	"owasp-controls-demo/backend/internal/audit"
	auditrepo "owasp-controls-demo/backend/internal/audit/repository"
	"owasp-controls-demo/backend/internal/comment"
	"owasp-controls-demo/backend/internal/config"
	"owasp-controls-demo/backend/internal/confirm"
	"owasp-controls-demo/backend/internal/credential"
	"owasp-controls-demo/backend/internal/egress"
	identityrepo "owasp-controls-demo/backend/internal/identity/repository"
	identityservice "owasp-controls-demo/backend/internal/identity/service"
	"owasp-controls-demo/backend/internal/integrity"
	"owasp-controls-demo/backend/internal/logging"
	"owasp-controls-demo/backend/internal/pipeline"
	"owasp-controls-demo/backend/internal/ratelimit"
	"owasp-controls-demo/backend/internal/security"
	"owasp-controls-demo/backend/internal/seed"
	"owasp-controls-demo/backend/internal/server"
	"owasp-controls-demo/backend/internal/server/httpapi"
	sessionrepo "owasp-controls-demo/backend/internal/session/repository"
	sessionservice "owasp-controls-demo/backend/internal/session/service"
	"owasp-controls-demo/backend/internal/telemetry"
)

// auditRetention is how long audit day buckets are kept.
const auditRetention = 30 * 24 * time.Hour

// ServiceName names the server in traces and logs.
const ServiceName = "owasp-controls-demo"

// App is an assembled server.
type App struct {
	Handler http.Handler
	Store   *Store
}

// New builds the server over store. Memory stores are seeded with the demo fixtures.
// emitter receives security events and may be nil.
func New(ctx context.Context, cfg *config.Config, store *Store, log logging.Logger, emitter telemetry.EventEmitter) (*App, error) {
	hasher := security.NewHasher(cfg.BcryptCost)
	identities := identityrepo.NewKVRepository(store)
	identitySvc := identityservice.NewService(identities, hasher)
	accounts := account.NewRepository(store)

	if cfg.StoreBackend == config.StoreMemory {
		if err := seed.Apply(ctx, identitySvc, accounts); err != nil {
			return nil, err
		}
		log.Info(ctx, "seeded demo fixtures", "count", len(seed.Fixtures))
	}

	tokens, err := tokenProvider(cfg)
	if err != nil {
		return nil, err
	}
	sessions := sessionservice.NewService(sessionrepo.NewKVRepository(store), identities, tokens)

	var guard access.Guard = access.NewRuleGuard()
	var policyChecker httpapi.PolicyChecker
	if cfg.AccessPolicyEngine == config.PolicyEngineRego {
		rg, err := access.NewRegoGuard(ctx, access.DefaultPolicy, log)
		if err != nil {
			return nil, err
		}
		guard, policyChecker = rg, rg
	}

	signer, err := integrity.NewSigner([]byte(cfg.IntegritySecretKey))
	if err != nil {
		return nil, err
	}
	validator := egress.NewValidator(cfg.AllowedDomains())
	auditLog := audit.NewLogger(auditrepo.NewKVRepository(store, auditRetention), nil, log, emitter)

	p, err := pipeline.New(pipeline.Deps{
		Sessions:  sessions,
		Guard:     guard,
		Gate:      confirm.NewGate(cfg.ConfirmationMarker),
		Signer:    signer,
		Validator: validator,
		Logger:    log,
		Profiles: map[pipeline.Variant]pipeline.Profile{
			pipeline.VariantSecure: {
				Verifier:       credential.NewSecureVerifier(identities, hasher, ratelimit.NewAttemptCounter(store, cfg.LoginMaxAttempts, cfg.AttemptWindow())),
				Authorize:      true,
				Confirm:        true,
				CheckIntegrity: true,
				ValidateEgress: true,
				Fetcher: egress.NewFetcher(egress.FetcherConfig{
					Timeout:      cfg.FetchTimeout(),
					MaxBodyBytes: cfg.EgressMaxBodyBytes,
					Validator:    validator,
				}),
				Audit: auditLog,
			},
			pipeline.VariantInsecure: {
				Verifier: credential.NewInsecureVerifier(identities),
				Fetcher: egress.NewFetcher(egress.FetcherConfig{
					Timeout:      cfg.FetchTimeout(),
					MaxBodyBytes: cfg.EgressMaxBodyBytes,
				}),
			},
		},
	})
	if err != nil {
		return nil, err
	}

	api, err := httpapi.New(httpapi.Deps{
		Pipeline:      p,
		Sessions:      sessions,
		Identities:    identitySvc,
		Accounts:      accounts,
		Comments:      comment.NewStore(store),
		Signer:        signer,
		Audit:         auditLog,
		Pinger:        store.Pinger,
		PolicyChecker: policyChecker,
		Logger:        log,
		SecureCookies: cfg.Env == "production",
	})
	if err != nil {
		return nil, err
	}
	handler := server.NewRouter(api, server.Options{
		ServiceName:       ServiceName,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
		Logger:            log,
	})
	return &App{Handler: handler, Store: store}, nil
}

// tokenProvider loads the configured signing key pair or generates an ephemeral one.
// Sessions signed with an ephemeral key do not survive a restart.
func tokenProvider(cfg *config.Config) (*security.TokenProvider, error) {
	var (
		priv crypto.Signer
		pub  crypto.PublicKey
		err  error
	)
	if cfg.SessionPrivateKey != "" {
		if priv, err = security.ParsePrivateKey(cfg.SessionPrivateKey); err != nil {
			return nil, fmt.Errorf("session private key: %w", err)
		}
		if pub, err = security.ParsePublicKey(cfg.SessionPublicKey); err != nil {
			return nil, fmt.Errorf("session public key: %w", err)
		}
	} else if priv, pub, err = security.GenerateSigningKey(); err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	return security.NewTokenProvider(priv, pub, cfg.SessionIssuer, cfg.SessionAudience, cfg.SessionLifetime()), nil
}
