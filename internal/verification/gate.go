package verification

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/khidma-co/khidma/internal/audit"
	"github.com/khidma-co/khidma/internal/config"
	"github.com/khidma-co/khidma/internal/notify"
	"github.com/khidma-co/khidma/pkg/metrics"
)

// System defines the public contract for the verification gate.
type System interface {
	Handler() *Handler

	// Issue generates a one-time code for the phone and delivers it over
	// the outbound channel. Rejected with ErrLockedOut while the phone is
	// locked out.
	Issue(ctx context.Context, phone string) error

	// Check verifies a submitted code. Success mints a Session; the
	// configured number of failures locks the phone out.
	Check(ctx context.Context, phone, code string) (*Session, error)
}

type gate struct {
	cfg      config.VerificationConfig
	notifier notify.Notifier
	logger   *slog.Logger

	mu       sync.Mutex
	codes    *gocache.Cache
	lockouts *gocache.Cache
}

// New creates a verification gate backed by in-process TTL stores.
func New(cfg config.VerificationConfig, notifier notify.Notifier, logger *slog.Logger) System {
	ttl := cfg.CodeTTLDuration()
	lockout := cfg.LockoutDuration()

	return &gate{
		cfg:      cfg,
		notifier: notifier,
		logger:   logger.With("system", "verification"),
		codes:    gocache.New(ttl, ttl),
		lockouts: gocache.New(lockout, time.Hour),
	}
}

func (g *gate) Handler() *Handler {
	return NewHandler(g, g.logger)
}

func (g *gate) Issue(ctx context.Context, phone string) error {
	if phone == "" {
		return fmt.Errorf("%w: phone is required", ErrValidation)
	}

	if err := g.lockedOut(phone); err != nil {
		metrics.VerificationsTotal.WithLabelValues("issue", "locked_out").Inc()
		return err
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	g.mu.Lock()
	// Failed attempts survive a reissue; otherwise alternating issue and
	// check would never reach the lockout cap.
	attempts := 0
	if entry, found := g.codes.Get(phone); found {
		attempts = entry.(*challenge).attempts
	}
	g.codes.Set(phone, &challenge{code: code, attempts: attempts}, gocache.DefaultExpiration)
	g.mu.Unlock()

	text := fmt.Sprintf(
		"Your Khidma verification code is %s. It expires in %d minutes.",
		code,
		int(g.cfg.CodeTTLDuration().Minutes()),
	)

	if err := g.notifier.Send(ctx, phone, text); err != nil {
		metrics.VerificationsTotal.WithLabelValues("issue", "delivery_failed").Inc()
		return fmt.Errorf("deliver code: %w", err)
	}

	metrics.VerificationsTotal.WithLabelValues("issue", "ok").Inc()
	g.logger.Info("verification code issued", "phone", phone)
	return nil
}

func (g *gate) Check(_ context.Context, phone, code string) (*Session, error) {
	if phone == "" || code == "" {
		return nil, fmt.Errorf("%w: phone and code are required", ErrValidation)
	}

	if err := g.lockedOut(phone); err != nil {
		metrics.VerificationsTotal.WithLabelValues("check", "locked_out").Inc()
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	entry, found := g.codes.Get(phone)
	if !found {
		metrics.VerificationsTotal.WithLabelValues("check", "expired").Inc()
		return nil, ErrCodeExpired
	}

	ch := entry.(*challenge)
	if subtle.ConstantTimeCompare([]byte(ch.code), []byte(code)) != 1 {
		ch.attempts++
		if ch.attempts >= g.cfg.MaxAttempts {
			g.codes.Delete(phone)
			g.lockouts.Set(phone, time.Now(), gocache.DefaultExpiration)

			metrics.VerificationsTotal.WithLabelValues("check", "locked_out").Inc()
			g.logger.Warn("phone locked out", "phone", phone)
			return nil, &LockoutError{RetryAfter: g.cfg.LockoutDuration()}
		}

		metrics.VerificationsTotal.WithLabelValues("check", "mismatch").Inc()
		return nil, ErrCodeInvalid
	}

	g.codes.Delete(phone)

	session := &Session{
		Phone:      phone,
		SessionID:  uuid.NewString(),
		Method:     audit.MethodWhatsAppOTP,
		VerifiedAt: time.Now().UTC(),
	}

	metrics.VerificationsTotal.WithLabelValues("check", "ok").Inc()
	g.logger.Info("phone verified", "phone", phone, "session_id", session.SessionID)
	return session, nil
}

func (g *gate) lockedOut(phone string) error {
	_, expiry, found := g.lockouts.GetWithExpiration(phone)
	if !found {
		return nil
	}
	return &LockoutError{RetryAfter: time.Until(expiry)}
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
