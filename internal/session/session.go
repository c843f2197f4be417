// Package session owns the credentials, the captcha-gated retry loops and the
// slot-selection policy. It is the only component that mutates the Session
// value; everything downstream sees it either fully populated or empty.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/example/bbdc-bot/internal/bbdc"
	"github.com/example/bbdc-bot/internal/captcha"
)

// API is the slice of the remote client the state machine needs; tests
// substitute a scripted implementation.
type API interface {
	GetCaptcha(ctx context.Context, kind bbdc.CaptchaKind, auth *bbdc.Auth) (bbdc.Challenge, error)
	Login(ctx context.Context, username, password, captchaText string, ch bbdc.Challenge) (bbdc.LoginResult, error)
	SessionContext(ctx context.Context, bearer string) (bbdc.SessionContext, bool, error)
	ListSlots(ctx context.Context, auth bbdc.Auth, courseType, month string) (bbdc.SlotCollection, error)
	Book(ctx context.Context, auth bbdc.Auth, captchaText string, ch bbdc.Challenge, slotPayload map[string]any) (bbdc.BookResult, error)
}

// Session is the authenticated state for one account. All three fields are
// set together on a successful login exchange and cleared together when the
// liveness probe fails.
type Session struct {
	BearerToken string
	AuthToken   string
	CourseType  string
}

func (s Session) Established() bool {
	return s.BearerToken != "" && s.AuthToken != "" && s.CourseType != ""
}

type Credentials struct {
	Username string
	Password string
}

// RetryPolicy bounds the captcha loops. The same policy parameterizes login
// and booking.
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 25, Interval: time.Second}

// ErrGaveUp signals that the captcha loop hit its retry ceiling without an
// accepted submission.
var ErrGaveUp = errors.New("gave up on captcha")

// errRejected marks a server-side captcha rejection inside the retry loop.
var errRejected = errors.New("captcha rejected by server")

// Manager drives one account through the
// Unauthenticated -> Authenticated -> booking cycle.
type Manager struct {
	api           API
	creds         Credentials
	loginSolver   captcha.Solver
	bookingSolver captcha.Solver
	retry         RetryPolicy

	sess Session
}

func NewManager(api API, creds Credentials, loginSolver, bookingSolver captcha.Solver, retry RetryPolicy) *Manager {
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy
	}
	return &Manager{
		api:           api,
		creds:         creds,
		loginSolver:   loginSolver,
		bookingSolver: bookingSolver,
		retry:         retry,
	}
}

// SeedBearer adopts an externally captured bearer token. The next Ensure call
// probes it and completes the session instead of logging in.
func (m *Manager) SeedBearer(token string) {
	m.sess = Session{BearerToken: token}
}

// Current returns a copy of the session state.
func (m *Manager) Current() Session {
	return m.sess
}

// Ensure leaves the manager in the Authenticated state: an existing bearer
// token is probed for liveness and refreshed, a dead or missing one triggers
// a full login.
func (m *Manager) Ensure(ctx context.Context) error {
	if m.sess.BearerToken != "" {
		sc, ok, err := m.api.SessionContext(ctx, m.sess.BearerToken)
		if err != nil {
			return err
		}
		if ok {
			m.sess = Session{BearerToken: m.sess.BearerToken, AuthToken: sc.AuthToken, CourseType: sc.CourseType}
			return nil
		}
		m.sess = Session{}
	}
	log.Printf("session: attempting to login")
	return m.login(ctx)
}

func (m *Manager) login(ctx context.Context) error {
	token, err := retrySubmit(ctx, m.retry, func() (string, error) {
		ch, err := m.api.GetCaptcha(ctx, bbdc.CaptchaLogin, nil)
		if err != nil {
			return "", backoff.Permanent(err)
		}
		answer, err := m.loginSolver.Solve(ctx, ch.Image)
		if errors.Is(err, captcha.ErrUnsolved) {
			return "", err
		}
		if err != nil {
			return "", backoff.Permanent(err)
		}
		res, err := m.api.Login(ctx, m.creds.Username, m.creds.Password, answer, ch)
		if err != nil {
			return "", backoff.Permanent(err)
		}
		if !res.Success {
			return "", fmt.Errorf("%w: %s", errRejected, res.Message)
		}
		return res.BearerToken, nil
	})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	sc, ok, err := m.api.SessionContext(ctx, token)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("login: no active course for account")
	}
	m.sess = Session{BearerToken: token, AuthToken: sc.AuthToken, CourseType: sc.CourseType}
	log.Printf("session: logged in")
	return nil
}

// ListSlots queries the released slots for one month.
func (m *Manager) ListSlots(ctx context.Context, month string) (bbdc.SlotCollection, error) {
	return m.api.ListSlots(ctx, m.auth(), m.sess.CourseType, month)
}

// Book pushes one slot through the booking captcha loop. A manual solver may
// return captcha.ErrSkipped, which aborts without a submission.
func (m *Manager) Book(ctx context.Context, slot bbdc.Slot) (bbdc.BookResult, error) {
	payload := slot.BookingPayload(m.sess.CourseType)
	auth := m.auth()

	res, err := retrySubmit(ctx, m.retry, func() (bbdc.BookResult, error) {
		ch, err := m.api.GetCaptcha(ctx, bbdc.CaptchaBooking, &auth)
		if err != nil {
			return bbdc.BookResult{}, backoff.Permanent(err)
		}
		answer, err := m.bookingSolver.Solve(ctx, ch.Image)
		if errors.Is(err, captcha.ErrUnsolved) {
			return bbdc.BookResult{}, err
		}
		if err != nil {
			return bbdc.BookResult{}, backoff.Permanent(err)
		}
		res, err := m.api.Book(ctx, auth, answer, ch, payload)
		if err != nil {
			return bbdc.BookResult{}, backoff.Permanent(err)
		}
		if !res.Success {
			return bbdc.BookResult{}, fmt.Errorf("%w: %s", errRejected, res.Message)
		}
		return res, nil
	})
	if err != nil {
		return bbdc.BookResult{}, fmt.Errorf("book: %w", err)
	}
	return res, nil
}

func (m *Manager) auth() bbdc.Auth {
	return bbdc.Auth{Bearer: m.sess.BearerToken, JSessionID: m.sess.AuthToken}
}

// retrySubmit runs one captcha-gated submission until it is accepted, the
// retry ceiling is hit, or a permanent error occurs. Local gate failures and
// server rejections both consume an attempt; exhaustion surfaces as ErrGaveUp.
func retrySubmit[T any](ctx context.Context, policy RetryPolicy, op func() (T, error)) (T, error) {
	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(policy.Interval)),
		backoff.WithMaxTries(uint(policy.MaxAttempts)),
	)
	if err != nil && (errors.Is(err, captcha.ErrUnsolved) || errors.Is(err, errRejected)) {
		err = fmt.Errorf("%w after %d attempts: %v", ErrGaveUp, policy.MaxAttempts, err)
	}
	return res, err
}
