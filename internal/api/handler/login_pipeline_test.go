package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tripeco/identity-service/internal/core/domain"
	"github.com/tripeco/identity-service/internal/core/service"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubAuthenticator struct {
	principal domain.Principal
	err       error
	calls     int
	email     string
	password  string
}

func (s *stubAuthenticator) Authenticate(_ context.Context, email, password string) (domain.Principal, error) {
	s.calls++
	s.email, s.password = email, password
	return s.principal, s.err
}

func newTestPipeline(auth *stubAuthenticator, header string) (*LoginPipeline, *service.TokenService) {
	tokens := service.NewTokenService(service.TokenConfig{Secret: testSecret, TTL: time.Hour})
	return NewLoginPipeline(nil, auth, tokens, header, zerolog.Nop()), tokens
}

func postLogin(body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestLoginPipeline_Success(t *testing.T) {
	auth := &stubAuthenticator{principal: domain.Principal{UserID: "u1", Role: domain.RoleAdmin}}
	pipeline, tokens := newTestPipeline(auth, "")

	c, rec := postLogin(`{"email":" ana@example.com ","password":"S3cure#Pass"}`)
	if err := pipeline.Handle(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rec.Body.String())
	}
	if auth.email != "ana@example.com" || auth.password != "S3cure#Pass" {
		t.Fatalf("unexpected credential passed: %q %q", auth.email, auth.password)
	}

	token := rec.Header().Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(token, "Bearer ") {
		t.Fatalf("expected bearer token, got %q", token)
	}
	p, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if p.UserID != "u1" || p.Role != domain.RoleAdmin {
		t.Fatalf("unexpected principal in token: %+v", p)
	}
}

func TestLoginPipeline_CustomHeader(t *testing.T) {
	auth := &stubAuthenticator{principal: domain.Principal{UserID: "u1", Role: domain.RoleUser}}
	pipeline, _ := newTestPipeline(auth, "X-Auth-Token")

	c, rec := postLogin(`{"email":"ana@example.com","password":"pw"}`)
	if err := pipeline.Handle(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Header().Get("X-Auth-Token") == "" {
		t.Fatalf("token not set on configured header")
	}
	if rec.Header().Get(echo.HeaderAuthorization) != "" {
		t.Fatalf("token must only be set on the configured header")
	}
}

func TestLoginPipeline_MalformedPayload(t *testing.T) {
	cases := map[string]string{
		"not json":         `email=ana`,
		"missing password": `{"email":"ana@example.com"}`,
		"blank email":      `{"email":"   ","password":"pw"}`,
		"empty body":       ``,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			auth := &stubAuthenticator{}
			pipeline, _ := newTestPipeline(auth, "")

			c, _ := postLogin(body)
			err := pipeline.Handle(c)
			if !errors.Is(err, domain.ErrMalformedCredentials) {
				t.Fatalf("expected ErrMalformedCredentials, got %v", err)
			}
			if auth.calls != 0 {
				t.Fatalf("authenticator must not run for malformed payloads")
			}
		})
	}
}

func TestLoginPipeline_RejectsNonJSONContentType(t *testing.T) {
	auth := &stubAuthenticator{}
	pipeline, _ := newTestPipeline(auth, "")

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"ana@example.com","password":"pw"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMETextPlain)
	c := e.NewContext(req, httptest.NewRecorder())

	if err := pipeline.Handle(c); !errors.Is(err, domain.ErrMalformedCredentials) {
		t.Fatalf("expected ErrMalformedCredentials, got %v", err)
	}
	if auth.calls != 0 {
		t.Fatalf("authenticator must not run for unsupported payloads")
	}
}

func TestLoginPipeline_Failures(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		message   string
		developer string
	}{
		{"user not found", domain.ErrAuthUserNotFound, "We couldn't find an user with that email. Please try again.", "user not found"},
		{"bad credentials", domain.ErrBadCredentials, "The email or password are not valid. Please check and try again.", "Invalid password"},
		{"disabled", domain.ErrAccountDisabled, "Your account is disabled. Please contact a administrator.", "User account is disabled"},
		{"unexpected", errors.New("mongo: connection reset"), "Unexpected error. Please try again.", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pipeline, _ := newTestPipeline(&stubAuthenticator{err: tc.err}, "")

			c, rec := postLogin(`{"email":"ana@example.com","password":"pw"}`)
			if err := pipeline.Handle(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if rec.Header().Get(echo.HeaderAuthorization) != "" {
				t.Fatalf("failed login must not set a token")
			}

			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body.ErrorMessage != tc.message {
				t.Fatalf("unexpected message: %q", body.ErrorMessage)
			}
			if body.DeveloperMessage != tc.developer {
				t.Fatalf("unexpected developer message: %q", body.DeveloperMessage)
			}
			if body.Type != "ERROR" || body.ShowAs != "SNACKBAR" || body.Timestamp.IsZero() {
				t.Fatalf("incomplete envelope: %+v", body)
			}
		})
	}
}

type headerExtractor struct{}

func (headerExtractor) Extract(c echo.Context) (domain.Credential, error) {
	email, password, ok := c.Request().BasicAuth()
	if !ok {
		return domain.Credential{}, domain.NewMalformedCredentials(errors.New("basic auth required"))
	}
	return domain.Credential{Email: email, Password: password}, nil
}

func TestLoginPipeline_PluggableExtractor(t *testing.T) {
	auth := &stubAuthenticator{principal: domain.Principal{UserID: "u9", Role: domain.RoleUser}}
	tokens := service.NewTokenService(service.TokenConfig{Secret: testSecret})
	pipeline := NewLoginPipeline(headerExtractor{}, auth, tokens, "", zerolog.Nop())

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.SetBasicAuth("basic@example.com", "pw")
	rec := httptest.NewRecorder()

	if err := pipeline.Handle(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || auth.email != "basic@example.com" {
		t.Fatalf("extractor not used: code=%d email=%q", rec.Code, auth.email)
	}
}
