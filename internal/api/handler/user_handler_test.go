package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/tripeco/identity-service/internal/core/domain"
	"github.com/tripeco/identity-service/internal/core/ports"
)

type stubUserService struct {
	registerFn       func(ctx context.Context, in ports.RegisterUserInput) (*domain.User, error)
	changePasswordFn func(ctx context.Context, oldPassword, newPassword string) error
	resendFn         func(ctx context.Context, id string) error
	updateFn         func(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error)
	deleteFn         func(ctx context.Context, id string) error
	users            []*domain.User
	current          *domain.User
	err              error
}

func (s *stubUserService) Register(ctx context.Context, in ports.RegisterUserInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubUserService) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	return s.changePasswordFn(ctx, oldPassword, newPassword)
}

func (s *stubUserService) ResendPassword(ctx context.Context, id string) error {
	return s.resendFn(ctx, id)
}

func (s *stubUserService) Update(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error) {
	return s.updateFn(ctx, id, in)
}

func (s *stubUserService) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

func (s *stubUserService) FindByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.NewUserNotFound(id)
}

func (s *stubUserService) FindByRole(_ context.Context, role domain.Role) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range s.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, s.err
}

func (s *stubUserService) FindAll(context.Context) ([]*domain.User, error) {
	return s.users, s.err
}

func (s *stubUserService) Current(context.Context) (*domain.User, error) {
	if s.current == nil {
		return nil, domain.ErrMissingIdentity
	}
	return s.current, nil
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

var (
	ana = &domain.User{ID: "u1", Email: "ana@example.com", FirstName: "Ana", LastName: "Lopez", Role: domain.RoleAdmin, PasswordHash: "$2a$hash"}
	bob = &domain.User{ID: "u2", Email: "bob@example.com", FirstName: "Bob", Role: domain.RoleUser, PasswordHash: "$2a$hash"}
)

func TestUserHandler_Register_Success(t *testing.T) {
	e := newEcho()
	stub := &stubUserService{
		registerFn: func(_ context.Context, in ports.RegisterUserInput) (*domain.User, error) {
			if in.Email != "ana@example.com" || in.Role != domain.RoleAdmin || in.ZipCode != "C1043" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return ana, nil
		},
	}
	h := NewUserHandler(stub)

	body := `{"email":"ana@example.com","first_name":"Ana","last_name":"Lopez","zip_code":"C1043","role":"admin"}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/users", body), rec)

	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["id"] != "u1" || resp["role"] != "ADMIN" {
		t.Fatalf("unexpected response: %v", resp)
	}
	if _, leaked := resp["password_hash"]; leaked {
		t.Fatalf("password hash leaked in response")
	}
	if strings.Contains(rec.Body.String(), "$2a$") {
		t.Fatalf("hash material leaked in response")
	}
}

func TestUserHandler_Register_Validation(t *testing.T) {
	cases := map[string]string{
		"missing email": `{"first_name":"Ana","last_name":"Lopez","role":"USER"}`,
		"bad email":     `{"email":"nope","first_name":"Ana","last_name":"Lopez","role":"USER"}`,
		"bad role":      `{"email":"ana@example.com","first_name":"Ana","last_name":"Lopez","role":"ROOT"}`,
		"not json":      `{"email":`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			e := newEcho()
			h := NewUserHandler(&stubUserService{
				registerFn: func(context.Context, ports.RegisterUserInput) (*domain.User, error) {
					t.Fatalf("service must not be called")
					return nil, nil
				},
			})

			c := e.NewContext(jsonRequest(http.MethodPost, "/users", body), httptest.NewRecorder())
			if err := h.Register(c); !errors.Is(err, domain.ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestUserHandler_Register_EmailInUse(t *testing.T) {
	e := newEcho()
	h := NewUserHandler(&stubUserService{
		registerFn: func(context.Context, ports.RegisterUserInput) (*domain.User, error) {
			return nil, domain.NewEmailInUse("ana@example.com")
		},
	})

	body := `{"email":"ana@example.com","first_name":"Ana","last_name":"Lopez","role":"USER"}`
	c := e.NewContext(jsonRequest(http.MethodPost, "/users", body), httptest.NewRecorder())
	if err := h.Register(c); !errors.Is(err, domain.ErrEmailInUse) {
		t.Fatalf("expected ErrEmailInUse, got %v", err)
	}
}

func TestUserHandler_List(t *testing.T) {
	e := newEcho()
	h := NewUserHandler(&stubUserService{users: []*domain.User{ana, bob}})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/users", nil), rec)
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var all []UserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil || len(all) != 2 {
		t.Fatalf("expected two users, got %s (%v)", rec.Body.String(), err)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/users?role=user", nil), rec)
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var users []UserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil || len(users) != 1 || users[0].ID != "u2" {
		t.Fatalf("unexpected filtered list: %s (%v)", rec.Body.String(), err)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/users?role=root", nil), rec)
	if err := h.List(c); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestUserHandler_List_Empty(t *testing.T) {
	e := newEcho()
	h := NewUserHandler(&stubUserService{})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/users", nil), rec)
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %s", rec.Body.String())
	}
}

func TestUserHandler_Get(t *testing.T) {
	e := newEcho()
	h := NewUserHandler(&stubUserService{users: []*domain.User{ana}})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/users/u1", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("u1")
	if err := h.Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/users/missing", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("missing")
	if err := h.Get(c); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserHandler_CurrentAndMe(t *testing.T) {
	e := newEcho()
	h := NewUserHandler(&stubUserService{current: ana})

	rec := httptest.NewRecorder()
	if err := h.Current(e.NewContext(httptest.NewRequest(http.MethodGet, "/users/current", nil), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var current map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &current)
	if current["id"] != "u1" || current["role"] != "ADMIN" {
		t.Fatalf("unexpected current: %v", current)
	}
	if _, ok := current["phone"]; ok {
		t.Fatalf("current view must not include profile details")
	}

	rec = httptest.NewRecorder()
	if err := h.Me(e.NewContext(httptest.NewRequest(http.MethodGet, "/users/me", nil), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var me map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &me)
	if _, ok := me["phone"]; !ok {
		t.Fatalf("profile view must include phone")
	}
	if strings.Contains(rec.Body.String(), "$2a$") {
		t.Fatalf("hash material leaked in response")
	}

	h = NewUserHandler(&stubUserService{})
	err := h.Current(e.NewContext(httptest.NewRequest(http.MethodGet, "/users/current", nil), httptest.NewRecorder()))
	if !errors.Is(err, domain.ErrMissingIdentity) {
		t.Fatalf("expected ErrMissingIdentity, got %v", err)
	}
}

func TestUserHandler_Update(t *testing.T) {
	e := newEcho()
	h := NewUserHandler(&stubUserService{
		updateFn: func(_ context.Context, id string, in ports.UpdateUserInput) (*domain.User, error) {
			if id != "u2" {
				t.Fatalf("unexpected id %q", id)
			}
			if in.FirstName == nil || *in.FirstName != "Robert" || in.Role == nil || *in.Role != domain.RoleAdmin {
				t.Fatalf("unexpected input: %+v", in)
			}
			if in.LastName != nil || in.Disabled != nil {
				t.Fatalf("absent fields must stay nil")
			}
			updated := *bob
			updated.FirstName = *in.FirstName
			updated.Role = *in.Role
			return &updated, nil
		},
	})

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPatch, "/users/u2", `{"first_name":"Robert","role":"ADMIN"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues("u2")
	if err := h.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp UserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.FirstName != "Robert" {
		t.Fatalf("unexpected response: %s (%v)", rec.Body.String(), err)
	}

	c = e.NewContext(jsonRequest(http.MethodPatch, "/users/u2", `{"role":"ROOT"}`), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("u2")
	if err := h.Update(c); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestUserHandler_NoContentRoutes(t *testing.T) {
	e := newEcho()
	var deleted, resent string
	var oldPw, newPw string
	h := NewUserHandler(&stubUserService{
		deleteFn: func(_ context.Context, id string) error { deleted = id; return nil },
		resendFn: func(_ context.Context, id string) error { resent = id; return nil },
		changePasswordFn: func(_ context.Context, o, n string) error {
			oldPw, newPw = o, n
			return nil
		},
	})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/users/u1", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("u1")
	if err := h.Delete(c); err != nil || rec.Code != http.StatusNoContent || deleted != "u1" {
		t.Fatalf("delete: err=%v code=%d id=%q", err, rec.Code, deleted)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodPatch, "/users/u1/password", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("u1")
	if err := h.ResendPassword(c); err != nil || rec.Code != http.StatusNoContent || resent != "u1" {
		t.Fatalf("resend: err=%v code=%d id=%q", err, rec.Code, resent)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(jsonRequest(http.MethodPatch, "/users/password", `{"old_password":"12345678","new_password":"N3w#Password"}`), rec)
	if err := h.ChangePassword(c); err != nil || rec.Code != http.StatusNoContent {
		t.Fatalf("change password: err=%v code=%d", err, rec.Code)
	}
	if oldPw != "12345678" || newPw != "N3w#Password" {
		t.Fatalf("unexpected passwords forwarded: %q %q", oldPw, newPw)
	}

	c = e.NewContext(jsonRequest(http.MethodPatch, "/users/password", `{"old_password":"12345678"}`), httptest.NewRecorder())
	if err := h.ChangePassword(c); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
