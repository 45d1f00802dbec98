package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tripeco/identity-service/internal/api/metrics"
	"github.com/tripeco/identity-service/internal/core/domain"
	"github.com/tripeco/identity-service/internal/core/ports"
)

// CredentialExtractor pulls the login credential out of a request.
type CredentialExtractor interface {
	Extract(c echo.Context) (domain.Credential, error)
}

type loginRequest struct {
	Email    string `json:"email" example:"ana@example.com"`
	Password string `json:"password" example:"S3cure#Pass"`
}

// JSONCredentialExtractor reads {"email","password"} from the request body.
// The body size is capped by the route, not here.
type JSONCredentialExtractor struct{}

func (JSONCredentialExtractor) Extract(c echo.Context) (domain.Credential, error) {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return domain.Credential{}, domain.NewMalformedCredentials(err)
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return domain.Credential{}, domain.NewMalformedCredentials(errors.New("email and password are required"))
	}
	return domain.Credential{Email: email, Password: req.Password}, nil
}

type loginState int

const (
	stateReceivedCredentials loginState = iota
	stateAuthenticating
	stateSucceeded
	stateFailed
)

// loginAttempt is owned by a single request.
type loginAttempt struct {
	state      loginState
	credential domain.Credential
	token      string
	err        error
}

// LoginPipeline authenticates a credential and answers with a session token
// in a response header. Each request walks
// ReceivedCredentials → Authenticating → Succeeded | Failed exactly once.
type LoginPipeline struct {
	extractor CredentialExtractor
	auth      ports.Authenticator
	tokens    ports.TokenService
	header    string
	log       zerolog.Logger
}

func NewLoginPipeline(
	extractor CredentialExtractor,
	auth ports.Authenticator,
	tokens ports.TokenService,
	header string,
	log zerolog.Logger,
) *LoginPipeline {
	if extractor == nil {
		extractor = JSONCredentialExtractor{}
	}
	if header == "" {
		header = echo.HeaderAuthorization
	}
	return &LoginPipeline{extractor: extractor, auth: auth, tokens: tokens, header: header, log: log}
}

// Handle runs the login state machine.
//
// @Summary      Login
// @Description  Authenticates an email/password pair. On success the session token is returned in the Authorization header and the body is empty.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest   true  "Login credentials"
// @Success      200
// @Header       200   {string}  Authorization  "Bearer <token>"
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Router       /login [post]
func (p *LoginPipeline) Handle(c echo.Context) error {
	attempt := &loginAttempt{state: stateReceivedCredentials}

	for {
		switch attempt.state {
		case stateReceivedCredentials:
			cred, err := p.extractor.Extract(c)
			if err != nil {
				metrics.LoginsTotal.WithLabelValues("malformed").Inc()
				return err
			}
			attempt.credential = cred
			attempt.state = stateAuthenticating

		case stateAuthenticating:
			principal, err := p.auth.Authenticate(c.Request().Context(), attempt.credential.Email, attempt.credential.Password)
			attempt.credential = domain.Credential{}
			if err != nil {
				attempt.err = err
				attempt.state = stateFailed
				continue
			}
			token, err := p.tokens.Issue(principal.UserID, principal.Role)
			if err != nil {
				attempt.err = err
				attempt.state = stateFailed
				continue
			}
			attempt.token = token
			attempt.state = stateSucceeded

		case stateSucceeded:
			metrics.LoginsTotal.WithLabelValues("success").Inc()
			c.Response().Header().Set(p.header, attempt.token)
			return c.NoContent(http.StatusOK)

		case stateFailed:
			return p.fail(c, attempt.err)
		}
	}
}

func (p *LoginPipeline) fail(c echo.Context, err error) error {
	var aerr *domain.AuthError
	if errors.As(err, &aerr) {
		metrics.LoginsTotal.WithLabelValues(aerr.Reason.String()).Inc()
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(LoginFailureMessage(err), aerr.Developer))
	}

	metrics.LoginsTotal.WithLabelValues("error").Inc()
	p.log.Error().Err(err).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Msg("login failed unexpectedly")
	return c.JSON(http.StatusUnauthorized, NewErrorResponse(LoginFailureMessage(err), ""))
}

// LoginFailureMessage returns the user-facing message for a failed login.
func LoginFailureMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrAuthUserNotFound):
		return "We couldn't find an user with that email. Please try again."
	case errors.Is(err, domain.ErrBadCredentials):
		return "The email or password are not valid. Please check and try again."
	case errors.Is(err, domain.ErrAccountDisabled):
		return "Your account is disabled. Please contact a administrator."
	default:
		return "Unexpected error. Please try again."
	}
}
