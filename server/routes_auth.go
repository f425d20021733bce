package server

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/bandmate/bandmate"
	"github.com/bandmate/bandmate/middleware/bearer"
)

// AuthController serves the session endpoints the SPA drives: login,
// register, and the identity probe behind the bearer guard.
type AuthController struct {
	repo   bandmate.RepositoryManager
	auth   bandmate.Authenticator
	logger bandmate.Logger
}

func NewAuthController(repo bandmate.RepositoryManager, auth bandmate.Authenticator, logger bandmate.Logger) *AuthController {
	return &AuthController{
		repo:   repo,
		auth:   auth,
		logger: logger,
	}
}

func (a *AuthController) RegisterRoutes(group fiber.Router, protected fiber.Handler, contextKey string) {
	group.Post("/login", a.LoginPost)
	group.Post("/register", a.RegistrationCreate)
	group.Get("/me", protected, a.Me(contextKey))
}

// sessionResponse is the payload for successful login and registration.
type sessionResponse struct {
	Token string         `json:"token"`
	User  *bandmate.User `json:"user"`
}

// LoginPayload is the login request body.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will validate the payload
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginPayload)

	if err := c.BodyParser(payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "Error parsing body").
			WithCode(goerrors.CodeBadRequest)
	}

	if err := payload.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()).
			WithCode(goerrors.CodeBadRequest)
	}

	token, err := a.auth.Login(c.Context(), payload.Email, payload.Password)
	if err != nil {
		a.logger.Warn("login rejected", "email", payload.Email, "error", err)
		// uniform rejection, never leak which check failed
		return bandmate.ErrInvalidCredentials
	}

	user, err := a.repo.Users().GetByEmail(c.Context(), payload.Email)
	if err != nil {
		return err
	}

	return c.JSON(sessionResponse{Token: token, User: user})
}

// RegistrationCreatePayload is the registration request body.
type RegistrationCreatePayload struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Instrument      string `json:"instrument"`
	ProfileImageURL string `json:"profileImageUrl"`
	Password        string `json:"password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.ProfileImageURL, is.URL),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
	)
}

func (a *AuthController) RegistrationCreate(c *fiber.Ctx) error {
	payload := new(RegistrationCreatePayload)

	if err := c.BodyParser(payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "Error parsing body").
			WithCode(goerrors.CodeBadRequest)
	}

	if err := payload.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()).
			WithCode(goerrors.CodeBadRequest)
	}

	handler := bandmate.NewRegisterUserHandler(a.repo)

	user, err := handler.Execute(c.Context(), bandmate.RegisterUserMessage{
		FirstName:       payload.FirstName,
		LastName:        payload.LastName,
		Email:           payload.Email,
		Instrument:      payload.Instrument,
		ProfileImageURL: payload.ProfileImageURL,
		Password:        payload.Password,
		UseHashid:       true,
	})
	if err != nil {
		a.logger.Error("register user failed", "email", payload.Email, "error", err)
		return err
	}

	token, err := a.auth.Login(c.Context(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(sessionResponse{Token: token, User: user})
}

// Me returns the handler for the identity probe. It resolves the user
// record behind the validated claims.
func (a *AuthController) Me(contextKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(contextKey).(bearer.AuthClaims)
		if !ok {
			return unauthorized(bearer.ErrTokenMissingOrMalformed)
		}

		id, err := uuid.Parse(claims.UserID())
		if err != nil {
			return unauthorized(err)
		}

		user, err := a.repo.Users().GetByUserID(c.Context(), id)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return unauthorized(err)
			}
			return err
		}

		return c.JSON(user)
	}
}
