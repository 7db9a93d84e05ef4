package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/silianos/voyage-api/internal/api/metrics"
	"github.com/silianos/voyage-api/internal/api/middleware"
	"github.com/silianos/voyage-api/internal/core/domain"
	"github.com/silianos/voyage-api/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// CustomerLogin authenticates a customer.
//
// @Summary      Customer login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  customerAuthResponse
// @Failure      400   {object}  errorBody
// @Failure      401   {object}  errorBody
// @Failure      429   {object}  errorBody
// @Router       /auth/user/login [post]
func (h *AuthHandler) CustomerLogin(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	sess, err := h.authService.LoginCustomer(c.Request().Context(), ports.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	metrics.LoginsTotal.WithLabelValues(string(domain.KindCustomer), loginResult(err)).Inc()
	if err != nil {
		return err
	}
	metrics.TokensIssuedTotal.WithLabelValues(string(domain.KindCustomer), "login").Inc()

	return c.JSON(http.StatusOK, customerAuthResponse{Token: sess.Token.Value, User: sess.Customer})
}

// CustomerRegister creates a customer account and signs it in.
//
// @Summary      Customer registration
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerCustomerRequest  true  "Account details"
// @Success      201   {object}  customerAuthResponse
// @Failure      400   {object}  errorBody
// @Router       /auth/user/register [post]
func (h *AuthHandler) CustomerRegister(c echo.Context) error {
	var req registerCustomerRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	sess, err := h.authService.RegisterCustomer(c.Request().Context(), ports.RegisterCustomerInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
	})
	if err != nil {
		return err
	}
	metrics.RegistrationsTotal.WithLabelValues(string(domain.KindCustomer)).Inc()
	metrics.TokensIssuedTotal.WithLabelValues(string(domain.KindCustomer), "register").Inc()

	return c.JSON(http.StatusCreated, customerAuthResponse{Token: sess.Token.Value, User: sess.Customer})
}

// UpdateProfile changes the signed-in customer's profile.
//
// @Summary      Update customer profile
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      profileRequest  true  "Fields to change"
// @Success      200   {object}  profileResponse
// @Failure      400   {object}  errorBody
// @Failure      401   {object}  errorBody
// @Failure      403   {object}  errorBody
// @Failure      404   {object}  errorBody
// @Router       /auth/user/profile [put]
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	// The token is checked before the body is read.
	if c.Request().Header.Get(echo.HeaderAuthorization) == "" {
		return domain.ErrMissingToken
	}
	token := bearer(c)
	if token == "" {
		return domain.ErrInvalidToken
	}

	var req profileRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	view, err := h.authService.UpdateProfile(c.Request().Context(), token, ports.ProfileInput{
		Name:              req.Name,
		Email:             req.Email,
		PhoneSet:          req.Phone.Set,
		Phone:             req.Phone.Value,
		PreferredCurrency: req.currency(),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, profileResponse{User: view})
}

// AdminLogin authenticates an administrator.
//
// @Summary      Administrator login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  adminAuthResponse
// @Failure      400   {object}  errorBody
// @Failure      401   {object}  errorBody
// @Failure      429   {object}  errorBody
// @Router       /auth/admin/login [post]
func (h *AuthHandler) AdminLogin(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	sess, err := h.authService.LoginAdmin(c.Request().Context(), ports.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	metrics.LoginsTotal.WithLabelValues(string(domain.KindAdministrator), loginResult(err)).Inc()
	if err != nil {
		return err
	}
	metrics.TokensIssuedTotal.WithLabelValues(string(domain.KindAdministrator), "login").Inc()

	return c.JSON(http.StatusOK, adminAuthResponse{Token: sess.Token.Value, User: sess.Admin})
}

// AdminRegister creates an administrator account.
//
// @Summary      Administrator registration
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerAdminRequest  true  "Account details"
// @Success      201   {object}  createdResponse
// @Failure      400   {object}  errorBody
// @Router       /auth/admin/register [post]
func (h *AuthHandler) AdminRegister(c echo.Context) error {
	var req registerAdminRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	id, err := h.authService.RegisterAdmin(c.Request().Context(), ports.RegisterAdminInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		return err
	}
	metrics.RegistrationsTotal.WithLabelValues(string(domain.KindAdministrator)).Inc()

	return c.JSON(http.StatusCreated, createdResponse{ID: id, Message: "User registered successfully"})
}

// Verify checks the bearer token and returns a fresh one.
//
// @Summary      Verify and refresh a session
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  verifyResponse
// @Failure      401  {object}  errorBody
// @Router       /auth/verify [get]
func (h *AuthHandler) Verify(c echo.Context) error {
	res, err := h.authService.VerifyAndRefresh(c.Request().Context(), bearer(c))
	if err != nil {
		return err
	}
	metrics.TokensIssuedTotal.WithLabelValues(string(res.Kind), "refresh").Inc()

	resp := verifyResponse{Token: res.Token.Value, Type: res.Kind}
	switch res.Kind {
	case domain.KindAdministrator:
		resp.User = res.Admin
	case domain.KindCustomer:
		resp.User = res.Customer
	}
	return c.JSON(http.StatusOK, resp)
}

func bearer(c echo.Context) string {
	return middleware.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
}

// bind decodes the request body and runs struct validation when a validator is installed.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.NewValidationError("invalid payload")
	}
	if c.Echo().Validator != nil {
		if err := c.Validate(req); err != nil {
			return err
		}
	}
	return nil
}

func loginResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrTooManyAttempts):
		return "throttled"
	case errors.Is(err, domain.ErrValidation):
		return "invalid_request"
	default:
		return "error"
	}
}
