package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

type (
	PasswordResetRequest struct {
		Login string `json:"login" validate:"required"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

type recoveryApi struct {
	svc      user.Service
	validate *validator.Validate
	logger   core.Logger
}

func registerRecoveryAPI(g *echo.Group, svc user.Service, validate *validator.Validate, logger core.Logger) {
	api := recoveryApi{
		svc:      svc,
		validate: validate,
		logger:   logger,
	}

	// TODO: rate limit `/password-reset` & `/password-reset-confirm`
	g.POST("/password-reset", api.resetPassword)
	g.POST("/password-reset-confirm", api.confirmPasswordReset)
}

func (api *recoveryApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Login); !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		api.logger.Error("requesting password reset", err)
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the login supplied is associated with an account on this system, " +
			"an email will arrive in its inbox shortly with instructions to reset the password.",
	})
}

func (api *recoveryApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPassword")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}
