package user

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

type (
	// Service is the credential recovery service.
	Service interface {
		Resolve(ctx context.Context, login string) (Identity, error)
		RequestPasswordReset(ctx context.Context, login string) error
		ResetPassword(ctx context.Context, data ResetPassword) error
	}

	service struct {
		resolver *Resolver
		mailSvc  core.EmailService
		logger   core.Logger
		conf     *core.Config
		tokens   tokenGenerator
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(resolver *Resolver, mailSvc core.EmailService, logger core.Logger, conf *core.Config) Service {
	return &service{
		resolver: resolver,
		mailSvc:  mailSvc,
		logger:   logger,
		conf:     conf,
		tokens: tokenGenerator{
			secretKey: []byte(conf.SecretKey),
			timeout:   conf.PasswordResetTimeoutDelta,
		},
	}
}

// Resolve finds the identity owning login (a username or an email) in any role store.
func (svc *service) Resolve(ctx context.Context, login string) (Identity, error) {
	return svc.resolver.FindAny(ctx, NaturalKey{UsernameOrEmail: login})
}

func (svc *service) RequestPasswordReset(ctx context.Context, login string) error {
	ident, err := svc.Resolve(ctx, login)
	if err != nil {
		return errors.Wrap(err, "resolving identity")
	}
	if ident.Email == "" {
		svc.logger.Warn(fmt.Sprintf("password reset requested for %s %q without email", ident.Role, ident.Username))
		return nil
	}

	token, err := svc.tokens.makeToken(ident)
	if err != nil {
		return errors.Wrap(err, "making token")
	}
	q := make(url.Values)
	q.Set("uid", EncodeUID(ident))
	q.Set("token", token)

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: ident.FullName(), Address: ident.Email}},
		Subject: "Password Reset",
		BodyStr: fmt.Sprintf(
			"Hi %s,\n\nYou're receiving this email because you requested a password reset for your account.\n\n"+
				"Please go to the following page and choose a new password:\n%s/password-reset/confirm?%s\n\n"+
				"Your username, in case you've forgotten: %s\n",
			ident.Name, svc.conf.FrontendBaseURL, q.Encode(), ident.Username,
		),
	})
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, data ResetPassword) error {
	role, id, err := decodeUID(data.UID)
	if err == nil && data.Role != "" && data.Role != role {
		err = errInvalidUID
	}
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "uid", Error: err.Error()})
	}
	ident, err := svc.resolver.Find(ctx, role, NaturalKey{ID: id})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(errInvalidUID, core.FieldError{Field: "uid", Error: errInvalidUID.Error()})
		}
		return errors.Wrap(err, "finding identity")
	}
	if err = svc.tokens.verifyToken(ident, data.Token); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "token", Error: err.Error()})
	}

	hash, err := HashPassword(data.Password)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}
	store, err := svc.resolver.Store(role)
	if err != nil {
		return err
	}
	if err = store.UpdatePassword(ctx, ident.ID, hash); err != nil {
		return errors.Wrap(err, "updating password")
	}
	return nil
}
