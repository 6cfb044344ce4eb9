package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/konekta/identity/internal/core/domain"
)

// ctxEmail extracts the authenticated account email injected by the Auth
// middleware. Presence proves the middleware ran; handlers use it to enforce
// that callers only touch their own account.
func ctxEmail(c echo.Context) (string, error) {
	email, _ := c.Get("email").(string)
	if email == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return domain.NormalizeEmail(email), nil
}

// requireSelf rejects requests whose token subject does not match the account
// the route targets. Accounts can only read and mutate themselves.
func requireSelf(c echo.Context, target string) error {
	email, err := ctxEmail(c)
	if err != nil {
		return err
	}
	if email != domain.NormalizeEmail(target) {
		return echo.NewHTTPError(http.StatusForbidden, "cannot operate on another account")
	}
	return nil
}
