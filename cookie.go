package authcore

import (
	"net/http"
	"time"
)

// RefreshCookie builds the HttpOnly cookie that carries refreshToken to the
// refresh endpoint. MaxAge matches JWT.RefreshTTL.
func (e *Engine) RefreshCookie(refreshToken string) *http.Cookie {
	c := e.baseCookie()
	c.Value = refreshToken
	c.MaxAge = int(e.config.JWT.RefreshTTL / time.Second)
	return c
}

// ClearRefreshCookie builds a cookie that makes the browser drop the refresh
// cookie. Handlers send it on logout whatever the logout outcome.
func (e *Engine) ClearRefreshCookie() *http.Cookie {
	c := e.baseCookie()
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0).UTC()
	return c
}

func (e *Engine) baseCookie() *http.Cookie {
	cc := e.config.Cookie
	return &http.Cookie{
		Name:     cc.Name,
		Path:     cc.Path,
		Domain:   cc.Domain,
		Secure:   cc.Secure,
		HttpOnly: true,
		SameSite: cc.SameSite,
	}
}

// RefreshCookieName is the name handlers read the refresh token from.
func (e *Engine) RefreshCookieName() string {
	return e.config.Cookie.Name
}
