package authcore

import (
	"fmt"
	"time"
)

// LintWarning is an advisory finding about a valid but questionable config.
type LintWarning struct {
	Code    string
	Message string
}

// LintWarnings is the result of Config.Lint.
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	codes := make([]string, 0, len(ws))
	for _, w := range ws {
		codes = append(codes, w.Code)
	}
	return codes
}

// Lint reports settings that pass Validate but weaken the deployment.
// It never fails; callers decide whether to log or refuse.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Message: fmt.Sprintf(format, args...)})
	}

	if c.JWT.Leeway > time.Minute {
		add("leeway_large", "JWT leeway %s exceeds 1m", c.JWT.Leeway)
	}
	if c.JWT.AccessTTL > 30*time.Minute {
		add("access_ttl_long", "access tokens live %s and cannot be revoked before expiry", c.JWT.AccessTTL)
	}
	if c.JWT.RefreshTTL > 30*24*time.Hour {
		add("refresh_ttl_long", "refresh sessions live %s", c.JWT.RefreshTTL)
	}
	if !c.Security.EnableLoginThrottle {
		add("rate_limits_disabled", "login throttling is disabled")
	}
	if !c.Cookie.Secure {
		add("cookie_insecure", "refresh cookie is sent over plain HTTP")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", "reuse and mismatch events are not audited")
	}
	if c.Password.AcceptBcrypt && !c.Password.UpgradeOnLogin {
		add("bcrypt_without_upgrade", "legacy bcrypt hashes are accepted but never upgraded")
	}
	return ws
}
