package internaldefs

import (
	"github.com/MrEthical07/authcore"
)

// Def names one engine series for export.
type Def struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []Def{
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Successful login attempts."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Failed login attempts."},
	{ID: authcore.MetricLoginRateLimited, Name: "authcore_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: authcore.MetricRefreshFailure, Name: "authcore_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: authcore.MetricRefreshReuseDetected, Name: "authcore_refresh_reuse_detected_total", Help: "Refresh tokens presented after revocation."},
	{ID: authcore.MetricRefreshTokenMismatch, Name: "authcore_refresh_token_mismatch_total", Help: "Refresh tokens whose fingerprint did not match the session."},
	{ID: authcore.MetricRefreshRaceLost, Name: "authcore_refresh_race_lost_total", Help: "Concurrent rotations that lost the revoke race."},
	{ID: authcore.MetricRevokeAllTriggered, Name: "authcore_revoke_all_triggered_total", Help: "Breach responses that revoked every session of a user."},
	{ID: authcore.MetricSessionCreated, Name: "authcore_session_created_total", Help: "Created sessions."},
	{ID: authcore.MetricSessionRevoked, Name: "authcore_session_revoked_total", Help: "Revoked sessions."},
	{ID: authcore.MetricSessionsPurged, Name: "authcore_sessions_purged_total", Help: "Sessions removed by retention cleanup."},
	{ID: authcore.MetricLogout, Name: "authcore_logout_total", Help: "Logout operations."},
	{ID: authcore.MetricStorageFailure, Name: "authcore_storage_failure_total", Help: "Operations failed by the session or user store."},
	{ID: authcore.MetricRateLimitHit, Name: "authcore_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
	{ID: authcore.MetricAccountCreationSuccess, Name: "authcore_account_creation_success_total", Help: "Successful account creations."},
	{ID: authcore.MetricAccountCreationDuplicate, Name: "authcore_account_creation_duplicate_total", Help: "Account creation attempts rejected as duplicate."},
}

// HistogramDefs lists every exported histogram. Each uses HistogramBounds.
var HistogramDefs = []Def{
	{ID: authcore.MetricValidateLatency, Name: "authcore_validate_latency_seconds", Help: "Access token validation latency."},
}

// HistogramBounds are the "le" labels of the latency buckets, in seconds.
var HistogramBounds = []string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}

// AuditDropped is exported next to the engine counters.
var AuditDropped = Def{Name: "authcore_audit_dropped_total", Help: "Audit events dropped because the dispatcher buffer was full."}

// Cumulative converts per-bucket counts into running totals, one per
// HistogramBounds entry. Missing buckets count as zero and extra ones are
// ignored, so the last element is the sample count.
func Cumulative(raw []uint64) []uint64 {
	out := make([]uint64, len(HistogramBounds))
	var total uint64
	for i := range out {
		if i < len(raw) {
			total += raw[i]
		}
		out[i] = total
	}
	return out
}
