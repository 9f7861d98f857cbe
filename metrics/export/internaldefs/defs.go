package internaldefs

import (
	"strconv"
	"strings"

	"github.com/secureauthx/secureauthx"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   secureauthx.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   secureauthx.MetricID
	Name string
	Help string
}

// BucketCount is the number of histogram buckets including the unbounded one.
const BucketCount = len(secureauthx.HistogramBucketBounds) + 1

// AuditDroppedName is exported alongside the engine counters.
const (
	AuditDroppedName = "secureauthx_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

var CounterDefs = []CounterDef{
	{ID: secureauthx.MetricRegisterSuccess, Name: "secureauthx_register_success_total", Help: "Successful registrations."},
	{ID: secureauthx.MetricRegisterDuplicate, Name: "secureauthx_register_duplicate_total", Help: "Registrations rejected because the email is taken."},
	{ID: secureauthx.MetricRegisterFailure, Name: "secureauthx_register_failure_total", Help: "Registrations failed on validation or storage."},
	{ID: secureauthx.MetricRegisterRateLimited, Name: "secureauthx_register_rate_limited_total", Help: "Rate-limited registration attempts."},
	{ID: secureauthx.MetricLoginSuccess, Name: "secureauthx_login_success_total", Help: "Successful login attempts."},
	{ID: secureauthx.MetricLoginFailure, Name: "secureauthx_login_failure_total", Help: "Failed login attempts."},
	{ID: secureauthx.MetricLoginInactive, Name: "secureauthx_login_inactive_total", Help: "Correct credentials for inactive identities."},
	{ID: secureauthx.MetricLoginRateLimited, Name: "secureauthx_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: secureauthx.MetricRefreshSuccess, Name: "secureauthx_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: secureauthx.MetricRefreshFailure, Name: "secureauthx_refresh_failure_total", Help: "Rejected refresh attempts."},
	{ID: secureauthx.MetricRefreshReplayDetected, Name: "secureauthx_refresh_replay_detected_total", Help: "Refresh attempts with an already spent token."},
	{ID: secureauthx.MetricRefreshRateLimited, Name: "secureauthx_refresh_rate_limited_total", Help: "Rate-limited refresh attempts."},
	{ID: secureauthx.MetricLogout, Name: "secureauthx_logout_total", Help: "Single-session logout operations."},
	{ID: secureauthx.MetricLogoutAll, Name: "secureauthx_logout_all_total", Help: "Revoke-all-sessions operations."},
	{ID: secureauthx.MetricLogoutRateLimited, Name: "secureauthx_logout_rate_limited_total", Help: "Rate-limited logout attempts."},
	{ID: secureauthx.MetricValidateSuccess, Name: "secureauthx_validate_success_total", Help: "Accepted access tokens."},
	{ID: secureauthx.MetricValidateFailure, Name: "secureauthx_validate_failure_total", Help: "Rejected access tokens."},
	{ID: secureauthx.MetricAdminDenied, Name: "secureauthx_admin_denied_total", Help: "Valid tokens rejected by the admin check."},
	{ID: secureauthx.MetricRateLimitHit, Name: "secureauthx_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
	{ID: secureauthx.MetricSessionCreated, Name: "secureauthx_session_created_total", Help: "Refresh session records created."},
	{ID: secureauthx.MetricSessionRevoked, Name: "secureauthx_session_revoked_total", Help: "Refresh session records revoked."},
	{ID: secureauthx.MetricPasswordRehashed, Name: "secureauthx_password_rehashed_total", Help: "Password hashes upgraded on login."},
}

var HistogramDefs = []HistogramDef{
	{ID: secureauthx.MetricValidateLatency, Name: "secureauthx_validate_latency_seconds", Help: "Access token validation latency."},
}

// BucketUpperBounds returns the finite bucket bounds in seconds.
func BucketUpperBounds() []float64 {
	out := make([]float64, len(secureauthx.HistogramBucketBounds))
	for i, d := range secureauthx.HistogramBucketBounds {
		out[i] = d.Seconds()
	}
	return out
}

// BucketSuffixes returns instrument-safe names for every bucket, ending with
// "inf". 5ms becomes "0_005".
func BucketSuffixes() []string {
	out := make([]string, 0, BucketCount)
	for _, bound := range BucketUpperBounds() {
		s := strconv.FormatFloat(bound, 'f', -1, 64)
		out = append(out, strings.ReplaceAll(s, ".", "_"))
	}
	return append(out, "inf")
}

// NormalizeBuckets copies raw into a fixed-size array, padding with zeros.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
