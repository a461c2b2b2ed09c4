package internaldefs

import (
	"strconv"

	"github.com/MrEthical07/sessionauth"
)

type CounterDef struct {
	ID   sessionauth.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   sessionauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: sessionauth.MetricLoginSuccess, Name: "sessionauth_login_success_total", Help: "Successful logins."},
	{ID: sessionauth.MetricLoginFailure, Name: "sessionauth_login_failure_total", Help: "Failed logins (unknown user, wrong password, index failure)."},
	{ID: sessionauth.MetricLoginUnverified, Name: "sessionauth_login_unverified_total", Help: "Logins refused because the email is not verified."},
	{ID: sessionauth.MetricSessionCreated, Name: "sessionauth_session_created_total", Help: "Sessions indexed at login."},
	{ID: sessionauth.MetricSessionRenewed, Name: "sessionauth_session_renewed_total", Help: "Session records whose expiry was extended."},
	{ID: sessionauth.MetricLogout, Name: "sessionauth_logout_total", Help: "Single-session logouts."},
	{ID: sessionauth.MetricLogoutAll, Name: "sessionauth_logout_all_total", Help: "Logout-everywhere operations."},
	{ID: sessionauth.MetricVerificationIssued, Name: "sessionauth_verification_issued_total", Help: "Verification tokens issued."},
	{ID: sessionauth.MetricVerificationRedeemed, Name: "sessionauth_verification_redeemed_total", Help: "Verification tokens redeemed."},
	{ID: sessionauth.MetricVerificationFailure, Name: "sessionauth_verification_failure_total", Help: "Redemptions of unknown, expired or used tokens."},
	{ID: sessionauth.MetricResendRateLimited, Name: "sessionauth_resend_rate_limited_total", Help: "Verification resends rejected by the limiter."},
	{ID: sessionauth.MetricRegisterSuccess, Name: "sessionauth_register_success_total", Help: "Accounts registered."},
	{ID: sessionauth.MetricRegisterDuplicate, Name: "sessionauth_register_duplicate_total", Help: "Registrations rejected for a taken email or username."},
	{ID: sessionauth.MetricProfileUpdated, Name: "sessionauth_profile_updated_total", Help: "Profile updates."},
	{ID: sessionauth.MetricAccountDeleted, Name: "sessionauth_account_deleted_total", Help: "Accounts soft-deleted."},
	{ID: sessionauth.MetricProviderProvisioned, Name: "sessionauth_provider_provisioned_total", Help: "Accounts created from an identity provider."},
	{ID: sessionauth.MetricProviderExisting, Name: "sessionauth_provider_existing_total", Help: "Provider logins that matched an existing account."},
	{ID: sessionauth.MetricNotifyFailure, Name: "sessionauth_notify_failure_total", Help: "Notifications that could not be delivered."},
	{ID: sessionauth.MetricPasswordRehashed, Name: "sessionauth_password_rehashed_total", Help: "Stored password hashes rewritten at login with current parameters."},
}

var HistogramDefs = []HistogramDef{
	{ID: sessionauth.MetricLoginLatency, Name: "sessionauth_login_latency_seconds", Help: "Login latency, including password hashing."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The last
// engine bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundLabels formats each bucket bound, +Inf included, the way
// Prometheus renders the "le" label.
func HistogramBoundLabels() []string {
	out := make([]string, 0, len(HistogramUpperBounds)+1)
	for _, b := range HistogramUpperBounds {
		out = append(out, strconv.FormatFloat(b, 'g', -1, 64))
	}
	return append(out, "+Inf")
}

// NormalizeBuckets pads or truncates raw to the engine bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
