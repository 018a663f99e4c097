package internaldefs

import (
	goAccount "github.com/MrEthical07/goAccount"
)

// CounterDef names one engine counter for the exporters.
type CounterDef struct {
	ID   goAccount.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for the exporters.
type HistogramDef struct {
	ID   goAccount.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goAccount.MetricRegisterSuccess, Name: "goaccount_register_success_total", Help: "Accounts registered."},
	{ID: goAccount.MetricRegisterRejected, Name: "goaccount_register_rejected_total", Help: "Registrations rejected."},
	{ID: goAccount.MetricEmailVerificationSuccess, Name: "goaccount_email_verification_success_total", Help: "Successful token verifications."},
	{ID: goAccount.MetricEmailVerificationFailure, Name: "goaccount_email_verification_failure_total", Help: "Failed token verifications."},
	{ID: goAccount.MetricLoginSuccess, Name: "goaccount_login_success_total", Help: "Successful logins."},
	{ID: goAccount.MetricLoginFailure, Name: "goaccount_login_failure_total", Help: "Failed logins."},
	{ID: goAccount.MetricAutologinSuccess, Name: "goaccount_autologin_success_total", Help: "Autologins that rotated credentials."},
	{ID: goAccount.MetricAutologinWarn, Name: "goaccount_autologin_warn_total", Help: "Autologins without a usable remember token."},
	{ID: goAccount.MetricAutologinRejected, Name: "goaccount_autologin_rejected_total", Help: "Autologins rejected for an invalid account."},
	{ID: goAccount.MetricLogout, Name: "goaccount_logout_total", Help: "Logout calls."},
	{ID: goAccount.MetricSessionCreated, Name: "goaccount_session_created_total", Help: "Sessions created."},
	{ID: goAccount.MetricSessionInvalidated, Name: "goaccount_session_invalidated_total", Help: "Logouts that deleted a session."},
	{ID: goAccount.MetricSessionValidateFailure, Name: "goaccount_session_validate_failure_total", Help: "Rejected session lookups."},
	{ID: goAccount.MetricPasswordRehashed, Name: "goaccount_password_rehashed_total", Help: "Password hashes upgraded on login."},
	{ID: goAccount.MetricPasswordResetRequest, Name: "goaccount_password_reset_request_total", Help: "Accepted password reset requests."},
	{ID: goAccount.MetricPasswordResetRateLimited, Name: "goaccount_password_reset_rate_limited_total", Help: "Password reset requests over the limit."},
	{ID: goAccount.MetricPasswordResetConfirmSuccess, Name: "goaccount_password_reset_confirm_success_total", Help: "Completed password resets."},
	{ID: goAccount.MetricPasswordResetConfirmFailure, Name: "goaccount_password_reset_confirm_failure_total", Help: "Rejected password resets."},
	{ID: goAccount.MetricPasswordResetCodeLocked, Name: "goaccount_password_reset_code_locked_total", Help: "Reset tokens locked by wrong codes."},
	{ID: goAccount.MetricTransactionFailure, Name: "goaccount_transaction_failure_total", Help: "Store transactions that failed and rolled back."},
	{ID: goAccount.MetricAuditDropped, Name: "goaccount_audit_dropped_total", Help: "Audit events dropped on a full buffer."},
	{ID: goAccount.MetricMailDropped, Name: "goaccount_mail_dropped_total", Help: "Mail dropped on a full queue."},
	{ID: goAccount.MetricMailFailed, Name: "goaccount_mail_failed_total", Help: "Mail the notifier failed to send."},
}

var HistogramDefs = []HistogramDef{
	{ID: goAccount.MetricLoginLatency, Name: "goaccount_login_latency_seconds", Help: "Login latency."},
}

// HistogramBounds are the upper bounds, in seconds, of every bucket but the
// last, which is unbounded.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, the unbounded one included.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// BucketCount is len(HistogramBounds) plus the unbounded bucket.
const BucketCount = 8

// NormalizeBuckets copies raw into a fixed array, zero-filling short input.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
