package audit

// Audit actions recorded by the auth flows.
const (
	ActionRegister               = "register"
	ActionLoginSuccess           = "login_success"
	ActionLoginFailure           = "login_failure"
	ActionRefresh                = "refresh"
	ActionRefreshRejected        = "refresh_rejected"
	ActionLogout                 = "logout"
	ActionLogoutAll              = "logout_all"
	ActionPasswordResetRequested = "password_reset_requested"
	ActionPasswordReset          = "password_reset"
	ActionPasswordChanged        = "password_changed"
	ActionSessionsRevokedByAdmin = "sessions_revoked_by_admin"
)

// Audit resources.
const (
	ResourceUser    = "user"
	ResourceSession = "session"
)
