package models

// RequestContext carries the per-request client signals the trust and audit
// components need. The authoritative client signal is either the persistent
// device ID supplied by native clients or, failing that, the User-Agent —
// exactly one of the two per request, never a composite.
type RequestContext struct {
	IPAddress  string
	UserAgent  string
	DeviceID   string // persistent client-supplied instance ID, may be empty
	HTTPMethod string
	Endpoint   string
}

// ClientSignal returns the authoritative device signal for this request.
func (r RequestContext) ClientSignal() string {
	if r.DeviceID != "" {
		return r.DeviceID
	}
	return r.UserAgent
}

// TokenPair is the session credential issued on full authentication.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// CheckTwoFactorResult is the outcome of the trust-decision phase.
type CheckTwoFactorResult struct {
	Requires2FA    bool    `json:"requires2FA"`
	TempToken      string  `json:"tempToken,omitempty"`
	Method         Channel `json:"method,omitempty"`
	TrustedDevice  bool    `json:"trustedDevice,omitempty"`
	AdminTrustedIP bool    `json:"adminTrustedIP,omitempty"`
	AdminNewIP     bool    `json:"adminNewIP,omitempty"`
}

// VerifyTwoFactorResult is the outcome of a successful code verification.
type VerifyTwoFactorResult struct {
	DeviceTrusted bool       `json:"deviceTrusted"`
	Tokens        *TokenPair `json:"tokens,omitempty"`
}

// LoginResult is the outcome of a password login. Exactly one of Tokens or
// Challenge is set: Tokens on DIRECT_AUTH, Challenge when a second factor is
// required.
type LoginResult struct {
	Identity  string                `json:"identity"`
	Tokens    *TokenPair            `json:"tokens,omitempty"`
	Challenge *CheckTwoFactorResult `json:"challenge,omitempty"`
}
