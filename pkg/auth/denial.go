package auth

import (
	"fmt"
	"net/http"
)

// Reason is the closed set of ways a login attempt can be refused.
type Reason int

const (
	ReasonInvalidPayload Reason = iota + 1
	ReasonInvalidCode
	ReasonProofInvalid
	ReasonNotClubMember
	ReasonFeatureDisabled
	ReasonRegistrationDisabled
	ReasonAccountDeleted
	ReasonAccountDisabled
	ReasonPersistError
	ReasonSessionError
)

var reasonCodes = map[Reason]string{
	ReasonInvalidPayload:       "INVALID_PAYLOAD",
	ReasonInvalidCode:          "INVALID_ZKP_CODE",
	ReasonProofInvalid:         "PROOF_INVALID",
	ReasonNotClubMember:        "NOT_CLUB_MEMBER",
	ReasonFeatureDisabled:      "FEATURE_DISABLED",
	ReasonRegistrationDisabled: "REGISTRATION_DISABLED",
	ReasonAccountDeleted:       "ACCOUNT_DELETED",
	ReasonAccountDisabled:      "ACCOUNT_DISABLED",
	ReasonPersistError:         "PERSIST_ERROR",
	ReasonSessionError:         "SESSION_ERROR",
}

var reasonMessages = map[Reason]string{
	ReasonInvalidPayload:       "invalid request payload",
	ReasonInvalidCode:          "the ZKP code is malformed",
	ReasonProofInvalid:         "the proof could not be verified",
	ReasonNotClubMember:        "the wallet is not a member of the club",
	ReasonFeatureDisabled:      "ZKP login is not available",
	ReasonRegistrationDisabled: "new registrations are disabled",
	ReasonAccountDeleted:       "the account has been deleted",
	ReasonAccountDisabled:      "the account has been disabled",
	ReasonPersistError:         "the account could not be saved",
	ReasonSessionError:         "the session could not be saved",
}

func (r Reason) String() string {
	if code, ok := reasonCodes[r]; ok {
		return code
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// HTTPStatus is the status code a transport should answer a denial with.
func (r Reason) HTTPStatus() int {
	switch r {
	case ReasonInvalidPayload, ReasonInvalidCode:
		return http.StatusBadRequest
	case ReasonProofInvalid:
		return http.StatusUnauthorized
	case ReasonNotClubMember:
		return http.StatusForbidden
	case ReasonFeatureDisabled:
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// Denial is the terminal error of a refused login.
type Denial struct {
	Reason  Reason
	Message string
	Err     error
}

func deny(r Reason, err error) *Denial {
	return &Denial{Reason: r, Message: reasonMessages[r], Err: err}
}

func (d *Denial) Error() string {
	if d.Err != nil {
		return fmt.Sprintf("login denied (%s): %v", d.Reason, d.Err)
	}
	return fmt.Sprintf("login denied (%s)", d.Reason)
}

func (d *Denial) Unwrap() error {
	return d.Err
}
