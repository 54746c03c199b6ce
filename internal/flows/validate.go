package flows

import (
	"github.com/MrEthical07/authcore/jwt"
)

// ValidateFailureKind classifies validation failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureDecode
	ValidateFailureWrongType
)

// ValidateResult returns either claims or a classified failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Claims  *jwt.Claims
}

// ValidateDeps captures access-token validation dependencies.
type ValidateDeps struct {
	DecodeToken func(string) (*jwt.Claims, error)
}

// RunValidate verifies an access token without touching storage.
func RunValidate(tokenStr string, deps ValidateDeps) ValidateResult {
	claims, err := deps.DecodeToken(tokenStr)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureDecode, Err: err}
	}
	if claims.Type != jwt.TypeAccess {
		return ValidateResult{Failure: ValidateFailureWrongType, Claims: claims}
	}
	return ValidateResult{Failure: ValidateFailureNone, Claims: claims}
}
