package payments

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes carried by verification errors.
const (
	TextCodeMissingSignature          = "MISSING_SIGNATURE"
	TextCodeInvalidSignature          = "INVALID_SIGNATURE"
	TextCodeMalformedPayload          = "MALFORMED_PAYLOAD"
	TextCodeVerificationRequestFailed = "VERIFICATION_REQUEST_FAILED"
	TextCodeVerificationRejected      = "VERIFICATION_REJECTED"
)

var verificationTextCodes = map[string]struct{}{
	TextCodeMissingSignature:          {},
	TextCodeInvalidSignature:          {},
	TextCodeMalformedPayload:          {},
	TextCodeVerificationRequestFailed: {},
	TextCodeVerificationRejected:      {},
}

func verificationError(source error, category goerrors.Category, textCode, message, provider string) error {
	var err *goerrors.Error
	if source == nil {
		err = goerrors.New(message, category)
	} else {
		err = goerrors.Wrap(source, category, message)
	}
	return err.
		WithCode(http.StatusBadRequest).
		WithTextCode(textCode).
		WithMetadata(map[string]any{"provider": provider})
}

func errMissingSignature(provider, message string) error {
	return verificationError(nil, goerrors.CategoryAuth, TextCodeMissingSignature, message, provider)
}

func errInvalidSignature(provider string, source error) error {
	return verificationError(source, goerrors.CategoryAuth, TextCodeInvalidSignature, "invalid signature", provider)
}

func errMalformedPayload(provider string, source error) error {
	return verificationError(source, goerrors.CategoryBadInput, TextCodeMalformedPayload, "malformed webhook payload", provider)
}

func errVerificationRequestFailed(provider string, source error) error {
	return verificationError(source, goerrors.CategoryOperation, TextCodeVerificationRequestFailed, "signature verification request failed", provider)
}

func errVerificationRejected(provider, status string) error {
	return verificationError(nil, goerrors.CategoryAuth, TextCodeVerificationRejected, "signature verification rejected: "+status, provider)
}

// ErrorTextCode returns the text code of a go-errors value, or "".
func ErrorTextCode(err error) string {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return ""
	}
	return rich.TextCode
}

// IsVerificationError reports whether err is a webhook authentication failure.
// Callers answer these with 400 and never retry them.
func IsVerificationError(err error) bool {
	_, ok := verificationTextCodes[ErrorTextCode(err)]
	return ok
}
