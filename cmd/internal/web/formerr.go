package web

// FormError is the closed vocabulary of user-correctable validation failures.
// Codes round-trip through the `e` query parameter of a redirect, so the wire
// tokens are stable and anything unrecognized decodes to Other.
type FormError int

const (
	Other FormError = iota
	Email
	Password
	Credentials
	PasswordMismatch
	EmailExists
	GitExists
	MmostExists
	Code
	Date
	ReservedName
	Length
)

var formErrTokens = map[FormError]string{
	Other:            "other",
	Email:            "email",
	Password:         "password",
	Credentials:      "credentials",
	PasswordMismatch: "mismatch",
	EmailExists:      "emailExists",
	GitExists:        "gitExists",
	MmostExists:      "mmostExists",
	Code:             "code",
	Date:             "date",
	ReservedName:     "reserved",
	Length:           "length",
}

var formErrMessages = map[FormError]string{
	Other:            "Something went wrong. Please try again.",
	Email:            "No account with that email address.",
	Password:         "Wrong password.",
	Credentials:      "Those credentials cannot be used.",
	PasswordMismatch: "The passwords do not match.",
	EmailExists:      "An account with that email already exists.",
	GitExists:        "That handle is already taken.",
	MmostExists:      "That messaging handle is already taken.",
	Code:             "Invalid code.",
	Date:             "Invalid date.",
	ReservedName:     "That handle is reserved.",
	Length:           "Handle or messaging handle is too long.",
}

// String returns the stable wire token.
func (e FormError) String() string {
	if s, ok := formErrTokens[e]; ok {
		return s
	}
	return "other"
}

// Message returns the human-readable form text.
func (e FormError) Message() string {
	if s, ok := formErrMessages[e]; ok {
		return s
	}
	return formErrMessages[Other]
}

// ParseFormError decodes a wire token. Unknown tokens become Other.
func ParseFormError(s string) FormError {
	for code, token := range formErrTokens {
		if token == s {
			return code
		}
	}
	return Other
}
