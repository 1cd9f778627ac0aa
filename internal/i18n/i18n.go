package i18n

import (
	"strings"
)

// Message keys used across handlers
const (
	KeySuccess             = "success"
	KeyUnauthorized        = "unauthorized"
	KeyUnauthenticated     = "unauthenticated"
	KeyUserNotFound        = "user_not_found"
	KeyUpdateSuccess       = "update_success"
	KeyUnsupportedLanguage = "unsupported_language"
	KeyForbidden           = "forbidden"
	KeyUserDeleted         = "user_deleted"
	KeyAuthFailed          = "auth_failed"
	KeyTooManyAttempts     = "too_many_attempts"
	KeyValidationFailed    = "validation_failed"
	KeyResourceNotFound    = "resource_not_found"
	KeyServerError         = "server_error"
	KeyResetSent           = "reset_sent"
	KeyPasswordReset       = "password_reset"
)

var catalogs = map[string]map[string]string{
	"en": {
		KeySuccess:             "Action completed successfully",
		KeyUnauthorized:        "You do not have permission to perform this action",
		KeyUnauthenticated:     "Please log in to continue",
		KeyUserNotFound:        "User not found",
		KeyUpdateSuccess:       "Update successful",
		KeyUnsupportedLanguage: "This language is not supported",
		KeyForbidden:           "You do not have access to this action",
		KeyUserDeleted:         "User account successfully deleted",
		KeyAuthFailed:          "Incorrect login credentials",
		KeyTooManyAttempts:     "Too many failed attempts. Please try again in {minutes} minutes.",
		KeyValidationFailed:    "Validation error - please check your input",
		KeyResourceNotFound:    "The requested resource could not be found",
		KeyServerError:         "Something went wrong, please try again later",
		KeyResetSent:           "If the email exists, a password reset link has been sent",
		KeyPasswordReset:       "Password has been reset successfully",
	},
	"lt": {
		KeySuccess:             "Atlikta sėkmingai",
		KeyUnauthorized:        "Neturite teisės atlikti šį veiksmą",
		KeyUnauthenticated:     "Prašome prisijungti",
		KeyUserNotFound:        "Vartotojas nerastas",
		KeyUpdateSuccess:       "Atnaujinta sėkmingai",
		KeyUnsupportedLanguage: "Nepalaikoma kalba",
		KeyForbidden:           "Uždrausta",
		KeyUserDeleted:         "Vartotojas ištrintas",
		KeyAuthFailed:          "Neteisingi prisijungimo duomenys",
		KeyTooManyAttempts:     "Per daug prisijungimo bandymų. Prašome bandyti dar kartą po {minutes} minučių",
		KeyValidationFailed:    "Validacijos klaida",
		KeyResourceNotFound:    "Resursas nerastas",
		KeyServerError:         "Įvyko klaida, bandykite vėliau",
		KeyResetSent:           "Jei el. paštas egzistuoja, slaptažodžio atstatymo nuoroda išsiųsta",
		KeyPasswordReset:       "Slaptažodis sėkmingai atstatytas",
	},
}

// DefaultLocale is the fallback for unknown locales and missing keys
const DefaultLocale = "en"

// Supported reports whether the locale has a catalog
func Supported(locale string) bool {
	_, ok := catalogs[locale]
	return ok
}

// Locales lists the supported locale codes
func Locales() []string {
	codes := make([]string, 0, len(catalogs))
	for code := range catalogs {
		codes = append(codes, code)
	}
	return codes
}

// T resolves a message key for the locale, replacing {name} placeholders
// with the given arguments. Unknown locales and keys fall back to English.
func T(locale string, key string, args map[string]string) string {
	catalog, ok := catalogs[locale]
	if !ok {
		catalog = catalogs[DefaultLocale]
	}

	msg, ok := catalog[key]
	if !ok {
		msg, ok = catalogs[DefaultLocale][key]
		if !ok {
			return key
		}
	}

	for name, value := range args {
		msg = strings.ReplaceAll(msg, "{"+name+"}", value)
	}

	return msg
}
