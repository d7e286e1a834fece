package domain

// Template identifiers understood by the notifier.
const (
	TemplateVerifyInstitutional      = "verify-institutional"
	TemplateVerifyPersonal           = "verify-personal"
	TemplateWelcome                  = "welcome"
	TemplateDualVerificationComplete = "dual-verification-complete"
	TemplatePasswordReset            = "password-reset"
)

// VerifyTemplateFor returns the code-delivery template for a role.
func VerifyTemplateFor(r Role) string {
	switch r {
	case RoleInstitutional:
		return TemplateVerifyInstitutional
	case RolePasswordReset:
		return TemplatePasswordReset
	}
	return TemplateVerifyPersonal
}

// CarriesCode reports whether a template embeds a one-time code.
func CarriesCode(templateID string) bool {
	switch templateID {
	case TemplateVerifyInstitutional, TemplateVerifyPersonal, TemplatePasswordReset:
		return true
	}
	return false
}

// Notification is a rendered outbound message.
type Notification struct {
	TemplateID string `json:"template_id"`
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
}
