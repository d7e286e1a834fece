package domain

// RegistrationRequest is the completed multi-step registration form.
type RegistrationRequest struct {
	Email                      string   `json:"email" validate:"required,email"`
	Password                   string   `json:"password" validate:"required,min=8,max=72"`
	FirstName                  string   `json:"first_name" validate:"required"`
	LastName                   string   `json:"last_name" validate:"required"`
	InstitutionalEmail         string   `json:"institutional_email" validate:"required,email"`
	InstitutionalEmailVerified bool     `json:"institutional_email_verified"`
	PersonalEmailVerified      bool     `json:"personal_email_verified"`
	CurrentInstitution         string   `json:"current_institution"`
	CurrentMajor               string   `json:"current_major"`
	TargetInstitution          string   `json:"target_institution"`
	TargetMajor                string   `json:"target_major"`
	CurrentGPA                 *float64 `json:"current_gpa" validate:"omitempty,gte=0,lte=4"`
	ExpectedTransferYear       *int     `json:"expected_transfer_year" validate:"omitempty,gte=2000,lte=2100"`
	ExpectedTransferQuarter    string   `json:"expected_transfer_quarter" validate:"omitempty,oneof=Fall Winter Spring Summer"`
}

// Metadata projects the request onto the identity metadata.
func (r RegistrationRequest) Metadata() IdentityMetadata {
	return IdentityMetadata{
		FirstName:                  r.FirstName,
		LastName:                   r.LastName,
		InstitutionalEmail:         r.InstitutionalEmail,
		InstitutionalEmailVerified: r.InstitutionalEmailVerified,
		PersonalEmailVerified:      r.PersonalEmailVerified,
		CurrentInstitution:         r.CurrentInstitution,
		CurrentMajor:               r.CurrentMajor,
		TargetInstitution:          r.TargetInstitution,
		TargetMajor:                r.TargetMajor,
		CurrentGPA:                 r.CurrentGPA,
		ExpectedTransferYear:       r.ExpectedTransferYear,
		ExpectedTransferQuarter:    r.ExpectedTransferQuarter,
	}
}

type RepairRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Provisioning step names, in execution order.
const (
	StepCreateIdentity   = "create_identity"
	StepMirrorUser       = "mirror_user"
	StepAcademicProfile  = "academic_profile"
	StepDashboardMetrics = "dashboard_metrics"
	StepActivityLog      = "activity_log"
	StepNotify           = "notify"
	StepConfirmEmail     = "confirm_email"
)

type StepStatus string

const (
	StepDone    StepStatus = "done"
	StepSkipped StepStatus = "skipped"
	StepFailed  StepStatus = "failed"
)

// StepResult is the outcome of one provisioning step. Created distinguishes a
// newly written record from one that was already present.
type StepResult struct {
	Step    string     `json:"step"`
	Status  StepStatus `json:"status"`
	Created bool       `json:"created"`
	Error   string     `json:"error,omitempty"`
}

// ProvisioningReport collects the step results of a registration or repair.
type ProvisioningReport struct {
	IdentityID string       `json:"identity_id"`
	Steps      []StepResult `json:"steps"`
}

func (r *ProvisioningReport) Add(res StepResult) {
	r.Steps = append(r.Steps, res)
}

// Step returns the result recorded for name, if any.
func (r *ProvisioningReport) Step(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Step == name {
			return s, true
		}
	}
	return StepResult{}, false
}

// Failed lists the names of failed steps.
func (r *ProvisioningReport) Failed() []string {
	var out []string
	for _, s := range r.Steps {
		if s.Status == StepFailed {
			out = append(out, s.Step)
		}
	}
	return out
}
