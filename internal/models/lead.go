package models

import (
	"time"

	apperrors "github.com/kardan-dev/kardan-api/pkg/errors"
)

// Industries accepted on the lead form, in display order
var Industries = []string{
	"Technology",
	"E-commerce",
	"Healthcare",
	"Finance",
	"Education",
	"Hospitality",
	"Real Estate",
	"Manufacturing",
	"Other",
}

// ServiceTypes accepted on the lead form, in display order
var ServiceTypes = []string{
	"Landing page",
	"App development",
	"Web App (saas)",
	"misc (graphic design, branding, marketing)",
	"automation",
	"Other",
}

// OtherOption is the enum value that unlocks free-text detail fields
const OtherOption = "Other"

// LeadSubmission is the raw contact-form body. Pointers keep "absent" distinct from "empty".
type LeadSubmission struct {
	ClientName     *string `json:"clientName"`
	IsCompany      *bool   `json:"isCompany"`
	CompanyName    *string `json:"companyName"`
	Industry       *string `json:"industry"`
	ServiceType    *string `json:"serviceType"`
	OtherService   *string `json:"otherService"`
	Phone          *string `json:"phone"`
	Email          *string `json:"email"`
	Country        *string `json:"country"`
	City           *string `json:"city"`
	State          *string `json:"state"`
	Message        *string `json:"message"`
	RecaptchaToken *string `json:"recaptchaToken"`

	// RemoteIP is filled by the handler, never from the body
	RemoteIP string `json:"-"`
}

// LeadRecord is a validated lead. Build it with NewLeadRecord; fields are
// unexported so nothing can change a record after validation.
type LeadRecord struct {
	reference    string
	clientName   string
	isCompany    bool
	companyName  string
	industry     string
	serviceType  string
	otherService string
	phone        string
	email        string
	country      string
	state        string
	city         string
	message      string
	submittedAt  time.Time
}

// LeadFields is the input to NewLeadRecord
type LeadFields struct {
	Reference    string
	ClientName   string
	IsCompany    bool
	CompanyName  string
	Industry     string
	ServiceType  string
	OtherService string
	Phone        string
	Email        string
	Country      string
	State        string
	City         string
	Message      string
	SubmittedAt  time.Time
}

// NewLeadRecord builds a record, clearing conditional fields whose governing
// flag is not set.
func NewLeadRecord(f LeadFields) LeadRecord {
	r := LeadRecord{
		reference:    f.Reference,
		clientName:   f.ClientName,
		isCompany:    f.IsCompany,
		companyName:  f.CompanyName,
		industry:     f.Industry,
		serviceType:  f.ServiceType,
		otherService: f.OtherService,
		phone:        f.Phone,
		email:        f.Email,
		country:      f.Country,
		state:        f.State,
		city:         f.City,
		message:      f.Message,
		submittedAt:  f.SubmittedAt,
	}
	if !r.isCompany {
		r.companyName = ""
	}
	if r.serviceType != OtherOption {
		r.otherService = ""
	}
	return r
}

// WithSubmittedAt returns a copy stamped with t
func (r LeadRecord) WithSubmittedAt(t time.Time) LeadRecord {
	r.submittedAt = t
	return r
}

// WithReference returns a copy carrying ref
func (r LeadRecord) WithReference(ref string) LeadRecord {
	r.reference = ref
	return r
}

func (r LeadRecord) Reference() string { return r.reference }
func (r LeadRecord) ClientName() string { return r.clientName }
func (r LeadRecord) IsCompany() bool { return r.isCompany }
func (r LeadRecord) CompanyName() string { return r.companyName }
func (r LeadRecord) Industry() string { return r.industry }
func (r LeadRecord) ServiceType() string { return r.serviceType }
func (r LeadRecord) OtherService() string { return r.otherService }
func (r LeadRecord) Phone() string { return r.phone }
func (r LeadRecord) Email() string { return r.email }
func (r LeadRecord) Country() string { return r.country }
func (r LeadRecord) State() string { return r.state }
func (r LeadRecord) City() string { return r.city }
func (r LeadRecord) Message() string { return r.message }
func (r LeadRecord) SubmittedAt() time.Time { return r.submittedAt }

// LeadResponse is the single JSON shape returned by the intake endpoint
type LeadResponse struct {
	OK     bool                       `json:"ok"`
	Error  string                     `json:"error,omitempty"`
	Code   apperrors.Code             `json:"code,omitempty"`
	Errors []apperrors.FieldViolation `json:"errors,omitempty"`
}
