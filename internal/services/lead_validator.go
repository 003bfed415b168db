package services

import (
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/kardan-dev/kardan-api/internal/models"
	apperrors "github.com/kardan-dev/kardan-api/pkg/errors"
)

// leadInput is the trimmed, flattened submission the struct tags run against
type leadInput struct {
	ClientName   string `json:"clientName" validate:"required,min=2,max=120"`
	IsCompany    *bool  `json:"isCompany" validate:"required"`
	CompanyName  string `json:"companyName" validate:"max=160"`
	Industry     string `json:"industry" validate:"required,industry"`
	ServiceType  string `json:"serviceType" validate:"required,service_type"`
	OtherService string `json:"otherService" validate:"max=240"`
	Phone        string `json:"phone" validate:"max=60"`
	Email        string `json:"email" validate:"required,max=254,email"`
	Country      string `json:"country" validate:"max=80"`
	State        string `json:"state" validate:"max=80"`
	City         string `json:"city" validate:"max=80"`
	Message      string `json:"message" validate:"max=2000"`
}

// crossFieldRule is checked after the struct tags: when applies holds, field must satisfy valid
type crossFieldRule struct {
	field   string
	applies func(in *leadInput) bool
	valid   func(in *leadInput) bool
	message string
}

var leadCrossFieldRules = []crossFieldRule{
	{
		field:   "companyName",
		applies: func(in *leadInput) bool { return in.IsCompany != nil && *in.IsCompany },
		valid:   func(in *leadInput) bool { return utf8.RuneCountInString(in.CompanyName) >= 2 },
		message: "Company name required",
	},
	{
		field:   "otherService",
		applies: func(in *leadInput) bool { return in.ServiceType == models.OtherOption },
		valid:   func(in *leadInput) bool { return utf8.RuneCountInString(in.OtherService) >= 3 },
		message: "Describe the other service",
	},
}

// LeadValidator turns a raw submission into a LeadRecord or a full list of violations.
// It does no I/O and is safe for concurrent use.
type LeadValidator struct {
	validate *validator.Validate
}

// NewLeadValidator creates a validator with the lead enum tags registered
func NewLeadValidator() *LeadValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// oneof cannot express values containing spaces and commas
	mustRegister(v, "industry", oneOfFunc(models.Industries))
	mustRegister(v, "service_type", oneOfFunc(models.ServiceTypes))

	return &LeadValidator{validate: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

func oneOfFunc(allowed []string) validator.Func {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	return func(fl validator.FieldLevel) bool {
		_, ok := set[fl.Field().String()]
		return ok
	}
}

// Validate checks sub and returns the normalised record. On failure the error is
// an *apperrors.ValidationError holding every violation found.
func (lv *LeadValidator) Validate(sub *models.LeadSubmission) (models.LeadRecord, error) {
	if sub == nil {
		sub = &models.LeadSubmission{}
	}
	in := normalize(sub)

	var violations []apperrors.FieldViolation
	if err := lv.validate.Struct(in); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return models.LeadRecord{}, apperrors.InternalError("lead validation: " + err.Error())
		}
		for _, fe := range fieldErrs {
			violations = append(violations, apperrors.FieldViolation{
				Field:   fe.Field(),
				Message: fieldErrorMessage(fe),
			})
		}
	}

	for _, rule := range leadCrossFieldRules {
		if !rule.applies(in) || hasViolation(violations, rule.field) {
			continue
		}
		if !rule.valid(in) {
			violations = append(violations, apperrors.FieldViolation{Field: rule.field, Message: rule.message})
		}
	}

	if len(violations) > 0 {
		return models.LeadRecord{}, &apperrors.ValidationError{Violations: violations}
	}

	return models.NewLeadRecord(models.LeadFields{
		ClientName:   in.ClientName,
		IsCompany:    *in.IsCompany,
		CompanyName:  in.CompanyName,
		Industry:     in.Industry,
		ServiceType:  in.ServiceType,
		OtherService: in.OtherService,
		Phone:        in.Phone,
		Email:        in.Email,
		Country:      in.Country,
		State:        in.State,
		City:         in.City,
		Message:      in.Message,
	}), nil
}

// normalize trims every string and clears conditional fields whose governing
// value is not set, so stray client input is neither validated nor kept.
func normalize(sub *models.LeadSubmission) *leadInput {
	in := &leadInput{
		ClientName:   trimmed(sub.ClientName),
		IsCompany:    sub.IsCompany,
		CompanyName:  trimmed(sub.CompanyName),
		Industry:     trimmed(sub.Industry),
		ServiceType:  trimmed(sub.ServiceType),
		OtherService: trimmed(sub.OtherService),
		Phone:        trimmed(sub.Phone),
		Email:        trimmed(sub.Email),
		Country:      trimmed(sub.Country),
		State:        trimmed(sub.State),
		City:         trimmed(sub.City),
		Message:      trimmed(sub.Message),
	}
	if in.IsCompany == nil || !*in.IsCompany {
		in.CompanyName = ""
	}
	if in.ServiceType != models.OtherOption {
		in.OtherService = ""
	}
	return in
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func hasViolation(violations []apperrors.FieldViolation, field string) bool {
	for _, v := range violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must not exceed " + fe.Param() + " characters"
	case "industry":
		return "industry must be one of: " + strings.Join(models.Industries, ", ")
	case "service_type":
		return "serviceType must be one of: " + strings.Join(models.ServiceTypes, "; ")
	default:
		return fe.Field() + " is invalid"
	}
}
