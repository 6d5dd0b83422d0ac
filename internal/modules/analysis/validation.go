package analysis

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/domain"
	"github.com/go-playground/validator/v10"
)

// Validator checks analysis requests at the boundary
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator with the domain rules registered
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs
	_ = v.RegisterValidation("asset_class", func(fl validator.FieldLevel) bool {
		return domain.AssetClass(fl.Field().String()).IsPlannable()
	})
	_ = v.RegisterValidation("risk_tolerance", func(fl validator.FieldLevel) bool {
		return domain.RiskTolerance(fl.Field().String()).IsValid()
	})

	return &Validator{validate: v}
}

// Validate checks req against struct rules and the cross-field rules.
// Every problem is collected into one validation error.
func (v *Validator) Validate(req *domain.AnalysisRequest, asOf domain.Date) error {
	if req == nil {
		return domain.NewValidationError("request body is required")
	}

	var details []string
	if err := v.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return domain.NewValidationError(err.Error())
		}
		for _, fe := range fieldErrs {
			details = append(details, describe(fe))
		}
	}

	for i, h := range req.Holdings {
		if h.Amount == nil && h.Units == nil {
			details = append(details, fmt.Sprintf("holdings[%d]: one of amount or units is required", i))
		}
		if h.PurchaseDate != nil && h.PurchaseDate.After(asOf.Time) {
			details = append(details, fmt.Sprintf("holdings[%d].purchase_date: %s is in the future", i, h.PurchaseDate))
		}
	}

	if len(details) > 0 {
		return domain.NewValidationError("invalid analysis request", details...)
	}
	return nil
}

// describe renders a field error as "path: problem"
func describe(fe validator.FieldError) string {
	path := fe.Namespace()
	if i := strings.Index(path, "."); i >= 0 {
		path = path[i+1:]
	}

	var problem string
	switch fe.Tag() {
	case "required":
		problem = "is required"
	case "gt":
		problem = "must be greater than " + fe.Param()
	case "gte":
		problem = "must be at least " + fe.Param()
	case "lt":
		problem = "must be less than " + fe.Param()
	case "lte":
		problem = "must be at most " + fe.Param()
	case "max":
		problem = fmt.Sprintf("must be at most %s characters", fe.Param())
	case "asset_class":
		problem = fmt.Sprintf("%q is not an asset class (want one of %s)", fe.Value(), joinClasses())
	case "risk_tolerance":
		problem = fmt.Sprintf("%q is not a risk tolerance", fe.Value())
	default:
		problem = "failed " + fe.Tag()
	}
	return path + ": " + problem
}

func joinClasses() string {
	names := make([]string, len(domain.PlannableAssetClasses))
	for i, c := range domain.PlannableAssetClasses {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// normalize lower-cases asset class hints and candidate fund keys so
// "Equity" and "equity" are accepted alike.
func normalize(req *domain.AnalysisRequest) {
	for i := range req.Holdings {
		if c := req.Holdings[i].AssetClass; c != "" {
			req.Holdings[i].AssetClass = domain.AssetClass(strings.ToLower(strings.TrimSpace(string(c))))
		}
	}
	if len(req.CandidateFunds) == 0 {
		return
	}
	funds := make(map[domain.AssetClass]domain.CandidateFund, len(req.CandidateFunds))
	for class, fund := range req.CandidateFunds {
		funds[domain.AssetClass(strings.ToLower(strings.TrimSpace(string(class))))] = fund
	}
	req.CandidateFunds = funds
}
