package booking

import (
	"errors"
	"reflect"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"

	"github.com/llcportal/consultations/services/booking-service/internal/model"
)

// BookingInput is the client-facing booking payload.
type BookingInput struct {
	Date   string      `json:"date" validate:"required,datetime=2006-01-02"`
	Time   string      `json:"time" validate:"required,datetime=15:04"`
	TypeID int64       `json:"type_id" validate:"required,gt=0"`
	Topic  string      `json:"topic" validate:"max=200"`
	Notes  string      `json:"notes" validate:"max=2000"`
	Locale string      `json:"locale" validate:"omitempty,bcp47_language_tag"`
	Guest  *GuestInput `json:"guest"`
}

type GuestInput struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Name  string `json:"name" validate:"required,min=2,max=120"`
}

// BookRequest is a validated booking request.
type BookRequest struct {
	Date     civil.Date
	Time     civil.Time
	TypeID   int64
	Owner    model.Owner
	Topic    string
	Notes    string
	Locale   string
	Language string
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Request validates the input and binds it to an owner. accountID is empty for guests,
// who must then supply contact details. An authenticated account always owns the booking.
func (in BookingInput) Request(accountID, acceptLanguage string) (BookRequest, error) {
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
	in.Topic = strings.TrimSpace(in.Topic)
	in.Notes = strings.TrimSpace(in.Notes)
	in.Locale = strings.TrimSpace(in.Locale)
	if in.Guest != nil {
		in.Guest.Email = strings.ToLower(strings.TrimSpace(in.Guest.Email))
		in.Guest.Name = strings.TrimSpace(in.Guest.Name)
	}

	if err := validateStruct(in); err != nil {
		return BookRequest{}, err
	}

	var owner model.Owner
	switch {
	case accountID != "":
		owner = model.AccountRef{ID: accountID}
	case in.Guest != nil:
		owner = model.GuestContact{Email: in.Guest.Email, Name: in.Guest.Name}
	default:
		return BookRequest{}, invalid("guest", "contact details are required without an account")
	}

	date, err := civil.ParseDate(in.Date)
	if err != nil {
		return BookRequest{}, invalid("date", "must be YYYY-MM-DD")
	}
	at, err := model.ParseClock(in.Time)
	if err != nil {
		return BookRequest{}, invalid("time", "must be HH:MM")
	}

	return BookRequest{
		Date:     date,
		Time:     at,
		TypeID:   in.TypeID,
		Owner:    owner,
		Topic:    in.Topic,
		Notes:    in.Notes,
		Locale:   in.Locale,
		Language: ResolveLanguage(in.Locale, acceptLanguage),
	}, nil
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[fieldPath(fe.Namespace())] = describe(fe)
	}
	return out
}

// fieldPath drops the root struct name: "BookingInput.guest.email" becomes "guest.email".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "datetime":
		return "must match " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "gt":
		return "must be greater than " + fe.Param()
	case "bcp47_language_tag":
		return "must be a language tag such as es or en-GB"
	default:
		return "is invalid"
	}
}
