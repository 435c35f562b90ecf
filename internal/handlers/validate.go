// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"lostfound/internal/models"
	"lostfound/internal/refcode"
)

// eventDateLayout is the accepted format for the optional event date.
const eventDateLayout = "2006-01-02"

// validate is shared by every handler; validator.Validate caches struct
// metadata and is safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report field names as they appear in the JSON body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("refcode", func(fl validator.FieldLevel) bool {
		return refcode.Valid(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// createReportRequest is the JSON body of POST /api/reports.
type createReportRequest struct {
	Kind               string `json:"kind" validate:"required,oneof=lost found"`
	Title              string `json:"title" validate:"required,max=200"`
	Description        string `json:"description" validate:"max=5000"`
	City               string `json:"city" validate:"required,max=100"`
	StateCode          string `json:"state_code" validate:"required,len=2,alpha"`
	TransportType      string `json:"transport_type" validate:"max=50"`
	TransportTypeOther string `json:"transport_type_other" validate:"required_if=TransportType other,max=100"`
	PlaceType          string `json:"place_type" validate:"max=50"`
	PlaceTypeOther     string `json:"place_type_other" validate:"required_if=PlaceType other,max=100"`
	ContactEmail       string `json:"contact_email" validate:"required,email,max=254"`
	EventDate          string `json:"event_date" validate:"omitempty,datetime=2006-01-02"`
	PublicCode         string `json:"public_code" validate:"omitempty,refcode"`
}

// normalize trims whitespace from every free-text field and lowercases the
// enumerated ones so validation sees what will be stored.
func (req *createReportRequest) normalize() {
	req.Kind = strings.ToLower(strings.TrimSpace(req.Kind))
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.City = strings.TrimSpace(req.City)
	req.StateCode = strings.ToUpper(strings.TrimSpace(req.StateCode))
	req.TransportType = strings.ToLower(strings.TrimSpace(req.TransportType))
	req.TransportTypeOther = strings.TrimSpace(req.TransportTypeOther)
	req.PlaceType = strings.ToLower(strings.TrimSpace(req.PlaceType))
	req.PlaceTypeOther = strings.TrimSpace(req.PlaceTypeOther)
	req.ContactEmail = strings.TrimSpace(req.ContactEmail)
	req.EventDate = strings.TrimSpace(req.EventDate)
	req.PublicCode = strings.TrimSpace(req.PublicCode)
}

// toReport builds the report to insert. The request must have passed
// validation.
func (req *createReportRequest) toReport() *models.Report {
	r := &models.Report{
		Kind:               models.ReportKind(req.Kind),
		Status:             models.ReportStatusOpen,
		Title:              req.Title,
		Description:        req.Description,
		City:               req.City,
		StateCode:          req.StateCode,
		TransportType:      req.TransportType,
		TransportTypeOther: req.TransportTypeOther,
		PlaceType:          req.PlaceType,
		PlaceTypeOther:     req.PlaceTypeOther,
		ContactEmail:       req.ContactEmail,
	}
	if req.EventDate != "" {
		if d, err := time.Parse(eventDateLayout, req.EventDate); err == nil {
			r.EventDate = &d
		}
	}
	if req.PublicCode != "" {
		code := req.PublicCode
		r.PublicCode = &code
	}
	r.Fingerprint = models.Fingerprint(r.Kind, r.Title, r.City, r.StateCode, r.ContactEmail, r.EventDate)
	return r
}

// validationErrors maps each failing JSON field to the rule it broke.
// Returns nil when err is not a validation failure.
func validationErrors(err error) map[string]string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return nil
	}
	out := make(map[string]string, len(ves))
	for _, ve := range ves {
		out[ve.Field()] = ve.Tag()
	}
	return out
}
