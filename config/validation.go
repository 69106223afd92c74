package config

import (
	"path"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	storageutil "github.com/indieinfra/mediacycle/storage/util"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CronParser accepts standard five-field expressions plus descriptors such as @daily.
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func ValidateAbsPath(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s != "" && path.IsAbs(s)
}

func ValidateIdentifier(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}

	return identifierPattern.MatchString(s)
}

// ValidateKeySegment rejects names that cannot be embedded as a single storage key segment.
// The staging marker itself is reserved.
func ValidateKeySegment(fl validator.FieldLevel) bool {
	return storageutil.CheckKeySegment(fl.Field().String()) == nil
}

func ValidateCronSpec(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return false
	}

	_, err := CronParser.Parse(s)
	return err == nil
}
