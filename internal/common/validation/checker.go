// Package validation collects every problem in a set of values before
// reporting, so a bad environment is fixed in one pass instead of many.
package validation

import (
	"fmt"
	"strconv"
	"strings"

	"cart-enricher/internal/common/errors"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// CronParser accepts five-field specs and descriptors such as @hourly and
// @every 10m. The scheduler parses with the same parser.
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

var tags = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("cron_spec", func(fl validator.FieldLevel) bool {
		_, err := CronParser.Parse(fl.Field().String())
		return err == nil
	})
	return v
}

// Checker accumulates failures across a chain of checks.
type Checker struct {
	prefix   string
	problems []string
}

// New returns a Checker whose messages are prefixed with scope, if set.
func New(scope string) *Checker {
	return &Checker{prefix: scope}
}

func (c *Checker) tag(value interface{}, tag, msg string) *Checker {
	if err := tags.Var(value, tag); err != nil {
		c.fail(msg)
	}
	return c
}

func (c *Checker) fail(msg string) {
	if c.prefix != "" {
		msg = c.prefix + ": " + msg
	}
	c.problems = append(c.problems, msg)
}

// NonEmpty requires a value with something besides whitespace
func (c *Checker) NonEmpty(value, name string) *Checker {
	if strings.TrimSpace(value) == "" {
		c.fail(name + " is required")
	}
	return c
}

// URL requires an absolute URL
func (c *Checker) URL(value, name string) *Checker {
	return c.tag(value, "required,url", name+" must be a valid URL")
}

// Positive requires value >= 1
func (c *Checker) Positive(value int, name string) *Checker {
	return c.tag(value, "min=1", name+" must be positive")
}

// NonNegative requires value >= 0
func (c *Checker) NonNegative(value int, name string) *Checker {
	return c.tag(value, "min=0", name+" must be non-negative")
}

// Between requires lo <= value <= hi
func (c *Checker) Between(value, lo, hi int, name string) *Checker {
	return c.tag(value, "gte="+strconv.Itoa(lo)+",lte="+strconv.Itoa(hi),
		fmt.Sprintf("%s must be between %d and %d", name, lo, hi))
}

// OneOf requires value to equal one of allowed
func (c *Checker) OneOf(value string, allowed []string, name string) *Checker {
	return c.tag(value, "required,oneof="+strings.Join(allowed, " "),
		fmt.Sprintf("%s must be one of: %s", name, strings.Join(allowed, ", ")))
}

// Cron requires a schedule CronParser accepts
func (c *Checker) Cron(value, name string) *Checker {
	return c.tag(value, "cron_spec", name+" must be a valid cron schedule")
}

// Check records the error returned by fn, if any
func (c *Checker) Check(fn func() error) *Checker {
	if err := fn(); err != nil {
		c.fail(err.Error())
	}
	return c
}

// Err returns nil, or a validation error listing every failure.
func (c *Checker) Err() error {
	switch len(c.problems) {
	case 0:
		return nil
	case 1:
		return errors.ValidationError(c.problems[0])
	default:
		return errors.ValidationError("validation failed: " + strings.Join(c.problems, "; "))
	}
}
