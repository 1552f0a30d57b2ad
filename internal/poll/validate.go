package poll

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// validate collects every violation instead of stopping at the first one.
func validate(question string, options []string, timeLimitSec int) error {
	var err error

	if strings.TrimSpace(question) == "" {
		err = multierr.Append(err, errors.New("Question is required and must be a non-empty string"))
	}

	if len(options) < 2 {
		err = multierr.Append(err, errors.New("At least 2 options are required"))
	}
	for i, opt := range options {
		if strings.TrimSpace(opt) == "" {
			err = multierr.Append(err, fmt.Errorf("Option %d must be a non-empty string", i+1))
		}
	}

	if timeLimitSec < MinTimeLimitSec || timeLimitSec > MaxTimeLimitSec {
		err = multierr.Append(err, fmt.Errorf("Time limit must be between %d and %d seconds", MinTimeLimitSec, MaxTimeLimitSec))
	}

	if err == nil {
		return nil
	}

	errs := multierr.Errors(err)
	problems := make([]string, len(errs))
	for i, e := range errs {
		problems[i] = e.Error()
	}
	return &ValidationError{Problems: problems}
}
