package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/helixir/bibliographic-ingest/internal/pipeline"
	"github.com/helixir/bibliographic-ingest/internal/tracker"
)

// dateLayout is the layout of --start-date and --end-date.
const dateLayout = "2006-01-02"

// RunOptions are the flags of `ingest run`.
type RunOptions struct {
	Source    string `validate:"required,oneof=pubmed nsf govinfo"`
	Mode      string `validate:"required,oneof=new resume"`
	OutputDir string `validate:"required"`
	AdminSet  string `validate:"required"`
	Depositor string `validate:"required"`
	StartDate string `validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `validate:"omitempty,datetime=2006-01-02"`
	InputFile string `validate:"required_if=Source nsf,omitempty,file"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// fillFromProgress completes a resumed run's options with the values
// recorded when the run started. Flags given on the command line win.
func (o *RunOptions) fillFromProgress(p *tracker.Progress) {
	if o.Source == "" {
		o.Source = p.Source
	}
	if o.AdminSet == "" {
		o.AdminSet = p.AdminSet
	}
	if o.Depositor == "" {
		o.Depositor = p.Depositor
	}
	if o.StartDate == "" {
		o.StartDate = p.DateRange.From
	}
	if o.EndDate == "" {
		o.EndDate = p.DateRange.To
	}
	if o.InputFile == "" {
		o.InputFile = p.OutputPaths[inputPathKey]
	}
}

// Validate checks the options and the rules that depend on the source.
func (o *RunOptions) Validate() error {
	if err := validate.Struct(o); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			return formatValidationErrors(invalid)
		}
		return err
	}

	from, to, err := o.DateRange()
	if err != nil {
		return err
	}
	if o.Source == pipeline.SourcePubMed && (from == nil || to == nil) {
		return errors.New("--start-date and --end-date are required for the pubmed source")
	}
	if o.Source == pipeline.SourceGovInfo && o.InputFile == "" && from == nil {
		return errors.New("--start-date or --input-file is required for the govinfo source")
	}
	if from != nil && to != nil && to.Before(*from) {
		return fmt.Errorf("--end-date %s is before --start-date %s", o.EndDate, o.StartDate)
	}
	return nil
}

// DateRange parses the start and end dates. Unset dates are nil.
func (o *RunOptions) DateRange() (from, to *time.Time, err error) {
	parse := func(flag, value string) (*time.Time, error) {
		if value == "" {
			return nil, nil
		}
		t, err := time.Parse(dateLayout, value)
		if err != nil {
			return nil, fmt.Errorf("invalid --%s %q: %w", flag, value, err)
		}
		return &t, nil
	}
	if from, err = parse("start-date", o.StartDate); err != nil {
		return nil, nil, err
	}
	if to, err = parse("end-date", o.EndDate); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

// TrackerMode returns the tracker mode of --mode.
func (o *RunOptions) TrackerMode() tracker.Mode {
	return tracker.Mode(o.Mode)
}

func formatValidationErrors(errs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		flag := "--" + kebab(fe.Field())
		switch fe.Tag() {
		case "required", "required_if":
			msgs = append(msgs, flag+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", flag, fe.Param()))
		case "datetime":
			msgs = append(msgs, fmt.Sprintf("%s must be a date in YYYY-MM-DD form", flag))
		case "file":
			msgs = append(msgs, fmt.Sprintf("%s %q is not a readable file", flag, fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", flag, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// kebab converts a Go field name such as OutputDir to output-dir.
func kebab(field string) string {
	var sb strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('-')
			}
			r += 'a' - 'A'
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
