package navigator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Package-level validator shared by definition loading and token decoding.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report field paths using the serialized names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
}

// SchemaError aggregates the field-level problems found by struct validation.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "schema validation failed: " + strings.Join(e.Problems, "; ")
}

// newSchemaError converts validator output into a SchemaError. Errors that are
// not validation errors are returned unchanged.
func newSchemaError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s: %s", fieldPath(fe), describeFieldError(fe)))
	}
	return &SchemaError{Problems: problems}
}

// fieldPath drops the root type name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of [" + fe.Param() + "]"
	case "min":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map || fe.Kind() == reflect.String {
			return "must have at least " + fe.Param() + " entries"
		}
		return "must be at least " + fe.Param()
	case "unique":
		return "must not contain duplicates"
	case "ltfield":
		return "must be less than " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// validateReferences checks id uniqueness and cross references that struct
// tags cannot express.
func validateReferences(w *Workflow) error {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	activities := make(map[string]bool, len(w.Activities))
	for _, a := range w.Activities {
		if activities[a.ID] {
			addf("duplicate activity id %q", a.ID)
		}
		activities[a.ID] = true
	}
	if !activities[w.InitialActivity] {
		addf("initial activity %q not found", w.InitialActivity)
	}

	for _, a := range w.Activities {
		checkUnique(a.ID, "step", stepIDs(a.Steps), addf)

		cpIDs := make([]string, 0, len(a.Checkpoints))
		for _, cp := range a.Checkpoints {
			cpIDs = append(cpIDs, cp.ID)
			checkUnique(a.ID+"/"+cp.ID, "option", cp.OptionIDs(), addf)
			for _, opt := range cp.Options {
				if opt.Effect == nil {
					continue
				}
				if opt.Effect.TransitionTo != "" && !activities[opt.Effect.TransitionTo] {
					addf("activity %q checkpoint %q option %q transitions to unknown activity %q",
						a.ID, cp.ID, opt.ID, opt.Effect.TransitionTo)
				}
				for _, skip := range opt.Effect.SkipActivities {
					if !activities[skip] {
						addf("activity %q checkpoint %q option %q skips unknown activity %q",
							a.ID, cp.ID, opt.ID, skip)
					}
				}
			}
		}
		checkUnique(a.ID, "checkpoint", cpIDs, addf)

		decisionIDs := make([]string, 0, len(a.Decisions))
		for _, d := range a.Decisions {
			decisionIDs = append(decisionIDs, d.ID)
			branchIDs := make([]string, 0, len(d.Branches))
			for _, b := range d.Branches {
				branchIDs = append(branchIDs, b.ID)
				if b.TransitionTo != "" && !activities[b.TransitionTo] {
					addf("activity %q decision %q branch %q transitions to unknown activity %q",
						a.ID, d.ID, b.ID, b.TransitionTo)
				}
			}
			checkUnique(a.ID+"/"+d.ID, "branch", branchIDs, addf)
		}
		checkUnique(a.ID, "decision", decisionIDs, addf)

		loopIDs := make([]string, 0, len(a.Loops))
		for _, l := range a.Loops {
			loopIDs = append(loopIDs, l.ID)
			checkUnique(a.ID+"/"+l.ID, "loop step", stepIDs(l.Steps), addf)
			for _, s := range l.Steps {
				if _, _, clash := a.Step(s.ID); clash {
					addf("activity %q loop %q step %q shadows an activity step with the same id",
						a.ID, l.ID, s.ID)
				}
			}
		}
		checkUnique(a.ID, "loop", loopIDs, addf)

		defaults := 0
		for _, t := range a.Transitions {
			if !activities[t.To] {
				addf("activity %q transitions to unknown activity %q", a.ID, t.To)
			}
			if t.IsDefault {
				defaults++
			}
		}
		if defaults > 1 {
			addf("activity %q declares %d default transitions", a.ID, defaults)
		}
	}

	if len(problems) > 0 {
		return &SchemaError{Problems: problems}
	}
	return nil
}

func checkUnique(scope, kind string, ids []string, addf func(string, ...any)) {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			addf("duplicate %s id %q in %q", kind, id, scope)
		}
		seen[id] = true
	}
}

func stepIDs(steps []*Step) []string {
	ids := make([]string, 0, len(steps))
	for _, s := range steps {
		ids = append(ids, s.ID)
	}
	return ids
}
