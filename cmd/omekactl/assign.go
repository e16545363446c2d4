package main

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-omeka-mapper/omeka"
)

// assignment is one term=value argument.
type assignment struct {
	term  string
	value string
}

func parseAssignments(args []string) ([]assignment, error) {
	out := make([]assignment, 0, len(args))
	for _, arg := range args {
		term, value, ok := strings.Cut(arg, "=")
		term = strings.TrimSpace(term)
		if !ok || term == "" {
			return nil, errors.New("expected term=value, got "+strconv.Quote(arg), errors.CategoryBadInput)
		}
		out = append(out, assignment{term: term, value: value})
	}
	return out, nil
}

// fields groups assignments by term, in first-seen order, and types every
// value after the property it targets. A term assigned only empty values maps
// to no values, which removes it.
func fields(tmpl *omeka.Template, assignments []assignment) ([]string, map[string][]omeka.Value, error) {
	var order []string
	grouped := make(map[string][]omeka.Value)

	for _, as := range assignments {
		prop, ok := tmpl.Property(as.term)
		if !ok {
			return nil, nil, errors.New("template "+strconv.Quote(tmpl.Label)+" has no property "+as.term,
				errors.CategoryBadInput)
		}
		if _, seen := grouped[as.term]; !seen {
			order = append(order, as.term)
			grouped[as.term] = nil
		}
		if as.value == "" {
			continue
		}

		v, err := typedValue(prop, as.value)
		if err != nil {
			return nil, nil, err
		}
		grouped[as.term] = append(grouped[as.term], v)
	}
	return order, grouped, nil
}

// typedValue builds a resource reference from a numeric id, a uri from an
// IRI optionally followed by " label", and a literal otherwise.
func typedValue(prop omeka.TemplateProperty, raw string) (omeka.Value, error) {
	switch {
	case prop.IsResource():
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || id <= 0 {
			return omeka.Value{}, errors.New(prop.Term+" expects an item id, got "+strconv.Quote(raw),
				errors.CategoryBadInput)
		}
		return omeka.Reference(id), nil
	case prop.IsURI():
		iri, label, _ := strings.Cut(strings.TrimSpace(raw), " ")
		return omeka.LabeledURI(iri, strings.TrimSpace(label)), nil
	default:
		return omeka.Literal(raw), nil
	}
}
