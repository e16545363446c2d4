package main

import (
	"bytes"
	"encoding/json"

	"github.com/goliatone/go-errors"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"
)

// emit writes v as indented JSON. With --select set only the matches of the
// JSONPath are written: a single match as is, several as an array.
func (a *app) emit(cmd *cobra.Command, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "encode output")
	}

	if a.selector != "" {
		data, err = project(data, a.selector)
		if err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "indent output")
	}
	buf.WriteByte('\n')

	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

func project(data []byte, selector string) ([]byte, error) {
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid selector "+selector)
	}

	doc, err := oj.Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "parse output")
	}

	var out any
	switch results := x.Get(doc); len(results) {
	case 0:
		out = []any{}
	case 1:
		out = results[0]
	default:
		out = results
	}

	data, err = json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "encode selection")
	}
	return data, nil
}
