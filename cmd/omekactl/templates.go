package main

import (
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-omeka-mapper/omeka"
	"github.com/spf13/cobra"
)

type templateSummary struct {
	ID      int64  `json:"o:id"`
	Label   string `json:"o:label"`
	ClassID int64  `json:"o:resource_class,omitempty"`
}

type propertyView struct {
	ID        int64    `json:"o:id"`
	Term      string   `json:"o:term"`
	Label     string   `json:"o:label"`
	DataTypes []string `json:"o:data_type"`
	Required  bool     `json:"o:is_required"`
}

type templateView struct {
	templateSummary
	Properties []propertyView `json:"o:resource_template_property"`
}

func viewTemplate(t *omeka.Template) templateView {
	props := make([]propertyView, 0, len(t.Properties))
	for _, p := range t.Properties {
		types := p.DataTypes
		if types == nil {
			types = []string{}
		}
		props = append(props, propertyView{
			ID:        p.ID,
			Term:      p.Term,
			Label:     p.Label,
			DataTypes: types,
			Required:  p.Required,
		})
	}
	return templateView{
		templateSummary: templateSummary{ID: t.ID, Label: t.Label, ClassID: t.ClassID},
		Properties:      props,
	}
}

func newTemplatesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List resource templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			templates := a.session().Templates
			if err := templates.PreloadPartial(cmd.Context()); err != nil {
				return err
			}

			partials := templates.Partials()
			out := make([]templateSummary, 0, len(partials))
			for _, p := range partials {
				out = append(out, templateSummary{ID: p.ID, Label: p.Label, ClassID: p.ClassID})
			}
			return a.emit(cmd, out)
		},
	}
}

func newTemplateCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "template [id]",
		Short: "Show a resource template with its properties",
		Long:  "Show a resource template by id, or by label with --name.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var (
				tmpl *omeka.Template
				err  error
			)
			switch {
			case len(args) == 1 && name != "":
				return errors.New("give either an id or --name", errors.CategoryBadInput)
			case len(args) == 1:
				id, perr := parseID(args[0])
				if perr != nil {
					return perr
				}
				tmpl, err = a.session().Templates.Template(ctx, id)
			case name != "":
				if err := a.session().Templates.PreloadPartial(ctx); err != nil {
					return err
				}
				tmpl, err = a.session().Templates.TemplateByName(ctx, name)
			default:
				return errors.New("template id or --name required", errors.CategoryBadInput)
			}
			if err != nil {
				return err
			}
			return a.emit(cmd, viewTemplate(tmpl))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "template label")
	return cmd
}
