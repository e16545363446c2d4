package main

import (
	"github.com/goliatone/go-omeka-mapper/omeka"
	"github.com/spf13/cobra"
)

func newCreateCmd(a *app) *cobra.Command {
	var (
		template string
		sets     []string
		itemSet  int64
	)

	cmd := &cobra.Command{
		Use:   "create --template <id|label> --set term=value...",
		Short: "Create an item",
		Long: `Create an item of a resource template. Each --set adds one value; repeat a
term to give it several. Resource properties take an item id, uri properties
an IRI optionally followed by a space and a label.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			assignments, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			tmpl, err := a.template(ctx, template)
			if err != nil {
				return err
			}
			order, grouped, err := fields(tmpl, assignments)
			if err != nil {
				return err
			}

			rec := omeka.Record{}
			for _, term := range order {
				rec.Set(term, grouped[term]...)
			}

			it, err := a.session().Items.Create(ctx, tmpl, rec, itemSet)
			if err != nil {
				return err
			}
			return a.emit(cmd, it.Plain())
		},
	}
	cmd.Flags().StringVar(&template, "template", "", "template id or label")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "term=value, repeatable")
	cmd.Flags().Int64Var(&itemSet, "item-set", 0, "item set to add the item to")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}

func newSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <id> term=value...",
		Short: "Update values of an item",
		Long: `Load an item, replace the values of the given terms and save it. Repeat a
term to give it several values; "term=" removes it.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			assignments, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}

			session := a.session()
			it, err := session.Items.Item(ctx, id, false)
			if err != nil {
				return err
			}
			tmpl, err := session.Templates.Template(ctx, it.TemplateID())
			if err != nil {
				return err
			}
			order, grouped, err := fields(tmpl, assignments)
			if err != nil {
				return err
			}

			for _, term := range order {
				it.Set(term, grouped[term]...)
			}
			if err := it.Save(ctx); err != nil {
				return err
			}
			return a.emit(cmd, it.Plain())
		},
	}
}
