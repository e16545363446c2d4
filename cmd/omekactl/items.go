package main

import (
	"github.com/spf13/cobra"
)

func newItemCmd(a *app) *cobra.Command {
	var deep bool

	cmd := &cobra.Command{
		Use:   "item <id>",
		Short: "Show an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			it, err := a.session().Items.Item(cmd.Context(), id, deep)
			if err != nil {
				return err
			}
			return a.emit(cmd, it.Plain())
		},
	}
	cmd.Flags().BoolVar(&deep, "deep", false, "resolve linked items recursively")
	return cmd
}

func newItemsCmd(a *app) *cobra.Command {
	var (
		template string
		deep     bool
	)

	cmd := &cobra.Command{
		Use:   "items --template <id|label>",
		Short: "List the items of a resource template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tmpl, err := a.template(ctx, template)
			if err != nil {
				return err
			}
			items, err := a.session().Items.ListByTemplate(ctx, tmpl, deep)
			if err != nil {
				return err
			}

			out := make([]map[string]any, 0, len(items))
			for _, it := range items {
				out = append(out, it.Plain())
			}
			return a.emit(cmd, out)
		},
	}
	cmd.Flags().StringVar(&template, "template", "", "template id or label")
	cmd.Flags().BoolVar(&deep, "deep", false, "resolve linked items recursively")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}
