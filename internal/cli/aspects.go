package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"tcg_inventory_v1/internal/service"
)

// AspectsCommand 打印类目属性字段
func AspectsCommand(getApp func() *app) *cobra.Command {
	var (
		categoryID string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "aspects",
		Short: "Show the item aspects available for a category",
		Long: `Load the eBay item aspects for a category and print them grouped the way
the inventory form shows them.

Examples:
  tcg-inventory aspects
  tcg-inventory aspects --category 183454 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			if categoryID == "" {
				categoryID = a.cfg.CategoryID
			}
			schema, warning := a.taxonomy.Load(cmd.Context(), categoryID)
			if warning != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), warning)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(schema.Groups)
			}
			printSchema(cmd.OutOrStdout(), schema)
			return nil
		},
	}

	cmd.Flags().StringVar(&categoryID, "category", "", "eBay category ID (defaults to EBAY_CATEGORY_ID)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print field groups as JSON")
	return cmd
}

func printSchema(w io.Writer, schema *service.AspectSchema) {
	if schema == nil || schema.Empty() {
		fmt.Fprintln(w, service.NoAspectsMessage)
		return
	}
	for _, group := range schema.Groups {
		fmt.Fprintf(w, "%s (%d)\n", group.Category, len(group.Fields))
		for _, f := range group.Fields {
			flags := []string{f.Cardinality, f.Mode}
			if f.Required {
				flags = append(flags, "required")
			}
			fmt.Fprintf(w, "  %-32s %s", f.Name, strings.Join(flags, ","))
			if n := len(f.Options); n > 0 {
				fmt.Fprintf(w, "  %d options", n)
			}
			fmt.Fprintln(w)
		}
	}
}
