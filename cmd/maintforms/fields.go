package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/artpar/maintforms/domain/field"
	"github.com/spf13/cobra"
)

var errInvalidValue = errors.New("value failed validation")

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "Manage module fields",
	Long:  `List, add, update, reorder, delete and validate the fields of a maintenance module.`,
}

var fieldsListCmd = &cobra.Command{
	Use:   "list <module>",
	Short: "List the fields of a module",
	Args:  cobra.ExactArgs(1),
	RunE:  runFieldsList,
}

var fieldsAddCmd = &cobra.Command{
	Use:   "add <module>",
	Short: "Add a custom field",
	Long: `Add a custom field to a module.

Examples:
  maintforms fields add equipment --name warrantyMonths --label "Warranty (months)" --type number --min 0
  maintforms fields add workorders --name priority --label Priority --type select --options low,medium,high
  maintforms fields add inventory --json '{"name":"bin","label":"Bin","type":"text"}'`,
	Args: cobra.ExactArgs(1),
	RunE: runFieldsAdd,
}

var fieldsUpdateCmd = &cobra.Command{
	Use:   "update <module> <id>",
	Short: "Update a field",
	Long: `Update a field. Only the flags given are changed.

System fields accept presentational changes only when
fields.system_field_policy is "audit".`,
	Args: cobra.ExactArgs(2),
	RunE: runFieldsUpdate,
}

var fieldsDeleteCmd = &cobra.Command{
	Use:   "delete <module> <id>",
	Short: "Delete a custom field",
	Args:  cobra.ExactArgs(2),
	RunE:  runFieldsDelete,
}

var fieldsReorderCmd = &cobra.Command{
	Use:   "reorder <module> <id>...",
	Short: "Set display order from the given id sequence",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runFieldsReorder,
}

var fieldsValidateCmd = &cobra.Command{
	Use:   "validate <module> <id> <value>",
	Short: "Validate a value against a field",
	Long: `Validate a value against a field's rules.

The value is parsed as JSON when possible, so 12 is a number,
true a boolean and "" the empty string. Anything else is taken as text.`,
	Args: cobra.ExactArgs(3),
	RunE: runFieldsValidate,
}

// Field flags shared by add and update.
var (
	fName        string
	fLabel       string
	fType        string
	fRequired    bool
	fPlaceholder string
	fOptions     []string
	fDefault     string
	fMin         float64
	fMax         float64
	fPattern     string
	fMessage     string
	fOrder       int
	fJSON        string
	fClear       []string
	listJSON     bool
)

func init() {
	fieldsCmd.AddCommand(fieldsListCmd)
	fieldsCmd.AddCommand(fieldsAddCmd)
	fieldsCmd.AddCommand(fieldsUpdateCmd)
	fieldsCmd.AddCommand(fieldsDeleteCmd)
	fieldsCmd.AddCommand(fieldsReorderCmd)
	fieldsCmd.AddCommand(fieldsValidateCmd)
	rootCmd.AddCommand(fieldsCmd)

	fieldsListCmd.Flags().BoolVar(&listJSON, "json", false, "print fields as JSON")
	fieldsUpdateCmd.Flags().StringSliceVar(&fClear, "clear", nil, "attributes to reset (placeholder, options, defaultValue, validation)")

	for _, c := range []*cobra.Command{fieldsAddCmd, fieldsUpdateCmd} {
		c.Flags().StringVar(&fName, "name", "", "record attribute name")
		c.Flags().StringVar(&fLabel, "label", "", "display label")
		c.Flags().StringVar(&fType, "type", "", "input type (text, number, select, textarea, date, checkbox, email, tel)")
		c.Flags().BoolVar(&fRequired, "required", false, "value is mandatory")
		c.Flags().StringVar(&fPlaceholder, "placeholder", "", "placeholder text")
		c.Flags().StringSliceVar(&fOptions, "options", nil, "select options, comma separated")
		c.Flags().StringVar(&fDefault, "default", "", "default value")
		c.Flags().Float64Var(&fMin, "min", 0, "minimum numeric value")
		c.Flags().Float64Var(&fMax, "max", 0, "maximum numeric value")
		c.Flags().StringVar(&fPattern, "pattern", "", "regular expression the value must match")
		c.Flags().StringVar(&fMessage, "message", "", "message shown when validation fails")
		c.Flags().IntVar(&fOrder, "order", 0, "display order (0 appends)")
		c.Flags().StringVar(&fJSON, "json", "", "field or patch as JSON; overrides the other flags")
	}
}

func runFieldsList(cmd *cobra.Command, args []string) error {
	m, err := parseModuleArg(args[0])
	if err != nil {
		return err
	}

	a, ctx, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	fields, err := a.Registry.ModuleFields(ctx, m)
	if err != nil {
		return err
	}

	if listJSON {
		enc := json.NewEncoder(out(cmd))
		enc.SetIndent("", "  ")
		return enc.Encode(fields)
	}

	if len(fields) == 0 {
		fmt.Fprintln(out(cmd), "No fields found.")
		return nil
	}

	w := tabwriter.NewWriter(out(cmd), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tID\tNAME\tLABEL\tTYPE\tREQUIRED\tSYSTEM")
	fmt.Fprintln(w, "-----\t--\t----\t-----\t----\t--------\t------")
	for _, f := range fields {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			f.Order, f.ID, f.Name, f.Label, f.Type, mark(f.Required), mark(f.IsSystem))
	}
	return w.Flush()
}

func runFieldsAdd(cmd *cobra.Command, args []string) error {
	m, err := parseModuleArg(args[0])
	if err != nil {
		return err
	}

	var f field.Field
	if fJSON != "" {
		if err := json.Unmarshal([]byte(fJSON), &f); err != nil {
			return fmt.Errorf("parse --json: %w", err)
		}
	} else {
		f, err = fieldFromFlags(cmd)
		if err != nil {
			return err
		}
	}

	a, ctx, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	created, err := a.Registry.AddCustomField(ctx, m, f)
	if err != nil {
		return err
	}

	fmt.Fprintf(out(cmd), "%s Added field %s (%s) to %s\n", checkMark, created.Name, created.ID, m)
	return nil
}

func runFieldsUpdate(cmd *cobra.Command, args []string) error {
	m, err := parseModuleArg(args[0])
	if err != nil {
		return err
	}
	id := args[1]

	var patch field.Patch
	if fJSON != "" {
		if err := json.Unmarshal([]byte(fJSON), &patch); err != nil {
			return fmt.Errorf("parse --json: %w", err)
		}
	} else {
		patch, err = patchFromFlags(cmd)
		if err != nil {
			return err
		}
	}
	if patch.IsEmpty() {
		return errors.New("nothing to update: pass at least one field flag or --json")
	}

	a, ctx, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ok, err := a.Registry.UpdateField(ctx, m, id, patch)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("field %q not found in %s", id, m)
	}

	fmt.Fprintf(out(cmd), "%s Updated field %s\n", checkMark, id)
	return nil
}

func runFieldsDelete(cmd *cobra.Command, args []string) error {
	m, err := parseModuleArg(args[0])
	if err != nil {
		return err
	}
	id := args[1]

	a, ctx, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ok, err := a.Registry.DeleteCustomField(ctx, m, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no custom field %q in %s", id, m)
	}

	fmt.Fprintf(out(cmd), "%s Deleted field %s\n", checkMark, id)
	return nil
}

func runFieldsReorder(cmd *cobra.Command, args []string) error {
	m, err := parseModuleArg(args[0])
	if err != nil {
		return err
	}

	a, ctx, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.Registry.ReorderFields(ctx, m, args[1:])
	if err != nil {
		return err
	}

	fmt.Fprintf(out(cmd), "%s Reordered %d field(s) in %s\n", checkMark, n, m)
	return nil
}

func runFieldsValidate(cmd *cobra.Command, args []string) error {
	m, err := parseModuleArg(args[0])
	if err != nil {
		return err
	}

	a, ctx, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	res, found, err := a.Registry.ValidateField(ctx, m, args[1], parseValue(args[2]))
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("field %q not found in %s", args[1], m)
	}

	if res.Valid {
		fmt.Fprintf(out(cmd), "%s valid\n", checkMark)
		return nil
	}
	fmt.Fprintf(out(cmd), "%s %s (%s)\n", crossMark, res.Message, res.Rule)
	return errInvalidValue
}

func fieldFromFlags(cmd *cobra.Command) (field.Field, error) {
	f := field.Field{
		Name:        fName,
		Label:       fLabel,
		Type:        field.Type(strings.ToLower(fType)),
		Required:    fRequired,
		Placeholder: fPlaceholder,
		Options:     fOptions,
		Order:       fOrder,
	}
	if cmd.Flags().Changed("default") {
		v, err := defaultFor(f.Type, fDefault)
		if err != nil {
			return field.Field{}, err
		}
		f.DefaultValue = v
	}
	f.Validation = validationFromFlags(cmd)
	return f, nil
}

func patchFromFlags(cmd *cobra.Command) (field.Patch, error) {
	var p field.Patch
	flags := cmd.Flags()
	if flags.Changed("name") {
		p.Name = &fName
	}
	if flags.Changed("label") {
		p.Label = &fLabel
	}
	if flags.Changed("type") {
		t := field.Type(strings.ToLower(fType))
		p.Type = &t
	}
	if flags.Changed("required") {
		p.Required = &fRequired
	}
	if flags.Changed("placeholder") {
		p.Placeholder = &fPlaceholder
	}
	if flags.Changed("options") {
		p.Options = &fOptions
	}
	if flags.Changed("default") {
		t := field.TypeText
		if p.Type != nil {
			t = *p.Type
		}
		v, err := defaultFor(t, fDefault)
		if err != nil {
			return field.Patch{}, err
		}
		p.DefaultValue = &v
	}
	if flags.Changed("order") {
		p.Order = &fOrder
	}
	p.Validation = validationFromFlags(cmd)
	if flags.Changed("clear") {
		p.Clear = fClear
	}
	return p, nil
}

// validationFromFlags returns nil when no validation flag was given.
func validationFromFlags(cmd *cobra.Command) *field.Validation {
	flags := cmd.Flags()
	if !flags.Changed("min") && !flags.Changed("max") &&
		!flags.Changed("pattern") && !flags.Changed("message") {
		return nil
	}

	v := &field.Validation{}
	if flags.Changed("min") {
		min := fMin
		v.Min = &min
	}
	if flags.Changed("max") {
		max := fMax
		v.Max = &max
	}
	if flags.Changed("pattern") {
		v.Pattern = fPattern
	}
	if flags.Changed("message") {
		v.Message = fMessage
	}
	return v
}

// defaultFor converts a --default string to the value type of t.
func defaultFor(t field.Type, s string) (any, error) {
	switch t {
	case field.TypeNumber:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("--default: %q is not a number", s)
		}
		return f, nil
	case field.TypeCheckbox:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("--default: %q is not a boolean", s)
		}
		return b, nil
	default:
		return s, nil
	}
}

// parseValue decodes s as JSON, falling back to the raw string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

func mark(b bool) string {
	if b {
		return checkMark
	}
	return ""
}
