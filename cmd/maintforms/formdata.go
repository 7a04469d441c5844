package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/artpar/maintforms/app"
	"github.com/spf13/cobra"
)

var formDataCmd = &cobra.Command{
	Use:   "form-data <module>",
	Short: "Print the initial form data of a module",
	Long: `Print the initial form data of a module as JSON: one entry per field,
taken from --existing when present, else the field default, else the
zero value of the field type.

Examples:
  maintforms form-data equipment
  maintforms form-data workorders --existing '{"title":"Replace belt"}'`,
	Args: cobra.ExactArgs(1),
	RunE: runFormData,
}

var formCmd = &cobra.Command{
	Use:   "form <module>",
	Short: "Render a module's form as text and validate it",
	Long: `Render a module's form as a table and validate the resulting values.

--set edits a control after rendering, the way a user would.

Examples:
  maintforms form equipment
  maintforms form equipment --set name=Lathe --set warrantyMonths=24`,
	Args: cobra.ExactArgs(1),
	RunE: runForm,
}

var (
	existingJSON string
	formSets     []string
)

func init() {
	rootCmd.AddCommand(formDataCmd)
	rootCmd.AddCommand(formCmd)

	formDataCmd.Flags().StringVar(&existingJSON, "existing", "", "existing record as a JSON object")
	formCmd.Flags().StringVar(&existingJSON, "existing", "", "existing record as a JSON object")
	formCmd.Flags().StringArrayVar(&formSets, "set", nil, "name=value edit applied after rendering (repeatable)")
}

func parseExisting() (map[string]any, error) {
	if existingJSON == "" {
		return nil, nil
	}
	var existing map[string]any
	if err := json.Unmarshal([]byte(existingJSON), &existing); err != nil {
		return nil, fmt.Errorf("parse --existing: %w", err)
	}
	return existing, nil
}

func runFormData(cmd *cobra.Command, args []string) error {
	m, err := parseModuleArg(args[0])
	if err != nil {
		return err
	}
	existing, err := parseExisting()
	if err != nil {
		return err
	}

	a, ctx, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	data, err := a.Forms.GenerateFormData(ctx, m, existing)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out(cmd))
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func runForm(cmd *cobra.Command, args []string) error {
	m, err := parseModuleArg(args[0])
	if err != nil {
		return err
	}
	existing, err := parseExisting()
	if err != nil {
		return err
	}
	edits, err := parseSets(formSets)
	if err != nil {
		return err
	}

	a, ctx, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	r := &textRenderer{out: out(cmd), edits: edits}
	form, err := a.Forms.Render(ctx, r, m, existing)
	if err != nil {
		return err
	}

	res := form.Validate()
	if res.Valid {
		fmt.Fprintf(out(cmd), "\n%s form is valid\n", checkMark)
		return nil
	}

	fmt.Fprintln(out(cmd))
	names := make([]string, 0, len(res.Fields))
	for name, fr := range res.Fields {
		if !fr.Valid {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out(cmd), "%s %s: %s\n", crossMark, name, res.Fields[name].Message)
	}
	return errInvalidValue
}

type edit struct {
	name  string
	value any
}

func parseSets(sets []string) ([]edit, error) {
	edits := make([]edit, 0, len(sets))
	for _, s := range sets {
		name, value, ok := strings.Cut(s, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("--set %q: expected name=value", s)
		}
		edits = append(edits, edit{name: name, value: parseValue(value)})
	}
	return edits, nil
}

// textRenderer draws a form as an aligned table and replays edits through
// the change callback.
type textRenderer struct {
	out   io.Writer
	edits []edit
}

func (r *textRenderer) Render(_ context.Context, form app.Form, onChange app.OnChange) error {
	for _, e := range r.edits {
		onChange(e.name, e.value)
	}

	fmt.Fprintf(r.out, "Form: %s\n\n", form.Module)
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tNAME\tTYPE\tVALUE\tOPTIONS")
	fmt.Fprintln(w, "-----\t----\t----\t-----\t-------")
	for _, c := range form.Controls {
		label := c.Field.Label
		if c.Field.Required {
			label += " *"
		}
		opts := make([]string, len(c.Options))
		for i, o := range c.Options {
			opts[i] = o.Label
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n",
			label, c.Field.Name, c.Field.Type, c.Value, strings.Join(opts, ", "))
	}
	return w.Flush()
}
