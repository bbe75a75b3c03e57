package registry

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/specialistvlad/capscan/internal/functor"
)

// Row is one line of the functor listing.
type Row struct {
	ID         string
	Capability string
	Type       string
	Kind       string
	Status     string
	Active     bool
	Loop       string
}

// Table lists module functors then backend functors in registration order.
func (r *Registry) Table() []Row {
	rows := make([]Row, 0, len(r.functors)+len(r.backends))
	for _, f := range r.functors {
		rows = append(rows, rowOf(f))
	}
	for _, b := range r.backends {
		rows = append(rows, rowOf(b))
	}
	return rows
}

func rowOf(f *functor.Functor) Row {
	loop := ""
	switch {
	case f.IsManager():
		loop = "manager"
	case f.NestedIn() != "":
		loop = "in " + f.NestedIn()
	}
	status := f.Status().String()
	if f.IsMissing() {
		status = "missing"
	}
	return Row{
		ID:         f.ID().String(),
		Capability: f.Capability().Name,
		Type:       f.Capability().Type,
		Kind:       f.Kind().String(),
		Status:     status,
		Active:     f.IsActive(),
		Loop:       loop,
	}
}

// WriteTable prints the functor listing as aligned columns.
func (r *Registry) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join([]string{"FUNCTION", "CAPABILITY", "TYPE", "KIND", "STATUS", "ACTIVE", "LOOP"}, "\t"))
	for _, row := range r.Table() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\t%s\n", row.ID, row.Capability, row.Type, row.Kind, row.Status, row.Active, row.Loop)
	}
	return tw.Flush()
}
