package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
)

var (
	// ErrUnknownCommand is returned by Dispatch for a name with no route.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUsage signals that a handler got the wrong arguments.
	ErrUsage = errors.New("usage")

	// ErrQuit ends the shell loop.
	ErrQuit = errors.New("quit")
)

// Handler runs one command with the words that followed its name.
type Handler func(ctx context.Context, args []string) error

// Route binds a command name to its handler.
type Route struct {
	Name    string
	Aliases []string
	Usage   string
	Help    string
	Handler Handler
}

// Router is the command table. It is filled once before the shell starts
// and only read afterwards.
type Router struct {
	routes map[string]*Route
	order  []*Route
}

func NewRouter() *Router {
	return &Router{routes: make(map[string]*Route)}
}

// Handle registers r under its name and aliases. Registering a name twice
// panics.
func (r *Router) Handle(route Route) {
	rt := &route
	for _, name := range append([]string{route.Name}, route.Aliases...) {
		if _, dup := r.routes[name]; dup {
			panic(fmt.Sprintf("dashboard: duplicate route %q", name))
		}
		r.routes[name] = rt
	}
	r.order = append(r.order, rt)
}

// Lookup finds the route for name.
func (r *Router) Lookup(name string) (*Route, bool) {
	rt, ok := r.routes[name]
	return rt, ok
}

// Names lists every registered name and alias, sorted.
func (r *Router) Names() []string {
	names := make([]string, 0, len(r.routes))
	for name := range r.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch splits line into words and runs the matching handler. Blank
// lines do nothing.
func (r *Router) Dispatch(ctx context.Context, line string) error {
	words := strings.Fields(line)
	if len(words) == 0 {
		return nil
	}
	rt, ok := r.routes[strings.ToLower(words[0])]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, words[0])
	}
	err := rt.Handler(ctx, words[1:])
	if errors.Is(err, ErrUsage) {
		return fmt.Errorf("%w: %s", ErrUsage, rt.Usage)
	}
	return err
}

// Help writes the command table in registration order.
func (r *Router) Help(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	for _, rt := range r.order {
		fmt.Fprintf(tw, "  %s\t%s\n", rt.Usage, rt.Help)
	}
	return tw.Flush()
}
