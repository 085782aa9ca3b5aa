package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dshills/outliner/internal/app"
	"github.com/dshills/outliner/internal/outline/commander"
	"github.com/dshills/outliner/internal/outline/node"
	"github.com/dshills/outliner/internal/outline/persist"
	"github.com/dshills/outliner/internal/outline/persist/jsonfile"
	"github.com/dshills/outliner/internal/outline/persist/sqlstore"
	"github.com/dshills/outliner/internal/outline/position"
)

// session is what every command runs against.
type session struct {
	app    *app.Application
	name   string
	stdout io.Writer
}

type command struct {
	name string
	args string
	help string
	run  func(ctx context.Context, s *session, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{"tree", "[-ids]", "Print the outline", cmdTree},
		{"add", "[-under PATH] HEADLINE", "Append a node and save", cmdAdd},
		{"sort", "[-under PATH] [-script F] [-i]", "Sort top level or PATH's children", cmdSort},
		{"stats", "", "Print node counts", cmdStats},
		{"import", "FILE.json", "Copy a JSON file into storage", cmdImport},
		{"export", "FILE.json", "Write the document as JSON", cmdExport},
		{"list", "", "List documents in a sqlite database", cmdList},
	}
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

var errUsage = errors.New("bad arguments")

// open loads the session document. With create set, a missing document
// is started empty and given the session name on first save.
func (s *session) open(ctx context.Context, create bool) (*app.Document, error) {
	dm := s.app.Documents()
	doc, err := dm.Open(ctx, s.name)
	if err == nil {
		return doc, nil
	}
	if !create || !(errors.Is(err, os.ErrNotExist) || errors.Is(err, sqlstore.ErrNotFound)) {
		return nil, err
	}
	return dm.Create()
}

func (s *session) save(ctx context.Context, doc *app.Document) error {
	if doc.IsScratch() {
		return s.app.Documents().SaveAs(ctx, doc, s.name)
	}
	return s.app.Documents().Save(ctx, doc.Name)
}

// parsePath resolves a dotted index path such as "0.2.1".
func parsePath(t *position.Tree, path string) (position.Position, error) {
	var p position.Position
	for i, part := range strings.Split(path, ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return position.Position{}, fmt.Errorf("%w: path %q", errUsage, path)
		}
		if i == 0 {
			p = t.TopLevel(n)
		} else {
			p = t.NthChild(p, n)
		}
		if !p.IsValid() {
			return position.Position{}, fmt.Errorf("%w: %s", commander.ErrInvalidPosition, path)
		}
	}
	return p, nil
}

func cmdTree(ctx context.Context, s *session, args []string) error {
	fs := flag.NewFlagSet("tree", flag.ContinueOnError)
	ids := fs.Bool("ids", false, "Show node ids")
	if err := fs.Parse(args); err != nil {
		return err
	}
	doc, err := s.open(ctx, false)
	if err != nil {
		return err
	}
	c := doc.Commander
	t := c.Tree()
	for p := range c.All() {
		var b strings.Builder
		b.WriteString(strings.Repeat("  ", p.Level()))
		b.WriteString("- ")
		b.WriteString(c.Headline(p))
		if c.Store().Flags(p.Node())&node.FlagMarked != 0 {
			b.WriteString(" *")
		}
		if t.IsCloned(p) {
			b.WriteString(" (clone)")
		}
		if *ids {
			b.WriteString("  [" + t.ID(p) + "]")
		}
		fmt.Fprintln(s.stdout, b.String())
	}
	return nil
}

func cmdAdd(ctx context.Context, s *session, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	under := fs.String("under", "", "Parent path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: missing headline", errUsage)
	}
	headline := strings.Join(fs.Args(), " ")

	doc, err := s.open(ctx, true)
	if err != nil {
		return err
	}
	c := doc.Commander
	var res commander.Result
	if *under == "" {
		res, err = c.InsertTopLevel(headline)
	} else {
		var p position.Position
		if p, err = parsePath(c.Tree(), *under); err != nil {
			return err
		}
		res, err = c.InsertChild(p, headline)
	}
	if err != nil {
		return err
	}
	if err := s.save(ctx, doc); err != nil {
		return err
	}
	fmt.Fprintf(s.stdout, "%s %s\n", c.Tree().ID(res.Selection), pathString(res.Selection))
	return nil
}

func pathString(p position.Position) string {
	parts := make([]string, 0, p.Level()+1)
	for _, i := range p.Path() {
		parts = append(parts, strconv.Itoa(i))
	}
	return strings.Join(parts, ".")
}

func cmdSort(ctx context.Context, s *session, args []string) error {
	settings := s.app.Settings().Sort
	fs := flag.NewFlagSet("sort", flag.ContinueOnError)
	under := fs.String("under", "", "Sort the children of this path")
	fs.StringVar(&settings.Script, "script", settings.Script, "Lua file defining compare(a, b)")
	fs.BoolVar(&settings.IgnoreCase, "i", settings.IgnoreCase, "Ignore case")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cmp, done, err := app.Comparator(settings)
	if err != nil {
		return err
	}
	defer done()

	doc, err := s.open(ctx, false)
	if err != nil {
		return err
	}
	c := doc.Commander
	if *under == "" {
		_, err = c.SortTopLevel(cmp)
	} else {
		var p position.Position
		if p, err = parsePath(c.Tree(), *under); err != nil {
			return err
		}
		_, err = c.SortChildren(p, cmp)
	}
	if err != nil {
		return err
	}
	if !doc.IsModified() {
		return nil
	}
	return s.save(ctx, doc)
}

func cmdStats(ctx context.Context, s *session, _ []string) error {
	doc, err := s.open(ctx, false)
	if err != nil {
		return err
	}
	c := doc.Commander
	t := c.Tree()
	nodes := make(map[string]bool)
	var positions, depth, marked int
	for p := range c.All() {
		positions++
		depth = max(depth, p.Level()+1)
		id := t.ID(p)
		if _, seen := nodes[id]; seen {
			continue
		}
		nodes[id] = t.IsCloned(p)
		if c.Store().Flags(p.Node())&node.FlagMarked != 0 {
			marked++
		}
	}
	var cloned int
	for _, isClone := range nodes {
		if isClone {
			cloned++
		}
	}
	fmt.Fprintf(s.stdout, "nodes: %d\npositions: %d\ncloned: %d\nmarked: %d\ndepth: %d\n",
		len(nodes), positions, cloned, marked, depth)
	return nil
}

func cmdImport(ctx context.Context, s *session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: import FILE.json", errUsage)
	}
	doc, err := jsonfile.Load(args[0])
	if err != nil {
		return err
	}
	if err := persist.Validate(doc); err != nil {
		return err
	}
	if err := s.app.Storage().Save(ctx, s.name, doc); err != nil {
		return err
	}
	s.app.Logger().Info("imported %s into %s (%d nodes)", args[0], s.name, len(doc.Records))
	return nil
}

func cmdExport(ctx context.Context, s *session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: export FILE.json", errUsage)
	}
	doc, err := s.app.Storage().Load(ctx, s.name)
	if err != nil {
		return err
	}
	return jsonfile.Save(args[0], doc)
}

func cmdList(ctx context.Context, s *session, _ []string) error {
	store, ok := s.app.Storage().(*sqlstore.Store)
	if !ok {
		return errors.New("list needs the sqlite storage backend")
	}
	infos, err := store.List(ctx)
	if err != nil {
		return err
	}
	for _, info := range infos {
		fmt.Fprintf(s.stdout, "%-20s %6d  %s\n", info.Name, info.Nodes, info.SavedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
