package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"bilancio/internal/core"
	"bilancio/internal/report"
	"bilancio/internal/services"
)

func commands(e *env) []subcommands.Command {
	return []subcommands.Command{
		&addCmd{env: e},
		&editCmd{env: e},
		&deleteCmd{env: e},
		&listCmd{env: e},
		&summaryCmd{env: e},
		&reportCmd{env: e},
		&exportCmd{env: e},
	}
}

// entryFlags are the flags shared by add and edit.
type entryFlags struct {
	kind, title, amount string
}

func (f *entryFlags) set(fs *flag.FlagSet) {
	fs.StringVar(&f.kind, "kind", "expense", "entry kind (income, expense)")
	fs.StringVar(&f.title, "title", "", "entry title")
	fs.StringVar(&f.amount, "amount", "", "amount in rupees, e.g. 1500 or 99.50")
}

func (f *entryFlags) parse() (core.Kind, core.Money, error) {
	kind, err := core.ParseKind(f.kind)
	if err != nil {
		return "", core.Money{}, err
	}
	if strings.TrimSpace(f.title) == "" {
		return "", core.Money{}, errors.New("-title is required")
	}
	amount, err := core.ParseAmount(f.amount)
	if err != nil {
		return "", core.Money{}, fmt.Errorf("-amount %q: %w", f.amount, err)
	}
	return kind, amount, nil
}

type addCmd struct {
	env *env
	entryFlags
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record an income or expense entry" }
func (*addCmd) Usage() string {
	return `bilancioctl add -kind <income|expense> -title <title> -amount <amount>

  Records a new entry and prints its id.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) { c.entryFlags.set(f) }

func (c *addCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	kind, amount, err := c.parse()
	if err != nil {
		return c.env.usage("%v", err)
	}
	return c.env.mutate(ctx, func(svc *services.LedgerService) error {
		out, err := svc.Add(ctx, kind, c.title, amount)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.env.stdout, "Added %s entry %s\n", kind, out.ID)
		c.env.warn(out)
		return nil
	})
}

type editCmd struct {
	env *env
	id  string
	entryFlags
}

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "replace the title and amount of an entry" }
func (*editCmd) Usage() string {
	return `bilancioctl edit -kind <income|expense> -id <id> -title <title> -amount <amount>
`
}

func (c *editCmd) SetFlags(f *flag.FlagSet) {
	c.entryFlags.set(f)
	f.StringVar(&c.id, "id", "", "id of the entry to edit")
}

func (c *editCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == "" {
		return c.env.usage("-id is required")
	}
	kind, amount, err := c.parse()
	if err != nil {
		return c.env.usage("%v", err)
	}
	return c.env.mutate(ctx, func(svc *services.LedgerService) error {
		out, err := svc.Edit(ctx, kind, c.id, c.title, amount)
		if err != nil {
			return err
		}
		if !out.Changed {
			return fmt.Errorf("no %s entry with id %q", kind, c.id)
		}
		fmt.Fprintf(c.env.stdout, "Updated %s entry %s\n", kind, c.id)
		c.env.warn(out)
		return nil
	})
}

type deleteCmd struct {
	env      *env
	kind, id string
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "remove an entry" }
func (*deleteCmd) Usage() string {
	return `bilancioctl delete -kind <income|expense> -id <id>

  Deleting an unknown id changes nothing and is not an error.
`
}

func (c *deleteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "kind", "expense", "entry kind (income, expense)")
	f.StringVar(&c.id, "id", "", "id of the entry to delete")
}

func (c *deleteCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	kind, err := core.ParseKind(c.kind)
	if err != nil {
		return c.env.usage("%v", err)
	}
	if c.id == "" {
		return c.env.usage("-id is required")
	}
	return c.env.mutate(ctx, func(svc *services.LedgerService) error {
		out, err := svc.Delete(ctx, kind, c.id)
		if err != nil {
			return err
		}
		if out.Changed {
			fmt.Fprintf(c.env.stdout, "Deleted %s entry %s\n", kind, c.id)
		} else {
			fmt.Fprintf(c.env.stdout, "No %s entry with id %s, nothing deleted\n", kind, c.id)
		}
		c.env.warn(out)
		return nil
	})
}

type listCmd struct {
	env  *env
	kind string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "show income and expense entries" }
func (*listCmd) Usage() string {
	return `bilancioctl list [-kind <income|expense>]

  Without -kind both tables are shown.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "kind", "", "only show this kind (income, expense)")
}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	kinds := []core.Kind{core.Income, core.Expense}
	if c.kind != "" {
		kind, err := core.ParseKind(c.kind)
		if err != nil {
			return c.env.usage("%v", err)
		}
		kinds = []core.Kind{kind}
	}
	return c.env.withLedger(ctx, func(svc *services.LedgerService) error {
		var b strings.Builder
		for i, kind := range kinds {
			entries, err := svc.Entries(kind)
			if err != nil {
				return err
			}
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(report.EntriesMarkdown(kind, entries))
		}
		c.env.printMarkdown(b.String())
		return nil
	})
}

type summaryCmd struct{ env *env }

func (*summaryCmd) Name() string             { return "summary" }
func (*summaryCmd) Synopsis() string         { return "show totals and the remaining balance" }
func (*summaryCmd) Usage() string            { return "bilancioctl summary\n" }
func (*summaryCmd) SetFlags(_ *flag.FlagSet) {}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.env.withLedger(ctx, func(svc *services.LedgerService) error {
		c.env.printMarkdown(report.SummaryMarkdown(svc.Summary()))
		return nil
	})
}

type reportCmd struct{ env *env }

func (*reportCmd) Name() string             { return "report" }
func (*reportCmd) Synopsis() string         { return "show the full report in the terminal" }
func (*reportCmd) Usage() string            { return "bilancioctl report\n" }
func (*reportCmd) SetFlags(_ *flag.FlagSet) {}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.env.withLedger(ctx, func(svc *services.LedgerService) error {
		c.env.printMarkdown(svc.Report(c.env.now()).Markdown())
		return nil
	})
}

type exportCmd struct {
	env    *env
	output string
	format string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write the report to a PDF or markdown file" }
func (*exportCmd) Usage() string {
	return `bilancioctl export [-o <file>] [-format pdf|md]

  Without -o the PDF is written to expense-report-YYYY-M-D.pdf in the
  current directory.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "output file")
	f.StringVar(&c.format, "format", "pdf", "output format (pdf, md)")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.format != "pdf" && c.format != "md" {
		return c.env.usage("unknown format %q", c.format)
	}
	now := c.env.now()
	path := c.output
	if path == "" {
		path = report.Filename(now)
		if c.format == "md" {
			path = strings.TrimSuffix(path, ".pdf") + ".md"
		}
	}
	return c.env.withLedger(ctx, func(svc *services.LedgerService) error {
		rep := svc.Report(now)
		if err := writeReport(path, c.format, rep); err != nil {
			return err
		}
		fmt.Fprintf(c.env.stdout, "Wrote %s\n", path)
		return nil
	})
}

func writeReport(path, format string, rep report.Report) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if format == "md" {
		_, err = f.WriteString(rep.Markdown())
		return err
	}
	return report.WritePDF(f, rep)
}
