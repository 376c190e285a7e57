package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"sales-dashboard/internal/workbook"
)

type templateCmd struct {
	output string
	sample bool
}

func (*templateCmd) Name() string     { return "template" }
func (*templateCmd) Synopsis() string { return "write the empty Excel template" }
func (*templateCmd) Usage() string {
	return `salesctl template [-o <file>] [-sample]

  Writes the three-sheet workbook expected by the dashboard upload.
  With -sample the sheets are filled with demo data.
`
}

func (c *templateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", workbook.TemplateFileName, "Output file, or - for stdout")
	f.BoolVar(&c.sample, "sample", false, "Fill the template with demo data")
}

func (c *templateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 {
		return usage(fmt.Errorf("unexpected arguments %v", f.Args()))
	}

	out, err := createOutput(c.output)
	if err != nil {
		return fail(err)
	}

	if c.sample {
		err = workbook.Write(out, sampleDataset())
	} else {
		err = workbook.WriteTemplate(out)
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
