package cli

import (
	"github.com/julianstephens/habita/internal/transfer"
)

type ExportCmd struct {
	Dir    string `help:"Directory to write the export file to." type:"path" default:"."`
	Stdout bool   `help:"Write the JSON document to stdout instead of a file."`
}

func (c *ExportCmd) Run(ctx *Context) (err error) {
	sess, err := ctx.Open()
	if err != nil {
		return err
	}
	defer closeSession(sess, &err)

	list := sess.Manager.Habits()
	if c.Stdout {
		return transfer.Export(ctx.out(), list)
	}

	path, err := transfer.ExportFile(c.Dir, list, sess.Manager.Now())
	if err != nil {
		return err
	}
	ctx.printf("%s Exported %d habits to %s\n", okStyle.Render("✓"), len(list), path)
	return nil
}

type ImportCmd struct {
	File string `arg:"" help:"Export file to import." type:"existingfile"`
}

// Run merges the file into the current set. Habits whose id already exists are skipped.
func (c *ImportCmd) Run(ctx *Context) (err error) {
	incoming, err := transfer.ImportFile(c.File)
	if err != nil {
		return err
	}

	sess, err := ctx.Open()
	if err != nil {
		return err
	}
	defer closeSession(sess, &err)

	added := sess.Manager.Merge(incoming)
	sess.Manager.RecomputeStreaks()
	ctx.printf("%s Imported %d of %d habits", okStyle.Render("✓"), added, len(incoming))
	if skipped := len(incoming) - added; skipped > 0 {
		ctx.printf(" (%d already present)", skipped)
	}
	ctx.println()
	return nil
}
