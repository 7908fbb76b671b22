// Command chrono is a thin CLI over modules/chrono, exercising the
// object store, commit index, operation log, revset engine, and the
// git import/export path from a single binary. It intentionally stays
// small: the engines themselves are library code meant to be embedded,
// and this command is a debugging and scripting surface over them,
// in the same spirit as the teacher's cmd/zeta plumbing commands.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/chronoscope/chrono/modules/chrono/commitindex"
	"github.com/chronoscope/chrono/modules/chrono/difftext"
	"github.com/chronoscope/chrono/modules/chrono/gitbackend"
	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
	"github.com/chronoscope/chrono/modules/chrono/oplog"
	"github.com/chronoscope/chrono/modules/chrono/revset"
)

var cli struct {
	Init struct {
		Dir string `arg:"" help:"repository directory to create."`
	} `cmd:"" help:"create an empty object store, commit index, and operation log."`

	Log struct {
		Dir string `arg:"" help:"repository directory."`
		Rev string `arg:"" optional:"" default:"all()" help:"revset expression to evaluate."`
	} `cmd:"" help:"evaluate a revset against the current view and print matching commits."`

	ImportGit struct {
		Dir     string `arg:"" help:"repository directory."`
		GitDir  string `arg:"" help:"path to a git objects directory (e.g. repo/.git/objects)."`
		Tip     string `arg:"" help:"hex SHA-1 of the git commit to import."`
		RefName string `arg:"" default:"imported" help:"name to record the imported commit under."`
	} `cmd:"" help:"import a commit (and its ancestry) from a git loose-object store."`

	Diff struct {
		Before string `arg:"" help:"path to the before file."`
		After  string `arg:"" help:"path to the after file."`
	} `cmd:"" help:"print a line diff between two files, with replaced hunks refined to word and non-word granularity."`
}

func main() {
	ctx := kong.Parse(&cli, kong.Name("chrono"), kong.Description("change-centric version control engine CLI"))
	var err error
	switch ctx.Command() {
	case "init <dir>":
		err = runInit(cli.Init.Dir)
	case "log <dir>", "log <dir> <rev>":
		err = runLog(cli.Log.Dir, cli.Log.Rev)
	case "import-git <dir> <git-dir> <tip> <ref-name>", "import-git <dir> <git-dir> <tip>":
		err = runImportGit(cli.ImportGit.Dir, cli.ImportGit.GitDir, cli.ImportGit.Tip, cli.ImportGit.RefName)
	case "diff <before> <after>":
		err = runDiff(cli.Diff.Before, cli.Diff.After)
	default:
		err = fmt.Errorf("unhandled command %q", ctx.Command())
	}
	ctx.FatalIfErrorf(err)
}

func openRepo(dir string) (*objstore.Store, *commitindex.Index, *oplog.Store, error) {
	store, err := objstore.Open(filepath.Join(dir, "objects"))
	if err != nil {
		return nil, nil, nil, err
	}
	idx, err := commitindex.Open(filepath.Join(dir, "index"), store)
	if err != nil {
		return nil, nil, nil, err
	}
	ops, err := oplog.Open(filepath.Join(dir, "oplog"))
	if err != nil {
		return nil, nil, nil, err
	}
	return store, idx, ops, nil
}

func runInit(dir string) error {
	_, idx, _, err := openRepo(dir)
	if err != nil {
		return err
	}
	defer idx.Close()
	fmt.Fprintf(os.Stderr, "initialized empty repository in %s\n", dir)
	return nil
}

func runLog(dir, rev string) error {
	store, idx, ops, err := openRepo(dir)
	if err != nil {
		return err
	}
	defer idx.Close()

	tx, err := oplog.Begin(filepath.Join(dir, "oplog"), ops, idx.IsAncestor)
	if err != nil {
		return err
	}
	view := tx.MutableView().View()

	expr, err := revset.Parse(rev)
	if err != nil {
		return fmt.Errorf("parsing revset %q: %w", rev, err)
	}
	ev := revset.NewEvaluator(idx, store, view, "default")
	seq, err := ev.Eval(expr)
	if err != nil {
		return err
	}
	for {
		id, ok, err := seq.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		c, err := store.ReadCommit(id)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s\n", shortHash(id), firstLine(c.Description))
	}
	return nil
}

func runImportGit(dir, gitDir, tip, refName string) error {
	store, idx, ops, err := openRepo(dir)
	if err != nil {
		return err
	}
	defer idx.Close()

	objects, err := gitbackend.Open(gitDir)
	if err != nil {
		return err
	}
	im := gitbackend.NewImporter(objects, store, idx)
	imported, err := im.ImportRefs([]string{tip})
	if err != nil {
		return err
	}
	id, ok := imported[tip]
	if !ok {
		return fmt.Errorf("git commit %s did not import", tip)
	}
	tx, err := oplog.Begin(filepath.Join(dir, "oplog"), ops, idx.IsAncestor)
	if err != nil {
		return err
	}
	tx.MutableView().AddHead(id)
	tx.MutableView().SetGitRef(refName, id)
	now := time.Now()
	if _, err := tx.Commit("import git commit "+tip, now, now); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "imported %s as %s (ref %s)\n", tip, id, refName)
	return nil
}

func runDiff(beforePath, afterPath string) error {
	beforeBytes, err := os.ReadFile(beforePath)
	if err != nil {
		return err
	}
	afterBytes, err := os.ReadFile(afterPath)
	if err != nil {
		return err
	}
	beforeLines := difftext.Lines(string(beforeBytes))
	afterLines := difftext.Lines(string(afterBytes))

	for _, h := range difftext.LineDiff(beforeLines, afterLines) {
		if h.Op == difftext.HunkEqual {
			for _, l := range beforeLines[h.BeforeLo:h.BeforeHi] {
				fmt.Print(" " + l)
			}
			continue
		}
		before := strings.Join(beforeLines[h.BeforeLo:h.BeforeHi], "")
		after := strings.Join(afterLines[h.AfterLo:h.AfterHi], "")
		printWordDiff(before, after)
	}
	return nil
}

// printWordDiff renders one replaced hunk's before/after text refined
// at word granularity, and at non-word granularity for any word-level
// span that still differs, per spec section 4.10's refinement chain.
func printWordDiff(before, after string) {
	wd := difftext.RefineHunk(before, after)
	for _, h := range wd.Hunks {
		if h.Op == difftext.HunkEqual {
			for _, w := range wd.BeforeWords[h.BeforeLo:h.BeforeHi] {
				fmt.Print(w)
			}
			continue
		}
		for _, ch := range h.Chars.Hunks {
			switch ch.Op {
			case difftext.HunkEqual:
				fmt.Print(strings.Join(h.Chars.BeforeChars[ch.BeforeLo:ch.BeforeHi], ""))
			case difftext.HunkReplace:
				if ch.BeforeHi > ch.BeforeLo {
					fmt.Print("[-" + strings.Join(h.Chars.BeforeChars[ch.BeforeLo:ch.BeforeHi], "") + "-]")
				}
				if ch.AfterHi > ch.AfterLo {
					fmt.Print("[+" + strings.Join(h.Chars.AfterChars[ch.AfterLo:ch.AfterHi], "") + "+]")
				}
			}
		}
	}
	fmt.Println()
}

func shortHash(id ids.Hash) string {
	s := id.String()
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
