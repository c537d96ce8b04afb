package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"

	packcheck "github.com/go-pack/packcheck"
	"github.com/go-pack/packcheck/utils/ioutil"
)

// CmdVerifyPack implements the verify-pack command.
type CmdVerifyPack struct {
	StatOnly   bool   `short:"s" long:"stat-only" description:"Do not print the per-object listing, only delta chain statistics."`
	Quiet      bool   `short:"q" long:"quiet" description:"Do not report progress while scanning."`
	ObjectsDir string `long:"objects-dir" default:".git/objects" description:"Objects directory used to resolve pack names and hashes."`

	Args struct {
		Pack string `positional-arg-name:"pack" required:"true" description:"Path to a .pack file, a pack-<hash> name, or a bare pack hash."`
	} `positional-args:"true"`
}

func (c *CmdVerifyPack) Execute(args []string) (err error) {
	name := c.Args.Pack

	// Pack paths are opened relative to the current directory; names and
	// hashes are resolved within the objects directory.
	root := c.ObjectsDir
	if strings.HasSuffix(name, ".pack") {
		dir, base := filepath.Split(name)
		if dir == "" {
			dir = "."
		}
		root, name = dir, base
	}

	f, err := packcheck.OpenPack(osfs.New(root), name)
	if err != nil {
		return err
	}
	defer ioutil.CheckClose(f, &err)

	opts := &packcheck.VerifyOptions{StatOnly: c.StatOnly}
	if !c.Quiet {
		opts.Progress = os.Stderr
	}

	return packcheck.VerifyPack(f, os.Stdout, opts)
}
