package main

import (
	"github.com/horizenofficial/sctemplate/cmd/sctemplate"
)

// Name used by build script for the binaries. (Please keep on single line)
const progname = "sctemplate"

// Version & commit strings injected at build with -ldflags -X...
var (
	version string
	commit  string
)

func main() {
	sctemplate.Run(progname, version, commit)
}
