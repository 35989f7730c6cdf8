// Command gcodecheck parses a g-code file and dumps the interpreter
// state after running it, as a quick sanity check before sending a job
// to the machine.
package main

import (
	"flag"
	"io/ioutil"
	"log"
	"strings"

	"github.com/joushou/gocnc/gcode"
	"github.com/joushou/gocnc/vm"
)

func main() {
	log.SetFlags(log.Lshortfile)
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatal("usage: gcodecheck <file>")
	}

	data, err := ioutil.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	doc, err := gcode.Parse(strings.TrimSpace(string(data)))
	if err != nil {
		log.Fatal(err)
	}

	var m vm.Machine
	m.Init()
	m.Process(doc)
	m.Dump()
}
