// Command retrobasic is the reference console front-end: a line-numbered
// BASIC REPL reading from stdin and writing to stdout, the way
// unixdj-forego's main.go wires its Forth VM straight to os.Stdin/Stdout.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/retroterm/corebasic/basic"
	"github.com/retroterm/corebasic/corelog"
)

func main() {
	debug := flag.Bool("debug", false, "enable corelog debug output on stderr")
	flag.Parse()
	corelog.SetEnabled(*debug)

	// One buffered reader over stdin, shared by the REPL's own line
	// reading and the VM's INPUT statement, so the two never race to
	// read-ahead past each other on piped/redirected stdin.
	stdin := bufio.NewReader(os.Stdin)
	env := basic.New(nil, os.Stdout, stdin)

	fmt.Println("retrobasic ready.")
	for {
		fmt.Print("] ")
		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		exit, derr := env.Dispatch(line, os.Stdout)
		if derr != nil {
			fmt.Println(derr)
		}
		if exit {
			return
		}
	}
}
