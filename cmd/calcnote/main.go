// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"calcnote/internal/config"
	"calcnote/internal/datetime"
	"calcnote/internal/notebook"
	"calcnote/internal/value"
)

var (
	evalExprs []string
	outFile   string
	precision int
	debugFlag bool
	traceFlag bool
	tzFlag    string
)

func red(text string) string    { return fmt.Sprintf("\033[31m%s\033[0m", text) }
func die(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s\n", red(fmt.Sprintf(format, args...)))
	os.Exit(1)
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			die("Error: %v, exiting", r)
		}
	}()

	root := &cobra.Command{
		Use:   "calcnote",
		Short: "A calculator notebook: sequential expressions over a shared environment",
		RunE:  run,
	}
	root.Flags().StringArrayVarP(&evalExprs, "eval", "e", nil, "evaluate one expression (repeatable)")
	root.Flags().StringVarP(&outFile, "output", "o", "", "read lines from FILE and print only the last non-empty result")
	root.Flags().IntVarP(&precision, "precision", "p", -1, "decimal display precision (0..20)")
	root.Flags().BoolVar(&debugFlag, "debug", false, "surface line errors instead of rendering them as markdown")
	root.Flags().BoolVar(&traceFlag, "trace", false, "log each line's evaluation trace")
	root.Flags().StringVar(&tzFlag, "tz", "", "override the system timezone (IANA name)")

	if err := root.Execute(); err != nil {
		die("%v", err)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("config: %v, using defaults", err)
		cfg = config.Default()
	}
	if precision >= 0 {
		cfg.Precision = uint32(precision)
	}
	value.SetPrecision(cfg.Precision)

	loc := time.Local
	if tzFlag != "" {
		if resolved, err := time.LoadLocation(tzFlag); err == nil {
			loc = resolved
		} else {
			log.Printf("unknown timezone %q, using system default", tzFlag)
		}
	}

	eng := notebook.New()
	eng.SystemLoc = loc
	eng.Clock = datetime.RealClock()
	eng.Debug = debugFlag
	eng.HostEnv = envMap()

	if traceFlag {
		log.SetFlags(0)
	}

	var lines []string
	switch {
	case outFile != "":
		data, err := os.ReadFile(outFile)
		if err != nil {
			return err
		}
		lines = strings.Split(string(data), "\n")
	case len(evalExprs) > 0:
		lines = evalExprs
	default:
		stat, statErr := os.Stdin.Stat()
		if statErr == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
			lines = readLines(os.Stdin)
		}
		if len(lines) == 0 && len(args) > 0 {
			lines = args
		}
		if len(lines) == 0 {
			return cmd.Help()
		}
	}

	edits := make([]notebook.LineEdit, len(lines))
	for i, l := range lines {
		if i > 0 {
			eng.InsertLine(i)
		}
		edits[i] = notebook.LineEdit{Index: i, Text: l}
	}
	if err := eng.UpdateLines(edits); err != nil {
		return err
	}

	states := eng.GetLines()
	if traceFlag {
		for _, s := range states {
			if s.Error != "" {
				log.Printf("[error] %s -> %s", s.Text, s.Error)
			} else if s.HasResult {
				log.Printf("%s -> %s", s.Text, s.Result.String())
			}
		}
	}

	if outFile != "" || len(evalExprs) > 0 {
		printLastResult(states)
		return nil
	}
	for _, s := range states {
		printLine(s)
	}
	return nil
}

func printLastResult(states []notebook.LineState) {
	for i := len(states) - 1; i >= 0; i-- {
		if states[i].HasResult {
			fmt.Println(states[i].Result.String())
			return
		}
	}
}

func printLine(s notebook.LineState) {
	switch {
	case s.Error != "":
		fmt.Printf("%s  # %s\n", s.Text, red(s.Error))
	case s.HasResult:
		fmt.Printf("%s = %s\n", s.Text, s.Result.String())
	default:
		fmt.Println(s.Text)
	}
}

func readLines(r io.Reader) []string {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func envMap() map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			out[parts[0]] = parts[1]
		}
	}
	return out
}
