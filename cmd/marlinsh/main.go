/*
Marlinsh starts an interactive shell for trying out a marlin-generated
LALR(1) parser.

It ships with a worked calculator grammar (see calc.go): arithmetic over
+, -, *, /, parens, and unary minus, with "left +,-; left *,/; right UMINUS"
precedence. Each line read is lexed, parsed, and evaluated, and the result
or the first syntax error is printed.

Usage:

	marlinsh [flags]

The flags are:

	-v, --version
		Print the current version and exit.

	-t, --table
		Dump the calculator grammar's ACTION/GOTO table and exit, instead of
		starting the shell.

	-c, --command EXPR
		Evaluate EXPR immediately and exit, instead of starting the shell.

	-d, --direct
		Force reading directly from stdin instead of going through GNU
		readline, even if launched in a tty.

	--config FILE
		Load shell settings (prompt, history file) from a TOML file.

Once the shell has started, type an arithmetic expression and press enter
to evaluate it. Type "quit" or "exit" to leave the shell.
*/
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/chzyer/readline"
	"github.com/dekarrin/rosed"
	"github.com/finrow/marlin/parse"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

const version = "0.1.0"

const (
	exitSuccess = iota
	exitInitError
	exitRunError
)

// shellConfig is the optional TOML-loaded shell configuration (spec's
// ambient configuration surface, following the grammar/lexer toolkit's own
// reliance on the teacher's BurntSushi/toml stack for manifest loading).
type shellConfig struct {
	Prompt      string `toml:"prompt"`
	HistoryFile string `toml:"history_file"`
}

func defaultConfig() shellConfig {
	return shellConfig{Prompt: "marlin> ", HistoryFile: ""}
}

func loadConfig(path string) (shellConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("load config %q: %w", path, err)
	}
	return cfg, nil
}

var (
	returnCode  = exitSuccess
	flagVersion = pflag.BoolP("version", "v", false, "Print the current version and exit")
	flagTable   = pflag.BoolP("table", "t", false, "Dump the calculator grammar's ACTION/GOTO table and exit")
	flagCommand = pflag.StringP("command", "c", "", "Evaluate the given expression immediately and exit")
	flagDirect  = pflag.BoolP("direct", "d", false, "Force reading directly from stdin instead of using GNU readline")
	flagConfig  = pflag.String("config", "", "Path to a TOML file of shell settings (prompt, history_file)")
)

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panic(fmt.Sprintf("unrecoverable panic occurred: %v", panicErr))
		} else {
			os.Exit(returnCode)
		}
	}()

	pflag.Parse()

	if *flagVersion {
		fmt.Printf("marlinsh %s\n", version)
		return
	}

	parser, err := newCalcParser()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: building parser: %s\n", err.Error())
		returnCode = exitInitError
		return
	}

	if *flagTable {
		fmt.Println(parser.TableString())
		return
	}

	cfg, err := loadConfig(*flagConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = exitInitError
		return
	}

	sessionID := uuid.New().String()

	if *flagCommand != "" {
		result, evalErr := evaluate(parser, *flagCommand)
		if evalErr != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", evalErr.Error())
			returnCode = exitRunError
			return
		}
		fmt.Println(result)
		return
	}

	if err := runShell(parser, cfg, sessionID, *flagDirect); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = exitRunError
	}
}

func runShell(parser *parse.Parser, cfg shellConfig, sessionID string, direct bool) error {
	banner := rosed.
		Edit(fmt.Sprintf("marlin calculator shell - session %s. Type an expression, or \"quit\" to exit.", sessionID)).
		Wrap(70).
		String()
	fmt.Println(banner)

	readLine, closeFn, err := newLineReader(cfg, direct)
	if err != nil {
		return err
	}
	defer closeFn()

	for {
		line, err := readLine()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}

		result, err := evaluate(parser, line)
		if err != nil {
			fmt.Printf("syntax error: %s\n", err.Error())
			continue
		}
		fmt.Println(result)
	}
}

// newLineReader returns a closure that reads one line at a time, either
// through GNU readline (with history, unless direct is set or stdin isn't a
// terminal) or directly from a buffered stdin.
func newLineReader(cfg shellConfig, direct bool) (func() (string, error), func(), error) {
	if !direct {
		rlCfg := &readline.Config{Prompt: cfg.Prompt}
		if cfg.HistoryFile != "" {
			rlCfg.HistoryFile = cfg.HistoryFile
		}
		rl, err := readline.NewEx(rlCfg)
		if err == nil {
			return func() (string, error) {
					return rl.Readline()
				}, func() {
					rl.Close()
				}, nil
		}
		// fall through to direct reading if readline couldn't initialize
		// (e.g. not a tty)
	}

	r := bufio.NewReader(os.Stdin)
	return func() (string, error) {
			fmt.Print(cfg.Prompt)
			return r.ReadString('\n')
		}, func() {
		}, nil
}
