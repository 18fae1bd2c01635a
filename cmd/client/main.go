package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/iliyamo/cinema-ticketing/internal/protocol"
)

const helpText = `
cinema-client - interactive client for the box office wire protocol.

Usage:
  cinema-client [-addr host:port]

Commands:
  .help                        - Show this help message
  .ops                         - List request names
  .exit                        - Close the connection and exit

  NAME field|field|...         - Send a request, e.g.
                                 LOGIN admin@cinema.io|secret
                                 SHOWTIME_CREATE 1|2|2024-05-01 16:00:00|
                                 SALE_CREATE 2|3|7|3|8|10
  NUMBER field|field|...       - Same, using the numeric opcode (100 for LOGIN)

Fields are separated by "|"; surrounding spaces are trimmed.
`

func main() {
	addr := flag.String("addr", "localhost:9090", "wire server address")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	client, err := protocol.Dial(ctx, *addr)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to %s: %s\n", *addr, err)
		os.Exit(1)
	}
	defer client.Close()

	runInteractive(client, *addr)
}

func completer() *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem(".help"),
		readline.PcItem(".ops"),
		readline.PcItem(".exit"),
	}
	for _, name := range protocol.RequestNames() {
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}

// runInteractive reads commands until EOF or .exit.
func runInteractive(client *protocol.Client, addr string) {
	fmt.Printf("Connected to %s. Enter .help for usage hints.\n", addr)

	historyFile := filepath.Join(os.TempDir(), ".cinema_client_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "cinema> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing readline: %s\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	for {
		line, readErr := rl.Readline()
		if readErr != nil {
			if errors.Is(readErr, readline.ErrInterrupt) {
				if len(line) == 0 {
					break
				}
				continue
			} else if errors.Is(readErr, io.EOF) {
				fmt.Println("Goodbye!")
				break
			}
			fmt.Fprintf(os.Stderr, "Error reading input: %s\n", readErr)
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case ".help":
			fmt.Print(helpText)
			continue
		case ".ops":
			for _, name := range protocol.RequestNames() {
				op, _ := protocol.LookupOp(name)
				fmt.Printf("  %d  %s\n", op, name)
			}
			continue
		case ".exit", ".quit":
			fmt.Println("Goodbye!")
			return
		}

		op, fields, err := parseCommand(line)
		if err != nil {
			fmt.Printf("Error: %s\n", err)
			continue
		}
		start := time.Now()
		resp, err := client.Call(op, fields...)
		if err != nil {
			var remote *protocol.RemoteError
			if errors.As(err, &remote) {
				fmt.Printf("%s: %s\n", remote.Kind, remote.Message)
				continue
			}
			fmt.Fprintf(os.Stderr, "Connection error: %s\n", err)
			return
		}
		printFields(resp)
		fmt.Printf("OK (%s)\n", time.Since(start).Round(time.Microsecond))
	}
}

// parseCommand splits "NAME a|b|c" into an opcode and its fields.  The
// name may be given in any case or as the numeric opcode.
func parseCommand(line string) (protocol.Op, []string, error) {
	head, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	var op protocol.Op
	if n, err := strconv.Atoi(head); err == nil {
		op = protocol.Op(n)
	} else {
		var ok bool
		if op, ok = protocol.LookupOp(strings.ToUpper(head)); !ok {
			return 0, nil, fmt.Errorf("unknown command %q, try .ops", head)
		}
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return op, nil, nil
	}
	parts := strings.Split(rest, "|")
	fields := make([]string, len(parts))
	for i, p := range parts {
		fields[i] = strings.TrimSpace(p)
	}
	return op, fields, nil
}

func printFields(fields []string) {
	for i, f := range fields {
		fmt.Printf("  [%d] %s\n", i, f)
	}
}
