package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Patients(ctx context.Context) error
	AddPatient(ctx context.Context) error
	Screenings(ctx context.Context, patientID string) error
	AddScreening(ctx context.Context, patientID string) error
	Sync(ctx context.Context) error
	Status(ctx context.Context) error
	Stats(ctx context.Context) error
	Failed(ctx context.Context) error
	Retry(ctx context.Context, entryID string) error
	Ack(ctx context.Context) error
}

const helpText = `Available commands:
  patients                  list patients kept on this device
  addpatient                register a patient
  screenings <patient-id>   list screenings of a patient
  addscreening <patient-id> record a screening
  sync                      upload pending changes now
  status                    show sync status
  stats                     show local counters
  failed                    list entries that need attention
  retry <entry-id>          queue a failed entry again
  ack                       dismiss the current sync error
  exit | quit               leave the console`

// runREPL reads a line from reader, parses the first token as the command
// and dispatches to a. Commands that need an argument print their usage
// when it is missing. Errors returned by handlers are printed and the loop
// continues. It exits on EOF or when the user types "exit" or "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("hs %s > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		withArg := func(usage string, fn func(string) error) error {
			if len(args) == 0 {
				printlnFn("Usage:", usage)
				return nil
			}
			return fn(args[0])
		}

		var cmdErr error
		switch cmd {
		case "help":
			printlnFn(helpText)

		case "p", "patients":
			cmdErr = a.Patients(ctx)

		case "addpatient":
			cmdErr = a.AddPatient(ctx)

		case "screenings":
			cmdErr = withArg("screenings <patient-id>", func(id string) error { return a.Screenings(ctx, id) })

		case "addscreening":
			cmdErr = withArg("addscreening <patient-id>", func(id string) error { return a.AddScreening(ctx, id) })

		case "sync":
			cmdErr = a.Sync(ctx)

		case "status":
			cmdErr = a.Status(ctx)

		case "stats":
			cmdErr = a.Stats(ctx)

		case "failed":
			cmdErr = a.Failed(ctx)

		case "retry":
			cmdErr = withArg("retry <entry-id>", func(id string) error { return a.Retry(ctx, id) })

		case "ack":
			cmdErr = a.Ack(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("error:", cmdErr)
		}
		if err != nil {
			return
		}
	}
}
