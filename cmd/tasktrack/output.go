package main

import (
	"fmt"
	"os"

	"tasktrack/internal/format"
)

// stdout receives command results; logs and hints go to stderr.
var stdout format.Formatter = format.JSONFormatter{Indent: "  "}

func writeJSON(payload any) error {
	return stdout.Write(os.Stdout, payload)
}

func writePlain(layout string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, layout, args...)
	return err
}
