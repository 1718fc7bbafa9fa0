package main

import (
	"fmt"
	"os"

	"github.com/giuppep/rustore/internal/format"
)

var outputFormatter format.Formatter = format.JSONFormatter{}

func writeJSON(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(layout string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, layout, args...)
	return err
}

func writeErrPlain(layout string, args ...any) error {
	_, err := fmt.Fprintf(os.Stderr, layout, args...)
	return err
}
