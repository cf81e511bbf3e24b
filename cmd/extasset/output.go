package main

import (
	"encoding/json"
	"fmt"
	"os"
)

func writeJSON(payload any) error {
	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}
