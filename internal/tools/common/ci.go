package common

import (
	"encoding/json"
	"io"
	"os"
)

type CIResult struct {
	OK      bool     `json:"ok"`
	Title   string   `json:"title"`
	Details []string `json:"details"`
	Error   string   `json:"error,omitempty"`
}

// PrintCIResult writes one JSON line to stdout for machine consumption.
func PrintCIResult(ok bool, title string, details []string, err error) {
	WriteCIResult(os.Stdout, ok, title, details, err)
}

func WriteCIResult(w io.Writer, ok bool, title string, details []string, err error) {
	res := CIResult{OK: ok, Title: title, Details: details}
	if res.Details == nil {
		res.Details = []string{}
	}
	if err != nil {
		res.Error = err.Error()
	}
	_ = json.NewEncoder(w).Encode(res)
}
