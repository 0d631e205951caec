package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	spyglass "github.com/mgrier/spyglass"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeLocations prints locations as "file:line:col qualified" lines,
// one-based for editors.
func writeLocations(w io.Writer, locs []spyglass.Location) error {
	if flagFormat == "json" {
		return writeJSON(w, locs)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LOCATION\tKIND\tQUALIFIED")
	for _, loc := range locs {
		fmt.Fprintf(tw, "%s:%d:%d\t%s\t%s\n",
			loc.Key, loc.Span.StartLine+1, loc.Span.StartCol+1, loc.Kind, loc.Qualified)
	}
	return tw.Flush()
}

func writeCandidates(w io.Writer, candidates []spyglass.Candidate) error {
	if flagFormat == "json" {
		return writeJSON(w, candidates)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tDECLARED IN")
	for _, c := range candidates {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, c.Kind, c.Location.Key)
	}
	return tw.Flush()
}

func writeCallTip(w io.Writer, tip spyglass.CallTip) error {
	if flagFormat == "json" {
		return writeJSON(w, tip)
	}
	fmt.Fprintln(w, tip.Signature)
	if tip.Doc != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, tip.Doc)
	}
	return nil
}
