//go:build ignore

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"Chisel/internal/catalog"
	"Chisel/internal/merkle"
)

// catalogDesc is the JSON input format: an attribute bound plus the
// entry list, indices implied by position.
type catalogDesc struct {
	MaxAttributes uint32 `json:"maxAttributes"`
	Singletons    bool   `json:"singletons"`
	URIPrefix     string `json:"uriPrefix"`
	Entries       []struct {
		URI        string   `json:"uri"`
		Attributes []uint32 `json:"attributes"`
	} `json:"entries"`
}

// Builds a catalog file from a JSON description and prints its root.
func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s <desc.json> <output.catalog>\n", os.Args[0])
		os.Exit(1)
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "read description: %v\n", err)
		os.Exit(1)
	}

	var desc catalogDesc
	if err := json.Unmarshal(data, &desc); err != nil {
		fmt.Fprintf(os.Stderr, "parse description: %v\n", err)
		os.Exit(1)
	}

	var entries []merkle.Entry
	if desc.Singletons {
		entries = catalog.Singletons(desc.MaxAttributes, func(attr uint32) string {
			return fmt.Sprintf("%s%d", desc.URIPrefix, attr)
		})
	}
	for _, e := range desc.Entries {
		entries = append(entries, merkle.Entry{
			Index:      uint64(len(entries)),
			URI:        e.URI,
			Attributes: e.Attributes,
		})
	}

	cat, err := catalog.New(entries, desc.MaxAttributes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build catalog: %v\n", err)
		os.Exit(1)
	}

	if err := cat.Save(os.Args[2], desc.MaxAttributes); err != nil {
		fmt.Fprintf(os.Stderr, "save catalog: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%d entries\n", cat.Len())
	fmt.Printf("root: %s\n", cat.Root())
}
