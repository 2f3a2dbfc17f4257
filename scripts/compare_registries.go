//go:build ignore

package main

import (
	"bytes"
	"fmt"
	"os"

	"Chisel/internal/storage"
)

// Compares two registry data directories record by record. Useful after
// restoring a backup or replaying operations against a fresh store.
func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s <data_dir1> <data_dir2>\n", os.Args[0])
		os.Exit(1)
	}

	db1, err := storage.New(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
	defer db1.Close()

	db2, err := storage.New(os.Args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", os.Args[2], err)
		os.Exit(1)
	}
	defer db2.Close()

	records1 := collectRecords(db1)
	records2 := collectRecords(db2)

	fmt.Printf("%s: %d records\n", os.Args[1], len(records1))
	fmt.Printf("%s: %d records\n", os.Args[2], len(records2))

	missing1, missing2, different := compare(records1, records2)

	if len(missing1) == 0 && len(missing2) == 0 && len(different) == 0 {
		fmt.Println("\nregistries are identical")
		os.Exit(0)
	}

	fmt.Println("\nregistries differ:")

	if len(missing1) > 0 {
		fmt.Printf("  - records only in %s: %d\n", os.Args[1], len(missing1))
		for _, key := range missing1 {
			fmt.Printf("      %q\n", key)
		}
	}

	if len(missing2) > 0 {
		fmt.Printf("  - records only in %s: %d\n", os.Args[2], len(missing2))
		for _, key := range missing2 {
			fmt.Printf("      %q\n", key)
		}
	}

	if len(different) > 0 {
		fmt.Printf("  - records with different content: %d\n", len(different))
		for _, key := range different {
			fmt.Printf("      %q\n", key)
		}
	}

	os.Exit(1)
}

func collectRecords(db *storage.Storage) map[string][]byte {
	records := make(map[string][]byte)

	db.Iterate(func(key, value []byte) error {
		valueCopy := make([]byte, len(value))
		copy(valueCopy, value)
		records[string(key)] = valueCopy
		return nil
	})

	return records
}

func compare(rec1, rec2 map[string][]byte) (missing1, missing2, different []string) {
	for key := range rec1 {
		if _, ok := rec2[key]; !ok {
			missing1 = append(missing1, key)
		}
	}

	for key := range rec2 {
		if _, ok := rec1[key]; !ok {
			missing2 = append(missing2, key)
		}
	}

	for key, data1 := range rec1 {
		if data2, ok := rec2[key]; ok && !bytes.Equal(data1, data2) {
			different = append(different, key)
		}
	}

	return missing1, missing2, different
}
