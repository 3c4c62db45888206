package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/osse101/FieldSync_Go/internal/domain"
	"github.com/osse101/FieldSync_Go/internal/localstore"
	"github.com/osse101/FieldSync_Go/internal/utils"
)

var (
	recordData    string
	recordStoreID int64
	listIndex     string
	listKey       string
	listLimit     int
)

var recordCmd = &cobra.Command{
	Use:   "record <collection> [field=value ...]",
	Short: "Capture a record into a local collection",
	Long: `Record inserts one record. Values that parse as JSON numbers or booleans
are stored as such; everything else is text. The submitter defaults to the
configured username.

Example:
  fieldagent record availability store_id=3 sku=KC-1 available=true
  fieldagent record brand_stocks --store-id 3 --data '{"brand":"KC Coconut","current_stock":12}'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRecord,
}

var listCmd = &cobra.Command{
	Use:   "list <collection>",
	Short: "List records, newest first when filtered by an index",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

var countCmd = &cobra.Command{
	Use:   "count <collection>",
	Short: "Count records matching an index key",
	Args:  cobra.ExactArgs(1),
	RunE:  runCount,
}

var exportCmd = &cobra.Command{
	Use:   "export <collection> <file>",
	Short: "Write every record of a collection to a JSON file",
	Args:  cobra.ExactArgs(2),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <collection> <file>",
	Short: "Insert the records of a JSON file into a collection",
	Args:  cobra.ExactArgs(2),
	RunE:  runImport,
}

func init() {
	recordCmd.Flags().StringVar(&recordData, "data", "", "record fields as a JSON object")
	recordCmd.Flags().Int64Var(&recordStoreID, "store-id", 0, "store the record belongs to")

	listCmd.Flags().StringVar(&listIndex, "index", "", "index to filter by")
	listCmd.Flags().StringVar(&listKey, "key", "", "index key to match")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum records to print")

	countCmd.Flags().StringVar(&listIndex, "index", "", "index to count by (required)")
	countCmd.Flags().StringVar(&listKey, "key", "", "index key to match")
	_ = countCmd.MarkFlagRequired("index")
}

func runRecord(cmd *cobra.Command, args []string) error {
	rec, err := buildRecord(recordData, args[1:])
	if err != nil {
		return err
	}
	if recordStoreID > 0 {
		rec[domain.FieldStoreID] = recordStoreID
	}
	if _, ok := rec[domain.FieldSubmitter]; !ok && cfg.Username != "" {
		rec[domain.FieldSubmitter] = cfg.Username
	}

	saved, err := store.Insert(commandContext(cmd), args[0], rec)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", args[0], err)
	}
	if jsonOutput {
		return printJSON(saved)
	}
	fmt.Printf("Recorded %s #%v (%v)\n", args[0], saved[domain.FieldID], saved[domain.FieldUUID])
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	var (
		records []domain.Record
		err     error
	)
	if listIndex != "" {
		records, err = store.QueryByIndex(ctx, args[0], listIndex, listKey)
	} else {
		records, err = store.All(ctx, args[0])
	}
	if err != nil {
		return err
	}
	if listLimit > 0 && len(records) > listLimit {
		records = records[:listLimit]
	}

	if jsonOutput {
		return printJSON(records)
	}
	for _, r := range records {
		b, err := json.Marshal(r)
		if err != nil {
			return err
		}
		fmt.Println(string(b))
	}
	return nil
}

func runCount(cmd *cobra.Command, args []string) error {
	n := store.CountOrZero(commandContext(cmd), args[0], listIndex, listKey)
	if jsonOutput {
		return printJSON(map[string]int{"count": n})
	}
	fmt.Println(n)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	records, err := store.All(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	if err := utils.SaveJSON(args[1], records); err != nil {
		return err
	}
	fmt.Printf("Exported %d records from %s to %s\n", len(records), args[0], args[1])
	return nil
}

// runImport inserts each record as new; collections keyed by the server
// are upserted under the file's ids instead
func runImport(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	coll, ok := localstore.LookupCollection(args[0])
	if !ok {
		return fmt.Errorf("%w: unknown collection %q", domain.ErrInvalidInput, args[0])
	}

	var records []domain.Record
	if err := utils.LoadJSON(args[1], &records); err != nil {
		return err
	}

	for i, rec := range records {
		var err error
		if coll.ServerKey {
			_, err = store.Upsert(ctx, coll.Name, rec)
		} else {
			delete(rec, domain.FieldID)
			_, err = store.Insert(ctx, coll.Name, rec)
		}
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	fmt.Printf("Imported %d records into %s\n", len(records), coll.Name)
	return nil
}

// buildRecord merges a JSON object with field=value pairs; pairs win
func buildRecord(data string, pairs []string) (domain.Record, error) {
	rec := domain.Record{}
	if strings.TrimSpace(data) != "" {
		dec := json.NewDecoder(strings.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("%w: --data: %v", domain.ErrInvalidInput, err)
		}
	}
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("%w: expected field=value, got %q", domain.ErrInvalidInput, p)
		}
		rec[strings.TrimSpace(key)] = parseValue(value)
	}
	return rec, nil
}

// parseValue keeps numbers and booleans typed and everything else as text
func parseValue(s string) interface{} {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err == nil && !dec.More() {
		if n, ok := v.(json.Number); ok {
			return n
		}
	}
	return s
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
