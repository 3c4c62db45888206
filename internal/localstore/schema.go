package localstore

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/osse101/FieldSync_Go/internal/domain"
)

// Kind is the stored type of an indexed field
type Kind int

const (
	KindText Kind = iota
	KindInt
)

// Index is a secondary index over one record field
type Index struct {
	Name   string
	Field  string
	Kind   Kind
	Unique bool
	// Since is the schema version that adds the index; zero means the
	// collection's own version
	Since int
	// Where makes the index partial and also filters lookups through it
	Where string
}

// Collection is one typed record collection of the local store
type Collection struct {
	Name    string
	Version int
	// ServerKey collections take their id from the server instead of
	// assigning one locally
	ServerKey bool
	Indexes   []Index
}

// Row columns. Every other field lives in the JSON payload.
const (
	colID             = "id"
	colUUID           = "uuid"
	colCreatedOn      = "created_on"
	colData           = "data"
	colRevision       = "revision"
	colSyncedRevision = "synced_revision"
)

func isColumn(field string) bool {
	switch field {
	case colID, colUUID, colCreatedOn:
		return true
	}
	return false
}

var storeIDIndex = Index{Name: domain.FieldStoreID, Field: domain.FieldStoreID, Kind: KindInt}
var createdOnIndex = Index{Name: colCreatedOn, Field: colCreatedOn, Kind: KindText}

var catalog = []Collection{
	{Name: CollUsers, Version: 1, Indexes: []Index{
		{Name: FieldUsername, Field: FieldUsername, Kind: KindText, Unique: true},
		{Name: FieldAssignedVersion, Field: FieldAssignedVersion, Kind: KindInt, Since: 6},
	}},
	{Name: CollLoginLog, Version: 1, Indexes: []Index{
		{Name: FieldUsername, Field: FieldUsername, Kind: KindText},
	}},
	{Name: CollStores, Version: 1, ServerKey: true, Indexes: []Index{
		{Name: FieldName, Field: FieldName, Kind: KindText, Unique: true},
	}},
	{Name: CollCheckin, Version: 1, Indexes: []Index{
		storeIDIndex,
		{Name: FieldSessionID, Field: FieldSessionID, Kind: KindText},
		{
			Name:   "open_store",
			Field:  domain.FieldStoreID,
			Kind:   KindInt,
			Unique: true,
			Since:  6,
			Where: fmt.Sprintf("json_extract(data, '$.%s') = '%s' AND json_extract(data, '$.%s') = 1",
				FieldCheckoutTime, CheckoutOpen, FieldSingleOpen),
		},
	}},

	{Name: CollAvailability, Version: 2, Indexes: []Index{storeIDIndex, createdOnIndex}},
	{Name: CollPlacement, Version: 2, Indexes: []Index{storeIDIndex, createdOnIndex}},
	{Name: CollActivation, Version: 2, Indexes: []Index{storeIDIndex, createdOnIndex}},
	{Name: CollVisibility, Version: 2, Indexes: []Index{storeIDIndex, createdOnIndex}},

	{Name: CollTLFocus, Version: 3, Indexes: []Index{storeIDIndex}},
	{Name: CollTLObjectives, Version: 3, Indexes: []Index{storeIDIndex}},
	{Name: CollObjectives, Version: 3, Indexes: []Index{storeIDIndex}},
	{Name: CollOtherObjectives, Version: 3, Indexes: []Index{storeIDIndex}},
	{Name: CollListings, Version: 3, Indexes: []Index{storeIDIndex}},

	{Name: CollBrands, Version: 4, Indexes: []Index{
		{Name: FieldName, Field: FieldName, Kind: KindText, Unique: true},
	}},
	{Name: CollBrandStocks, Version: 4, Indexes: []Index{storeIDIndex, createdOnIndex}},

	{Name: CollChecklist, Version: 5, Indexes: []Index{storeIDIndex}},
	{Name: CollDailyPlanner, Version: 5, Indexes: []Index{
		storeIDIndex,
		{Name: FieldDailyDate, Field: FieldDailyDate, Kind: KindText},
	}},
	{Name: CollPerformance, Version: 5, Indexes: []Index{storeIDIndex}},
}

var catalogByName = func() map[string]Collection {
	m := make(map[string]Collection, len(catalog))
	for _, c := range catalog {
		m[c.Name] = c
	}
	return m
}()

// Collections returns the collections that exist at schema version v
func Collections(v int) []Collection {
	var out []Collection
	for _, c := range catalog {
		if c.Version <= v {
			out = append(out, c)
		}
	}
	return out
}

// LookupCollection returns a catalog entry by name
func LookupCollection(name string) (Collection, bool) {
	c, ok := catalogByName[name]
	return c, ok
}

func (c Collection) index(name string) (Index, bool) {
	for _, ix := range c.Indexes {
		if ix.Name == name {
			return ix, true
		}
	}
	return Index{}, false
}

func (ix Index) since(c Collection) int {
	if ix.Since == 0 {
		return c.Version
	}
	return ix.Since
}

func (ix Index) expr() string {
	if isColumn(ix.Field) {
		return quoteIdent(ix.Field)
	}
	return fmt.Sprintf("json_extract(data, '$.%s')", ix.Field)
}

func (ix Index) sqlName(c Collection) string {
	return fmt.Sprintf("idx_%s_%s", c.Name, ix.Name)
}

// key converts a lookup or stored value to the index's kind
func (ix Index) key(v interface{}) (interface{}, error) {
	switch ix.Kind {
	case KindInt:
		n, ok := toInt64(v)
		if !ok {
			return nil, fmt.Errorf("%w: %s: %s=%v", domain.ErrInvalidInput, ErrMsgBadIndexValue, ix.Field, v)
		}
		return n, nil
	default:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s: %s=%v", domain.ErrInvalidInput, ErrMsgBadIndexValue, ix.Field, v)
		}
		return s, nil
	}
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

func createTableSQL(c Collection) string {
	idCol := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if c.ServerKey {
		idCol = "id INTEGER PRIMARY KEY"
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s,
	uuid TEXT NOT NULL UNIQUE,
	created_on TEXT NOT NULL,
	data TEXT NOT NULL CHECK (json_valid(data)),
	revision INTEGER NOT NULL DEFAULT 1,
	synced_revision INTEGER NOT NULL DEFAULT 0
)`, quoteIdent(c.Name), idCol)
}

func createIndexSQL(c Collection, ix Index) string {
	unique := ""
	if ix.Unique {
		unique = "UNIQUE "
	}
	stmt := fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)",
		unique, quoteIdent(ix.sqlName(c)), quoteIdent(c.Name), ix.expr())
	if ix.Where != "" {
		stmt += " WHERE " + ix.Where
	}
	return stmt
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
