package reconciler

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// TableID identifies one allow-listed server table
type TableID int

// Allow-listed tables
const (
	TableUsers TableID = iota
	TableLoginLogs
	TableStores
	TableCheckinSessions
	TableAvailability
	TablePlacement
	TableActivation
	TableVisibility
	TableTLFocus
	TableTLObjectives
	TableObjectives
	TableOtherObjectives
	TableListings
	TableBrands
	TableBrandStocks
	TablePerformance
	TableDailyPlanner
	TableChecklist

	tableCount
)

// Column data types as reported by information_schema.columns.data_type
const (
	TypeInteger   = "integer"
	TypeVarchar   = "character varying"
	TypeText      = "text"
	TypeTimestamp = "timestamp with time zone"
	TypeDate      = "date"
	TypeJSONB     = "jsonb"
	TypeUUID      = "uuid"
	TypeDouble    = "double precision"
)

// Column is one typed column of a table
type Column struct {
	Name string
	Type string
}

// TableSpec describes how the reconciler may read and write a table
type TableSpec struct {
	ID      TableID
	Name    string
	Columns []Column

	// UniqueKeys lists every column set backed by a unique constraint;
	// only these are accepted as conflict targets
	UniqueKeys [][]string

	DefaultOrder string
	Descending   bool

	// Redacted columns never leave the server
	Redacted []string

	// Restricted tables require the team-leader role
	Restricted bool
}

// HasColumn reports whether name is a column of the table
func (s TableSpec) HasColumn(name string) bool {
	for _, c := range s.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// ColumnType returns the declared type of a column
func (s TableSpec) ColumnType(name string) (string, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c.Type, true
		}
	}
	return "", false
}

func (id TableID) String() string {
	if id < 0 || id >= tableCount {
		return fmt.Sprintf("TableID(%d)", int(id))
	}
	return registry[id].Name
}

// Spec returns the table's registry entry
func (id TableID) Spec() TableSpec {
	return registry[id]
}

var registry [tableCount]TableSpec

var byName = map[string]TableID{}

func init() {
	register(TableSpec{
		ID:   TableUsers,
		Name: "users",
		Columns: withTimestamps(
			Column{"id", TypeInteger},
			Column{"username", TypeVarchar},
			Column{"password", TypeText},
			Column{"email", TypeVarchar},
			Column{"assigned", TypeVarchar},
			Column{"assigned_version", TypeInteger},
		),
		UniqueKeys:   [][]string{{"id"}, {"username"}},
		DefaultOrder: "id",
		Redacted:     []string{"password"},
		Restricted:   true,
	})
	register(TableSpec{
		ID:   TableLoginLogs,
		Name: "login_logs",
		Columns: withTimestamps(
			Column{"id", TypeInteger},
			Column{"client_uuid", TypeUUID},
			Column{"user_id", TypeInteger},
			Column{"username", TypeVarchar},
			Column{"event_type", TypeVarchar},
		),
		UniqueKeys:   [][]string{{"id"}, {"client_uuid"}},
		DefaultOrder: "created_on",
		Descending:   true,
	})
	register(TableSpec{
		ID:   TableStores,
		Name: "stores",
		Columns: withTimestamps(
			Column{"id", TypeInteger},
			Column{"name", TypeVarchar},
			Column{"region", TypeVarchar},
			Column{"user_id", TypeInteger},
			Column{"latitude", TypeDouble},
			Column{"longitude", TypeDouble},
		),
		UniqueKeys:   [][]string{{"id"}, {"name"}},
		DefaultOrder: "name",
	})
	register(TableSpec{
		ID:   TableCheckinSessions,
		Name: "checkin_sessions",
		Columns: withTimestamps(
			Column{"id", TypeInteger},
			Column{"session_id", TypeVarchar},
			Column{"store_id", TypeInteger},
			Column{"store", TypeVarchar},
			Column{"submitter", TypeVarchar},
			Column{"checkin_time", TypeTimestamp},
			Column{"checkin_place", TypeText},
			Column{"checkout_time", TypeVarchar},
			Column{"checkout_place", TypeText},
			Column{"day", TypeDate},
		),
		UniqueKeys:   [][]string{{"id"}, {"session_id"}},
		DefaultOrder: "created_on",
		Descending:   true,
	})

	for id, name := range map[TableID]string{
		TableAvailability:    "availability_records",
		TablePlacement:       "placement_records",
		TableActivation:      "activation_records",
		TableVisibility:      "visibility_records",
		TableTLFocus:         "tl_focus_records",
		TableTLObjectives:    "tl_objectives_records",
		TableObjectives:      "objectives_records",
		TableOtherObjectives: "other_objectives_records",
		TableListings:        "listings_records",
		TablePerformance:     "performance_records",
		TableDailyPlanner:    "daily_planner_records",
		TableChecklist:       "checklist_records",
	} {
		register(activityTable(id, name))
	}

	register(TableSpec{
		ID:   TableBrands,
		Name: "brands",
		Columns: withTimestamps(
			Column{"id", TypeInteger},
			Column{"name", TypeVarchar},
		),
		UniqueKeys:   [][]string{{"id"}, {"name"}},
		DefaultOrder: "name",
	})
	register(TableSpec{
		ID:   TableBrandStocks,
		Name: "brand_stocks_records",
		Columns: withTimestamps(
			Column{"id", TypeInteger},
			Column{"client_uuid", TypeUUID},
			Column{"store_id", TypeInteger},
			Column{"brand", TypeVarchar},
			Column{"stock_date", TypeDate},
			Column{"current_stock", TypeInteger},
			Column{"sale", TypeInteger},
			Column{"order_placed", TypeInteger},
			Column{"delivery", TypeInteger},
			Column{"stock_out", TypeInteger},
			Column{"remarks", TypeText},
			Column{"submitter", TypeVarchar},
		),
		UniqueKeys:   [][]string{{"id"}, {"client_uuid"}},
		DefaultOrder: "created_on",
		Descending:   true,
	})

	for id := TableID(0); id < tableCount; id++ {
		if registry[id].Name == "" {
			panic(fmt.Sprintf("reconciler: table %d has no registry entry", id))
		}
	}
}

func register(spec TableSpec) {
	registry[spec.ID] = spec
	byName[spec.Name] = spec.ID
}

// activity tables all share one shape keyed by the device-generated uuid
func activityTable(id TableID, name string) TableSpec {
	return TableSpec{
		ID:   id,
		Name: name,
		Columns: withTimestamps(
			Column{"id", TypeInteger},
			Column{"client_uuid", TypeUUID},
			Column{"store_id", TypeInteger},
			Column{"submitter", TypeVarchar},
			Column{"data", TypeJSONB},
		),
		UniqueKeys:   [][]string{{"id"}, {"client_uuid"}},
		DefaultOrder: "created_on",
		Descending:   true,
	}
}

func withTimestamps(cols ...Column) []Column {
	return append(cols,
		Column{ColumnCreatedOn, TypeTimestamp},
		Column{ColumnUpdatedOn, TypeTimestamp},
	)
}

// Lookup resolves an allow-listed table name
func Lookup(name string) (TableSpec, bool) {
	id, ok := byName[name]
	if !ok {
		return TableSpec{}, false
	}
	return registry[id], true
}

// Tables returns every registry entry in TableID order
func Tables() []TableSpec {
	out := make([]TableSpec, 0, tableCount)
	for id := TableID(0); id < tableCount; id++ {
		out = append(out, registry[id])
	}
	return out
}

// ColumnSource reads the live column set of a table
type ColumnSource interface {
	TableColumns(ctx context.Context, table string) (map[string]string, error)
}

// VerifyRegistry checks every declared column against the live schema.
// All mismatches are reported together.
func VerifyRegistry(ctx context.Context, src ColumnSource) error {
	var problems []string
	for _, spec := range Tables() {
		live, err := src.TableColumns(ctx, spec.Name)
		if err != nil {
			return fmt.Errorf("%s: %w", ErrMsgRegistryVerifyFailed, err)
		}
		if len(live) == 0 {
			problems = append(problems, fmt.Sprintf("table %s is missing", spec.Name))
			continue
		}
		for _, col := range spec.Columns {
			got, ok := live[col.Name]
			switch {
			case !ok:
				problems = append(problems, fmt.Sprintf("%s.%s is missing", spec.Name, col.Name))
			case got != col.Type:
				problems = append(problems, fmt.Sprintf("%s.%s is %s, want %s", spec.Name, col.Name, got, col.Type))
			}
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("%s: %s", ErrMsgRegistryMismatch, strings.Join(problems, "; "))
	}
	return nil
}
