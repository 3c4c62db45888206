package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/FieldSync_Go/internal/domain"
	"github.com/osse101/FieldSync_Go/internal/localstore"
	"github.com/osse101/FieldSync_Go/internal/syncclient"
)

func TestLoadConfig_WritesDefaultsOnFirstRun(t *testing.T) {
	dir := t.TempDir()

	c, err := loadConfig(dir)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, configFileExt))
	assert.Equal(t, filepath.Join(dir, defaultDBFile), c.DBPath)
	assert.Equal(t, defaultServerURL, c.ServerURL)
	assert.Equal(t, syncclient.DefaultBatchSize, c.Sync.BatchSize)
	assert.Equal(t, uint64(syncclient.DefaultMaxRetries), c.Sync.MaxRetries)
	assert.Equal(t, syncclient.DefaultBackoffMax, c.Sync.BackoffMax)
}

func TestLoadConfig_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	yaml := "server_url: http://sync.example:9000/\nusername: agent7\nbatch_size: 25\nbackoff_min: 250ms\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileExt), []byte(yaml), 0o600))
	t.Setenv("FIELDAGENT_DB_PATH", "/var/lib/agent.db")
	t.Setenv("FIELDAGENT_TIMEOUT", "5s")

	c, err := loadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://sync.example:9000", c.ServerURL)
	assert.Equal(t, "agent7", c.Username)
	assert.Equal(t, 25, c.Sync.BatchSize)
	assert.Equal(t, 250*time.Millisecond, c.Sync.BackoffMin)
	assert.Equal(t, 5*time.Second, c.Sync.RequestTimeout)
	assert.Equal(t, "/var/lib/agent.db", c.DBPath)
}

func TestToken_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	tok, err := loadToken(dir)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, saveToken(dir, "abc.def.ghi"))
	tok, err = loadToken(dir)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)

	info, err := os.Stat(filepath.Join(dir, tokenFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(secretFilePermission), info.Mode().Perm())
}

func TestBuildRecord(t *testing.T) {
	rec, err := buildRecord(`{"brand":"KC Coconut","current_stock":12}`,
		[]string{"store_id=3", "available=true", "phone=0712345678", "note=two words", "current_stock=14"})
	require.NoError(t, err)

	assert.Equal(t, "KC Coconut", rec["brand"])
	assert.Equal(t, json.Number("3"), rec[domain.FieldStoreID])
	assert.Equal(t, true, rec["available"])
	assert.Equal(t, "0712345678", rec["phone"])
	assert.Equal(t, "two words", rec["note"])
	assert.Equal(t, json.Number("14"), rec["current_stock"])

	_, err = buildRecord("", []string{"novalue"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = buildRecord("{not json", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, json.Number("1.5"), parseValue("1.5"))
	assert.Equal(t, false, parseValue("false"))
	assert.Equal(t, "12abc", parseValue("12abc"))
	assert.Equal(t, "", parseValue(""))
}

func TestRecordAndImportCommands(t *testing.T) {
	dir := t.TempDir()
	exportPath := filepath.Join(dir, "stores.json")
	stores := []map[string]interface{}{{"id": 11, "name": "Kiosk A"}, {"id": 12, "name": "Kiosk B"}}
	b, err := json.Marshal(stores)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(exportPath, b, 0o600))

	run := func(args ...string) {
		t.Helper()
		rootCmd.SetArgs(append([]string{"--config-dir", dir}, args...))
		require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	}
	run("record", "availability", "store_id=11", "sku=KC-1")
	run("import", "stores", exportPath)

	s, err := localstore.Open(context.Background(), filepath.Join(dir, defaultDBFile), 0, localstore.Options{})
	require.NoError(t, err)
	defer s.Close()

	n, err := s.CountByIndex(context.Background(), localstore.CollAvailability, domain.FieldStoreID, 11)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.Get(context.Background(), localstore.CollStores, 12)
	require.NoError(t, err)
	assert.Equal(t, "Kiosk B", got[localstore.FieldName])
}

func TestDeviceID_StableAcrossLoads(t *testing.T) {
	dir := t.TempDir()

	first, err := loadDeviceID(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := loadDeviceID(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	info, err := os.Stat(filepath.Join(dir, deviceFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(secretFilePermission), info.Mode().Perm())
}
