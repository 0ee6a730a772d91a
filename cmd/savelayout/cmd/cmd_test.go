package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/savelayout/pkg/api"
	"github.com/ssargent/savelayout/pkg/codec"
	"github.com/ssargent/savelayout/pkg/config"
	"github.com/ssargent/savelayout/pkg/di"
	"github.com/ssargent/savelayout/pkg/dq3"
	"github.com/ssargent/savelayout/pkg/journal"
	"github.com/ssargent/savelayout/pkg/memmap"
	"github.com/ssargent/savelayout/pkg/memory"
)

type testEnv struct {
	dir        string
	configPath string
	cfg        *config.Config
}

func heroBytes(t *testing.T) []byte {
	t.Helper()
	buf, err := codec.Encode(dq3.Character, codec.NewRecord(map[string]codec.Value{
		"Level": codec.UintValue(12), "LevelFlag": codec.UintValue(0),
		"XP": codec.UintValue(4000), "HPMax": codec.UintValue(90), "HP": codec.UintValue(85),
		"MPMax": codec.UintValue(30), "MP": codec.UintValue(22),
		"Strength": codec.UintValue(40), "Agility": codec.UintValue(35), "Stamina": codec.UintValue(44),
		"Wisdom": codec.UintValue(20), "Luck": codec.UintValue(18),
		"Name": codec.StringValue("ROTO"), "Spells": codec.UintValue(0x05),
		"EquippedCount": codec.UintValue(3), "CarriedCount": codec.UintValue(5),
		"BagItems": codec.BytesValue([]byte{0x01, 0x02}),
	}))
	require.NoError(t, err)
	return buf
}

// setupTestEnv writes a config and a work-RAM image holding a valid hero
func setupTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Memory.Path = filepath.Join(dir, "wram.bin")
	cfg.Journal.Dir = filepath.Join(dir, "journal")
	cfg.Logging.Level = "error"
	for _, m := range mutate {
		m(cfg)
	}
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.SaveConfig(cfg, configPath))

	f, err := memory.CreateFile(cfg.Memory.Path, WorkRAMSize)
	require.NoError(t, err)
	require.NoError(t, f.WriteAt(heroBytes(t), dq3.HeroBase))
	require.NoError(t, f.Close())

	SetContainer(di.NewContainer())
	return &testEnv{dir: dir, configPath: configPath, cfg: cfg}
}

func (e *testEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	root := NewRootCmd()
	root.SetArgs(append(args, "--config", e.configPath))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (e *testEnv) decodeJSON(t *testing.T, region string) map[string]any {
	t.Helper()
	out, _, err := e.run(t, "decode", region, "--json")
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &fields))
	return fields
}

func TestRoot_NoContainer(t *testing.T) {
	env := setupTestEnv(t)
	SetContainer(nil)

	_, _, err := env.run(t, "regions")
	assert.EqualError(t, err, "dependency container not initialized")
}

func TestRoot_InvalidConfig(t *testing.T) {
	env := setupTestEnv(t, func(c *config.Config) { c.Memory.Backend = "tape" })

	_, _, err := env.run(t, "regions")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memory.backend")
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "savelayout", "config.yaml")
	memPath := filepath.Join(dir, "dq3.wram")
	SetContainer(di.NewContainer())

	run := func(t *testing.T, args ...string) string {
		t.Helper()
		var out bytes.Buffer
		root := NewRootCmd()
		root.SetArgs(append([]string{"init", "--config", configPath}, args...))
		root.SetOut(&out)
		require.NoError(t, root.Execute())
		return out.String()
	}

	t.Run("bootstrap", func(t *testing.T) {
		out := run(t, "--memory-path", memPath, "--create-image", "--print-key")
		assert.Contains(t, out, "Configuration created")
		assert.Contains(t, out, "Created 131072-byte work-RAM image")

		cfg, err := config.LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, memPath, cfg.Memory.Path)
		assert.Len(t, cfg.Server.APIKey, 64)
		assert.Contains(t, out, cfg.Server.APIKey)

		info, err := os.Stat(memPath)
		require.NoError(t, err)
		assert.Equal(t, int64(WorkRAMSize), info.Size())
	})

	t.Run("existing config is kept", func(t *testing.T) {
		before, err := config.LoadConfig(configPath)
		require.NoError(t, err)

		out := run(t)
		assert.Contains(t, out, "already exists")

		after, err := config.LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, before.Server.APIKey, after.Server.APIKey)
	})

	t.Run("force keeps an existing image", func(t *testing.T) {
		require.NoError(t, os.WriteFile(memPath, bytes.Repeat([]byte{0xAA}, WorkRAMSize), 0o644))

		out := run(t, "--force", "--memory-path", memPath, "--create-image")
		assert.Contains(t, out, "Configuration created")
		assert.NotContains(t, out, "work-RAM image")

		raw, err := os.ReadFile(memPath)
		require.NoError(t, err)
		assert.Equal(t, byte(0xAA), raw[0])
	})
}

func TestRegionsCommand(t *testing.T) {
	env := setupTestEnv(t)

	out, _, err := env.run(t, "regions")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 14)
	assert.Contains(t, lines[0], "REGION")
	assert.Contains(t, lines[1], "Inventory")
	assert.Contains(t, lines[2], "$3925")
	assert.Contains(t, lines[13], "PartyMember_12")

	out, _, err = env.run(t, "regions", "--json")
	require.NoError(t, err)
	var docs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	assert.Len(t, docs, 13)
}

func TestDecodeCommand(t *testing.T) {
	env := setupTestEnv(t)

	out, _, err := env.run(t, "decode", "Hero")
	require.NoError(t, err)
	assert.Contains(t, out, `"ROTO"`)
	assert.Contains(t, out, "$392C")
	assert.Contains(t, out, "uint8:7@1")

	fields := env.decodeJSON(t, "Hero")
	assert.Equal(t, float64(85), fields["HP"])
	assert.Equal(t, "ROTO", fields["Name"])

	out, _, err = env.run(t, "decode", "Hero", "--raw")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "18 a0 0f 00 00 5a 00 55 00"), out)
}

func TestDecodeCommand_Errors(t *testing.T) {
	env := setupTestEnv(t)

	_, _, err := env.run(t, "decode", "Nobody")
	assert.ErrorIs(t, err, memmap.ErrUnknownRegion)

	_, _, err = env.run(t, "decode", "PartyMember_2")
	assert.ErrorIs(t, err, codec.ErrMalformedString)

	_, _, err = env.run(t, "decode")
	assert.Error(t, err)
}

func TestSetCommand(t *testing.T) {
	env := setupTestEnv(t)

	out, _, err := env.run(t, "set", "Hero", "HP=90", "Name=ALEX", "Level=0x10")
	require.NoError(t, err)
	assert.Contains(t, out, `"ALEX"`)

	fields := env.decodeJSON(t, "Hero")
	assert.Equal(t, float64(90), fields["HP"])
	assert.Equal(t, float64(16), fields["Level"])
	assert.Equal(t, float64(4000), fields["XP"])

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"unknown region", []string{"Nobody", "HP=1"}, memmap.ErrUnknownRegion},
		{"unknown field", []string{"Hero", "Mana=1"}, codec.ErrUnknownField},
		{"not a number", []string{"Hero", "HP=lots"}, codec.ErrValueOutOfRange},
		{"out of range", []string{"Hero", "Level=128"}, codec.ErrValueOutOfRange},
		{"name too long", []string{"Hero", "Name=ALEXANDER"}, codec.ErrValueOutOfRange},
		{"missing equals", []string{"Hero", "HP"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.run(t, append([]string{"set"}, tt.args...)...)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}

	assert.Equal(t, float64(90), env.decodeJSON(t, "Hero")["HP"], "failed sets write nothing")
}

func TestHistoryAndRestore(t *testing.T) {
	env := setupTestEnv(t)

	out, _, err := env.run(t, "history", "Hero")
	require.NoError(t, err)
	assert.Contains(t, out, "No history for Hero")

	_, _, err = env.run(t, "set", "Hero", "HP=1")
	require.NoError(t, err)
	_, _, err = env.run(t, "set", "Hero", "HP=2")
	require.NoError(t, err)

	out, _, err = env.run(t, "history", "Hero")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4, "header, prior state and two writes")

	out, _, err = env.run(t, "history", "Hero", "--limit", "1")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)

	oldest := strings.Fields(lines[3])[0]
	out, _, err = env.run(t, "restore", "Hero", oldest)
	require.NoError(t, err)
	assert.Contains(t, out, "Restored Hero to "+oldest)
	assert.Equal(t, float64(85), env.decodeJSON(t, "Hero")["HP"])

	j, err := journal.Open(env.cfg.Journal.Dir)
	require.NoError(t, err)
	defer j.Close()
	latest, err := j.Latest("Hero")
	require.NoError(t, err)
	assert.Equal(t, heroBytes(t), latest.Data, "the restore is journaled")
}

func TestHistoryAndRestore_Errors(t *testing.T) {
	env := setupTestEnv(t)

	_, _, err := env.run(t, "history", "Nobody")
	assert.ErrorIs(t, err, memmap.ErrUnknownRegion)

	_, _, err = env.run(t, "restore", "Hero", "not-an-id")
	assert.ErrorContains(t, err, "invalid entry id")

	_, _, err = env.run(t, "restore", "Hero", "0ujtsYcgvSTl8PAuAdqWYSMnLOv")
	assert.ErrorIs(t, err, journal.ErrNotFound)

	disabled := setupTestEnv(t, func(c *config.Config) { c.Journal.Enabled = false })
	_, _, err = disabled.run(t, "history", "Hero")
	assert.ErrorIs(t, err, errJournalDisabled)
	_, _, err = disabled.run(t, "restore", "Hero", "0ujtsYcgvSTl8PAuAdqWYSMnLOv")
	assert.ErrorIs(t, err, errJournalDisabled)
}

func TestSchemaCommand(t *testing.T) {
	env := setupTestEnv(t)

	out, _, err := env.run(t, "schema", "Hero", "--format", "c")
	require.NoError(t, err)
	assert.Contains(t, out, "typedef struct")
	assert.Contains(t, out, "Spells")

	out, _, err = env.run(t, "schema", "companion", "--format", "json")
	require.NoError(t, err)
	var docs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "PartyMember_2", docs[0]["name"])

	headers := filepath.Join(env.dir, "headers")
	out, _, err = env.run(t, "schema", "--out", headers)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 13)
	assert.FileExists(t, filepath.Join(headers, "hero.h"))

	_, _, err = env.run(t, "schema", "Dragon")
	assert.ErrorIs(t, err, memmap.ErrUnknownRegion)
	_, _, err = env.run(t, "schema", "Hero", "--format", "pdf")
	assert.Error(t, err)
}

const sampleLabels = `SnesWorkRam:3925:Hero_Level:Hero - Level
SnesWorkRam:3926-3929:Hero_XP:Hero - XP
SnesWorkRam:3937-393B:Hero_Name:Hero - Name, 4 characters max, ends in AC
SnesWorkRam:3725-3824:Bag_Items:Each byte is which item is in bag slot
PrgRom:8000:Reset:reset vector
`

func TestLabelsCommand(t *testing.T) {
	env := setupTestEnv(t)
	path := filepath.Join(env.dir, "dq3.mlb")
	require.NoError(t, os.WriteFile(path, []byte(sampleLabels), 0o644))

	out, errOut, err := env.run(t, "labels", path)
	require.NoError(t, err)
	assert.Contains(t, errOut, "4 labels in 2 regions, 1 lines skipped")
	assert.Contains(t, out, "Hero")
	assert.Contains(t, out, "Inventory")

	out, _, err = env.run(t, "regions", "--labels", path)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 3)

	_, _, err = env.run(t, "labels", filepath.Join(env.dir, "missing.mlb"))
	assert.Error(t, err)
}

type capturingStarter struct {
	srv *api.Server
}

func (c *capturingStarter) StartServer(ctx context.Context, srv *api.Server) error {
	c.srv = srv
	return nil
}

type capturingFactory struct {
	starter *capturingStarter
}

func (f capturingFactory) CreateServerStarter() api.ServerStarter {
	return f.starter
}

func TestServeCommand(t *testing.T) {
	env := setupTestEnv(t)
	starter := &capturingStarter{}
	container.SetServerFactory(capturingFactory{starter: starter})

	out, _, err := env.run(t, "serve", "--port", "9123", "--bind", "0.0.0.0")
	require.NoError(t, err)
	require.NotNil(t, starter.srv)
	assert.Equal(t, "0.0.0.0:9123", starter.srv.Addr())
	assert.Contains(t, out, "Generated API key")

	out, _, err = env.run(t, "serve", "--api-key", "secret")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", starter.srv.Addr())
	assert.NotContains(t, out, "Generated API key")
}
