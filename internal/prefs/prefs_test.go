package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"howett.net/plist"
)

func TestNative_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.plist")
	in := map[string]any{
		"WebKitDNSPrefetchingEnabled": false,
		"WebKitHistoryItemLimit":      1000,
		"HomePage":                    "https://kagi.com",
	}

	codec := Native{}
	require.NoError(t, codec.Write(context.Background(), path, in))

	got, err := codec.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, false, got["WebKitDNSPrefetchingEnabled"])
	assert.Equal(t, "https://kagi.com", got["HomePage"])
	assert.True(t, Equal(got["WebKitHistoryItemLimit"], 1000))
}

func TestNative_ReadsXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.plist")
	data, err := plist.Marshal(map[string]any{"WebKitPageCacheEnabled": true}, plist.XMLFormat)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	got, err := Native{}.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, true, got["WebKitPageCacheEnabled"])

	require.NoError(t, Native{}.Write(context.Background(), path, got))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "permissions survive a rewrite")
}

func TestNative_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Native{}.Read(context.Background(), filepath.Join(dir, "missing.plist"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	garbage := filepath.Join(dir, "garbage.plist")
	require.NoError(t, os.WriteFile(garbage, []byte("{ HomePage = "), 0o644))
	_, err = Native{}.Read(context.Background(), garbage)
	assert.Error(t, err)
}

func TestPlutil_Commands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preferences.plist")
	require.NoError(t, os.WriteFile(path, []byte("binary"), 0o644))

	var gotArgs [][]string
	var gotStdin []byte
	p := &Plutil{run: func(_ context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
		gotArgs = append(gotArgs, append([]string{name}, args...))
		if stdin != nil {
			gotStdin = stdin
			return nil, nil
		}
		return []byte(`{"WebKitHistoryItemLimit": 500, "WebKitJavaEnabled": false}`), nil
	}}

	values, err := p.Read(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, Equal(values["WebKitHistoryItemLimit"], 500))

	values["WebKitHistoryItemLimit"] = 1000
	require.NoError(t, p.Write(context.Background(), path, values))

	assert.Equal(t, []string{"plutil", "-convert", "json", "-o", "-", path}, gotArgs[0])
	assert.Equal(t, []string{"plutil", "-convert", "binary1", "-o", path, "-"}, gotArgs[1])

	var written map[string]any
	require.NoError(t, json.Unmarshal(gotStdin, &written))
	assert.EqualValues(t, 1000, written["WebKitHistoryItemLimit"])
}

func TestPlutil_MissingFile(t *testing.T) {
	p := &Plutil{run: func(context.Context, []byte, string, ...string) ([]byte, error) {
		t.Fatal("plutil must not run for a missing file")
		return nil, nil
	}}
	_, err := p.Read(context.Background(), filepath.Join(t.TempDir(), "none.plist"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestNew(t *testing.T) {
	assert.IsType(t, Native{}, New("native"))
	assert.IsType(t, Native{}, New(""))
	assert.IsType(t, &Plutil{}, New("plutil"))
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{name: "uint64 vs int", a: uint64(1000), b: 1000, want: true},
		{name: "float64 vs int64", a: float64(5), b: int64(5), want: true},
		{name: "json number", a: json.Number("2"), b: 2, want: true},
		{name: "different numbers", a: 1, b: 2, want: false},
		{name: "bools", a: true, b: true, want: true},
		{name: "true vs one", a: true, b: 1, want: true},
		{name: "stored one vs true", a: uint64(1), b: true, want: true},
		{name: "zero vs false", a: 0, b: false, want: true},
		{name: "true vs two", a: true, b: 2, want: false},
		{name: "false vs one", a: false, b: int64(1), want: false},
		{name: "bool vs string", a: true, b: "true", want: false},
		{name: "strings", a: "x", b: "x", want: true},
		{name: "nil vs false", a: nil, b: false, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestTruthyAndFormat(t *testing.T) {
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(false))
	assert.False(t, Truthy(uint64(0)))
	assert.True(t, Truthy(true))
	assert.True(t, Truthy(2.5))
	assert.False(t, Truthy(""))
	assert.False(t, Truthy([]any{}))

	assert.Equal(t, "Not set", Format(nil))
	assert.Equal(t, "1000", Format(uint64(1000)))
	assert.Equal(t, "false", Format(false))

	n, ok := Number(int64(3))
	assert.True(t, ok)
	assert.Equal(t, 3.0, n)
}
