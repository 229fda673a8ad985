package devicelist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/anicoll/winix-integration/internal/pkg/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id":"dev-1","mac":"aa:bb","alias":"Laundry","location_code":"KR","filter_replace_date":"2026-01-01","model":"DXJH","sw_version":"1.0.2"},
		{"id":"dev-2","mac":"cc:dd"}
	]`), 0o600))

	stubs, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []device.Stub{
		{ID: "dev-1", MAC: "aa:bb", Alias: "Laundry", LocationCode: "KR", FilterReplaceDate: "2026-01-01", Model: "DXJH", SWVersion: "1.0.2"},
		{ID: "dev-2", MAC: "cc:dd", Alias: "cc:dd"},
	}, stubs)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseInvalid(t *testing.T) {
	tests := map[string]struct {
		data string
		err  error
	}{
		"missing id":      {data: `[{"mac":"aa"}]`, err: ErrMissingID},
		"duplicate id":    {data: `[{"id":"a","mac":"aa"},{"id":"a","mac":"bb"}]`, err: ErrDuplicateID},
		"same alias":      {data: `[{"id":"a","alias":"Dehumidifier"},{"id":"b","alias":"Dehumidifier"}]`, err: ErrDuplicateSlug},
		"same slug":       {data: `[{"id":"a","alias":"Laundry Room"},{"id":"b","alias":"laundry-room"}]`, err: ErrDuplicateSlug},
		"alias as mac":    {data: `[{"id":"a","alias":"aa:bb"},{"id":"b","mac":"aa:bb"}]`, err: ErrDuplicateSlug},
		"symbols only":    {data: `[{"id":"a","alias":"!!!"}]`, err: ErrEmptySlug},
		"no alias or mac": {data: `[{"id":"a"}]`, err: ErrEmptySlug},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	_, err := Parse([]byte(`{"id":"a"}`))
	assert.Error(t, err)
}
