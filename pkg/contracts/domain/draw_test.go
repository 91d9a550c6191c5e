package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSourceName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		region    string
		slot      SlotClass
		timeOfDay string
		wantErr   bool
	}{
		{
			name:   "slotted evening source",
			input:  "DC-4_TODeve_750pm_dat",
			region: "DC", slot: SlotEve, timeOfDay: "750pm",
		},
		{
			name:   "slotted midday source",
			input:  "NY-4_TODmid_Midday_dat",
			region: "NY", slot: SlotMid, timeOfDay: "midday",
		},
		{
			name:   "single draw source",
			input:  "CA_Daily_4_dat",
			region: "CA", slot: SlotNone,
		},
		{
			name:   "tri-state region",
			input:  "ME_NH_VT-4_TODeve_Evening_dat",
			region: "ME_NH_VT", slot: SlotEve, timeOfDay: "evening",
		},
		{
			name:   "csv suffix stripped",
			input:  "DC-4_TODeve_750pm_dat.csv",
			region: "DC", slot: SlotEve, timeOfDay: "750pm",
		},
		{
			name:    "empty name",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseSourceName(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.region, id.Region)
			assert.Equal(t, tt.slot, id.Slot)
			assert.Equal(t, tt.timeOfDay, id.TimeOfDay)
		})
	}
}

func TestDigitsValid(t *testing.T) {
	assert.True(t, Digits{0, 0, 0, 0}.Valid())
	assert.True(t, Digits{9, 9, 9, 9}.Valid())
	assert.False(t, Digits{0, 10, 0, 0}.Valid())
	assert.False(t, Digits{-1, 0, 0, 0}.Valid())
}

func TestDigitsString(t *testing.T) {
	assert.Equal(t, "7631", Digits{7, 6, 3, 1}.String())
	assert.Equal(t, "0004", Digits{0, 0, 0, 4}.String())
}

func TestDrawRecordValidate(t *testing.T) {
	valid := DrawRecord{
		Date:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Digits: Digits{1, 2, 3, 4},
	}
	require.NoError(t, valid.Validate())

	assert.Error(t, DrawRecord{Digits: Digits{1, 2, 3, 4}}.Validate())

	bad := valid
	bad.Digits = Digits{1, 2, 3, 12}
	assert.Error(t, bad.Validate())
}

func TestNormalizeDate(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	west := time.Date(2024, 3, 1, 22, 15, 0, 0, loc)
	east := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)

	assert.Equal(t, NormalizeDate(west), NormalizeDate(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, NormalizeDate(west), NormalizeDate(east))
}
