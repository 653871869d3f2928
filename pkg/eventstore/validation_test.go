package eventstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAppendArgs(t *testing.T) {
	validEvents := []InputEvent{{Type: "AccountOpened", Data: []byte(`{}`)}}

	cases := []struct {
		name    string
		tenant  string
		agg     string
		aggType string
		version int
		events  []InputEvent
		wantErr bool
	}{
		{"valid", "t1", "a1", "Account", 0, validEvents, false},
		{"empty tenant", "", "a1", "Account", 0, validEvents, true},
		{"empty aggregate", "t1", "", "Account", 0, validEvents, true},
		{"empty aggregate type", "t1", "a1", "", 0, validEvents, true},
		{"negative version", "t1", "a1", "Account", -1, validEvents, true},
		{"no events", "t1", "a1", "Account", 0, nil, true},
		{"event with empty type", "t1", "a1", "Account", 0, []InputEvent{{Type: "", Data: []byte(`{}`)}}, true},
		{"event with empty data", "t1", "a1", "Account", 0, []InputEvent{{Type: "X", Data: nil}}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateAppendArgs(tc.tenant, tc.agg, tc.aggType, tc.version, tc.events)
			if tc.wantErr {
				assert.Error(t, err)
				assert.True(t, IsValidationError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateLoadArgs(t *testing.T) {
	assert.NoError(t, validateLoadArgs("t1", "a1", "Account"))
	assert.Error(t, validateLoadArgs("", "a1", "Account"))
	assert.Error(t, validateLoadArgs("t1", "", "Account"))
	assert.Error(t, validateLoadArgs("t1", "a1", ""))
}
