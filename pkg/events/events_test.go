package events

import (
	"encoding/json"
	"testing"

	"github.com/atsflow/atsflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerReceived_Validate(t *testing.T) {
	tests := []struct {
		name    string
		event   *TriggerReceived
		wantErr bool
	}{
		{
			name:  "valid_event",
			event: NewTriggerReceived("org-1", "application_created", "application", "app-1", nil),
		},
		{
			name:    "missing_organization",
			event:   NewTriggerReceived("", "application_created", "application", "app-1", nil),
			wantErr: true,
		},
		{
			name:    "missing_entity_id",
			event:   NewTriggerReceived("org-1", "application_created", "application", "", nil),
			wantErr: true,
		},
		{
			name:    "missing_trigger_type",
			event:   NewTriggerReceived("org-1", "", "application", "app-1", nil),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewTriggerReceived_DefaultsPayload(t *testing.T) {
	event := NewTriggerReceived("org-1", "offer_created", "application", "app-1", nil)

	assert.NotNil(t, event.Payload)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, TriggerReceivedEvent, event.GetType())
	assert.Equal(t, TriggerReceivedEvent, event.Type)
}

func TestSLAViolationOpened_CarriesRule(t *testing.T) {
	rule := &models.SLARule{ID: "rule-1", Name: "First review", Type: models.SLATimeToFirstReview}
	violation := &models.Violation{ID: "v-1", OrganizationID: "org-1", RuleID: "rule-1", EntityID: "app-1"}

	event := NewSLAViolationOpened(rule, violation, []string{"lead@example.com"})

	data, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"rule_name":"First review"`)
	assert.Contains(t, string(data), `"organization_id":"org-1"`)
	assert.Equal(t, SLAViolationOpenedEvent, event.GetType())
}
