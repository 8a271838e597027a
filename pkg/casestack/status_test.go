package casestack_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/casestack/pkg/casestack"
)

func TestShipmentStatus_String(t *testing.T) {
	assert.Equal(t, "Broker Approval Pending", casestack.BrokerApprovalPending.String())
	assert.Equal(t, "Ready to Tender", casestack.ReadyToTender.String())
	assert.Equal(t, "Tender Rejected by Rep", casestack.TenderRejectedByRep.String())
	assert.Equal(t, "Out for Delivery", casestack.OutForDelivery.String())
	assert.Equal(t, "Archived", casestack.Archived.String())
	assert.Equal(t, "ShipmentStatus(42)", casestack.ShipmentStatus(42).String())
}

func TestShipmentStatuses(t *testing.T) {
	statuses := casestack.ShipmentStatuses()
	require.Len(t, statuses, 23)
	assert.Equal(t, casestack.BrokerApprovalPending, statuses[0])
	assert.Equal(t, casestack.Archived, statuses[len(statuses)-1])

	seen := make(map[string]bool)
	for _, s := range statuses {
		assert.True(t, s.Valid())
		assert.False(t, seen[s.String()], "duplicate label %q", s.String())
		seen[s.String()] = true
	}
}

func TestParseShipmentStatus(t *testing.T) {
	for _, s := range casestack.ShipmentStatuses() {
		parsed, err := casestack.ParseShipmentStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	parsed, err := casestack.ParseShipmentStatus("  picked up ")
	require.NoError(t, err)
	assert.Equal(t, casestack.PickedUp, parsed)

	_, err = casestack.ParseShipmentStatus("Teleported")
	assert.ErrorIs(t, err, casestack.ErrInvalidArgument)
}

func TestShipmentStatus_Valid(t *testing.T) {
	assert.False(t, casestack.ShipmentStatus(-1).Valid())
	assert.False(t, casestack.ShipmentStatus(23).Valid())
	assert.True(t, casestack.Invoiced.Valid())
}
