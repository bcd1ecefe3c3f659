package generator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manifest-network/stxgen/internal/models"
)

func TestHeightToHash(t *testing.T) {
	cases := []struct {
		height uint64
		want   string
	}{
		{0, "0x0000000000000000000000000000000000000000000000000000000000000000"},
		{1, "0x0000000000000000000000000000000000000000000000000000000000000001"},
		{105, "0x0000000000000000000000000000000000000000000000000000000000000105"},
		{18446744073709551615, "0x0000000000000000000000000000000000000000000018446744073709551615"},
	}

	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			got := HeightToHash(tc.height)
			assert.Equal(t, tc.want, got)
			assert.Len(t, got, 66)
		})
	}
}

func TestHeightToHashIsInjective(t *testing.T) {
	seen := make(map[string]uint64)
	for height := uint64(0); height < 10_000; height++ {
		hash := HeightToHash(height)
		previous, ok := seen[hash]
		require.False(t, ok, "heights %d and %d share hash %s", previous, height, hash)
		seen[hash] = height
	}
}

func TestNewStacksBlockIsDeterministic(t *testing.T) {
	for _, height := range []uint64{0, 1, 42, 1_000_000} {
		first, err := json.Marshal(NewStacksBlock(height, height+DefaultBurnHeightOffset))
		require.NoError(t, err)
		second, err := json.Marshal(NewStacksBlock(height, height+DefaultBurnHeightOffset))
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestNewStacksBlockParentLinkage(t *testing.T) {
	cases := []struct {
		name           string
		height         uint64
		burnHeight     uint64
		wantParent     uint64
		wantParentBurn uint64
	}{
		{name: "genesis self-parents", height: 0, burnHeight: 0, wantParent: 0, wantParentBurn: 0},
		{name: "first block", height: 1, burnHeight: 101, wantParent: 0, wantParentBurn: 100},
		{name: "burn genesis", height: 7, burnHeight: 0, wantParent: 6, wantParentBurn: 0},
		{name: "later block", height: 250, burnHeight: 350, wantParent: 249, wantParentBurn: 349},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			block := NewStacksBlock(tc.height, tc.burnHeight)
			assert.Equal(t, tc.height, block.BlockHeight)
			assert.Equal(t, HeightToHash(tc.height), block.BlockHash)
			assert.Equal(t, HeightToHash(tc.height), block.IndexBlockHash)
			assert.Equal(t, HeightToHash(tc.burnHeight), block.BurnBlockHash)
			assert.Equal(t, HeightToHash(tc.wantParent), block.ParentBlockHash)
			assert.Equal(t, HeightToHash(tc.wantParent), block.ParentIndexBlockHash)
			assert.Equal(t, HeightToHash(tc.wantParentBurn), block.ParentBurnBlockHash)
			assert.Equal(t, tc.wantParentBurn, block.ParentBurnBlockHeight)
			assert.Equal(t, ParentMicroblock, block.ParentMicroblock)
			assert.Zero(t, block.ParentMicroblockSequence)
			assert.Zero(t, block.ParentBurnBlockTimestamp)
		})
	}
}

func TestNewStacksBlockTransactions(t *testing.T) {
	block := NewStacksBlock(3, 103)

	require.Len(t, block.Transactions, 4)
	for i, tx := range block.Transactions {
		assert.Equal(t, uint64(i), tx.TxIndex)
		assert.Equal(t, TransactionID(uint64(i)), tx.TxID)
		assert.Equal(t, "success", tx.Status)
		assert.Equal(t, "0x0703", tx.RawResult)
		assert.NotEmpty(t, tx.RawTx)
		assert.Nil(t, tx.ExecutionCost)
		assert.Nil(t, tx.ContractABI)
	}
}

// Checked on the encoded form, since that is what the indexer dispatches on.
func TestNewStacksBlockEventsAreCompleteAndExclusive(t *testing.T) {
	data, err := json.Marshal(NewStacksBlock(9, 109))
	require.NoError(t, err)

	var block struct {
		Events []map[string]json.RawMessage `json:"events"`
	}
	require.NoError(t, json.Unmarshal(data, &block))
	require.Len(t, block.Events, len(models.EventKinds))

	slots := []string{
		"stx_transfer_event", "stx_mint_event", "stx_burn_event", "stx_lock_event",
		"nft_transfer_event", "nft_mint_event", "nft_burn_event",
		"ft_transfer_event", "ft_mint_event", "ft_burn_event",
		"data_var_set_event", "data_map_insert_event", "data_map_update_event", "data_map_delete_event",
		"contract_event",
	}

	seen := make(map[string]bool)
	for i, event := range block.Events {
		var eventType string
		require.NoError(t, json.Unmarshal(event["event_type"], &eventType))
		assert.Equal(t, string(models.EventKinds[i]), eventType)
		assert.False(t, seen[eventType], "duplicate event type %s", eventType)
		seen[eventType] = true

		var populated []string
		for _, slot := range slots {
			raw, ok := event[slot]
			require.True(t, ok, "event %d is missing slot %s", i, slot)
			if string(raw) != "null" {
				populated = append(populated, slot)
			}
		}
		assert.Equal(t, []string{models.EventKind(eventType).Slot()}, populated)
	}
}

func TestNewEventsPlaceholderValues(t *testing.T) {
	events := NewEvents(0)
	require.Len(t, events, 11)

	want := []models.EventPayload{
		models.STXTransferEvent{Sender: "", Recipient: "", Amount: "1"},
		models.STXMintEvent{Recipient: "", Amount: "1"},
		models.STXBurnEvent{Sender: "", Amount: "1"},
		models.STXLockEvent{LockedAmount: "1", UnlockHeight: "", LockedAddress: ""},
		models.NFTTransferEvent{},
		models.NFTMintEvent{},
		models.NFTBurnEvent{},
		models.FTTransferEvent{Amount: "1"},
		models.FTMintEvent{Amount: "1"},
		models.FTBurnEvent{Amount: "1"},
		models.SmartContractEvent{Topic: "print"},
	}
	for i, event := range events {
		assert.Equal(t, want[i], event.Payload)
		assert.Equal(t, uint32(i), event.EventIndex)
		assert.Equal(t, "transaction_id_0", event.TxID)
		assert.False(t, event.Committed)
	}
}

func TestNewStacksBlockScenario(t *testing.T) {
	block := NewStacksBlock(5, 105)

	assert.Equal(t, uint64(5), block.BlockHeight)
	assert.Equal(t, uint64(105), block.BurnBlockHeight)
	assert.Equal(t, HeightToHash(4), block.ParentBlockHash)
	assert.Equal(t, HeightToHash(104), block.ParentBurnBlockHash)
	assert.Len(t, block.Transactions, 4)
	assert.Len(t, block.Events, 11)
	assert.NotNil(t, block.MaturedMinerRewards)
	assert.Empty(t, block.MaturedMinerRewards)
}

func TestNewBurnBlock(t *testing.T) {
	block := NewBurnBlock(104)

	data, err := json.Marshal(block)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"burn_block_hash": "0x0000000000000000000000000000000000000000000000000000000000000104",
		"burn_block_height": 104,
		"reward_recipients": [],
		"reward_slot_holders": [],
		"burn_amount": 0
	}`, string(data))
}
