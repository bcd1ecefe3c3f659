package generator

import (
	"fmt"

	"github.com/manifest-network/stxgen/internal/models"
)

const (
	// TransactionsPerBlock is the number of transactions attached to every block.
	TransactionsPerBlock = 4

	// DefaultBurnHeightOffset keeps replayed burn heights ahead of stacks heights.
	DefaultBurnHeightOffset = 100

	// ParentMicroblock is the zero microblock reference every block points to.
	ParentMicroblock = "0x0000000000000000000000000000000000000000000000000000000000000000"

	transactionStatus    = "success"
	transactionRawResult = "0x0703"
	transactionRawTx     = "0x00000000010400e2cd0871da5bdd38c4d5569493dc3b14aac4e0a10000000000000019000000000000000000008373b16e4a6f9d87864c314dd77bbd8b27a2b1805e96ec5a6509e7e4f833cd6a7bdb2462c95f6968a867ab6b0e8f0a6498e600dbc46cfe9f84c79709da7b9637010200000000040000000000000000000000000000000000000000000000000000000000000000"
)

// HeightToHash maps a height to a fixed-width, 0x prefixed synthetic hash.
// Distinct heights always map to distinct hashes.
func HeightToHash(height uint64) string {
	return fmt.Sprintf("0x%064d", height)
}

// parentHeight returns height-1, or 0 for genesis.
func parentHeight(height uint64) uint64 {
	if height == 0 {
		return 0
	}
	return height - 1
}

// TransactionID returns the synthetic id of the transaction at index.
func TransactionID(index uint64) string {
	return fmt.Sprintf("transaction_id_%d", index)
}

// NewTransaction builds the successful placeholder transaction at index.
func NewTransaction(index uint64) models.Transaction {
	return models.Transaction{
		TxID:      TransactionID(index),
		TxIndex:   index,
		Status:    transactionStatus,
		RawResult: transactionRawResult,
		RawTx:     transactionRawTx,
	}
}

// NewEvents builds one event of every kind, attached to the transaction at
// txIndex and numbered in the order of models.EventKinds.
func NewEvents(txIndex uint64) []models.Event {
	payloads := []models.EventPayload{
		models.STXTransferEvent{Amount: "1"},
		models.STXMintEvent{Amount: "1"},
		models.STXBurnEvent{Amount: "1"},
		models.STXLockEvent{LockedAmount: "1"},
		models.NFTTransferEvent{},
		models.NFTMintEvent{},
		models.NFTBurnEvent{},
		models.FTTransferEvent{Amount: "1"},
		models.FTMintEvent{Amount: "1"},
		models.FTBurnEvent{Amount: "1"},
		models.SmartContractEvent{Topic: "print"},
	}

	events := make([]models.Event, 0, len(payloads))
	for i, payload := range payloads {
		events = append(events, models.Event{
			TxID:       TransactionID(txIndex),
			Committed:  false,
			EventIndex: uint32(i),
			Payload:    payload,
		})
	}
	return events
}

// NewStacksBlock synthesizes the block at height anchored to burnHeight.
// The result only depends on its arguments.
func NewStacksBlock(height, burnHeight uint64) *models.Block {
	parent := parentHeight(height)
	parentBurn := parentHeight(burnHeight)

	transactions := make([]models.Transaction, 0, TransactionsPerBlock)
	for i := uint64(0); i < TransactionsPerBlock; i++ {
		transactions = append(transactions, NewTransaction(i))
	}

	return &models.Block{
		BlockHeight:              height,
		BlockHash:                HeightToHash(height),
		IndexBlockHash:           HeightToHash(height),
		BurnBlockHeight:          burnHeight,
		BurnBlockHash:            HeightToHash(burnHeight),
		ParentBlockHash:          HeightToHash(parent),
		ParentIndexBlockHash:     HeightToHash(parent),
		ParentMicroblock:         ParentMicroblock,
		ParentMicroblockSequence: 0,
		ParentBurnBlockHash:      HeightToHash(parentBurn),
		ParentBurnBlockHeight:    parentBurn,
		ParentBurnBlockTimestamp: 0,
		Transactions:             transactions,
		Events:                   NewEvents(0),
		MaturedMinerRewards:      []models.MaturedMinerReward{},
	}
}

// NewBurnBlock synthesizes the burn block at burnHeight.
func NewBurnBlock(burnHeight uint64) *models.BurnBlock {
	return &models.BurnBlock{
		BurnBlockHash:     HeightToHash(burnHeight),
		BurnBlockHeight:   burnHeight,
		RewardRecipients:  []models.RewardParticipant{},
		RewardSlotHolders: []string{},
		BurnAmount:        0,
	}
}
