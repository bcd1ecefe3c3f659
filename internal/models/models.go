package models

import (
	"encoding/json"
	"fmt"
)

// Block represents a Stacks block as announced by a node on /new_block.
type Block struct {
	BlockHeight              uint64               `json:"block_height"`
	BlockHash                string               `json:"block_hash"`
	IndexBlockHash           string               `json:"index_block_hash"`
	BurnBlockHeight          uint64               `json:"burn_block_height"`
	BurnBlockHash            string               `json:"burn_block_hash"`
	ParentBlockHash          string               `json:"parent_block_hash"`
	ParentIndexBlockHash     string               `json:"parent_index_block_hash"`
	ParentMicroblock         string               `json:"parent_microblock"`
	ParentMicroblockSequence uint64               `json:"parent_microblock_sequence"`
	ParentBurnBlockHash      string               `json:"parent_burn_block_hash"`
	ParentBurnBlockHeight    uint64               `json:"parent_burn_block_height"`
	ParentBurnBlockTimestamp int64                `json:"parent_burn_block_timestamp"`
	Transactions             []Transaction        `json:"transactions"`
	Events                   []Event              `json:"events"`
	MaturedMinerRewards      []MaturedMinerReward `json:"matured_miner_rewards"`
}

// Transaction represents a transaction carried by a Block.
type Transaction struct {
	TxID          string           `json:"txid"`
	TxIndex       uint64           `json:"tx_index"`
	Status        string           `json:"status"`
	RawResult     string           `json:"raw_result"`
	RawTx         string           `json:"raw_tx"`
	ExecutionCost *ExecutionCost   `json:"execution_cost"`
	ContractABI   *json.RawMessage `json:"contract_abi"`
}

// ExecutionCost is the Clarity cost of a transaction.
type ExecutionCost struct {
	ReadCount   uint64 `json:"read_count"`
	ReadLength  uint64 `json:"read_length"`
	Runtime     uint64 `json:"runtime"`
	WriteCount  uint64 `json:"write_count"`
	WriteLength uint64 `json:"write_length"`
}

// MaturedMinerReward is a coinbase reward that matured in a block.
type MaturedMinerReward struct {
	FromIndexConsensusHash  string `json:"from_index_consensus_hash"`
	FromStacksBlockHash     string `json:"from_stacks_block_hash"`
	Recipient               string `json:"recipient"`
	CoinbaseAmount          string `json:"coinbase_amount"`
	TxFeesAnchored          string `json:"tx_fees_anchored"`
	TxFeesStreamedConfirmed string `json:"tx_fees_streamed_confirmed"`
	TxFeesStreamedProduced  string `json:"tx_fees_streamed_produced"`
}

// BurnBlock represents a burn-chain block as announced on /new_burn_block.
type BurnBlock struct {
	BurnBlockHash     string              `json:"burn_block_hash"`
	BurnBlockHeight   uint64              `json:"burn_block_height"`
	RewardRecipients  []RewardParticipant `json:"reward_recipients"`
	RewardSlotHolders []string            `json:"reward_slot_holders"`
	BurnAmount        uint64              `json:"burn_amount"`
}

// RewardParticipant is a PoX reward recipient of a burn block.
type RewardParticipant struct {
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amt"`
}

// RecordKind discriminates the payload carried by a Record.
type RecordKind string

const (
	// StacksBlockReceived records carry a JSON encoded Block.
	StacksBlockReceived RecordKind = "stacks_block_received"
)

var recordKinds = map[RecordKind]bool{
	StacksBlockReceived: true,
}

// HasPayload reports whether records of this kind carry a blob.
func (k RecordKind) HasPayload() bool {
	switch k {
	case StacksBlockReceived:
		return true
	default:
		return false
	}
}

// ParseRecordKind maps a canonical tag back to its RecordKind.
func ParseRecordKind(tag string) (RecordKind, error) {
	kind := RecordKind(tag)
	if !recordKinds[kind] {
		return "", fmt.Errorf("unknown record kind %q", tag)
	}
	return kind, nil
}

// Record is one ingested chain-state notification in a replay log.
type Record struct {
	ID        uint64
	CreatedAt string
	Kind      RecordKind
	Blob      *string
}
