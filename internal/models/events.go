package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EventKind is the type tag the indexer dispatches events on.
type EventKind string

// Event kinds, named as the indexer tags them.
const (
	EventKindSTXTransfer   EventKind = "stx_transfer"
	EventKindSTXMint       EventKind = "stx_mint"
	EventKindSTXBurn       EventKind = "stx_burn"
	EventKindSTXLock       EventKind = "stx_lock"
	EventKindNFTTransfer   EventKind = "nft_transfer"
	EventKindNFTMint       EventKind = "nft_mint"
	EventKindNFTBurn       EventKind = "nft_burn"
	EventKindFTTransfer    EventKind = "ft_transfer"
	EventKindFTMint        EventKind = "ft_mint"
	EventKindFTBurn        EventKind = "ft_burn"
	EventKindContractPrint EventKind = "smart_contract_print_event"
)

// EventKinds lists every event kind in the order blocks carry them.
var EventKinds = []EventKind{
	EventKindSTXTransfer,
	EventKindSTXMint,
	EventKindSTXBurn,
	EventKindSTXLock,
	EventKindNFTTransfer,
	EventKindNFTMint,
	EventKindNFTBurn,
	EventKindFTTransfer,
	EventKindFTMint,
	EventKindFTBurn,
	EventKindContractPrint,
}

// Slot returns the envelope field holding the payload of this kind.
func (k EventKind) Slot() string {
	if k == EventKindContractPrint {
		return "contract_event"
	}
	return string(k) + "_event"
}

// EventPayload is implemented by the payload of each event kind. The set of
// implementations is closed.
type EventPayload interface {
	Kind() EventKind
	isEventPayload()
}

// STXTransferEvent moves STX between two principals.
type STXTransferEvent struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// STXMintEvent credits newly minted STX to a recipient.
type STXMintEvent struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// STXBurnEvent destroys STX held by a sender.
type STXBurnEvent struct {
	Sender string `json:"sender"`
	Amount string `json:"amount"`
}

// STXLockEvent locks STX for stacking until UnlockHeight.
type STXLockEvent struct {
	LockedAmount  string `json:"locked_amount"`
	UnlockHeight  string `json:"unlock_height"`
	LockedAddress string `json:"locked_address"`
}

// NFTTransferEvent moves a non-fungible asset between two principals.
type NFTTransferEvent struct {
	AssetClassIdentifier string `json:"asset_class_identifier"`
	HexAssetIdentifier   string `json:"hex_asset_identifier"`
	Sender               string `json:"sender"`
	Recipient            string `json:"recipient"`
}

// NFTMintEvent creates a non-fungible asset owned by a recipient.
type NFTMintEvent struct {
	AssetClassIdentifier string `json:"asset_class_identifier"`
	HexAssetIdentifier   string `json:"hex_asset_identifier"`
	Recipient            string `json:"recipient"`
}

// NFTBurnEvent destroys a non-fungible asset held by a sender.
type NFTBurnEvent struct {
	AssetClassIdentifier string `json:"asset_class_identifier"`
	HexAssetIdentifier   string `json:"hex_asset_identifier"`
	Sender               string `json:"sender"`
}

// FTTransferEvent moves a fungible token amount between two principals.
type FTTransferEvent struct {
	AssetClassIdentifier string `json:"asset_class_identifier"`
	Sender               string `json:"sender"`
	Recipient            string `json:"recipient"`
	Amount               string `json:"amount"`
}

// FTMintEvent mints a fungible token amount to a recipient.
type FTMintEvent struct {
	AssetClassIdentifier string `json:"asset_class_identifier"`
	Recipient            string `json:"recipient"`
	Amount               string `json:"amount"`
}

// FTBurnEvent burns a fungible token amount held by a sender.
type FTBurnEvent struct {
	AssetClassIdentifier string `json:"asset_class_identifier"`
	Sender               string `json:"sender"`
	Amount               string `json:"amount"`
}

// SmartContractEvent is a print event emitted by a Clarity contract.
type SmartContractEvent struct {
	ContractIdentifier string `json:"contract_identifier"`
	Topic              string `json:"topic"`
	HexValue           string `json:"hex_value"`
}

func (STXTransferEvent) Kind() EventKind   { return EventKindSTXTransfer }
func (STXMintEvent) Kind() EventKind       { return EventKindSTXMint }
func (STXBurnEvent) Kind() EventKind       { return EventKindSTXBurn }
func (STXLockEvent) Kind() EventKind       { return EventKindSTXLock }
func (NFTTransferEvent) Kind() EventKind   { return EventKindNFTTransfer }
func (NFTMintEvent) Kind() EventKind       { return EventKindNFTMint }
func (NFTBurnEvent) Kind() EventKind       { return EventKindNFTBurn }
func (FTTransferEvent) Kind() EventKind    { return EventKindFTTransfer }
func (FTMintEvent) Kind() EventKind        { return EventKindFTMint }
func (FTBurnEvent) Kind() EventKind        { return EventKindFTBurn }
func (SmartContractEvent) Kind() EventKind { return EventKindContractPrint }

func (STXTransferEvent) isEventPayload()   {}
func (STXMintEvent) isEventPayload()       {}
func (STXBurnEvent) isEventPayload()       {}
func (STXLockEvent) isEventPayload()       {}
func (NFTTransferEvent) isEventPayload()   {}
func (NFTMintEvent) isEventPayload()       {}
func (NFTBurnEvent) isEventPayload()       {}
func (FTTransferEvent) isEventPayload()    {}
func (FTMintEvent) isEventPayload()        {}
func (FTBurnEvent) isEventPayload()        {}
func (SmartContractEvent) isEventPayload() {}

var payloadDecoders = map[EventKind]func([]byte) (EventPayload, error){
	EventKindSTXTransfer:   decodePayload[STXTransferEvent],
	EventKindSTXMint:       decodePayload[STXMintEvent],
	EventKindSTXBurn:       decodePayload[STXBurnEvent],
	EventKindSTXLock:       decodePayload[STXLockEvent],
	EventKindNFTTransfer:   decodePayload[NFTTransferEvent],
	EventKindNFTMint:       decodePayload[NFTMintEvent],
	EventKindNFTBurn:       decodePayload[NFTBurnEvent],
	EventKindFTTransfer:    decodePayload[FTTransferEvent],
	EventKindFTMint:        decodePayload[FTMintEvent],
	EventKindFTBurn:        decodePayload[FTBurnEvent],
	EventKindContractPrint: decodePayload[SmartContractEvent],
}

func decodePayload[T EventPayload](data []byte) (EventPayload, error) {
	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Event is a transaction event. Exactly one payload is attached; on the wire
// every other payload slot is null.
type Event struct {
	TxID       string
	Committed  bool
	EventIndex uint32
	Payload    EventPayload
}

// eventEnvelope is the wire shape of an Event.
type eventEnvelope struct {
	TxID               string          `json:"txid"`
	Committed          bool            `json:"committed"`
	EventIndex         uint32          `json:"event_index"`
	EventType          EventKind       `json:"event_type"`
	STXTransferEvent   json.RawMessage `json:"stx_transfer_event"`
	STXMintEvent       json.RawMessage `json:"stx_mint_event"`
	STXBurnEvent       json.RawMessage `json:"stx_burn_event"`
	STXLockEvent       json.RawMessage `json:"stx_lock_event"`
	NFTTransferEvent   json.RawMessage `json:"nft_transfer_event"`
	NFTMintEvent       json.RawMessage `json:"nft_mint_event"`
	NFTBurnEvent       json.RawMessage `json:"nft_burn_event"`
	FTTransferEvent    json.RawMessage `json:"ft_transfer_event"`
	FTMintEvent        json.RawMessage `json:"ft_mint_event"`
	FTBurnEvent        json.RawMessage `json:"ft_burn_event"`
	DataVarSetEvent    json.RawMessage `json:"data_var_set_event"`
	DataMapInsertEvent json.RawMessage `json:"data_map_insert_event"`
	DataMapUpdateEvent json.RawMessage `json:"data_map_update_event"`
	DataMapDeleteEvent json.RawMessage `json:"data_map_delete_event"`
	ContractEvent      json.RawMessage `json:"contract_event"`
}

// kindSlots maps each event kind to its slot in the envelope.
func (e *eventEnvelope) kindSlots() map[EventKind]*json.RawMessage {
	return map[EventKind]*json.RawMessage{
		EventKindSTXTransfer:   &e.STXTransferEvent,
		EventKindSTXMint:       &e.STXMintEvent,
		EventKindSTXBurn:       &e.STXBurnEvent,
		EventKindSTXLock:       &e.STXLockEvent,
		EventKindNFTTransfer:   &e.NFTTransferEvent,
		EventKindNFTMint:       &e.NFTMintEvent,
		EventKindNFTBurn:       &e.NFTBurnEvent,
		EventKindFTTransfer:    &e.FTTransferEvent,
		EventKindFTMint:        &e.FTMintEvent,
		EventKindFTBurn:        &e.FTBurnEvent,
		EventKindContractPrint: &e.ContractEvent,
	}
}

// unusedSlots are envelope slots no event kind populates.
func (e *eventEnvelope) unusedSlots() []json.RawMessage {
	return []json.RawMessage{
		e.DataVarSetEvent,
		e.DataMapInsertEvent,
		e.DataMapUpdateEvent,
		e.DataMapDeleteEvent,
	}
}

// MarshalJSON implements json.Marshaler.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Payload == nil {
		return nil, fmt.Errorf("event %d has no payload", e.EventIndex)
	}
	kind := e.Payload.Kind()
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}

	envelope := eventEnvelope{
		TxID:       e.TxID,
		Committed:  e.Committed,
		EventIndex: e.EventIndex,
		EventType:  kind,
	}
	slot, ok := envelope.kindSlots()[kind]
	if !ok {
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
	*slot = data

	return json.Marshal(envelope)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Event) UnmarshalJSON(data []byte) error {
	var envelope eventEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}

	decode, ok := payloadDecoders[envelope.EventType]
	if !ok {
		return fmt.Errorf("unknown event type %q", envelope.EventType)
	}

	var populated []EventKind
	for kind, slot := range envelope.kindSlots() {
		if !isAbsent(*slot) {
			populated = append(populated, kind)
		}
	}
	for _, slot := range envelope.unusedSlots() {
		if !isAbsent(slot) {
			return fmt.Errorf("event %d of type %s carries an unsupported payload", envelope.EventIndex, envelope.EventType)
		}
	}
	if len(populated) != 1 || populated[0] != envelope.EventType {
		return fmt.Errorf("event %d of type %s must populate exactly the %s slot, found %v",
			envelope.EventIndex, envelope.EventType, envelope.EventType.Slot(), populated)
	}

	payload, err := decode(*envelope.kindSlots()[envelope.EventType])
	if err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", envelope.EventType, err)
	}

	*e = Event{
		TxID:       envelope.TxID,
		Committed:  envelope.Committed,
		EventIndex: envelope.EventIndex,
		Payload:    payload,
	}
	return nil
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
